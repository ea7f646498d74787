// Package sdl renders the merged board in an SDL2 window.
package sdl

import (
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"uk.ac.bris.cs/lockstep/gol"
)

type Window struct {
	Size     int32 // cells per side
	window   *sdl.Window
	renderer *sdl.Renderer
	texture  *sdl.Texture
	pixels   []byte
}

// Open a window showing an n*n board, each cell scale pixels wide
func NewWindow(n, scale int32) (*Window, error) {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return nil, err
	}

	window, err := sdl.CreateWindow("Game of Life", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		n*scale, n*scale, sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return nil, err
	}
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return nil, err
	}
	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ABGR8888, sdl.TEXTUREACCESS_STATIC, n, n)
	if err != nil {
		renderer.Destroy()
		window.Destroy()
		sdl.Quit()
		return nil, err
	}

	return &Window{
		Size:     n,
		window:   window,
		renderer: renderer,
		texture:  texture,
		pixels:   make([]byte, n*n*4),
	}, nil
}

func (w *Window) Destroy() {
	w.texture.Destroy()
	w.renderer.Destroy()
	w.window.Destroy()
	sdl.Quit()
}

// Draw grid, alive cells white and everything else black
// Grids of a different size than the window are clipped
func (w *Window) RenderGrid(grid *gol.Grid) error {
	Fill(w.pixels, int(w.Size), grid)
	if err := w.texture.Update(nil, unsafe.Pointer(&w.pixels[0]), int(w.Size)*4); err != nil {
		return err
	}
	if err := w.renderer.Clear(); err != nil {
		return err
	}
	if err := w.renderer.Copy(w.texture, nil, nil); err != nil {
		return err
	}
	w.renderer.Present()
	return nil
}

// Set ABGR pixels of an n*n image from grid, x is the row
func Fill(pixels []byte, n int, grid *gol.Grid) {
	for i := range pixels {
		pixels[i] = 0
	}
	for _, pos := range grid.AliveCells() {
		if pos.X < n && pos.Y < n {
			offset := (pos.X*n + pos.Y) * 4
			pixels[offset], pixels[offset+1], pixels[offset+2], pixels[offset+3] = 0xFF, 0xFF, 0xFF, 0xFF
		}
	}
}

// Key pressed since the last call, 0 if none
// Closing the window reports 'q'
func (w *Window) PollEvent() rune {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			return 'q'
		case *sdl.KeyboardEvent:
			if e.Type != sdl.KEYDOWN {
				continue
			}
			switch e.Keysym.Sym {
			case sdl.K_s:
				return 's'
			case sdl.K_p:
				return 'p'
			case sdl.K_i:
				return 'i'
			case sdl.K_w:
				return 'w'
			case sdl.K_q, sdl.K_ESCAPE:
				return 'q'
			}
		}
	}
	return 0
}
