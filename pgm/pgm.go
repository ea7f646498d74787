// Package pgm reads and writes grids as binary PGM (P5) images, alive cells white.
package pgm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"uk.ac.bris.cs/lockstep/gol"
)

const maxval = 255

var ErrFormat = errors.New("not a square P5 pgm image")

// Write grid to a pgm file, creating its directory if needed
func Write(path string, grid *gol.Grid) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return err
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := Encode(file, grid); err != nil {
		return err
	}
	return file.Sync()
}

func Encode(w io.Writer, grid *gol.Grid) error {
	n := grid.Size()
	buffer := bufio.NewWriter(w)
	buffer.WriteString("P5\n")
	buffer.WriteString(strconv.Itoa(n))
	buffer.WriteString(" ")
	buffer.WriteString(strconv.Itoa(n))
	buffer.WriteString("\n")
	buffer.WriteString(strconv.Itoa(maxval))
	buffer.WriteString("\n")

	pixels := make([]byte, n)
	for x := 0; x != n; x++ {
		for y, cell := range grid.Row(x) {
			pixels[y] = 0
			if cell == gol.Alive {
				pixels[y] = maxval
			}
		}
		if _, err := buffer.Write(pixels); err != nil {
			return err
		}
	}
	return buffer.Flush()
}

// Read a square pgm file into a grid, any non-zero pixel is alive
func Read(path string) (*gol.Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Decode(file)
}

func Decode(r io.Reader) (*gol.Grid, error) {
	buffer := bufio.NewReader(r)

	var magic string
	var width, height, depth int
	if _, err := fmt.Fscan(buffer, &magic, &width, &height, &depth); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if magic != "P5" || width != height || width <= 0 || depth != maxval {
		return nil, fmt.Errorf("%w: %s %dx%d maxval %d", ErrFormat, magic, width, height, depth)
	}
	// Single whitespace byte separates header from pixel data
	if _, err := buffer.ReadByte(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	grid := gol.NewGrid(width)
	pixels := make([]byte, width)
	for x := 0; x != width; x++ {
		if _, err := io.ReadFull(buffer, pixels); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		for y, pixel := range pixels {
			grid.Set(x, y, gol.CellOf(pixel != 0))
		}
	}
	return grid, nil
}
