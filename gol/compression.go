package gol

import (
	"encoding/binary"
	"errors"
)

var ErrPacked = errors.New("malformed packed grid")

// Compress grid into a varint side length followed by 2 bits per cell
func (grid *Grid) Pack() []byte {
	n := grid.Size()
	var length_bytes [binary.MaxVarintLen64]byte
	header := binary.PutVarint(length_bytes[:], int64(n))
	data := make([]byte, header+(n*n+3)/4)
	copy(data, length_bytes[:header])
	cells := data[header:]
	for i := 0; i != n*n; i++ {
		cells[i/4] |= byte(grid.cells[i/n][i%n]) << ((i % 4) * 2)
	}
	return data
}

// Decompress grid produced by Pack
func UnpackGrid(data []byte) (*Grid, error) {
	length, header := binary.Varint(data)
	if header <= 0 || length < 0 {
		return nil, ErrPacked
	}
	cells := data[header:]
	// Every cell needs at least two bits of payload
	if length > int64(len(cells))*4 {
		return nil, ErrPacked
	}
	n := int(length)
	if n*n > len(cells)*4 || len(cells) != (n*n+3)/4 {
		return nil, ErrPacked
	}
	grid := NewGrid(n)
	for i := 0; i != n*n; i++ {
		cell := Cell((cells[i/4] >> ((i % 4) * 2)) & 0x3)
		if cell > Alive {
			return nil, ErrPacked
		}
		grid.cells[i/n][i%n] = cell
	}
	return grid, nil
}

// Compress a strip of cells, 2 bits per cell
func PackCells(strip []Cell) []byte {
	data := make([]byte, (len(strip)+3)/4)
	for i, cell := range strip {
		data[i/4] |= byte(cell) << ((i % 4) * 2)
	}
	return data
}

func UnpackCells(data []byte, length int) ([]Cell, error) {
	if len(data) != (length+3)/4 {
		return nil, ErrPacked
	}
	strip := make([]Cell, length)
	for i := range strip {
		strip[i] = Cell((data[i/4] >> ((i % 4) * 2)) & 0x3)
		if strip[i] > Alive {
			return nil, ErrPacked
		}
	}
	return strip, nil
}
