package gol

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBlockCount = errors.New("block count is not a square number")
	ErrMissing    = errors.New("block missing")
	ErrSizes      = errors.New("block sizes differ")
)

// Square board of cells, addressed as cells[x][y] with x the row
type Grid struct {
	cells [][]Cell
}

// Make n*n grid with every cell unset
func NewGrid(n int) *Grid {
	cell_data := make([]Cell, n*n)
	grid := &Grid{cells: make([][]Cell, n)}
	for x := 0; x != n; x++ {
		grid.cells[x] = cell_data[x*n : (x+1)*n : (x+1)*n]
	}
	return grid
}

// Make grid from rows of cells
// Ownership of rows is transferred to grid object
func GridFromRows(rows [][]Cell) *Grid {
	return &Grid{cells: rows}
}

// Make grid from boolean rows, true meaning alive
func GridFromBools(rows [][]bool) *Grid {
	grid := NewGrid(len(rows))
	for x, row := range rows {
		for y, alive := range row {
			grid.cells[x][y] = CellOf(alive)
		}
	}
	return grid
}

func (grid *Grid) Copy() *Grid {
	n := grid.Size()
	copied := NewGrid(n)
	for x := 0; x != n; x++ {
		copy(copied.cells[x], grid.cells[x])
	}
	return copied
}

func (grid *Grid) Size() int { return len(grid.cells) }

func (grid *Grid) At(x, y int) Cell { return grid.cells[x][y] }

func (grid *Grid) Set(x, y int, cell Cell) { grid.cells[x][y] = cell }

func (grid *Grid) Row(x int) []Cell { return grid.cells[x] }

// Check that no cell is unset
func (grid *Grid) Complete() bool {
	for _, row := range grid.cells {
		for _, cell := range row {
			if cell == Unset {
				return false
			}
		}
	}
	return true
}

func (grid *Grid) Equal(other *Grid) bool {
	if grid.Size() != other.Size() {
		return false
	}
	for x, row := range grid.cells {
		for y, cell := range row {
			if other.cells[x][y] != cell {
				return false
			}
		}
	}
	return true
}

// Count alive and dead cells, unset cells are not counted
func (grid *Grid) Stats() GameStats {
	stats := GameStats{}
	for _, row := range grid.cells {
		for _, cell := range row {
			switch cell {
			case Alive:
				stats.AliveCount++
			case Dead:
				stats.DeadCount++
			}
		}
	}
	return stats
}

func (grid *Grid) AliveCells() []Position {
	alive := make([]Position, 0, 64)
	for x, row := range grid.cells {
		for y, cell := range row {
			if cell == Alive {
				alive = append(alive, Position{X: x, Y: y})
			}
		}
	}
	return alive
}

func (grid *Grid) BoolMatrix() [][]bool {
	result := make([][]bool, grid.Size())
	for x, row := range grid.cells {
		result[x] = make([]bool, len(row))
		for y, cell := range row {
			result[x][y] = cell == Alive
		}
	}
	return result
}

func (grid *Grid) CharMatrix() [][]byte {
	result := make([][]byte, grid.Size())
	for x, row := range grid.cells {
		result[x] = make([]byte, len(row))
		for y, cell := range row {
			result[x][y] = cell.ToChar()
		}
	}
	return result
}

func (grid *Grid) String() string {
	var builder strings.Builder
	for _, row := range grid.CharMatrix() {
		builder.Write(row)
		builder.WriteByte('\n')
	}
	return builder.String()
}

// Pad grid with one cell on each side holding the opposite edge (toroidal wrap)
func (grid *Grid) GhostGrid() *Grid {
	n := grid.Size()
	ghost := NewGrid(n + 2)
	for x := -1; x <= n; x++ {
		for y := -1; y <= n; y++ {
			ghost.cells[x+1][y+1] = grid.cells[(x+n)%n][(y+n)%n]
		}
	}
	return ghost
}

// Side length of a square layout of count blocks, or false if count is not square
func BlocksPerSide(count int) (int, bool) {
	if count <= 0 {
		return 0, false
	}
	side := 1
	for side*side < count {
		side++
	}
	return side, side*side == count
}

// Merge blocks in row-major order into a full grid
// With four blocks [NW, NE, SW, SE] the left column is NW above SW and the right column NE above SE
func MergeBlocks(blocks []*Grid) (*Grid, error) {
	side, ok := BlocksPerSide(len(blocks))
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrBlockCount, len(blocks))
	}
	for i, block := range blocks {
		if block == nil {
			return nil, fmt.Errorf("%w: %d", ErrMissing, i)
		}
		if block.Size() != blocks[0].Size() {
			return nil, fmt.Errorf("%w: block %d is %d, block 0 is %d", ErrSizes, i, block.Size(), blocks[0].Size())
		}
	}
	if side == 1 {
		return blocks[0].Copy(), nil
	}

	block_size := blocks[0].Size()
	merged := NewGrid(block_size * side)
	for index, block := range blocks {
		row_offset := (index / side) * block_size
		col_offset := (index % side) * block_size
		for x := 0; x != block_size; x++ {
			copy(merged.cells[row_offset+x][col_offset:col_offset+block_size], block.cells[x])
		}
	}
	return merged, nil
}

// Split grid into count equally sized blocks in row-major order (inverse of MergeBlocks)
func SplitBlocks(grid *Grid, count int) ([]*Grid, error) {
	side, ok := BlocksPerSide(count)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrBlockCount, count)
	}
	if grid.Size()%side != 0 {
		return nil, fmt.Errorf("%w: %d does not split into %d per side", ErrSizes, grid.Size(), side)
	}

	block_size := grid.Size() / side
	blocks := make([]*Grid, count)
	for index := range blocks {
		row_offset := (index / side) * block_size
		col_offset := (index % side) * block_size
		block := NewGrid(block_size)
		for x := 0; x != block_size; x++ {
			copy(block.cells[x], grid.cells[row_offset+x][col_offset:col_offset+block_size])
		}
		blocks[index] = block
	}
	return blocks, nil
}
