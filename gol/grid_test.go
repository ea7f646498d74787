package gol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

// Make n*n grid with every cell randomly alive or dead
func randomGrid(random *rand.Rand, n int) *Grid {
	grid := NewGrid(n)
	for x := 0; x != n; x++ {
		for y := 0; y != n; y++ {
			grid.Set(x, y, CellOf(random.Intn(2) == 1))
		}
	}
	return grid
}

func TestMergeSplitRoundTrip(t *testing.T) {
	random := rand.New(rand.NewSource(1))
	for _, count := range []int{1, 4, 9, 16} {
		for _, n := range []int{4, 12, 48} {
			if n%sqrt(count) != 0 {
				continue
			}
			t.Run(fmt.Sprintf("%dx%d-%d", n, n, count), func(t *testing.T) {
				grid := randomGrid(random, n)
				blocks, err := SplitBlocks(grid, count)
				if err != nil {
					t.Fatal(err)
				}
				if len(blocks) != count {
					t.Fatalf("got %d blocks, want %d", len(blocks), count)
				}
				merged, err := MergeBlocks(blocks)
				if err != nil {
					t.Fatal(err)
				}
				if !merged.Equal(grid) {
					t.Errorf("merged grid differs from original\n%s\n%s", merged, grid)
				}
			})
		}
	}
}

func sqrt(count int) int {
	side, _ := BlocksPerSide(count)
	return side
}

func TestMergeQuadrantLayout(t *testing.T) {
	// Each quadrant is filled with a distinct pattern so misplaced blocks are visible
	blocks := make([]*Grid, 4)
	for i := range blocks {
		blocks[i] = NewGrid(2)
		for x := 0; x != 2; x++ {
			for y := 0; y != 2; y++ {
				blocks[i].Set(x, y, CellOf(i == 1 || i == 2))
			}
		}
	}
	merged, err := MergeBlocks(blocks)
	if err != nil {
		t.Fatal(err)
	}
	want := "..OO\n..OO\nOO..\nOO..\n"
	if merged.String() != want {
		t.Errorf("got\n%swant\n%s", merged, want)
	}
}

func TestMergeSingleBlockCopies(t *testing.T) {
	block := randomGrid(rand.New(rand.NewSource(2)), 4)
	merged, err := MergeBlocks([]*Grid{block})
	if err != nil {
		t.Fatal(err)
	}
	if !merged.Equal(block) {
		t.Fatal("single block merge changed cells")
	}
	merged.Set(0, 0, CellOf(!merged.At(0, 0).IsAlive()))
	if merged.Equal(block) {
		t.Error("single block merge shares storage with its input")
	}
}

func TestMergeErrors(t *testing.T) {
	tests := []struct {
		name   string
		blocks []*Grid
		want   error
	}{
		{"three blocks", []*Grid{NewGrid(2), NewGrid(2), NewGrid(2)}, ErrBlockCount},
		{"missing block", []*Grid{NewGrid(2), nil, NewGrid(2), NewGrid(2)}, ErrMissing},
		{"mixed sizes", []*Grid{NewGrid(2), NewGrid(2), NewGrid(3), NewGrid(2)}, ErrSizes},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := MergeBlocks(test.blocks)
			if !errors.Is(err, test.want) {
				t.Errorf("got %v, want %v", err, test.want)
			}
		})
	}
}

func TestStatsCoverWholeGrid(t *testing.T) {
	random := rand.New(rand.NewSource(3))
	for _, n := range []int{4, 8, 30} {
		grid := randomGrid(random, n)
		stats := grid.Stats()
		if stats.Total() != n*n {
			t.Errorf("%d: alive %d + dead %d != %d", n, stats.AliveCount, stats.DeadCount, n*n)
		}
		if len(grid.AliveCells()) != stats.AliveCount {
			t.Errorf("%d: %d alive positions, %d alive cells", n, len(grid.AliveCells()), stats.AliveCount)
		}
	}
}

func TestPartialStatsSumToMergedStats(t *testing.T) {
	grid := randomGrid(rand.New(rand.NewSource(4)), 16)
	blocks, err := SplitBlocks(grid, 4)
	if err != nil {
		t.Fatal(err)
	}
	partials := make([]GameStats, len(blocks))
	for i, block := range blocks {
		partials[i] = block.Stats()
	}
	if got := SumStats(partials...); got != grid.Stats() {
		t.Errorf("sum of partials %+v, merged %+v", got, grid.Stats())
	}
	// Order of summation does not matter
	reversed := SumStats(partials[3], partials[2], partials[1], partials[0])
	grouped := partials[0].Add(partials[1]).Add(partials[2].Add(partials[3]))
	if reversed != grouped || grouped != grid.Stats() {
		t.Errorf("reversed %+v, grouped %+v", reversed, grouped)
	}
}

func TestCompleteness(t *testing.T) {
	grid := NewGrid(3)
	if grid.Complete() {
		t.Fatal("new grid reported complete")
	}
	for x := 0; x != 3; x++ {
		for y := 0; y != 3; y++ {
			grid.Set(x, y, Dead)
		}
	}
	if !grid.Complete() {
		t.Error("fully assigned grid reported incomplete")
	}
}

func TestProjections(t *testing.T) {
	grid := GridFromBools([][]bool{{true, false}, {false, true}})
	bools := grid.BoolMatrix()
	if !bools[0][0] || bools[0][1] || bools[1][0] || !bools[1][1] {
		t.Errorf("bool matrix %v", bools)
	}
	chars := grid.CharMatrix()
	if string(chars[0]) != "O." || string(chars[1]) != ".O" {
		t.Errorf("char matrix %q", chars)
	}
}

func TestGhostGridWraps(t *testing.T) {
	grid := GridFromBools([][]bool{
		{true, false, false},
		{false, false, false},
		{false, false, true},
	})
	ghost := grid.GhostGrid()
	if ghost.Size() != 5 {
		t.Fatalf("ghost size %d", ghost.Size())
	}
	// Top-left ghost corner holds the bottom-right cell, bottom-right ghost corner the top-left cell
	if !ghost.At(0, 0).IsAlive() || !ghost.At(4, 4).IsAlive() {
		t.Errorf("ghost corners not wrapped\n%s", ghost)
	}
	if !ghost.At(1, 4).IsAlive() || !ghost.At(4, 1).IsAlive() {
		t.Errorf("ghost edges not wrapped\n%s", ghost)
	}
}

func TestPackRoundTrip(t *testing.T) {
	grid := randomGrid(rand.New(rand.NewSource(5)), 7)
	grid.Set(3, 3, Unset)
	unpacked, err := UnpackGrid(grid.Pack())
	if err != nil {
		t.Fatal(err)
	}
	if !unpacked.Equal(grid) {
		t.Errorf("got\n%swant\n%s", unpacked, grid)
	}
	if unpacked.At(3, 3) != Unset {
		t.Error("unset cell not preserved")
	}
	if _, err := UnpackGrid(grid.Pack()[:3]); !errors.Is(err, ErrPacked) {
		t.Errorf("truncated data: got %v", err)
	}
}

func TestUnpackRejectsOversizedHeader(t *testing.T) {
	for _, n := range []int64{1 << 62, 1 << 31, 9} {
		data := binary.AppendVarint(nil, n)
		data = append(data, 0, 0, 0, 0)
		if _, err := UnpackGrid(data); !errors.Is(err, ErrPacked) {
			t.Errorf("side %d: got %v", n, err)
		}
	}
}
