package gol

// Life rule: born or survives with three neighbours, survives with two
func NextState(cell Cell, alive_neighbours int) Cell {
	return CellOf(alive_neighbours == 3 || (cell == Alive && alive_neighbours == 2))
}

// Get the cell at (x, y) where positions outside the block are taken from its borders
func neighbourAt(block *Grid, borders *Borders, x, y int) Cell {
	n := block.Size()
	switch {
	case x < 0 && y < 0:
		return borders.Corners[CornerBottomRight]
	case x < 0 && y >= n:
		return borders.Corners[CornerBottomLeft]
	case x >= n && y < 0:
		return borders.Corners[CornerTopRight]
	case x >= n && y >= n:
		return borders.Corners[CornerTopLeft]
	case x < 0:
		return borders.North[y]
	case x >= n:
		return borders.South[y]
	case y < 0:
		return borders.West[x]
	case y >= n:
		return borders.East[x]
	}
	return block.cells[x][y]
}

// Count alive cells among the eight surrounding positions
func AliveNeighbours(block *Grid, borders *Borders, x, y int) int {
	count := 0
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if neighbourAt(block, borders, x+dx, y+dy) == Alive {
				count++
			}
		}
	}
	return count
}

// Evaluate next generation of a block into next and return its stats
// next must be the same size as current
func NextGeneration(current, next *Grid, borders *Borders) GameStats {
	stats := GameStats{}
	n := current.Size()
	for x := 0; x != n; x++ {
		for y := 0; y != n; y++ {
			cell := NextState(current.cells[x][y], AliveNeighbours(current, borders, x, y))
			if cell == Alive {
				stats.AliveCount++
			} else {
				stats.DeadCount++
			}
			next.cells[x][y] = cell
		}
	}
	return stats
}

// Advance a whole grid by one generation on a torus
// Reference evaluation over the ghost grid, independent of block borders
func Step(grid *Grid) *Grid {
	n := grid.Size()
	ghost := grid.GhostGrid()
	next := NewGrid(n)
	for x := 1; x <= n; x++ {
		for y := 1; y <= n; y++ {
			count := 0
			for dx := -1; dx <= 1; dx++ {
				for dy := -1; dy <= 1; dy++ {
					if (dx != 0 || dy != 0) && ghost.cells[x+dx][y+dy] == Alive {
						count++
					}
				}
			}
			next.cells[x-1][y-1] = NextState(ghost.cells[x][y], count)
		}
	}
	return next
}
