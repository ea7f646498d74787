// Definitions of value types that are shared across orchestrator and workers

package gol

import "fmt"

// Liveness of a single cell
type Cell uint8

const (
	Unset Cell = iota // Not yet assigned, counts as dead for neighbours
	Dead
	Alive
)

func CellOf(alive bool) Cell {
	if alive {
		return Alive
	}
	return Dead
}

func (cell Cell) IsAlive() bool { return cell == Alive }

func (cell Cell) ToChar() byte {
	if cell == Alive {
		return 'O'
	}
	return '.'
}

func (cell Cell) String() string {
	switch cell {
	case Alive:
		return "Alive"
	case Dead:
		return "Dead"
	}
	return "Unset"
}

// Coordinate of a cell inside a grid (X is the row, Y the column)
type Position struct {
	X, Y int
}

func (pos Position) String() string {
	return fmt.Sprintf("(%d, %d)", pos.X, pos.Y)
}

// Alive and dead cell counts of a block or a whole grid
type GameStats struct {
	AliveCount int
	DeadCount  int
}

func (stats GameStats) Add(other GameStats) GameStats {
	return GameStats{
		AliveCount: stats.AliveCount + other.AliveCount,
		DeadCount:  stats.DeadCount + other.DeadCount,
	}
}

func (stats GameStats) Total() int {
	return stats.AliveCount + stats.DeadCount
}

// Sum a set of partial stats
func SumStats(partials ...GameStats) GameStats {
	total := GameStats{}
	for _, partial := range partials {
		total = total.Add(partial)
	}
	return total
}
