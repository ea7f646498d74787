package gol

import "fmt"

// Directions of the eight neighbouring blocks
type Direction int

const (
	North Direction = iota
	South
	West
	East
	NorthWest
	NorthEast
	SouthWest
	SouthEast
)

// Adjacency table of a square layout of blocks
// Blocks are indexed row-major from the north-west and neighbours wrap around the edges
type Topology struct {
	side  int
	table [][8]int
}

var topologies = map[int]*Topology{}

func init() {
	// Single block and quadrants are always available
	for _, count := range []int{1, 4} {
		topologies[count], _ = buildTopology(count)
	}
}

// Get adjacency table for a given block count
func NewTopology(count int) (*Topology, error) {
	if topology, ok := topologies[count]; ok {
		return topology, nil
	}
	return buildTopology(count)
}

func buildTopology(count int) (*Topology, error) {
	side, ok := BlocksPerSide(count)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrBlockCount, count)
	}
	wrap := func(v int) int { return (v + side) % side }
	table := make([][8]int, count)
	for index := range table {
		row, col := index/side, index%side
		table[index] = [8]int{
			North:     wrap(row-1)*side + col,
			South:     wrap(row+1)*side + col,
			West:      row*side + wrap(col-1),
			East:      row*side + wrap(col+1),
			NorthWest: wrap(row-1)*side + wrap(col-1),
			NorthEast: wrap(row-1)*side + wrap(col+1),
			SouthWest: wrap(row+1)*side + wrap(col-1),
			SouthEast: wrap(row+1)*side + wrap(col+1),
		}
	}
	return &Topology{side: side, table: table}, nil
}

func (topology *Topology) Count() int { return len(topology.table) }

func (topology *Topology) Side() int { return topology.side }

// Index of the neighbouring block in a direction
// Panics if index is outside the topology
func (topology *Topology) Neighbour(index int, direction Direction) int {
	if index < 0 || index >= len(topology.table) {
		panic(fmt.Sprintf("block index %d outside topology of %d blocks", index, len(topology.table)))
	}
	return topology.table[index][direction]
}
