package gol

// Indices into Borders.Corners, named by the corner of the diagonal block the cell is taken from
const (
	CornerTopLeft     = 0 // From the south-east block, neighbour of our bottom-right cell
	CornerTopRight    = 1 // From the south-west block, neighbour of our bottom-left cell
	CornerBottomLeft  = 2 // From the north-east block, neighbour of our top-right cell
	CornerBottomRight = 3 // From the north-west block, neighbour of our top-left cell
)

// Halo of a block: edge strips of the four adjacent blocks plus the four diagonal corner cells
type Borders struct {
	North   []Cell // South-most row of the north block
	South   []Cell // North-most row of the south block
	West    []Cell // East-most column of the west block
	East    []Cell // West-most column of the east block
	Corners [4]Cell
}

// Derive the borders of block index from a complete set of published blocks
// Returns false while any block is missing or blocks of different sizes are mixed
func BorderCells(topology *Topology, blocks []*Grid, index int) (*Borders, bool) {
	if len(blocks) != topology.Count() {
		return nil, false
	}
	for _, block := range blocks {
		if block == nil || block.Size() != blocks[0].Size() {
			return nil, false
		}
	}

	north := blocks[topology.Neighbour(index, North)]
	south := blocks[topology.Neighbour(index, South)]
	west := blocks[topology.Neighbour(index, West)]
	east := blocks[topology.Neighbour(index, East)]
	n := north.Size()
	last := n - 1

	borders := &Borders{
		North: make([]Cell, n),
		South: make([]Cell, n),
		West:  make([]Cell, n),
		East:  make([]Cell, n),
	}
	copy(borders.North, north.cells[last])
	copy(borders.South, south.cells[0])
	for i := 0; i != n; i++ {
		borders.West[i] = west.cells[i][last]
		borders.East[i] = east.cells[i][0]
	}

	borders.Corners[CornerTopLeft] = blocks[topology.Neighbour(index, SouthEast)].cells[0][0]
	borders.Corners[CornerTopRight] = blocks[topology.Neighbour(index, SouthWest)].cells[0][last]
	borders.Corners[CornerBottomLeft] = blocks[topology.Neighbour(index, NorthEast)].cells[last][0]
	borders.Corners[CornerBottomRight] = blocks[topology.Neighbour(index, NorthWest)].cells[last][last]
	return borders, true
}

// Check that the strips fit a block of side n
func (borders *Borders) Fits(n int) bool {
	return len(borders.North) == n && len(borders.South) == n &&
		len(borders.West) == n && len(borders.East) == n
}
