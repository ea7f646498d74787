package orchestrator

import (
	"fmt"
	"sync/atomic"

	"uk.ac.bris.cs/lockstep/gol"
)

// Fixed slots holding the most recently published block of every partition
// Each slot is written only by its owning worker
type blockArena struct {
	slots []atomic.Pointer[gol.Grid]
}

func newBlockArena(count int) *blockArena {
	return &blockArena{slots: make([]atomic.Pointer[gol.Grid], count)}
}

func (arena *blockArena) publish(index int, block *gol.Grid) error {
	if index < 0 || index >= len(arena.slots) {
		return fmt.Errorf("%w: %d", ErrPartition, index)
	}
	arena.slots[index].Store(block)
	return nil
}

// Current content of every slot, nil where nothing was published
func (arena *blockArena) blocks() []*gol.Grid {
	blocks := make([]*gol.Grid, len(arena.slots))
	for i := range arena.slots {
		blocks[i] = arena.slots[i].Load()
	}
	return blocks
}

func (arena *blockArena) clear() {
	for i := range arena.slots {
		arena.slots[i].Store(nil)
	}
}
