package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"uk.ac.bris.cs/lockstep/gol"
	"uk.ac.bris.cs/lockstep/pgm"
)

const (
	BarrierTimeout = 1000 * time.Millisecond
	MinSize        = 4
)

var (
	ErrInvalidSize = errors.New("invalid board size")
	ErrPartition   = errors.New("partition index out of range")
)

type Config struct {
	BlockCount     int           // Number of partitions, a square number
	BarrierTimeout time.Duration // Longest wait at the barrier before a round degrades to a no-op
	MinSize        int           // Smallest accepted board side
	MaxSize        int           // Largest accepted board side, 0 for no limit
}

// Owner of the partition topology and the per-generation synchronisation
type Orchestrator struct {
	config   Config
	topology *gol.Topology
	router   Router
	arena    *blockArena
	barrier  *Barrier

	cache_mutex sync.Mutex
	snapshot    *gol.Grid // merged grid, nil until rebuilt
	version     uint64    // incremented whenever the board is replaced
}

func New(config Config, router Router) (*Orchestrator, error) {
	topology, err := gol.NewTopology(config.BlockCount)
	if err != nil {
		return nil, err
	}
	if config.BarrierTimeout <= 0 {
		config.BarrierTimeout = BarrierTimeout
	}
	if config.MinSize <= 0 {
		config.MinSize = MinSize
	}
	orchestrator := &Orchestrator{
		config:   config,
		topology: topology,
		router:   router,
		arena:    newBlockArena(config.BlockCount),
	}
	orchestrator.barrier = NewBarrier(config.BlockCount, func() { orchestrator.rebuildSnapshot() })
	return orchestrator, nil
}

func (orchestrator *Orchestrator) BlockCount() int { return orchestrator.config.BlockCount }

func (orchestrator *Orchestrator) Topology() *gol.Topology { return orchestrator.topology }

func (orchestrator *Orchestrator) Config() Config { return orchestrator.config }

// Number of completed barrier rounds since start
func (orchestrator *Orchestrator) Rounds() uint64 { return orchestrator.barrier.Rounds() }

// Check a board side length before anything is changed
func (orchestrator *Orchestrator) ValidateSize(n int) error {
	side := orchestrator.topology.Side()
	switch {
	case n < orchestrator.config.MinSize:
		return fmt.Errorf("%w: %d is below the minimum of %d", ErrInvalidSize, n, orchestrator.config.MinSize)
	case orchestrator.config.MaxSize > 0 && n > orchestrator.config.MaxSize:
		return fmt.Errorf("%w: %d is above the maximum of %d", ErrInvalidSize, n, orchestrator.config.MaxSize)
	case n%side != 0:
		return fmt.Errorf("%w: %d does not split into %d blocks per side", ErrInvalidSize, n, side)
	}
	return nil
}

// Drop cached grid and published blocks of the previous board
func (orchestrator *Orchestrator) invalidate() {
	orchestrator.barrier.Locked(func() {
		orchestrator.arena.clear()
		orchestrator.cache_mutex.Lock()
		orchestrator.snapshot = nil
		orchestrator.version++
		orchestrator.cache_mutex.Unlock()
	})
}

// Start a new random n*n board, every worker gets an equal square block
func (orchestrator *Orchestrator) Initialize(ctx context.Context, n int) error {

	log.Printf("Init: %dx%d-%d", n, n, orchestrator.config.BlockCount)

	if err := orchestrator.ValidateSize(n); err != nil {
		return err
	}
	block_size := n / orchestrator.topology.Side()

	orchestrator.invalidate()
	err := FanOut(ctx, orchestrator.router, orchestrator.config.BlockCount,
		func(ctx context.Context, index int, worker WorkerClient) error {
			return worker.Initialize(ctx, index, block_size)
		})
	orchestrator.invalidate()
	return err
}

// Start a board from a given grid, split across the workers
func (orchestrator *Orchestrator) InitializeFromGrid(ctx context.Context, grid *gol.Grid) error {

	log.Printf("Init from grid: %dx%d-%d", grid.Size(), grid.Size(), orchestrator.config.BlockCount)

	if err := orchestrator.ValidateSize(grid.Size()); err != nil {
		return err
	}
	if !grid.Complete() {
		return fmt.Errorf("%w: grid has unset cells", ErrInvalidSize)
	}
	blocks, err := gol.SplitBlocks(grid, orchestrator.config.BlockCount)
	if err != nil {
		return err
	}

	orchestrator.invalidate()
	err = FanOut(ctx, orchestrator.router, orchestrator.config.BlockCount,
		func(ctx context.Context, index int, worker WorkerClient) error {
			return worker.Load(ctx, index, blocks[index])
		})
	orchestrator.invalidate()
	return err
}

func (orchestrator *Orchestrator) StartSimulation(ctx context.Context) error {

	log.Print("Start")
	return FanOut(ctx, orchestrator.router, orchestrator.config.BlockCount,
		func(ctx context.Context, index int, worker WorkerClient) error {
			return worker.StartSimulation(ctx)
		})
}

func (orchestrator *Orchestrator) StopSimulation(ctx context.Context) error {

	log.Print("Stop")
	return FanOut(ctx, orchestrator.router, orchestrator.config.BlockCount,
		func(ctx context.Context, index int, worker WorkerClient) error {
			return worker.StopSimulation(ctx)
		})
}

// Get the merged grid, asking every worker for its block when nothing is cached
// Independent of the barrier, safe to call while the simulation runs
func (orchestrator *Orchestrator) GetCurrentGeneration(ctx context.Context) (*gol.Grid, error) {

	orchestrator.cache_mutex.Lock()
	snapshot, version := orchestrator.snapshot, orchestrator.version
	orchestrator.cache_mutex.Unlock()
	if snapshot != nil {
		return snapshot, nil
	}

	blocks := make([]*gol.Grid, orchestrator.config.BlockCount)
	err := FanOut(ctx, orchestrator.router, orchestrator.config.BlockCount,
		func(ctx context.Context, index int, worker WorkerClient) (err error) {
			blocks[index], err = worker.GetBlock(ctx)
			return err
		})
	if err != nil {
		return nil, err
	}
	merged, err := gol.MergeBlocks(blocks)
	if err != nil {
		return nil, err
	}

	// Board replaced while collecting, do not cache blocks of the old one
	orchestrator.cache_mutex.Lock()
	if orchestrator.version == version && orchestrator.snapshot == nil {
		orchestrator.snapshot = merged
	}
	orchestrator.cache_mutex.Unlock()
	return merged, nil
}

// Store the latest block of a partition
func (orchestrator *Orchestrator) PublishBlock(ctx context.Context, index int, block *gol.Grid) error {
	return orchestrator.arena.publish(index, block)
}

// Wait until every worker reached this point of the round or the barrier timed out
// A timeout is not an error, the round simply proceeds
func (orchestrator *Orchestrator) SyncWorkers(ctx context.Context) error {
	_, err := orchestrator.barrier.Await(ctx, orchestrator.config.BarrierTimeout)
	return err
}

// Get halo of a partition, nil while any block of the round is missing
func (orchestrator *Orchestrator) GetBorderCells(ctx context.Context, index int) (*gol.Borders, error) {
	if index < 0 || index >= orchestrator.config.BlockCount {
		return nil, fmt.Errorf("%w: %d", ErrPartition, index)
	}
	borders, ok := gol.BorderCells(orchestrator.topology, orchestrator.arena.blocks(), index)
	if !ok {
		return nil, nil
	}
	return borders, nil
}

// Completion step of the barrier, runs with the barrier lock held
// Caches the merged grid when every partition has published, otherwise leaves the cache as it is
func (orchestrator *Orchestrator) rebuildSnapshot() bool {
	blocks := orchestrator.arena.blocks()
	for _, block := range blocks {
		if block == nil {
			return false
		}
	}
	merged, err := gol.MergeBlocks(blocks)
	if err != nil {
		log.Printf("Merge: %v", err)
		return false
	}
	orchestrator.cache_mutex.Lock()
	orchestrator.snapshot = merged
	orchestrator.cache_mutex.Unlock()
	return true
}

// Write the current generation to a pgm file
func (orchestrator *Orchestrator) SaveSnapshot(ctx context.Context, path string) error {

	log.Printf("Save: %s", path)

	grid, err := orchestrator.GetCurrentGeneration(ctx)
	if err != nil {
		return err
	}
	return pgm.Write(path, grid)
}

// Replace the board with one read from a pgm file
func (orchestrator *Orchestrator) LoadSnapshot(ctx context.Context, path string) error {
	grid, err := pgm.Read(path)
	if err != nil {
		return err
	}
	return orchestrator.InitializeFromGrid(ctx, grid)
}
