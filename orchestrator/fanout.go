package orchestrator

import (
	"context"
	"fmt"

	"uk.ac.bris.cs/lockstep/gol"
)

// Calls the orchestrator makes to the worker owning a partition
type WorkerClient interface {
	Initialize(ctx context.Context, index, n int) error
	Load(ctx context.Context, index int, block *gol.Grid) error
	StartSimulation(ctx context.Context) error
	StopSimulation(ctx context.Context) error
	GetBlock(ctx context.Context) (*gol.Grid, error)
	GetPartialGameStats(ctx context.Context) (gol.GameStats, error)
}

// Partition-aware routing to workers
type Router interface {
	Worker(index int) (WorkerClient, error)
}

// Call fn for every partition in parallel and wait for all of them
// Fails if any single call fails
func FanOut(ctx context.Context, router Router, count int, fn func(ctx context.Context, index int, worker WorkerClient) error) error {

	call_chan := make(chan error, count)
	for index := 0; index != count; index++ {
		go func(index int) {
			worker, err := router.Worker(index)
			if err == nil {
				err = fn(ctx, index, worker)
			}
			if err != nil {
				err = fmt.Errorf("block %d: %w", index, err)
			}
			call_chan <- err
		}(index)
	}

	// Check if all calls succeeded
	var first error
	for index := 0; index != count; index++ {
		if err := <-call_chan; err != nil && first == nil {
			first = err
		}
	}
	return first
}
