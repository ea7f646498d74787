// Package stats sums the partial counters every worker keeps for its block.
package stats

import (
	"context"
	"sync"

	"uk.ac.bris.cs/lockstep/gol"
	"uk.ac.bris.cs/lockstep/orchestrator"
)

type Aggregator struct {
	router orchestrator.Router
	count  int
}

func New(router orchestrator.Router, count int) *Aggregator {
	return &Aggregator{router: router, count: count}
}

// Alive and dead counts over the whole board, fails if any worker cannot answer
func (aggregator *Aggregator) GetGameStats(ctx context.Context) (gol.GameStats, error) {

	var mutex sync.Mutex
	total := gol.GameStats{}
	err := orchestrator.FanOut(ctx, aggregator.router, aggregator.count,
		func(ctx context.Context, index int, worker orchestrator.WorkerClient) error {
			partial, err := worker.GetPartialGameStats(ctx)
			if err != nil {
				return err
			}
			mutex.Lock()
			total = total.Add(partial)
			mutex.Unlock()
			return nil
		})
	if err != nil {
		return gol.GameStats{}, err
	}
	return total, nil
}
