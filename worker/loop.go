package worker

import (
	"context"
	"errors"
	"log"
	"time"

	"uk.ac.bris.cs/lockstep/gol"
	"uk.ac.bris.cs/lockstep/store"
)

// Main loop of the worker, returns when ctx is cancelled
// While started every iteration is one round, otherwise the loop idles on the cooldown
func (worker *Worker) Run(ctx context.Context) error {

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		started, err := worker.Started()
		if err != nil && !errors.Is(err, ErrNotInitialized) {
			log.Printf("Read state: %v", err)
		}

		if started {
			_, err = worker.Round(ctx)
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Next iteration retries the round
			log.Printf("Round: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(worker.cooldown):
		}
	}
}

// One generation: publish, wait at the barrier, fetch borders and compute
// Reports whether the block advanced, a round without borders is skipped
func (worker *Worker) Round(ctx context.Context) (bool, error) {

	// Reading and publishing the block happen under the mutex so that a reset
	// never lands between them and no stale block is published after it
	worker.mutex.Lock()
	epoch := worker.epoch

	var partition, parity int
	var current *gol.Grid
	err := worker.store.View(func(tx *store.Tx) (err error) {
		if partition, err = tx.GetInt(statsBucket, partitionKey); err != nil {
			return err
		}
		if parity, err = tx.GetInt(statsBucket, indexKey); err != nil {
			return err
		}
		current, err = tx.GetGrid(generationsBucket, generationKey(parity))
		return err
	})
	if err != nil {
		worker.mutex.Unlock()
		return false, notInitialized(err)
	}
	err = worker.orchestrator.PublishBlock(ctx, partition, current)
	worker.mutex.Unlock()
	if err != nil {
		return false, err
	}

	if err := worker.orchestrator.SyncWorkers(ctx); err != nil {
		return false, err
	}
	borders, err := worker.orchestrator.GetBorderCells(ctx, partition)
	if err != nil {
		return false, err
	}

	// Some peer has not published yet, or published a block of another size
	if borders == nil || !borders.Fits(current.Size()) {
		return false, nil
	}

	next := gol.NewGrid(current.Size())
	stats := gol.NextGeneration(current, next, borders)

	worker.mutex.Lock()
	defer worker.mutex.Unlock()
	if worker.epoch != epoch {
		return false, nil
	}

	advanced := false
	err = worker.store.Update(func(tx *store.Tx) error {
		next_parity := (parity + 1) % 2
		swapped, err := tx.CompareAndSwapInt(statsBucket, indexKey, parity, next_parity)
		if err != nil || !swapped {
			return err
		}
		if err := tx.PutGrid(generationsBucket, generationKey(next_parity), next); err != nil {
			return err
		}
		if err := tx.PutInt(statsBucket, aliveCountKey, stats.AliveCount); err != nil {
			return err
		}
		if err := tx.PutInt(statsBucket, deadCountKey, stats.DeadCount); err != nil {
			return err
		}
		advanced = true
		return nil
	})
	return advanced, err
}
