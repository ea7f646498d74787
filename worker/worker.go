package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"uk.ac.bris.cs/lockstep/gol"
	"uk.ac.bris.cs/lockstep/store"
)

// Idle sleep between checks while the simulation is stopped
const CooldownTimeout = 1000 * time.Millisecond

const (
	generationsBucket = "generations"
	statsBucket       = "stats"

	simulationStartedKey = "simulationStarted"
	indexKey             = "index"
	partitionKey         = "partition"
	aliveCountKey        = "aliveCount"
	deadCountKey         = "deadCount"
)

var (
	ErrNotInitialized = errors.New("worker not initialized")
	ErrBlockSize      = errors.New("invalid block size")
)

// Calls a worker makes to the orchestrator every generation
type Orchestrator interface {
	PublishBlock(ctx context.Context, index int, block *gol.Grid) error
	SyncWorkers(ctx context.Context) error
	GetBorderCells(ctx context.Context, index int) (*gol.Borders, error) // nil while the round is incomplete
}

// Owner of one block of the grid
type Worker struct {
	store        *store.Store
	orchestrator Orchestrator
	cooldown     time.Duration

	mutex  sync.Mutex // serialises resets against round commits
	epoch  uint64     // incremented on every reset, rounds started before a reset are discarded
	random *rand.Rand
}

func New(state *store.Store, orchestrator Orchestrator, cooldown time.Duration) *Worker {
	return &Worker{
		store:        state,
		orchestrator: orchestrator,
		cooldown:     cooldown,
		random:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func generationKey(parity int) string { return strconv.Itoa(parity) }

// Translate missing state into ErrNotInitialized
func notInitialized(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotInitialized, err)
	}
	return err
}

// Reset state and fill an n*n block with random cells
func (worker *Worker) Initialize(ctx context.Context, index, n int) error {

	log.Printf("Init: block %d, %dx%d", index, n, n)

	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrBlockSize, n)
	}

	worker.mutex.Lock()
	defer worker.mutex.Unlock()

	block := gol.NewGrid(n)
	for x := 0; x != n; x++ {
		for y := 0; y != n; y++ {
			block.Set(x, y, gol.CellOf(worker.random.Float64() >= 0.5))
		}
	}
	return worker.reset(index, block)
}

// Reset state and take a given block as the current generation
func (worker *Worker) Load(ctx context.Context, index int, block *gol.Grid) error {

	log.Printf("Load: block %d, %dx%d", index, block.Size(), block.Size())

	if block.Size() == 0 || !block.Complete() {
		return fmt.Errorf("%w: incomplete %dx%d block", ErrBlockSize, block.Size(), block.Size())
	}

	worker.mutex.Lock()
	defer worker.mutex.Unlock()
	return worker.reset(index, block.Copy())
}

// Must be called with mutex held
func (worker *Worker) reset(index int, block *gol.Grid) error {
	worker.epoch++
	stats := block.Stats()
	return worker.store.Update(func(tx *store.Tx) error {
		for key, value := range map[string]int{
			simulationStartedKey: 0,
			indexKey:             0,
			partitionKey:         index,
			aliveCountKey:        stats.AliveCount,
			deadCountKey:         stats.DeadCount,
		} {
			if err := tx.PutInt(statsBucket, key, value); err != nil {
				return err
			}
		}
		if err := tx.Clear(generationsBucket); err != nil {
			return err
		}
		if err := tx.PutGrid(generationsBucket, generationKey(0), block); err != nil {
			return err
		}
		return tx.PutGrid(generationsBucket, generationKey(1), block)
	})
}

func (worker *Worker) GetPartialGameStats(ctx context.Context) (gol.GameStats, error) {
	stats := gol.GameStats{}
	err := worker.store.View(func(tx *store.Tx) (err error) {
		if stats.AliveCount, err = tx.GetInt(statsBucket, aliveCountKey); err != nil {
			return err
		}
		stats.DeadCount, err = tx.GetInt(statsBucket, deadCountKey)
		return err
	})
	return stats, notInitialized(err)
}

// Get current generation of this worker's block
func (worker *Worker) GetBlock(ctx context.Context) (*gol.Grid, error) {
	var block *gol.Grid
	err := worker.store.View(func(tx *store.Tx) error {
		parity, err := tx.GetInt(statsBucket, indexKey)
		if err != nil {
			return err
		}
		block, err = tx.GetGrid(generationsBucket, generationKey(parity))
		return err
	})
	return block, notInitialized(err)
}

func (worker *Worker) Partition() (int, error) {
	var partition int
	err := worker.store.View(func(tx *store.Tx) (err error) {
		partition, err = tx.GetInt(statsBucket, partitionKey)
		return err
	})
	return partition, notInitialized(err)
}

func (worker *Worker) StartSimulation(ctx context.Context) error {

	log.Print("Start")
	return worker.setStarted(0, 1)
}

func (worker *Worker) StopSimulation(ctx context.Context) error {

	log.Print("Stop")
	return worker.setStarted(1, 0)
}

func (worker *Worker) setStarted(from, to int) error {
	err := worker.store.Update(func(tx *store.Tx) error {
		_, err := tx.CompareAndSwapInt(statsBucket, simulationStartedKey, from, to)
		return err
	})
	return notInitialized(err)
}

func (worker *Worker) Started() (bool, error) {
	var started int
	err := worker.store.View(func(tx *store.Tx) (err error) {
		started, err = tx.GetInt(statsBucket, simulationStartedKey)
		return err
	})
	return started == 1, notInitialized(err)
}
