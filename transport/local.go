package transport

import (
	"errors"
	"fmt"
	"sync"

	"uk.ac.bris.cs/lockstep/orchestrator"
)

var ErrNoWorker = errors.New("no worker for partition")

// Router over workers living in the same process
type Local struct {
	mutex   sync.RWMutex
	workers []orchestrator.WorkerClient
}

func NewLocal(count int) *Local {
	return &Local{workers: make([]orchestrator.WorkerClient, count)}
}

// Route partition index to worker
func (local *Local) Attach(index int, worker orchestrator.WorkerClient) {
	local.mutex.Lock()
	defer local.mutex.Unlock()
	local.workers[index] = worker
}

func (local *Local) Worker(index int) (orchestrator.WorkerClient, error) {
	local.mutex.RLock()
	defer local.mutex.RUnlock()
	if index < 0 || index >= len(local.workers) || local.workers[index] == nil {
		return nil, fmt.Errorf("%w %d", ErrNoWorker, index)
	}
	return local.workers[index], nil
}
