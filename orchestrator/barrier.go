package orchestrator

import (
	"context"
	"sync"
	"time"
)

// Counting rendezvous for a fixed number of parties
// The last party to arrive runs the completion step with the barrier lock held, then releases the round
type Barrier struct {
	mutex      sync.Mutex
	parties    int
	arrived    int
	round      uint64
	release    chan struct{} // closed when the current round completes
	completion func()
}

func NewBarrier(parties int, completion func()) *Barrier {
	return &Barrier{
		parties:    parties,
		release:    make(chan struct{}),
		completion: completion,
	}
}

// Arrive and wait for the rest of the round
// Returns false if timeout elapsed first, in which case the arrival is withdrawn
// Only cancellation of ctx is reported as an error
func (barrier *Barrier) Await(ctx context.Context, timeout time.Duration) (bool, error) {

	barrier.mutex.Lock()
	barrier.arrived++
	if barrier.arrived == barrier.parties {
		barrier.complete()
		barrier.mutex.Unlock()
		return true, nil
	}
	release := barrier.release
	barrier.mutex.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-release:
		return true, nil
	case <-timer.C:
	case <-ctx.Done():
	}

	barrier.mutex.Lock()
	defer barrier.mutex.Unlock()

	// Round completed while giving up
	select {
	case <-release:
		return true, nil
	default:
	}
	barrier.arrived--
	return false, ctx.Err()
}

// Must be called with mutex held
func (barrier *Barrier) complete() {
	if barrier.completion != nil {
		barrier.completion()
	}
	barrier.arrived = 0
	barrier.round++
	close(barrier.release)
	barrier.release = make(chan struct{})
}

// Number of completed rounds
func (barrier *Barrier) Rounds() uint64 {
	barrier.mutex.Lock()
	defer barrier.mutex.Unlock()
	return barrier.round
}

// Number of parties waiting in the current round
func (barrier *Barrier) Waiting() int {
	barrier.mutex.Lock()
	defer barrier.mutex.Unlock()
	return barrier.arrived
}

// Run fn with the barrier lock held, serialised with completion steps
func (barrier *Barrier) Locked(fn func()) {
	barrier.mutex.Lock()
	defer barrier.mutex.Unlock()
	fn()
}
