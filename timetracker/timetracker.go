// Package timetracker measures how long the simulation has been running.
// A single goroutine owns the stopwatch and every operation is a message to it.
package timetracker

import (
	"fmt"
	"sync"
	"time"
)

type op int

const (
	opStart op = iota
	opStop
	opReset
	opElapsed
)

type request struct {
	op    op
	reply chan time.Duration
}

type Tracker struct {
	requests chan request
	done     chan struct{}
	once     sync.Once
	clock    func() time.Time
}

func New() *Tracker {
	return NewWithClock(time.Now)
}

// Tracker reading time from clock instead of the wall clock
func NewWithClock(clock func() time.Time) *Tracker {
	tracker := &Tracker{
		requests: make(chan request),
		done:     make(chan struct{}),
		clock:    clock,
	}
	go tracker.run()
	return tracker
}

func (tracker *Tracker) run() {

	var running bool
	var since time.Time
	var elapsed time.Duration

	for {
		select {
		case <-tracker.done:
			return
		case req := <-tracker.requests:
			switch req.op {
			case opStart:
				if !running {
					running, since = true, tracker.clock()
				}
			case opStop:
				if running {
					elapsed += tracker.clock().Sub(since)
					running = false
				}
			case opReset:
				running, elapsed = false, 0
			}
			total := elapsed
			if running {
				total += tracker.clock().Sub(since)
			}
			req.reply <- total
		}
	}
}

func (tracker *Tracker) send(kind op) time.Duration {
	reply := make(chan time.Duration, 1)
	select {
	case tracker.requests <- request{op: kind, reply: reply}:
		return <-reply
	case <-tracker.done:
		return 0
	}
}

func (tracker *Tracker) Start() { tracker.send(opStart) }

func (tracker *Tracker) Stop() { tracker.send(opStop) }

// Stop and zero the stopwatch
func (tracker *Tracker) Reset() { tracker.send(opReset) }

func (tracker *Tracker) Elapsed() time.Duration { return tracker.send(opElapsed) }

func (tracker *Tracker) ElapsedString() string { return Format(tracker.Elapsed()) }

// Stop the owning goroutine, later calls return zero
func (tracker *Tracker) Close() {
	tracker.once.Do(func() { close(tracker.done) })
}

// Format as HH:MM:SS.cc
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	centiseconds := int64(d / (10 * time.Millisecond))
	hours := centiseconds / 360000
	minutes := centiseconds / 6000 % 60
	seconds := centiseconds / 100 % 60
	return fmt.Sprintf("%02d:%02d:%02d.%02d", hours, minutes, seconds, centiseconds%100)
}
