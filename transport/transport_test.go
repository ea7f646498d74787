package transport

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"uk.ac.bris.cs/lockstep/gol"
	"uk.ac.bris.cs/lockstep/orchestrator"
	"uk.ac.bris.cs/lockstep/stats"
	"uk.ac.bris.cs/lockstep/store"
	"uk.ac.bris.cs/lockstep/timetracker"
	"uk.ac.bris.cs/lockstep/worker"
)

type null_writer struct{}

func (w null_writer) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func TestMain(m *testing.M) {
	log.SetOutput(null_writer{}) // Disable log
	os.Exit(m.Run())
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { listener.Close() })
	return listener
}

func openStore(t *testing.T, name string) *store.Store {
	t.Helper()
	state, err := store.Open(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { state.Close() })
	return state
}

// Orchestrator process and its endpoints
type cluster struct {
	orchestrator *orchestrator.Orchestrator
	registry     *Registry
	tracker      *timetracker.Tracker
	rpc_addr     string
	reg_addr     string
	workers      []*worker.Worker
}

func startOrchestrator(t *testing.T, count int) *cluster {
	t.Helper()
	registry := NewRegistry()
	o, err := orchestrator.New(orchestrator.Config{BlockCount: count, BarrierTimeout: 5 * time.Second}, registry)
	if err != nil {
		t.Fatal(err)
	}
	tracker := timetracker.New()
	t.Cleanup(tracker.Close)
	server, err := NewOrchestratorServer(o, stats.New(registry, count), tracker)
	if err != nil {
		t.Fatal(err)
	}
	rpc_listener := listen(t)
	reg_listener := listen(t)
	go Serve(rpc_listener, server)
	go registry.Listen(reg_listener)
	return &cluster{
		orchestrator: o,
		registry:     registry,
		tracker:      tracker,
		rpc_addr:     rpc_listener.Addr().String(),
		reg_addr:     reg_listener.Addr().String(),
	}
}

// Start a worker process for partition index, registered until ctx is cancelled
func (c *cluster) startWorker(t *testing.T, ctx context.Context, index int) {
	t.Helper()
	client, err := DialOrchestrator(c.rpc_addr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })
	w := worker.New(openStore(t, fmt.Sprintf("worker-%d.db", index)), client, 5*time.Millisecond)
	server, err := NewWorkerServer(w)
	if err != nil {
		t.Fatal(err)
	}
	listener := listen(t)
	go Serve(listener, server)
	go Register(ctx, c.reg_addr, index, listener.Addr().String())
	c.workers = append(c.workers, w)
}

func TestLocalRouting(t *testing.T) {
	local := NewLocal(2)
	if _, err := local.Worker(0); !errors.Is(err, ErrNoWorker) {
		t.Errorf("unattached: got %v", err)
	}
	w := worker.New(openStore(t, "w.db"), nil, time.Millisecond)
	local.Attach(1, w)
	if got, err := local.Worker(1); err != nil || got != orchestrator.WorkerClient(w) {
		t.Errorf("attached: got %v, %v", got, err)
	}
	if _, err := local.Worker(2); !errors.Is(err, ErrNoWorker) {
		t.Errorf("out of range: got %v", err)
	}
}

func TestBordersUnavailableOverWire(t *testing.T) {
	var reply BordersReply
	packBorders(nil, &reply)
	borders, err := unpackBorders(&reply)
	if err != nil || borders != nil {
		t.Errorf("got %v, %v", borders, err)
	}
}

func TestRemoteRoundsMatchWholeGrid(t *testing.T) {
	c := startOrchestrator(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for index := 0; index != 4; index++ {
		c.startWorker(t, ctx, index)
	}
	wait, done := context.WithTimeout(ctx, 5*time.Second)
	defer done()
	if err := c.registry.Wait(wait, 4); err != nil {
		t.Fatal(err)
	}

	random := rand.New(rand.NewSource(11))
	grid := gol.NewGrid(8)
	for x := 0; x != 8; x++ {
		for y := 0; y != 8; y++ {
			grid.Set(x, y, gol.CellOf(random.Intn(2) == 0))
		}
	}
	if err := c.orchestrator.InitializeFromGrid(ctx, grid); err != nil {
		t.Fatal(err)
	}

	generations := []*gol.Grid{grid}
	for generation := 1; generation <= 3; generation++ {
		var wg sync.WaitGroup
		for _, w := range c.workers {
			wg.Add(1)
			go func(w *worker.Worker) {
				defer wg.Done()
				if advanced, err := w.Round(ctx); err != nil || !advanced {
					t.Errorf("generation %d: got %v, %v", generation, advanced, err)
				}
			}(w)
		}
		wg.Wait()
		generations = append(generations, gol.Step(generations[generation-1]))
	}

	// Snapshot is merged at the barrier, before the last round computed
	snapshot, err := c.orchestrator.GetCurrentGeneration(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !snapshot.Equal(generations[2]) {
		t.Errorf("snapshot: got\n%swant\n%s", snapshot, generations[2])
	}

	blocks := make([]*gol.Grid, 4)
	for index := range blocks {
		client, err := c.registry.Worker(index)
		if err != nil {
			t.Fatal(err)
		}
		if blocks[index], err = client.GetBlock(ctx); err != nil {
			t.Fatal(err)
		}
	}
	merged, err := gol.MergeBlocks(blocks)
	if err != nil {
		t.Fatal(err)
	}
	if !merged.Equal(generations[3]) {
		t.Errorf("workers: got\n%swant\n%s", merged, generations[3])
	}
}

func TestControlOverRPC(t *testing.T) {
	c := startOrchestrator(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.startWorker(t, ctx, 0)
	wait, done := context.WithTimeout(ctx, 5*time.Second)
	defer done()
	if err := c.registry.Wait(wait, 1); err != nil {
		t.Fatal(err)
	}

	client, err := DialOrchestrator(c.rpc_addr)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	if err := client.Initialize(ctx, 2); err == nil {
		t.Error("board below the minimum accepted")
	}
	if err := client.Initialize(ctx, 6); err != nil {
		t.Fatal(err)
	}
	grid, err := client.GetCurrentGeneration(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if grid.Size() != 6 || !grid.Complete() {
		t.Errorf("grid %dx%d", grid.Size(), grid.Size())
	}
	total, err := client.GetGameStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if total != grid.Stats() {
		t.Errorf("stats %+v, grid has %+v", total, grid.Stats())
	}

	if _, text, err := client.Elapsed(ctx); err != nil || text != "00:00:00.00" {
		t.Errorf("elapsed after init: %q, %v", text, err)
	}
	if err := client.StartSimulation(ctx); err != nil {
		t.Fatal(err)
	}
	if started, _ := c.workers[0].Started(); !started {
		t.Error("worker not started")
	}
	time.Sleep(20 * time.Millisecond)
	if err := client.StopSimulation(ctx); err != nil {
		t.Fatal(err)
	}
	elapsed, _, _ := client.Elapsed(ctx)
	if elapsed < 20*time.Millisecond {
		t.Errorf("elapsed %v while running for 20ms", elapsed)
	}

	path := filepath.Join(t.TempDir(), "out", "board.pgm")
	if err := client.SaveSnapshot(ctx, path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}

func TestRegistryDropsDisconnectedWorker(t *testing.T) {
	c := startOrchestrator(t, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker_ctx, disconnect := context.WithCancel(ctx)
	c.startWorker(t, ctx, 0)
	c.startWorker(t, worker_ctx, 1)

	wait, done := context.WithTimeout(ctx, 5*time.Second)
	defer done()
	if err := c.registry.Wait(wait, 2); err != nil {
		t.Fatal(err)
	}

	disconnect()
	deadline := time.Now().Add(5 * time.Second)
	for c.registry.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("partition still routed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := c.registry.Worker(1); !errors.Is(err, ErrNoWorker) {
		t.Errorf("partition 1: got %v", err)
	}
	if _, err := c.registry.Worker(0); err != nil {
		t.Errorf("partition 0: got %v", err)
	}

	// Fan-out fails while a partition has no worker
	if err := c.orchestrator.StartSimulation(ctx); !errors.Is(err, ErrNoWorker) {
		t.Errorf("start: got %v", err)
	}
}
