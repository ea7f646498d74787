package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"uk.ac.bris.cs/lockstep/orchestrator"
	"uk.ac.bris.cs/lockstep/stats"
	"uk.ac.bris.cs/lockstep/store"
	"uk.ac.bris.cs/lockstep/timetracker"
	"uk.ac.bris.cs/lockstep/transport"
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

func newServer(t *testing.T, count int) (*Server, []*worker.Worker) {
	t.Helper()
	local := transport.NewLocal(count)
	o, err := orchestrator.New(orchestrator.Config{BlockCount: count, MaxSize: 32}, local)
	if err != nil {
		t.Fatal(err)
	}
	workers := make([]*worker.Worker, count)
	for index := range workers {
		state, err := store.Open(filepath.Join(t.TempDir(), fmt.Sprintf("worker-%d.db", index)))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { state.Close() })
		workers[index] = worker.New(state, o, time.Millisecond)
		local.Attach(index, workers[index])
	}
	tracker := timetracker.New()
	t.Cleanup(tracker.Close)
	return New(o, stats.New(local, count), tracker), workers
}

func do(server http.Handler, method, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, httptest.NewRequest(method, target, nil))
	return recorder
}

func TestInitRejectsInvalidSize(t *testing.T) {
	server, workers := newServer(t, 4)
	for _, target := range []string{
		"/api/game/init",
		"/api/game/init?n=abc",
		"/api/game/init?n=2",
		"/api/game/init?n=7",
		"/api/game/init?n=64",
	} {
		if got := do(server, http.MethodPost, target); got.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", target, got.Code)
		}
	}
	// No worker was touched
	for index, w := range workers {
		if _, err := w.GetBlock(context.Background()); err == nil {
			t.Errorf("worker %d initialised by a rejected request", index)
		}
	}
}

func TestGameFlow(t *testing.T) {
	server, workers := newServer(t, 4)

	if got := do(server, http.MethodPost, "/api/game/init?n=8"); got.Code != http.StatusNoContent {
		t.Fatalf("init: status %d %s", got.Code, got.Body)
	}

	var grid [][]bool
	got := do(server, http.MethodGet, "/api/game/grid")
	if err := json.NewDecoder(got.Body).Decode(&grid); err != nil || len(grid) != 8 || len(grid[0]) != 8 {
		t.Fatalf("grid: %v, %d rows", err, len(grid))
	}
	alive := 0
	for _, row := range grid {
		for _, cell := range row {
			if cell {
				alive++
			}
		}
	}

	var rows []string
	got = do(server, http.MethodGet, "/api/game/char-grid")
	if err := json.NewDecoder(got.Body).Decode(&rows); err != nil || len(rows) != 8 {
		t.Fatalf("char grid: %v, %d rows", err, len(rows))
	}
	for x, row := range rows {
		for y := range row {
			if (row[y] == 'O') != grid[x][y] {
				t.Fatalf("char grid differs from grid at %d,%d", x, y)
			}
		}
		if strings.Trim(row, "O.") != "" {
			t.Errorf("row %q has unexpected characters", row)
		}
	}

	var counts StatsResponse
	got = do(server, http.MethodGet, "/api/game/stats")
	if err := json.NewDecoder(got.Body).Decode(&counts); err != nil {
		t.Fatal(err)
	}
	if counts.AliveCount != alive || counts.AliveCount+counts.DeadCount != 64 {
		t.Errorf("stats %+v, grid has %d alive", counts, alive)
	}

	if got := do(server, http.MethodPost, "/api/game/start"); got.Code != http.StatusNoContent {
		t.Fatalf("start: status %d", got.Code)
	}
	for index, w := range workers {
		if started, _ := w.Started(); !started {
			t.Errorf("worker %d not started", index)
		}
	}
	if got := do(server, http.MethodPost, "/api/game/stop"); got.Code != http.StatusNoContent {
		t.Fatalf("stop: status %d", got.Code)
	}

	var elapsed TimeResponse
	got = do(server, http.MethodGet, "/api/game/time")
	if err := json.NewDecoder(got.Body).Decode(&elapsed); err != nil {
		t.Fatal(err)
	}
	if len(elapsed.Elapsed) != len("00:00:00.00") || elapsed.Elapsed[2] != ':' || elapsed.Elapsed[8] != '.' {
		t.Errorf("elapsed %q", elapsed.Elapsed)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := newServer(t, 1)
	if got := do(server, http.MethodGet, "/api/game/start"); got.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET start: status %d", got.Code)
	}
	if got := do(server, http.MethodPost, "/api/game/grid"); got.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST grid: status %d", got.Code)
	}
}

func TestGridBeforeInitFails(t *testing.T) {
	server, _ := newServer(t, 4)
	if got := do(server, http.MethodGet, "/api/game/grid"); got.Code != http.StatusInternalServerError {
		t.Errorf("status %d", got.Code)
	}
}
