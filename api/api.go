// Package api serves the game over HTTP with JSON responses.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"uk.ac.bris.cs/lockstep/gol"
	"uk.ac.bris.cs/lockstep/orchestrator"
	"uk.ac.bris.cs/lockstep/timetracker"
)

// Whole-board counters, usually a *stats.Aggregator
type StatsSource interface {
	GetGameStats(ctx context.Context) (gol.GameStats, error)
}

type Server struct {
	orchestrator *orchestrator.Orchestrator
	stats        StatsSource
	tracker      *timetracker.Tracker
	mux          *http.ServeMux
}

type StatsResponse struct {
	AliveCount int `json:"aliveCount"`
	DeadCount  int `json:"deadCount"`
}

type TimeResponse struct {
	Elapsed string `json:"elapsed"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func New(o *orchestrator.Orchestrator, stats StatsSource, tracker *timetracker.Tracker) *Server {
	server := &Server{orchestrator: o, stats: stats, tracker: tracker, mux: http.NewServeMux()}
	server.mux.HandleFunc("/api/game/init", server.only(http.MethodPost, server.initialize))
	server.mux.HandleFunc("/api/game/start", server.only(http.MethodPost, server.start))
	server.mux.HandleFunc("/api/game/stop", server.only(http.MethodPost, server.stop))
	server.mux.HandleFunc("/api/game/grid", server.only(http.MethodGet, server.grid))
	server.mux.HandleFunc("/api/game/char-grid", server.only(http.MethodGet, server.charGrid))
	server.mux.HandleFunc("/api/game/stats", server.only(http.MethodGet, server.gameStats))
	server.mux.HandleFunc("/api/game/time", server.only(http.MethodGet, server.elapsed))
	return server
}

func (server *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	server.mux.ServeHTTP(w, r)
}

func (server *Server) only(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
			return
		}
		handler(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, orchestrator.ErrInvalidSize) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (server *Server) initialize(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("n"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "n must be an integer"})
		return
	}
	if err := server.orchestrator.Initialize(r.Context(), n); err != nil {
		writeError(w, err)
		return
	}
	server.tracker.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) start(w http.ResponseWriter, r *http.Request) {
	if err := server.orchestrator.StartSimulation(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	server.tracker.Start()
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) stop(w http.ResponseWriter, r *http.Request) {
	if err := server.orchestrator.StopSimulation(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	server.tracker.Stop()
	w.WriteHeader(http.StatusNoContent)
}

func (server *Server) grid(w http.ResponseWriter, r *http.Request) {
	grid, err := server.orchestrator.GetCurrentGeneration(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, grid.BoolMatrix())
}

func (server *Server) charGrid(w http.ResponseWriter, r *http.Request) {
	grid, err := server.orchestrator.GetCurrentGeneration(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	rows := make([]string, 0, grid.Size())
	for _, row := range grid.CharMatrix() {
		rows = append(rows, string(row))
	}
	writeJSON(w, http.StatusOK, rows)
}

func (server *Server) gameStats(w http.ResponseWriter, r *http.Request) {
	stats, err := server.stats.GetGameStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{AliveCount: stats.AliveCount, DeadCount: stats.DeadCount})
}

func (server *Server) elapsed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, TimeResponse{Elapsed: server.tracker.ElapsedString()})
}
