// Package transport carries worker and orchestrator calls over net/rpc.
package transport

import (
	"time"

	"uk.ac.bris.cs/lockstep/gol"
)

// Worker service
const (
	WorkerInitialize      = "Worker.Initialize"
	WorkerLoad            = "Worker.Load"
	WorkerStart           = "Worker.StartSimulation"
	WorkerStop            = "Worker.StopSimulation"
	WorkerGetBlock        = "Worker.GetBlock"
	WorkerGetPartialStats = "Worker.GetPartialGameStats"
)

// Orchestrator service
const (
	OrchestratorPublishBlock   = "Orchestrator.PublishBlock"
	OrchestratorSyncWorkers    = "Orchestrator.SyncWorkers"
	OrchestratorGetBorderCells = "Orchestrator.GetBorderCells"
	OrchestratorInitialize     = "Orchestrator.Initialize"
	OrchestratorStart          = "Orchestrator.StartSimulation"
	OrchestratorStop           = "Orchestrator.StopSimulation"
	OrchestratorGetGeneration  = "Orchestrator.GetCurrentGeneration"
	OrchestratorSaveSnapshot   = "Orchestrator.SaveSnapshot"
)

// Stats and time tracker services
const (
	StatsGetGameStats  = "Stats.GetGameStats"
	TimeTrackerElapsed = "TimeTracker.Elapsed"
)

type InitArgs struct {
	Index int
	N     int // block side for workers, board side for the orchestrator
}

// Block of a partition, bit-packed
type BlockArgs struct {
	Index  int
	Packed []byte
}

type GridReply struct {
	Packed []byte
}

type BordersArgs struct {
	Index int
}

type BordersReply struct {
	Available bool // false while any block of the round is missing
	Length    int  // cells per strip
	North     []byte
	South     []byte
	West      []byte
	East      []byte
	Corners   [4]gol.Cell
}

type SnapshotArgs struct {
	Path string
}

type ElapsedReply struct {
	Elapsed time.Duration
	Text    string // HH:MM:SS.cc
}

func packBorders(borders *gol.Borders, reply *BordersReply) {
	if borders == nil {
		reply.Available = false
		return
	}
	reply.Available = true
	reply.Length = len(borders.North)
	reply.North = gol.PackCells(borders.North)
	reply.South = gol.PackCells(borders.South)
	reply.West = gol.PackCells(borders.West)
	reply.East = gol.PackCells(borders.East)
	reply.Corners = borders.Corners
}

func unpackBorders(reply *BordersReply) (*gol.Borders, error) {
	if !reply.Available {
		return nil, nil
	}
	borders := &gol.Borders{Corners: reply.Corners}
	var err error
	for _, strip := range []struct {
		data []byte
		dst  *[]gol.Cell
	}{
		{reply.North, &borders.North},
		{reply.South, &borders.South},
		{reply.West, &borders.West},
		{reply.East, &borders.East},
	} {
		if *strip.dst, err = gol.UnpackCells(strip.data, reply.Length); err != nil {
			return nil, err
		}
	}
	return borders, nil
}
