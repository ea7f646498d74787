// SDL viewer for a running orchestrator
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"runtime"
	"time"

	"uk.ac.bris.cs/lockstep/config"
	"uk.ac.bris.cs/lockstep/pgm"
	"uk.ac.bris.cs/lockstep/sdl"
	"uk.ac.bris.cs/lockstep/transport"
)

// SDL calls must stay on the main thread
func init() {
	runtime.LockOSThread()
}

func main() {

	scale := flag.Int("scale", 8, "pixels per cell")
	refresh := flag.Duration("refresh", 100*time.Millisecond, "interval between frames")
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Panic(err.Error())
	}
	ctx := context.Background()

	client, err := transport.DialOrchestrator(cfg.OrchestratorAddr)
	if err != nil {
		log.Panic(err.Error())
	}
	defer client.Close()
	log.Printf("Orchestrator %s connected", cfg.OrchestratorAddr)

	grid, err := client.GetCurrentGeneration(ctx)
	if err != nil && cfg.Size > 0 {
		// Nothing to show yet, start a board of the configured size
		if err = client.Initialize(ctx, cfg.Size); err == nil {
			grid, err = client.GetCurrentGeneration(ctx)
		}
	}
	if err != nil {
		log.Panic(err.Error())
	}

	window, err := sdl.NewWindow(int32(grid.Size()), int32(*scale))
	if err != nil {
		log.Panic(err.Error())
	}
	defer func() { window.Destroy() }()

	// Alive timer
	ticker := time.NewTicker(*refresh)
	defer ticker.Stop()
	report := time.NewTicker(2 * time.Second)
	defer report.Stop()

	for {
		switch window.PollEvent() {
		case 's':
			if err := client.StartSimulation(ctx); err != nil {
				log.Printf("Start: %v", err)
			}
		case 'p':
			if err := client.StopSimulation(ctx); err != nil {
				log.Printf("Stop: %v", err)
			}
		case 'i':
			if err := client.Initialize(ctx, grid.Size()); err != nil {
				log.Printf("Init: %v", err)
			}
		case 'w':
			if err := pgm.Write(cfg.SnapshotPath, grid); err != nil {
				log.Printf("Write %s: %v", cfg.SnapshotPath, err)
			} else {
				log.Printf("Wrote %s", cfg.SnapshotPath)
			}
		case 'q':
			return
		}

		select {
		case <-report.C:
			if counts, err := client.GetGameStats(ctx); err == nil {
				_, elapsed, _ := client.Elapsed(ctx)
				log.Printf("Alive: %d, dead: %d, elapsed %s", counts.AliveCount, counts.DeadCount, elapsed)
			}
		case <-ticker.C:
			next, err := client.GetCurrentGeneration(ctx)
			if err != nil {
				log.Printf("Grid: %v", err)
				continue
			}
			grid = next
			if int32(grid.Size()) != window.Size {
				window.Destroy()
				if window, err = sdl.NewWindow(int32(grid.Size()), int32(*scale)); err != nil {
					log.Panic(err.Error())
				}
			}
			if err := window.RenderGrid(grid); err != nil {
				log.Printf("Render: %v", err)
			}
		}
	}
}
