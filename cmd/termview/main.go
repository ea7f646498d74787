// Terminal viewer for a running orchestrator
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"uk.ac.bris.cs/lockstep/config"
	"uk.ac.bris.cs/lockstep/gol"
	"uk.ac.bris.cs/lockstep/pgm"
	"uk.ac.bris.cs/lockstep/transport"
)

func display(screen tcell.Screen, grid *gol.Grid, status string) {
	screen.Clear()
	alive := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)
	dead := tcell.StyleDefault.Foreground(tcell.ColorGreen).Background(tcell.ColorBlack)
	for x, row := range grid.CharMatrix() {
		for y, char := range row {
			style := dead
			if char == gol.Alive.ToChar() {
				style = alive
			}
			screen.SetContent(y*2, x, ' ', nil, style)
			screen.SetContent(y*2+1, x, ' ', nil, style)
		}
	}
	for i, char := range status {
		screen.SetContent(i, grid.Size()+1, char, nil, tcell.StyleDefault)
	}
	screen.Show()
}

func main() {

	refresh := flag.Duration("refresh", 100*time.Millisecond, "interval between frames")
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx := context.Background()

	client, err := transport.DialOrchestrator(cfg.OrchestratorAddr)
	if err != nil {
		log.Fatalf("dial orchestrator: %v", err)
	}
	defer client.Close()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Fatalf("creating screen: %v", err)
	}
	if err = screen.Init(); err != nil {
		log.Fatalf("initializing screen: %v", err)
	}
	defer screen.Fini()

	events := make(chan tcell.Event)
	go func() {
		for {
			event := screen.PollEvent()
			if event == nil {
				close(events)
				return
			}
			events <- event
		}
	}()

	ticker := time.NewTicker(*refresh)
	defer ticker.Stop()

	var grid *gol.Grid
	status := "s start  p stop  i re-init  w write  q quit"
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			key, ok := event.(*tcell.EventKey)
			if !ok {
				continue
			}
			if key.Key() == tcell.KeyEscape {
				return
			}
			switch key.Rune() {
			case 's':
				err = client.StartSimulation(ctx)
			case 'p':
				err = client.StopSimulation(ctx)
			case 'i':
				n := cfg.Size
				if grid != nil {
					n = grid.Size()
				}
				err = client.Initialize(ctx, n)
			case 'w':
				if grid != nil {
					err = pgm.Write(cfg.SnapshotPath, grid)
				}
			case 'q':
				return
			}
			if err != nil {
				status = err.Error()
				err = nil
			}
		case <-ticker.C:
			next, err := client.GetCurrentGeneration(ctx)
			if err != nil {
				status = err.Error()
				screen.Clear()
				screen.Show()
				continue
			}
			grid = next
			counts, _ := client.GetGameStats(ctx)
			_, elapsed, _ := client.Elapsed(ctx)
			display(screen, grid, fmt.Sprintf("alive %d  %s  %s", counts.AliveCount, elapsed, status))
		}
	}
}
