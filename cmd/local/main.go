// Orchestrator and every worker in a single process
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"uk.ac.bris.cs/lockstep/api"
	"uk.ac.bris.cs/lockstep/config"
	"uk.ac.bris.cs/lockstep/orchestrator"
	"uk.ac.bris.cs/lockstep/stats"
	"uk.ac.bris.cs/lockstep/store"
	"uk.ac.bris.cs/lockstep/timetracker"
	"uk.ac.bris.cs/lockstep/transport"
	"uk.ac.bris.cs/lockstep/worker"
)

func main() {

	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Panic(err.Error())
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	local := transport.NewLocal(cfg.BlockCount)
	instance, err := orchestrator.New(cfg.Orchestrator(), local)
	if err != nil {
		log.Panic(err.Error())
	}
	aggregator := stats.New(local, cfg.BlockCount)
	tracker := timetracker.New()
	defer tracker.Close()

	// One store file per partition
	var wg sync.WaitGroup
	for index := 0; index != cfg.BlockCount; index++ {
		state, err := store.Open(fmt.Sprintf("%s.%d", cfg.StorePath, index))
		if err != nil {
			log.Panic(err.Error())
		}
		defer state.Close()
		w := worker.New(state, instance, cfg.Cooldown)
		local.Attach(index, w)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Print(err)
			}
		}()
	}

	// Viewers connect over RPC as they would to a standalone orchestrator
	server, err := transport.NewOrchestratorServer(instance, aggregator, tracker)
	if err != nil {
		log.Panic(err.Error())
	}
	listener, err := net.Listen("tcp", cfg.RPCAddr)
	if err != nil {
		log.Panic(err.Error())
	}
	defer listener.Close()
	go transport.Serve(listener, server)

	go func() {
		log.Printf("Serving HTTP on %s", cfg.HTTPAddr)
		if err := http.ListenAndServe(cfg.HTTPAddr, api.New(instance, aggregator, tracker)); err != nil {
			log.Panic(err.Error())
		}
	}()

	if cfg.InputPath != "" {
		err = instance.LoadSnapshot(ctx, cfg.InputPath)
	} else if cfg.Size > 0 {
		err = instance.Initialize(ctx, cfg.Size)
	}
	if err != nil {
		log.Panic(err.Error())
	}
	tracker.Reset()

	<-ctx.Done()
	log.Print("Shutting down")
	wg.Wait()
}
