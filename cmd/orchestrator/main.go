package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"uk.ac.bris.cs/lockstep/api"
	"uk.ac.bris.cs/lockstep/config"
	"uk.ac.bris.cs/lockstep/orchestrator"
	"uk.ac.bris.cs/lockstep/stats"
	"uk.ac.bris.cs/lockstep/timetracker"
	"uk.ac.bris.cs/lockstep/transport"
)

func main() {

	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Panic(err.Error())
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create orchestrator singleton routing to registered workers
	registry := transport.NewRegistry()
	instance, err := orchestrator.New(cfg.Orchestrator(), registry)
	if err != nil {
		log.Panic(err.Error())
	}
	aggregator := stats.New(registry, cfg.BlockCount)
	tracker := timetracker.New()
	defer tracker.Close()

	// Start RPC handling service
	server, err := transport.NewOrchestratorServer(instance, aggregator, tracker)
	if err != nil {
		log.Panic(err.Error())
	}
	listener, err := net.Listen("tcp", cfg.RPCAddr)
	if err != nil {
		log.Panic(err.Error())
	}
	go transport.Serve(listener, server)

	// Accept registrations from workers and monitor their status
	reg_listener, err := net.Listen("tcp", cfg.RegisterAddr)
	if err != nil {
		log.Panic(err.Error())
	}
	go registry.Listen(reg_listener)

	go func() {
		log.Printf("Serving HTTP on %s", cfg.HTTPAddr)
		if err := http.ListenAndServe(cfg.HTTPAddr, api.New(instance, aggregator, tracker)); err != nil {
			log.Panic(err.Error())
		}
	}()

	// Start a board once every partition has a worker
	if cfg.Size > 0 || cfg.InputPath != "" {
		log.Printf("Waiting for %d workers", cfg.BlockCount)
		if err := registry.Wait(ctx, cfg.BlockCount); err != nil {
			return
		}
		if cfg.InputPath != "" {
			err = instance.LoadSnapshot(ctx, cfg.InputPath)
		} else {
			err = instance.Initialize(ctx, cfg.Size)
		}
		if err != nil {
			log.Panic(err.Error())
		}
		tracker.Reset()
	}

	<-ctx.Done()
	log.Print("Shutting down")
	if registry.Count() == cfg.BlockCount {
		if err := instance.StopSimulation(context.Background()); err != nil {
			log.Printf("Stop: %v", err)
		}
	}
	listener.Close()
	reg_listener.Close()
}
