package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"uk.ac.bris.cs/lockstep/config"
	"uk.ac.bris.cs/lockstep/store"
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

	state, err := store.Open(cfg.StorePath)
	if err != nil {
		log.Panic(err.Error())
	}
	defer state.Close()

	// Connect to orchestrator, retrying until it is up
	var client *transport.OrchestratorClient
	for {
		client, err = transport.DialOrchestrator(cfg.OrchestratorAddr)
		if err == nil {
			break
		}
		log.Printf("Dial orchestrator: %v", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(transport.RetryInterval):
		}
	}
	defer client.Close()
	log.Printf("Orchestrator %s connected", cfg.OrchestratorAddr)

	// Create worker instance and register it
	instance := worker.New(state, client, cfg.Cooldown)
	server, err := transport.NewWorkerServer(instance)
	if err != nil {
		log.Panic(err.Error())
	}
	listener, err := net.Listen("tcp", cfg.WorkerAddr)
	if err != nil {
		log.Panic(err.Error())
	}
	defer listener.Close()
	go transport.Serve(listener, server)
	go transport.Register(ctx, cfg.RegistryAddr, cfg.Index, listener.Addr().String())

	if err := instance.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Panic(err.Error())
	}
	log.Print("Worker stopped")
}
