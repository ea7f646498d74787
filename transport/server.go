package transport

import (
	"context"
	"log"
	"net"
	"net/http"
	"net/rpc"

	"uk.ac.bris.cs/lockstep/gol"
	"uk.ac.bris.cs/lockstep/orchestrator"
	"uk.ac.bris.cs/lockstep/stats"
	"uk.ac.bris.cs/lockstep/timetracker"
	"uk.ac.bris.cs/lockstep/worker"
)

// RPC receiver exposing a worker to the orchestrator
type WorkerService struct {
	worker *worker.Worker
}

func (service *WorkerService) Initialize(args InitArgs, reply *struct{}) error {
	return service.worker.Initialize(context.Background(), args.Index, args.N)
}

func (service *WorkerService) Load(args BlockArgs, reply *struct{}) error {
	block, err := gol.UnpackGrid(args.Packed)
	if err != nil {
		return err
	}
	return service.worker.Load(context.Background(), args.Index, block)
}

func (service *WorkerService) StartSimulation(args struct{}, reply *struct{}) error {
	return service.worker.StartSimulation(context.Background())
}

func (service *WorkerService) StopSimulation(args struct{}, reply *struct{}) error {
	return service.worker.StopSimulation(context.Background())
}

func (service *WorkerService) GetBlock(args struct{}, reply *GridReply) error {
	block, err := service.worker.GetBlock(context.Background())
	if err != nil {
		return err
	}
	reply.Packed = block.Pack()
	return nil
}

func (service *WorkerService) GetPartialGameStats(args struct{}, reply *gol.GameStats) (err error) {
	*reply, err = service.worker.GetPartialGameStats(context.Background())
	return err
}

// RPC receiver exposing the orchestrator to workers and viewers
// Control calls also drive the time tracker
type OrchestratorService struct {
	orchestrator *orchestrator.Orchestrator
	tracker      *timetracker.Tracker
}

func (service *OrchestratorService) PublishBlock(args BlockArgs, reply *struct{}) error {
	block, err := gol.UnpackGrid(args.Packed)
	if err != nil {
		return err
	}
	return service.orchestrator.PublishBlock(context.Background(), args.Index, block)
}

func (service *OrchestratorService) SyncWorkers(args struct{}, reply *struct{}) error {
	return service.orchestrator.SyncWorkers(context.Background())
}

func (service *OrchestratorService) GetBorderCells(args BordersArgs, reply *BordersReply) error {
	borders, err := service.orchestrator.GetBorderCells(context.Background(), args.Index)
	if err != nil {
		return err
	}
	packBorders(borders, reply)
	return nil
}

func (service *OrchestratorService) Initialize(args InitArgs, reply *struct{}) error {
	if err := service.orchestrator.Initialize(context.Background(), args.N); err != nil {
		return err
	}
	service.tracker.Reset()
	return nil
}

func (service *OrchestratorService) StartSimulation(args struct{}, reply *struct{}) error {
	if err := service.orchestrator.StartSimulation(context.Background()); err != nil {
		return err
	}
	service.tracker.Start()
	return nil
}

func (service *OrchestratorService) StopSimulation(args struct{}, reply *struct{}) error {
	if err := service.orchestrator.StopSimulation(context.Background()); err != nil {
		return err
	}
	service.tracker.Stop()
	return nil
}

func (service *OrchestratorService) GetCurrentGeneration(args struct{}, reply *GridReply) error {
	grid, err := service.orchestrator.GetCurrentGeneration(context.Background())
	if err != nil {
		return err
	}
	reply.Packed = grid.Pack()
	return nil
}

func (service *OrchestratorService) SaveSnapshot(args SnapshotArgs, reply *struct{}) error {
	return service.orchestrator.SaveSnapshot(context.Background(), args.Path)
}

type StatsService struct {
	aggregator *stats.Aggregator
}

func (service *StatsService) GetGameStats(args struct{}, reply *gol.GameStats) (err error) {
	*reply, err = service.aggregator.GetGameStats(context.Background())
	return err
}

type TimeTrackerService struct {
	tracker *timetracker.Tracker
}

func (service *TimeTrackerService) Elapsed(args struct{}, reply *ElapsedReply) error {
	reply.Elapsed = service.tracker.Elapsed()
	reply.Text = timetracker.Format(reply.Elapsed)
	return nil
}

func NewWorkerServer(w *worker.Worker) (*rpc.Server, error) {
	server := rpc.NewServer()
	if err := server.RegisterName("Worker", &WorkerService{worker: w}); err != nil {
		return nil, err
	}
	return server, nil
}

func NewOrchestratorServer(o *orchestrator.Orchestrator, aggregator *stats.Aggregator, tracker *timetracker.Tracker) (*rpc.Server, error) {
	server := rpc.NewServer()
	for name, receiver := range map[string]any{
		"Orchestrator": &OrchestratorService{orchestrator: o, tracker: tracker},
		"Stats":        &StatsService{aggregator: aggregator},
		"TimeTracker":  &TimeTrackerService{tracker: tracker},
	} {
		if err := server.RegisterName(name, receiver); err != nil {
			return nil, err
		}
	}
	return server, nil
}

// Serve RPC over HTTP on listener until it is closed
func Serve(listener net.Listener, server *rpc.Server) error {
	mux := http.NewServeMux()
	mux.Handle(rpc.DefaultRPCPath, server)
	log.Printf("Serving RPC on %s", listener.Addr())
	return http.Serve(listener, mux)
}
