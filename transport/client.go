package transport

import (
	"context"
	"net/rpc"
	"time"

	"uk.ac.bris.cs/lockstep/gol"
)

// Issue an asynchronous call and wait for it or for ctx
func call(ctx context.Context, client *rpc.Client, method string, args any, reply any) error {
	call := client.Go(method, args, reply, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		return call.Error
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Remote worker, as seen by the orchestrator
type WorkerClient struct {
	client *rpc.Client
	addr   string
}

func DialWorker(addr string) (*WorkerClient, error) {
	client, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &WorkerClient{client: client, addr: addr}, nil
}

func (w *WorkerClient) Addr() string { return w.addr }

func (w *WorkerClient) Close() error { return w.client.Close() }

func (w *WorkerClient) Initialize(ctx context.Context, index, n int) error {
	return call(ctx, w.client, WorkerInitialize, InitArgs{Index: index, N: n}, &struct{}{})
}

func (w *WorkerClient) Load(ctx context.Context, index int, block *gol.Grid) error {
	return call(ctx, w.client, WorkerLoad, BlockArgs{Index: index, Packed: block.Pack()}, &struct{}{})
}

func (w *WorkerClient) StartSimulation(ctx context.Context) error {
	return call(ctx, w.client, WorkerStart, struct{}{}, &struct{}{})
}

func (w *WorkerClient) StopSimulation(ctx context.Context) error {
	return call(ctx, w.client, WorkerStop, struct{}{}, &struct{}{})
}

func (w *WorkerClient) GetBlock(ctx context.Context) (*gol.Grid, error) {
	var reply GridReply
	if err := call(ctx, w.client, WorkerGetBlock, struct{}{}, &reply); err != nil {
		return nil, err
	}
	return gol.UnpackGrid(reply.Packed)
}

func (w *WorkerClient) GetPartialGameStats(ctx context.Context) (gol.GameStats, error) {
	var reply gol.GameStats
	err := call(ctx, w.client, WorkerGetPartialStats, struct{}{}, &reply)
	return reply, err
}

// Remote orchestrator, as seen by workers and viewers
type OrchestratorClient struct {
	client *rpc.Client
}

func DialOrchestrator(addr string) (*OrchestratorClient, error) {
	client, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &OrchestratorClient{client: client}, nil
}

func (o *OrchestratorClient) Close() error { return o.client.Close() }

func (o *OrchestratorClient) PublishBlock(ctx context.Context, index int, block *gol.Grid) error {
	return call(ctx, o.client, OrchestratorPublishBlock, BlockArgs{Index: index, Packed: block.Pack()}, &struct{}{})
}

func (o *OrchestratorClient) SyncWorkers(ctx context.Context) error {
	return call(ctx, o.client, OrchestratorSyncWorkers, struct{}{}, &struct{}{})
}

func (o *OrchestratorClient) GetBorderCells(ctx context.Context, index int) (*gol.Borders, error) {
	var reply BordersReply
	if err := call(ctx, o.client, OrchestratorGetBorderCells, BordersArgs{Index: index}, &reply); err != nil {
		return nil, err
	}
	return unpackBorders(&reply)
}

func (o *OrchestratorClient) Initialize(ctx context.Context, n int) error {
	return call(ctx, o.client, OrchestratorInitialize, InitArgs{N: n}, &struct{}{})
}

func (o *OrchestratorClient) StartSimulation(ctx context.Context) error {
	return call(ctx, o.client, OrchestratorStart, struct{}{}, &struct{}{})
}

func (o *OrchestratorClient) StopSimulation(ctx context.Context) error {
	return call(ctx, o.client, OrchestratorStop, struct{}{}, &struct{}{})
}

func (o *OrchestratorClient) GetCurrentGeneration(ctx context.Context) (*gol.Grid, error) {
	var reply GridReply
	if err := call(ctx, o.client, OrchestratorGetGeneration, struct{}{}, &reply); err != nil {
		return nil, err
	}
	return gol.UnpackGrid(reply.Packed)
}

// Write a PGM snapshot on the orchestrator's file system
func (o *OrchestratorClient) SaveSnapshot(ctx context.Context, path string) error {
	return call(ctx, o.client, OrchestratorSaveSnapshot, SnapshotArgs{Path: path}, &struct{}{})
}

func (o *OrchestratorClient) GetGameStats(ctx context.Context) (gol.GameStats, error) {
	var reply gol.GameStats
	err := call(ctx, o.client, StatsGetGameStats, struct{}{}, &reply)
	return reply, err
}

func (o *OrchestratorClient) Elapsed(ctx context.Context) (time.Duration, string, error) {
	var reply ElapsedReply
	err := call(ctx, o.client, TimeTrackerElapsed, struct{}{}, &reply)
	return reply.Elapsed, reply.Text, err
}
