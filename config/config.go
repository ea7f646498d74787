// Package config reads the settings shared by the binaries from flags,
// falling back to environment variables and then to built-in defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"uk.ac.bris.cs/lockstep/gol"
	"uk.ac.bris.cs/lockstep/orchestrator"
	"uk.ac.bris.cs/lockstep/worker"
)

type Config struct {
	BlockCount     int
	MinSize        int
	MaxSize        int
	Size           int // board side to initialise on start, 0 to wait for a request
	BarrierTimeout time.Duration
	Cooldown       time.Duration

	RPCAddr          string // orchestrator RPC listen address
	RegisterAddr     string // orchestrator registration listen address
	HTTPAddr         string
	OrchestratorAddr string // orchestrator RPC address as dialled by workers and viewers
	RegistryAddr     string // registration address as dialled by workers
	WorkerAddr       string // worker RPC listen address

	Index        int    // partition served by a worker process
	StorePath    string // worker state file, a directory for in-process workers
	SnapshotPath string // PGM written by viewers
	InputPath    string // PGM board to start from instead of a random one
}

// Parse args into a Config using fs, environment variables override the defaults
func Load(fs *flag.FlagSet, args []string) (Config, error) {

	var config Config
	var errs []error
	env_int := func(key string, fallback int) int {
		value, err := envInt(key, fallback)
		errs = append(errs, err)
		return value
	}
	env_duration := func(key string, fallback time.Duration) time.Duration {
		value, err := envDuration(key, fallback)
		errs = append(errs, err)
		return value
	}

	fs.IntVar(&config.BlockCount, "blocks", env_int("BLOCK_COUNT", 4), "number of partitions, a square number")
	fs.IntVar(&config.MinSize, "min", env_int("GOL_MIN_N", orchestrator.MinSize), "smallest accepted board side")
	fs.IntVar(&config.MaxSize, "max", env_int("GOL_MAX_N", 512), "largest accepted board side, 0 for no limit")
	fs.IntVar(&config.Size, "n", env_int("GOL_N", 0), "board side to initialise on start")
	fs.DurationVar(&config.BarrierTimeout, "barrier", env_duration("GOL_BARRIER_TIMEOUT", orchestrator.BarrierTimeout), "longest wait at the barrier")
	fs.DurationVar(&config.Cooldown, "cooldown", env_duration("GOL_COOLDOWN", worker.CooldownTimeout), "worker idle interval while stopped")

	fs.StringVar(&config.RPCAddr, "rpc", envString("GOL_RPC_ADDR", ":2000"), "orchestrator RPC listen address")
	fs.StringVar(&config.RegisterAddr, "register", envString("GOL_REGISTER_ADDR", ":2002"), "worker registration listen address")
	fs.StringVar(&config.HTTPAddr, "http", envString("GOL_HTTP_ADDR", ":8080"), "HTTP listen address")
	fs.StringVar(&config.OrchestratorAddr, "orchestrator", envString("GOL_ORCHESTRATOR", "localhost:2000"), "orchestrator RPC address")
	fs.StringVar(&config.RegistryAddr, "registry", envString("GOL_REGISTRY", "localhost:2002"), "orchestrator registration address")
	fs.StringVar(&config.WorkerAddr, "listen", envString("GOL_WORKER_ADDR", ":2010"), "worker RPC listen address")

	fs.IntVar(&config.Index, "index", env_int("GOL_INDEX", 0), "partition served by this worker")
	fs.StringVar(&config.StorePath, "store", envString("GOL_STORE", "worker.db"), "worker state file")
	fs.StringVar(&config.SnapshotPath, "out", envString("GOL_SNAPSHOT", "out/snapshot.pgm"), "PGM snapshot path")
	fs.StringVar(&config.InputPath, "in", envString("GOL_INPUT", ""), "PGM board to start from")

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return config, config.Validate()
}

func (config Config) Validate() error {
	if _, ok := gol.BlocksPerSide(config.BlockCount); !ok {
		return fmt.Errorf("blocks: %d is not a square number", config.BlockCount)
	}
	if config.Index < 0 || config.Index >= config.BlockCount {
		return fmt.Errorf("index: %d outside 0..%d", config.Index, config.BlockCount-1)
	}
	if config.MinSize <= 0 || (config.MaxSize > 0 && config.MaxSize < config.MinSize) {
		return fmt.Errorf("sizes: [%d, %d] is empty", config.MinSize, config.MaxSize)
	}
	return nil
}

func (config Config) Orchestrator() orchestrator.Config {
	return orchestrator.Config{
		BlockCount:     config.BlockCount,
		BarrierTimeout: config.BarrierTimeout,
		MinSize:        config.MinSize,
		MaxSize:        config.MaxSize,
	}
}

func envString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	number, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return number, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return duration, nil
}
