package main

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/ore-hq/pool-miner/shared"
)

const (
	defaultN        = 24
	defaultCPU      = false
	defaultDuration = 0
)

// config defines the configuration options for bench.
type config struct {
	N        uint          `short:"n" long:"n"        description:"search 2^n nonces"`
	CPU      bool          `short:"c" long:"cpu"      description:"whether to enable CPU profiling"`
	Threads  int           `short:"t" long:"threads"  description:"number of hash workers"`
	Algo     string        `short:"a" long:"algo"     description:"hash algorithm (sha256 or blake2b)"`
	Duration time.Duration `short:"d" long:"duration" description:"stop searching after this long (0 searches all nonces)"`
}

// loadConfig initializes and parses the config using command line options.
func loadConfig() (*config, error) {
	// Default config.
	cfg := config{
		N:        defaultN,
		CPU:      defaultCPU,
		Threads:  runtime.NumCPU(),
		Algo:     shared.DefaultAlgo,
		Duration: defaultDuration,
	}

	// Parse command line options.
	if _, err := flags.Parse(&cfg); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		} else {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		return nil, err
	}
	if cfg.N > 63 {
		err := fmt.Errorf("n must be at most 63, got %d", cfg.N)
		_, _ = fmt.Fprintln(os.Stderr, err)
		return nil, err
	}

	return &cfg, nil
}
