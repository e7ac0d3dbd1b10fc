package search

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ore-hq/pool-miner/logging"
	"github.com/ore-hq/pool-miner/shared"
)

var (
	hashesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "poolminer",
		Subsystem: "search",
		Name:      "hashes_total",
		Help:      "Number of hashes evaluated",
	})

	roundLatencyMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "poolminer",
		Subsystem: "search",
		Name:      "round_seconds",
		Help:      "Wall time of a parallel search round",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
	})
)

type Config struct {
	Workers    int
	CheckEvery uint64
}

// RoundResult is the merged outcome of all workers of a round.
type RoundResult struct {
	// Best is nil only if no worker evaluated a single nonce.
	Best    *shared.Solution
	Hashes  uint64
	Elapsed time.Duration
}

// Run searches space for challenge with one goroutine per partition and returns
// the globally best solution. It returns once every worker has stopped, either because
// its range is exhausted or because the deadline passed or ctx was cancelled.
func Run(
	ctx context.Context,
	clk clock.Clock,
	cfg Config,
	challenge *shared.Challenge,
	space shared.NonceRange,
	deadline time.Time,
) (RoundResult, error) {
	ranges, err := Partition(space, cfg.Workers)
	if err != nil {
		return RoundResult{}, err
	}
	hashers := make([]shared.Hasher, len(ranges))
	for i := range hashers {
		if hashers[i], err = shared.NewHasher(challenge.Algo, challenge.Bytes); err != nil {
			return RoundResult{}, fmt.Errorf("creating hasher: %w", err)
		}
	}

	logging.FromContext(ctx).Debug("dispatching workers",
		zap.Uint64("round", challenge.RoundID),
		zap.Object("space", space),
		zap.Int("workers", len(ranges)),
		zap.Time("deadline", deadline),
	)

	// Each worker owns exactly one slot.
	results := make([]Result, len(ranges))
	start := clk.Now()
	var eg errgroup.Group
	for i, rng := range ranges {
		i, rng := i, rng
		eg.Go(func() error {
			results[i] = Search(ctx, clk, hashers[i], rng, deadline, cfg.CheckEvery)
			return nil
		})
	}
	_ = eg.Wait()

	round := RoundResult{Elapsed: clk.Since(start)}
	bests := make([]*shared.Solution, len(results))
	for i, r := range results {
		bests[i] = r.Best
		round.Hashes += r.Hashes
	}
	round.Best = shared.Merge(bests)

	hashesMetric.Add(float64(round.Hashes))
	roundLatencyMetric.Observe(round.Elapsed.Seconds())
	return round, nil
}

// Hashrate returns hashes per second of the round.
func (r RoundResult) Hashrate() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Hashes) / r.Elapsed.Seconds()
}
