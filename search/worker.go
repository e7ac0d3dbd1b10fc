package search

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ore-hq/pool-miner/shared"
)

// DefaultCheckEvery is the number of hashes between two deadline checks.
const DefaultCheckEvery = 4096

// Result is the outcome of searching a single range.
type Result struct {
	// Best is nil if no nonce was evaluated.
	Best   *shared.Solution
	Hashes uint64
}

// Search scans rng in increasing nonce order and keeps the highest-difficulty solution.
// The deadline and ctx are checked before the first hash and then every checkEvery hashes;
// once either fires, the best solution found so far is returned.
func Search(
	ctx context.Context,
	clk clock.Clock,
	hasher shared.Hasher,
	rng shared.NonceRange,
	deadline time.Time,
	checkEvery uint64,
) Result {
	if checkEvery == 0 {
		checkEvery = DefaultCheckEvery
	}

	var (
		res        Result
		best       shared.Solution
		found      bool
		digest     []byte
		sinceCheck = checkEvery
	)
	for nonce := rng.Start; nonce < rng.End; nonce++ {
		if sinceCheck == checkEvery {
			if ctx.Err() != nil || !clk.Now().Before(deadline) {
				break
			}
			sinceCheck = 0
		}
		sinceCheck++

		digest = hasher.Hash(nonce, digest[:0])
		res.Hashes++

		// Nonces increase, so on equal difficulty the earlier one stays.
		if d := shared.Score(digest); !found || d > best.Difficulty {
			best = shared.Solution{
				Nonce:      nonce,
				Digest:     append([]byte(nil), digest...),
				Difficulty: d,
			}
			found = true
		}
	}

	if found {
		res.Best = &best
	}
	return res
}
