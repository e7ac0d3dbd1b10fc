package search

import (
	"errors"

	"github.com/ore-hq/pool-miner/shared"
)

var (
	ErrNoWorkers  = errors.New("worker count must be positive")
	ErrEmptySpace = errors.New("nonce space is empty")
)

// Partition splits space into workers contiguous, pairwise disjoint ranges
// covering it exactly. Sizes differ by at most one; the first ranges take the remainder.
func Partition(space shared.NonceRange, workers int) ([]shared.NonceRange, error) {
	if workers <= 0 {
		return nil, ErrNoWorkers
	}
	if space.Empty() {
		return nil, ErrEmptySpace
	}

	n := uint64(workers)
	size, rem := space.Size()/n, space.Size()%n

	ranges := make([]shared.NonceRange, workers)
	start := space.Start
	for i := range ranges {
		l := size
		if uint64(i) < rem {
			l++
		}
		ranges[i] = shared.NonceRange{Start: start, End: start + l}
		start += l
	}
	return ranges, nil
}
