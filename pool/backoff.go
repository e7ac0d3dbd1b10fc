package pool

import (
	"context"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	DefaultRetryBase     = 500 * time.Millisecond
	DefaultRetryMax      = 10 * time.Second
	DefaultRetryAttempts = 5
)

// Backoff is the retry state of a single operation: how many retries were handed out
// and the un-jittered delay of the next one. Delays double from Base up to Max and
// are jittered into [d/2, d].
type Backoff struct {
	Base time.Duration
	Max  time.Duration
	// MaxAttempts bounds the number of retries. Zero means unbounded.
	MaxAttempts int
	// Jitter returns a random duration in [0, d]. Defaults to math/rand.
	Jitter func(d time.Duration) time.Duration

	attempts int
	next     time.Duration
}

func NewBackoff(base, max time.Duration, maxAttempts int) *Backoff {
	return &Backoff{Base: base, Max: max, MaxAttempts: maxAttempts}
}

// Next returns the delay before the next retry, or false once the attempts are exhausted.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.MaxAttempts > 0 && b.attempts >= b.MaxAttempts {
		return 0, false
	}
	if b.next == 0 {
		b.next = b.Base
	}
	d := b.next
	b.attempts++
	if b.next = 2 * d; b.next > b.Max {
		b.next = b.Max
	}

	half := d / 2
	return half + b.jitter(d-half), true
}

// Reset clears the state after a success.
func (b *Backoff) Reset() {
	b.attempts = 0
	b.next = 0
}

// Attempts returns the number of retries handed out since the last Reset.
func (b *Backoff) Attempts() int {
	return b.attempts
}

func (b *Backoff) jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if b.Jitter != nil {
		return b.Jitter(d)
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

// Wait blocks for d on clk or until ctx is done.
func Wait(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := clk.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry calls op until it succeeds, returns a non-transient error or b is exhausted.
// The last error is returned.
func Retry(ctx context.Context, clk clock.Clock, b *Backoff, op func(ctx context.Context) error) error {
	for {
		err := op(ctx)
		if err == nil || !IsTransient(err) {
			return err
		}
		d, ok := b.Next()
		if !ok {
			return err
		}
		if werr := Wait(ctx, clk, d); werr != nil {
			return err
		}
	}
}
