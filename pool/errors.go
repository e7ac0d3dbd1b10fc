package pool

import (
	"context"
	"errors"
)

var (
	// ErrUnreachable covers DNS, connect, timeout and 5xx failures.
	ErrUnreachable = errors.New("pool unreachable")
	// ErrUnauthorized means the pool rejected the miner's identity or signature.
	ErrUnauthorized      = errors.New("unauthorized")
	ErrMalformedResponse = errors.New("malformed response")
	ErrRateLimited       = errors.New("rate limited")
	// ErrNoNewChallenge is returned when the pool has no challenge newer than the last round.
	ErrNoNewChallenge    = errors.New("no new challenge")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyRegistered = errors.New("already registered")
	// ErrUnconfirmedSubmit means the pool answered a submission with 200 but no
	// recognizable verdict. The solution may have been taken, so it is not retried.
	ErrUnconfirmedSubmit = errors.New("unconfirmed submission")
)

// IsTransient reports whether err is worth retrying with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnreachable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrMalformedResponse) ||
		errors.Is(err, context.DeadlineExceeded)
}
