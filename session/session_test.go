package session_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ore-hq/pool-miner/history"
	"github.com/ore-hq/pool-miner/logging"
	"github.com/ore-hq/pool-miner/pool"
	"github.com/ore-hq/pool-miner/search"
	"github.com/ore-hq/pool-miner/session"
	"github.com/ore-hq/pool-miner/session/mocks"
	"github.com/ore-hq/pool-miner/shared"
	"github.com/ore-hq/pool-miner/signing"
)

func testConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.RoundDuration = time.Hour
	cfg.Workers = 4
	cfg.CheckEvery = 16
	cfg.NonceEnd = 1000
	cfg.CooldownDelay = 0
	cfg.PollInterval = 0
	return cfg
}

func noJitterBackoff(base, max time.Duration, attempts int) func() *pool.Backoff {
	return func() *pool.Backoff {
		b := pool.NewBackoff(base, max, attempts)
		b.Jitter = func(time.Duration) time.Duration { return 0 }
		return b
	}
}

func bruteForce(t *testing.T, ch *shared.Challenge, space shared.NonceRange) shared.Solution {
	t.Helper()
	h, err := shared.NewHasher(ch.Algo, ch.Bytes)
	require.NoError(t, err)
	var best *shared.Solution
	for n := space.Start; n < space.End; n++ {
		digest := h.Hash(n, nil)
		cand := shared.Solution{Nonce: n, Digest: digest, Difficulty: shared.Score(digest)}
		if best == nil || shared.IsBetter(cand, *best) {
			best = &cand
		}
	}
	return *best
}

// run drives s to completion while moving the mock clock forward.
func run(t *testing.T, ctx context.Context, s *session.Session, mock *clock.Mock) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	timeout := time.After(20 * time.Second)
	for {
		select {
		case err := <-done:
			return err
		case <-timeout:
			require.FailNow(t, "session did not stop")
		default:
			if mock != nil {
				mock.Add(10 * time.Millisecond)
			} else {
				time.Sleep(time.Millisecond)
			}
		}
	}
}

func newContext(t *testing.T) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), zaptest.NewLogger(t)))
	t.Cleanup(cancel)
	return ctx, cancel
}

func TestMinesAndSubmitsBestSolution(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	client := mocks.NewMockPoolClient(ctrl)
	store := mocks.NewMockStore(ctrl)
	mock := clock.NewMock()

	ch := &shared.Challenge{Bytes: []byte("round seven"), RoundID: 7, Space: &shared.NonceRange{Start: 0, End: 1000}}
	expected := bruteForce(t, ch, *ch.Space)

	store.EXPECT().LastRound().Return(uint64(0), false, nil)
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).Return(ch, nil)
	client.EXPECT().SubmitSolution(gomock.Any(), uint64(7), expected, gomock.Any()).DoAndReturn(
		func(_ context.Context, round uint64, sol shared.Solution, sig []byte) (pool.SubmitResult, error) {
			msg, err := signing.SubmitMessage(round, sol.Nonce, sol.Digest)
			require.NoError(t, err)
			require.True(t, signing.Verify(id.PublicKey(), msg, sig))
			return pool.SubmitResult{Outcome: pool.Accepted}, nil
		})
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec history.Record) error {
		require.EqualValues(t, 7, rec.RoundID)
		require.Equal(t, expected.Nonce, rec.Nonce)
		require.Equal(t, expected.Difficulty, rec.Difficulty)
		require.EqualValues(t, 1000, rec.Hashes)
		require.Equal(t, "accepted", rec.Outcome)
		return nil
	})
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(7)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			cancel()
			return nil, context.Canceled
		})

	s, err := session.New(client, id,
		session.WithConfig(testConfig()),
		session.WithClock(mock),
		session.WithStore(store),
	)
	require.NoError(t, err)
	require.Equal(t, session.Idle, s.State())

	require.NoError(t, run(t, ctx, s, mock))
	require.Equal(t, session.Stopped, s.State())
}

func TestSearchesConfiguredSpaceWithoutAssignment(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	client := mocks.NewMockPoolClient(gomock.NewController(t))

	ch := &shared.Challenge{Bytes: []byte("no space"), RoundID: 1, Algo: shared.AlgoBlake2b}
	cfg := testConfig()
	cfg.NonceStart, cfg.NonceEnd = 500, 800
	expected := bruteForce(t, ch, cfg.Space())

	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).Return(ch, nil)
	client.EXPECT().SubmitSolution(gomock.Any(), uint64(1), expected, gomock.Any()).
		Return(pool.SubmitResult{Outcome: pool.Accepted}, nil)
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(1)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			cancel()
			return nil, pool.ErrNoNewChallenge
		})

	mock := clock.NewMock()
	s, err := session.New(client, id, session.WithConfig(cfg), session.WithClock(mock))
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, mock))
}

func TestStaleRoundFetchesWithoutCooldown(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	client := mocks.NewMockPoolClient(gomock.NewController(t))

	ch := &shared.Challenge{Bytes: []byte("stale"), RoundID: 7}
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).Return(ch, nil)
	client.EXPECT().SubmitSolution(gomock.Any(), uint64(7), gomock.Any(), gomock.Any()).
		Return(pool.SubmitResult{Outcome: pool.StaleRound, Detail: "round 8 is open"}, nil)
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(7)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			cancel()
			return nil, context.Canceled
		})

	cfg := testConfig()
	// The mock clock never moves, a cooldown would block forever.
	cfg.CooldownDelay = time.Hour
	s, err := session.New(client, id, session.WithConfig(cfg), session.WithClock(clock.NewMock()))
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, nil))
}

func TestRateLimitedSubmissionPauses(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	client := mocks.NewMockPoolClient(gomock.NewController(t))
	mock := clock.NewMock()

	var submittedAt, fetchedAt time.Time
	ch := &shared.Challenge{Bytes: []byte("busy"), RoundID: 3}
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).Return(ch, nil)
	client.EXPECT().SubmitSolution(gomock.Any(), uint64(3), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, uint64, shared.Solution, []byte) (pool.SubmitResult, error) {
			submittedAt = mock.Now()
			return pool.SubmitResult{Outcome: pool.RateLimited}, nil
		})
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(3)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			fetchedAt = mock.Now()
			cancel()
			return nil, pool.ErrNoNewChallenge
		})

	cfg := testConfig()
	cfg.RateLimitPause = 10 * time.Second
	s, err := session.New(client, id, session.WithConfig(cfg), session.WithClock(mock))
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, mock))
	require.GreaterOrEqual(t, fetchedAt.Sub(submittedAt), 10*time.Second)
}

func TestFetchRetriesWithBackoff(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	client := mocks.NewMockPoolClient(gomock.NewController(t))
	mock := clock.NewMock()

	var calls []time.Time
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			calls = append(calls, mock.Now())
			if len(calls) <= 3 {
				return nil, pool.ErrUnreachable
			}
			cancel()
			return nil, pool.ErrNoNewChallenge
		}).Times(4)

	s, err := session.New(client, id,
		session.WithConfig(testConfig()),
		session.WithClock(mock),
		session.WithBackoff(noJitterBackoff(500*time.Millisecond, 10*time.Second, 5)),
	)
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, mock))

	require.Len(t, calls, 4)
	require.GreaterOrEqual(t, calls[1].Sub(calls[0]), 250*time.Millisecond)
	require.GreaterOrEqual(t, calls[2].Sub(calls[1]), 500*time.Millisecond)
	require.GreaterOrEqual(t, calls[3].Sub(calls[2]), time.Second)
	require.GreaterOrEqual(t, calls[3].Sub(calls[0]), 1750*time.Millisecond)
}

func TestFetchPausesWhenRetriesExhausted(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	client := mocks.NewMockPoolClient(gomock.NewController(t))
	mock := clock.NewMock()

	var calls []time.Time
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			calls = append(calls, mock.Now())
			if len(calls) <= 3 {
				return nil, pool.ErrMalformedResponse
			}
			cancel()
			return nil, pool.ErrNoNewChallenge
		}).Times(4)

	s, err := session.New(client, id,
		session.WithConfig(testConfig()),
		session.WithClock(mock),
		session.WithBackoff(noJitterBackoff(time.Second, 5*time.Second, 2)),
	)
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, mock))

	require.Len(t, calls, 4)
	// Third failure exhausts two retries and waits the reconnect pause.
	require.GreaterOrEqual(t, calls[3].Sub(calls[2]), 5*time.Second)
}

func TestUnauthorizedStopsSession(t *testing.T) {
	ctx, _ := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	client := mocks.NewMockPoolClient(gomock.NewController(t))
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).Return(nil, pool.ErrUnauthorized)

	s, err := session.New(client, id, session.WithConfig(testConfig()), session.WithClock(clock.NewMock()))
	require.NoError(t, err)
	err = run(t, ctx, s, nil)
	require.ErrorIs(t, err, pool.ErrUnauthorized)
	require.Equal(t, session.Stopped, s.State())
}

func TestSubmissionSurvivesCancellation(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	client := mocks.NewMockPoolClient(gomock.NewController(t))
	mock := clock.NewMock()

	ch := &shared.Challenge{Bytes: []byte("last"), RoundID: 11}
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).Return(ch, nil)
	gomock.InOrder(
		client.EXPECT().SubmitSolution(gomock.Any(), uint64(11), gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ uint64, _ shared.Solution, _ []byte) (pool.SubmitResult, error) {
				cancel()
				require.NoError(t, ctx.Err())
				return pool.SubmitResult{}, pool.ErrUnreachable
			}),
		client.EXPECT().SubmitSolution(gomock.Any(), uint64(11), gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _ uint64, _ shared.Solution, _ []byte) (pool.SubmitResult, error) {
				require.NoError(t, ctx.Err())
				return pool.SubmitResult{Outcome: pool.Accepted}, nil
			}),
	)

	s, err := session.New(client, id,
		session.WithConfig(testConfig()),
		session.WithClock(mock),
		session.WithBackoff(noJitterBackoff(100*time.Millisecond, time.Second, 3)),
	)
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, mock))
	require.Equal(t, session.Stopped, s.State())
}

func TestSkipsRoundsAlreadyInHistory(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPoolClient(ctrl)
	store := mocks.NewMockStore(ctrl)

	store.EXPECT().LastRound().Return(uint64(6), true, nil)
	store.EXPECT().Get(uint64(6)).Return(&history.Record{RoundID: 6, Outcome: pool.Accepted.String()}, nil)
	calls := 0
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(6)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			calls++
			if calls == 2 {
				cancel()
			}
			return &shared.Challenge{Bytes: []byte("old"), RoundID: 6}, nil
		}).Times(2)

	s, err := session.New(client, id,
		session.WithConfig(testConfig()),
		session.WithClock(clock.NewMock()),
		session.WithStore(store),
	)
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, nil))
}

func TestUnsearchableChallengeIsRecorded(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPoolClient(ctrl)
	store := mocks.NewMockStore(ctrl)

	store.EXPECT().LastRound().Return(uint64(0), false, nil)
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).
		Return(&shared.Challenge{Bytes: []byte("x"), RoundID: 2, Algo: "md5"}, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec history.Record) error {
		require.Equal(t, session.OutcomeSearchFailed, rec.Outcome)
		require.EqualValues(t, 2, rec.RoundID)
		return nil
	})
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(2)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			cancel()
			return nil, context.Canceled
		})

	s, err := session.New(client, id,
		session.WithConfig(testConfig()),
		session.WithClock(clock.NewMock()),
		session.WithStore(store),
	)
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, nil))
}

func TestFetchFailuresThenSearches(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	client := mocks.NewMockPoolClient(gomock.NewController(t))
	mock := clock.NewMock()

	ch := &shared.Challenge{Bytes: []byte("after outage"), RoundID: 1}
	var calls []time.Time
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			calls = append(calls, mock.Now())
			if len(calls) <= 3 {
				return nil, pool.ErrUnreachable
			}
			return ch, nil
		}).Times(4)
	client.EXPECT().SubmitSolution(gomock.Any(), uint64(1), bruteForce(t, ch, shared.NonceRange{End: 1000}), gomock.Any()).
		Return(pool.SubmitResult{Outcome: pool.Accepted}, nil)
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(1)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			cancel()
			return nil, context.Canceled
		})

	s, err := session.New(client, id,
		session.WithConfig(testConfig()),
		session.WithClock(mock),
		session.WithBackoff(noJitterBackoff(500*time.Millisecond, 10*time.Second, 5)),
	)
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, mock))

	require.Len(t, calls, 4)
	require.GreaterOrEqual(t, calls[1].Sub(calls[0]), 250*time.Millisecond)
	require.GreaterOrEqual(t, calls[2].Sub(calls[1]), 500*time.Millisecond)
	require.GreaterOrEqual(t, calls[3].Sub(calls[2]), time.Second)
}

func TestRejectedSolutionKeepsMining(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	client := mocks.NewMockPoolClient(gomock.NewController(t))

	first := &shared.Challenge{Bytes: []byte("first"), RoundID: 1}
	second := &shared.Challenge{Bytes: []byte("second"), RoundID: 2}
	gomock.InOrder(
		client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).Return(first, nil),
		client.EXPECT().SubmitSolution(gomock.Any(), uint64(1), gomock.Any(), gomock.Any()).
			Return(pool.SubmitResult{Outcome: pool.RejectedInvalid, Detail: "bad digest"}, nil),
		client.EXPECT().FetchChallenge(gomock.Any(), uint64(1)).Return(second, nil),
		client.EXPECT().SubmitSolution(gomock.Any(), uint64(2), gomock.Any(), gomock.Any()).
			Return(pool.SubmitResult{Outcome: pool.Accepted}, nil),
		client.EXPECT().FetchChallenge(gomock.Any(), uint64(2)).DoAndReturn(
			func(context.Context, uint64) (*shared.Challenge, error) {
				cancel()
				return nil, context.Canceled
			}),
	)

	s, err := session.New(client, id, session.WithConfig(testConfig()), session.WithClock(clock.NewMock()))
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, nil))
}

func TestUnauthorizedSubmissionStopsSession(t *testing.T) {
	ctx, _ := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPoolClient(ctrl)
	store := mocks.NewMockStore(ctrl)

	store.EXPECT().LastRound().Return(uint64(0), false, nil)
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).Return(&shared.Challenge{Bytes: []byte("x"), RoundID: 4}, nil)
	client.EXPECT().SubmitSolution(gomock.Any(), uint64(4), gomock.Any(), gomock.Any()).
		Return(pool.SubmitResult{}, pool.ErrUnauthorized)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec history.Record) error {
		require.Equal(t, session.OutcomeSubmitFailed, rec.Outcome)
		return nil
	})

	s, err := session.New(client, id,
		session.WithConfig(testConfig()),
		session.WithClock(clock.NewMock()),
		session.WithStore(store),
	)
	require.NoError(t, err)
	err = run(t, ctx, s, nil)
	require.ErrorIs(t, err, pool.ErrUnauthorized)
	require.Equal(t, session.Stopped, s.State())
}

// skewedClock jumps an hour forward on every read of the time.
type skewedClock struct {
	clock.Clock
	reads atomic.Int64
}

func (c *skewedClock) Now() time.Time {
	return time.Unix(0, 0).Add(time.Duration(c.reads.Add(1)) * time.Hour)
}

func TestMissedDeadlineYieldsNoSolution(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPoolClient(ctrl)
	store := mocks.NewMockStore(ctrl)

	store.EXPECT().LastRound().Return(uint64(0), false, nil)
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).Return(&shared.Challenge{Bytes: []byte("late"), RoundID: 5}, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec history.Record) error {
		require.Equal(t, session.OutcomeNoSolution, rec.Outcome)
		require.EqualValues(t, 5, rec.RoundID)
		require.Zero(t, rec.Hashes)
		return nil
	})
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(5)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			cancel()
			return nil, context.Canceled
		})

	cfg := testConfig()
	cfg.RoundDuration = time.Minute
	s, err := session.New(client, id,
		session.WithConfig(cfg),
		session.WithClock(&skewedClock{Clock: clock.NewMock()}),
		session.WithStore(store),
	)
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, nil))
}

func TestUnverifiedSolutionIsNotSubmitted(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPoolClient(ctrl)
	store := mocks.NewMockStore(ctrl)
	verifier := mocks.NewMockVerifier(ctrl)

	ch := &shared.Challenge{Bytes: []byte("corrupt"), RoundID: 8}
	store.EXPECT().LastRound().Return(uint64(0), false, nil)
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).Return(ch, nil)
	verifier.EXPECT().Verify(ch, gomock.Any()).Return(shared.ErrDigestMismatch)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec history.Record) error {
		require.Equal(t, session.OutcomeInvalid, rec.Outcome)
		require.EqualValues(t, 8, rec.RoundID)
		return nil
	})
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(8)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			cancel()
			return nil, context.Canceled
		})

	s, err := session.New(client, id,
		session.WithConfig(testConfig()),
		session.WithClock(clock.NewMock()),
		session.WithStore(store),
		session.WithVerifier(verifier),
	)
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, nil))
}

func TestMinesLastRoundAgainWhenNeverSubmitted(t *testing.T) {
	ctx, cancel := newContext(t)
	id, err := signing.GenerateIdentity()
	require.NoError(t, err)
	ctrl := gomock.NewController(t)
	client := mocks.NewMockPoolClient(ctrl)
	store := mocks.NewMockStore(ctrl)

	ch := &shared.Challenge{Bytes: []byte("retry me"), RoundID: 6}
	store.EXPECT().LastRound().Return(uint64(6), true, nil)
	store.EXPECT().Get(uint64(6)).Return(&history.Record{RoundID: 6, Outcome: session.OutcomeSearchFailed}, nil)
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(0)).Return(ch, nil)
	client.EXPECT().SubmitSolution(gomock.Any(), uint64(6), gomock.Any(), gomock.Any()).
		Return(pool.SubmitResult{Outcome: pool.Accepted}, nil)
	store.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, rec history.Record) error {
		require.Equal(t, pool.Accepted.String(), rec.Outcome)
		return nil
	})
	client.EXPECT().FetchChallenge(gomock.Any(), uint64(6)).DoAndReturn(
		func(context.Context, uint64) (*shared.Challenge, error) {
			cancel()
			return nil, context.Canceled
		})

	s, err := session.New(client, id,
		session.WithConfig(testConfig()),
		session.WithClock(clock.NewMock()),
		session.WithStore(store),
	)
	require.NoError(t, err)
	require.NoError(t, run(t, ctx, s, nil))
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Workers = 0
	cfg.RoundDuration = 0
	cfg.NonceStart, cfg.NonceEnd = 10, 10
	cfg.PollInterval = -time.Second

	_, err := session.New(nil, nil, session.WithConfig(cfg))
	require.ErrorIs(t, err, session.ErrInvalidConfig)
	require.ErrorIs(t, err, search.ErrNoWorkers)
	require.ErrorIs(t, err, search.ErrEmptySpace)
	require.ErrorContains(t, err, "round duration")
	require.ErrorContains(t, err, "poll interval")

	cfg = session.DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestStateString(t *testing.T) {
	t.Parallel()
	require.Equal(t, "cooling_down", session.CoolingDown.String())
	require.Equal(t, "State(42)", session.State(42).String())
}
