// Package session drives the fetch, search and submit cycle against a mining pool.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ore-hq/pool-miner/history"
	"github.com/ore-hq/pool-miner/logging"
	"github.com/ore-hq/pool-miner/pool"
	"github.com/ore-hq/pool-miner/search"
	"github.com/ore-hq/pool-miner/shared"
	"github.com/ore-hq/pool-miner/signing"
)

//go:generate mockgen -package mocks -destination mocks/session.go . PoolClient,Store,Verifier

type PoolClient interface {
	FetchChallenge(ctx context.Context, lastRound uint64) (*shared.Challenge, error)
	SubmitSolution(ctx context.Context, roundID uint64, sol shared.Solution, signature []byte) (pool.SubmitResult, error)
}

type Signer interface {
	Sign(msg []byte) []byte
}

// Store persists the outcome of every round.
type Store interface {
	Save(ctx context.Context, rec history.Record) error
	Get(roundID uint64) (*history.Record, error)
	LastRound() (roundID uint64, ok bool, err error)
}

// Verifier checks the best solution of a round before it is submitted.
type Verifier interface {
	Verify(challenge *shared.Challenge, sol shared.Solution) error
}

type verifierFunc func(challenge *shared.Challenge, sol shared.Solution) error

func (f verifierFunc) Verify(challenge *shared.Challenge, sol shared.Solution) error {
	return f(challenge, sol)
}

type State int32

const (
	Idle State = iota
	Fetching
	Searching
	Submitting
	CoolingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Searching:
		return "searching"
	case Submitting:
		return "submitting"
	case CoolingDown:
		return "cooling_down"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Round outcomes besides the pool's verdicts.
const (
	OutcomeNoSolution   = "no_solution"
	OutcomeInvalid      = "invalid_solution"
	OutcomeSearchFailed = "search_failed"
	OutcomeSubmitFailed = "submit_failed"
)

// submitted reports whether a round with outcome reached the pool.
func submitted(outcome string) bool {
	switch outcome {
	case OutcomeNoSolution, OutcomeInvalid, OutcomeSearchFailed:
		return false
	default:
		return true
	}
}

var (
	roundsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "poolminer",
		Subsystem: "session",
		Name:      "rounds_total",
		Help:      "Number of finished rounds by outcome",
	}, []string{"outcome"})

	bestDifficultyMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolminer",
		Subsystem: "session",
		Name:      "best_difficulty",
		Help:      "Difficulty of the best solution of the last round",
	})

	stateMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "poolminer",
		Subsystem: "session",
		Name:      "state",
		Help:      "Current state of the mining session",
	})

	fetchFailuresMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "poolminer",
		Subsystem: "session",
		Name:      "fetch_failures_total",
		Help:      "Number of failed challenge fetches",
	})
)

// Session is a single miner identity working rounds one after another.
// Run must not be called concurrently.
type Session struct {
	cfg        Config
	client     PoolClient
	signer     Signer
	store      Store
	verifier   Verifier
	clk        clock.Clock
	newBackoff func() *pool.Backoff

	state     atomic.Int32
	lastRound uint64
	submitted *lru.Cache

	// round scoped
	challenge *shared.Challenge
	result    search.RoundResult
	pause     time.Duration
}

type newSessionOptionFunc func(*newSessionOptions)

type newSessionOptions struct {
	cfg        Config
	clk        clock.Clock
	store      Store
	verifier   Verifier
	newBackoff func() *pool.Backoff
}

func WithConfig(cfg Config) newSessionOptionFunc {
	return func(opts *newSessionOptions) {
		opts.cfg = cfg
	}
}

func WithClock(clk clock.Clock) newSessionOptionFunc {
	return func(opts *newSessionOptions) {
		opts.clk = clk
	}
}

func WithStore(store Store) newSessionOptionFunc {
	return func(opts *newSessionOptions) {
		opts.store = store
	}
}

func WithVerifier(verifier Verifier) newSessionOptionFunc {
	return func(opts *newSessionOptions) {
		opts.verifier = verifier
	}
}

// WithBackoff sets the source of fresh retry state, used for fetching and submitting.
func WithBackoff(newBackoff func() *pool.Backoff) newSessionOptionFunc {
	return func(opts *newSessionOptions) {
		opts.newBackoff = newBackoff
	}
}

func New(client PoolClient, signer Signer, opts ...newSessionOptionFunc) (*Session, error) {
	options := newSessionOptions{
		cfg:      DefaultConfig(),
		clk:      clock.New(),
		verifier: verifierFunc(shared.Verify),
		newBackoff: func() *pool.Backoff {
			return pool.NewBackoff(pool.DefaultRetryBase, pool.DefaultRetryMax, pool.DefaultRetryAttempts)
		},
	}
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.cfg.Validate(); err != nil {
		return nil, err
	}
	submitted, err := lru.New(options.cfg.SubmittedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating submitted rounds cache: %w", err)
	}
	return &Session{
		cfg:        options.cfg,
		client:     client,
		signer:     signer,
		store:      options.store,
		verifier:   options.verifier,
		clk:        options.clk,
		newBackoff: options.newBackoff,
		submitted:  submitted,
	}, nil
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(state State) {
	s.state.Store(int32(state))
	stateMetric.Set(float64(state))
}

// Run mines until ctx is cancelled or the pool rejects the miner's identity.
// Cancellation is observed between states and returns nil; a submission
// in flight is completed first.
func (s *Session) Run(ctx context.Context) error {
	logger := logging.FromContext(ctx).Named("session")
	ctx = logging.NewContext(ctx, logger)
	logger.Info("starting mining session", zap.Object("config", s.cfg))

	s.restore(ctx)

	fetchBackoff := s.newBackoff()
	next := Fetching
	for {
		if ctx.Err() != nil {
			next = Stopped
		}
		s.setState(next)
		logger.Debug("entering state", zap.Stringer("state", next))

		var err error
		switch next {
		case Fetching:
			next, err = s.fetch(ctx, fetchBackoff)
		case Searching:
			next = s.search(ctx)
		case Submitting:
			next, err = s.submit(ctx)
		case CoolingDown:
			next = Fetching
			if err := pool.Wait(ctx, s.clk, s.pause); err != nil {
				next = Stopped
			}
		case Stopped:
			logger.Info("mining session stopped", zap.Uint64("last_round", s.lastRound))
			return nil
		}
		if err != nil {
			s.setState(Stopped)
			logger.Error("mining session failed", zap.Error(err))
			return err
		}
	}
}

// restore seeds the round bookkeeping from the ledger so that a restarted
// miner does not mine a round it already submitted.
func (s *Session) restore(ctx context.Context) {
	if s.store == nil {
		return
	}
	logger := logging.FromContext(ctx)
	last, ok, err := s.store.LastRound()
	switch {
	case err != nil:
		logger.Warn("failed to read last round from history", zap.Error(err))
		return
	case !ok:
		return
	}
	rec, err := s.store.Get(last)
	if err != nil {
		logger.Warn("failed to read last round from history", zap.Uint64("round", last), zap.Error(err))
		return
	}
	if !submitted(rec.Outcome) {
		logger.Info("last recorded round was never submitted", zap.Object("record", rec))
		return
	}
	s.lastRound = last
	s.submitted.Add(last, struct{}{})
	logger.Info("resuming after last recorded round", zap.Uint64("round", last))
}

func (s *Session) fetch(ctx context.Context, b *pool.Backoff) (State, error) {
	logger := logging.FromContext(ctx)
	challenge, err := s.client.FetchChallenge(ctx, s.lastRound)
	switch {
	case err == nil:
		b.Reset()
		if s.submitted.Contains(challenge.RoundID) {
			logger.Debug("round already submitted", zap.Uint64("round", challenge.RoundID))
			s.pause = s.cfg.PollInterval
			return CoolingDown, nil
		}
		logger.Info("received challenge", zap.Object("challenge", challenge))
		s.challenge = challenge
		s.lastRound = challenge.RoundID
		return Searching, nil
	case errors.Is(err, pool.ErrNoNewChallenge):
		b.Reset()
		s.pause = s.cfg.PollInterval
		return CoolingDown, nil
	case errors.Is(err, pool.ErrUnauthorized):
		return Stopped, fmt.Errorf("fetching challenge: %w", err)
	case ctx.Err() != nil:
		return Stopped, nil
	}

	fetchFailuresMetric.Inc()
	delay, ok := b.Next()
	if !ok {
		s.pause = b.Max
		logger.Warn("pool unavailable, pausing before reconnecting",
			zap.Error(err),
			zap.Int("attempts", b.Attempts()),
			zap.Duration("pause", s.pause),
		)
		b.Reset()
		return CoolingDown, nil
	}
	logger.Info("failed to fetch challenge, retrying",
		zap.Error(err),
		zap.Int("attempt", b.Attempts()),
		zap.Duration("delay", delay),
	)
	if err := pool.Wait(ctx, s.clk, delay); err != nil {
		return Stopped, nil
	}
	return Fetching, nil
}

func (s *Session) search(ctx context.Context) State {
	logger := logging.FromContext(ctx)
	challenge := s.challenge

	space := s.cfg.Space()
	if challenge.Space != nil {
		space = *challenge.Space
	}
	deadline := s.clk.Now().Add(s.cfg.RoundDuration)
	result, err := search.Run(ctx, s.clk, search.Config{Workers: s.cfg.Workers, CheckEvery: s.cfg.CheckEvery}, challenge, space, deadline)
	if err != nil {
		logger.Error("cannot search challenge", zap.Uint64("round", challenge.RoundID), zap.Error(err))
		s.record(ctx, OutcomeSearchFailed, nil, 0)
		s.pause = s.cfg.PollInterval
		return CoolingDown
	}
	s.result = result
	if ctx.Err() != nil {
		return Stopped
	}

	if result.Best == nil {
		logger.Error("search produced no solution", zap.Uint64("round", challenge.RoundID), zap.Uint64("hashes", result.Hashes))
		s.record(ctx, OutcomeNoSolution, nil, result.Hashes)
		return Fetching
	}
	if err := s.verifier.Verify(challenge, *result.Best); err != nil {
		logger.Error("best solution failed local verification",
			zap.Uint64("round", challenge.RoundID),
			zap.Object("solution", result.Best),
			zap.Error(err),
		)
		s.record(ctx, OutcomeInvalid, result.Best, result.Hashes)
		return Fetching
	}

	bestDifficultyMetric.Set(float64(result.Best.Difficulty))
	logger.Info("search finished",
		zap.Uint64("round", challenge.RoundID),
		zap.Object("solution", result.Best),
		zap.Uint64("hashes", result.Hashes),
		zap.Float64("hashrate", result.Hashrate()),
		zap.Duration("elapsed", result.Elapsed),
	)
	return Submitting
}

// submit is not interrupted by cancellation of ctx. It is bounded by the submit timeout instead.
func (s *Session) submit(ctx context.Context) (State, error) {
	logger := logging.FromContext(ctx)
	challenge := s.challenge
	best := *s.result.Best
	msg, err := signing.SubmitMessage(challenge.RoundID, best.Nonce, best.Digest)
	if err != nil {
		logger.Error("cannot build submission", zap.Uint64("round", challenge.RoundID), zap.Error(err))
		s.record(ctx, OutcomeInvalid, &best, s.result.Hashes)
		return Fetching, nil
	}
	signature := s.signer.Sign(msg)

	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SubmitTimeout)
	defer cancel()

	var res pool.SubmitResult
	err = pool.Retry(submitCtx, s.clk, s.newBackoff(), func(ctx context.Context) error {
		var err error
		res, err = s.client.SubmitSolution(ctx, challenge.RoundID, best, signature)
		if err != nil {
			logger.Debug("submission attempt failed", zap.Uint64("round", challenge.RoundID), zap.Error(err))
		}
		return err
	})
	s.submitted.Add(challenge.RoundID, struct{}{})
	s.pause = s.cfg.CooldownDelay

	switch {
	case errors.Is(err, pool.ErrUnauthorized):
		s.record(ctx, OutcomeSubmitFailed, &best, s.result.Hashes)
		return Stopped, fmt.Errorf("submitting solution: %w", err)
	case err != nil:
		logger.Warn("giving up on submission", zap.Uint64("round", challenge.RoundID), zap.Error(err))
		s.record(ctx, OutcomeSubmitFailed, &best, s.result.Hashes)
		return CoolingDown, nil
	}

	s.record(ctx, res.Outcome.String(), &best, s.result.Hashes)
	fields := []zap.Field{
		zap.Uint64("round", challenge.RoundID),
		zap.Stringer("outcome", res.Outcome),
		zap.Uint32("difficulty", best.Difficulty),
		zap.String("detail", res.Detail),
	}
	switch res.Outcome {
	case pool.Accepted:
		logger.Info("solution accepted", fields...)
	case pool.StaleRound:
		logger.Info("round already closed by the pool", fields...)
		s.pause = 0
	case pool.RejectedInvalid:
		logger.Error("pool rejected a locally verified solution", fields...)
	case pool.RateLimited:
		logger.Warn("submission rate limited", fields...)
		s.pause = s.cfg.RateLimitPause
	}
	return CoolingDown, nil
}

func (s *Session) record(ctx context.Context, outcome string, sol *shared.Solution, hashes uint64) {
	roundsMetric.WithLabelValues(outcome).Inc()
	if s.store == nil {
		return
	}
	rec := history.Record{
		RoundID:     s.challenge.RoundID,
		Hashes:      hashes,
		Outcome:     outcome,
		SubmittedAt: s.clk.Now().UnixMilli(),
	}
	if sol != nil {
		rec.Nonce = sol.Nonce
		rec.Digest = sol.Digest
		rec.Difficulty = sol.Difficulty
	}
	if err := s.store.Save(ctx, rec); err != nil {
		logging.FromContext(ctx).Warn("failed to save round record", zap.Uint64("round", rec.RoundID), zap.Error(err))
	}
}
