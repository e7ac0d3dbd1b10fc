package session

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap/zapcore"

	"github.com/ore-hq/pool-miner/search"
	"github.com/ore-hq/pool-miner/shared"
)

const (
	DefaultRoundDuration      = 5 * time.Second
	DefaultCooldownDelay      = time.Second
	DefaultPollInterval       = 2 * time.Second
	DefaultRateLimitPause     = 10 * time.Second
	DefaultSubmitTimeout      = 30 * time.Second
	DefaultSubmittedCacheSize = 64
)

var ErrInvalidConfig = errors.New("invalid mining configuration")

//nolint:lll
type Config struct {
	RoundDuration      time.Duration `long:"round-duration"       description:"Time spent searching each challenge before submitting the best solution"`
	Workers            int           `long:"threads"              description:"Number of parallel hash workers (default: number of CPUs)"`
	NonceStart         uint64        `long:"nonce-start"          description:"First nonce of the searched space, unless the pool assigns one"`
	NonceEnd           uint64        `long:"nonce-end"            description:"End (exclusive) of the searched space, unless the pool assigns one"`
	CheckEvery         uint64        `long:"check-every"          description:"Number of hashes between two deadline checks of a worker"`
	CooldownDelay      time.Duration `long:"cooldown"             description:"Pause between a submission and the next fetch"`
	PollInterval       time.Duration `long:"poll-interval"        description:"Pause before polling again when the pool has no new challenge"`
	RateLimitPause     time.Duration `long:"rate-limit-pause"     description:"Pause after the pool rate limited a submission"`
	SubmitTimeout      time.Duration `long:"submit-timeout"       description:"Upper bound of a submission including its retries"`
	SubmittedCacheSize int           `long:"submitted-cache-size" description:"Number of recently submitted rounds remembered to avoid mining a round twice"`
}

func DefaultConfig() Config {
	return Config{
		RoundDuration:      DefaultRoundDuration,
		Workers:            runtime.NumCPU(),
		NonceStart:         0,
		NonceEnd:           math.MaxUint64,
		CheckEvery:         search.DefaultCheckEvery,
		CooldownDelay:      DefaultCooldownDelay,
		PollInterval:       DefaultPollInterval,
		RateLimitPause:     DefaultRateLimitPause,
		SubmitTimeout:      DefaultSubmitTimeout,
		SubmittedCacheSize: DefaultSubmittedCacheSize,
	}
}

// Space returns the locally configured nonce space.
func (c *Config) Space() shared.NonceRange {
	return shared.NonceRange{Start: c.NonceStart, End: c.NonceEnd}
}

// Validate reports every problem of the configuration at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.RoundDuration <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: round duration must be positive, got %v", ErrInvalidConfig, c.RoundDuration))
	}
	if c.Workers <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: %w, got %d", ErrInvalidConfig, search.ErrNoWorkers, c.Workers))
	}
	if c.Space().Empty() {
		result = multierror.Append(result, fmt.Errorf("%w: %w: %s", ErrInvalidConfig, search.ErrEmptySpace, c.Space()))
	}
	if c.CheckEvery == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: check interval must be positive", ErrInvalidConfig))
	}
	if c.SubmitTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: submit timeout must be positive, got %v", ErrInvalidConfig, c.SubmitTimeout))
	}
	if c.SubmittedCacheSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: submitted cache size must be positive, got %d", ErrInvalidConfig, c.SubmittedCacheSize))
	}
	for name, d := range map[string]time.Duration{
		"cooldown":         c.CooldownDelay,
		"poll interval":    c.PollInterval,
		"rate limit pause": c.RateLimitPause,
	} {
		if d < 0 {
			result = multierror.Append(result, fmt.Errorf("%w: %s must not be negative, got %v", ErrInvalidConfig, name, d))
		}
	}
	return result.ErrorOrNil()
}

// implement zap.ObjectMarshaler interface.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddDuration("round-duration", c.RoundDuration)
	enc.AddInt("threads", c.Workers)
	enc.AddUint64("nonce-start", c.NonceStart)
	enc.AddUint64("nonce-end", c.NonceEnd)
	enc.AddUint64("check-every", c.CheckEvery)
	enc.AddDuration("cooldown", c.CooldownDelay)
	enc.AddDuration("poll-interval", c.PollInterval)
	enc.AddDuration("rate-limit-pause", c.RateLimitPause)
	enc.AddDuration("submit-timeout", c.SubmitTimeout)
	enc.AddInt("submitted-cache-size", c.SubmittedCacheSize)
	return nil
}
