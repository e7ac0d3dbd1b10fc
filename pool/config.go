package pool

import (
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	defaultURL            = "ec1ipse.me"
	defaultRequestTimeout = 10 * time.Second
)

//nolint:lll
type Config struct {
	URL              string        `long:"url"               description:"URL of the server to connect to"`
	UseHTTP          bool          `long:"use-http"          description:"Use unsecure http connection instead of https"                short:"u"`
	RequestTimeout   time.Duration `long:"request-timeout"   description:"Timeout of a single request to the pool"`
	TransportRetries int           `long:"transport-retries" description:"Number of immediate transport level retries of a failed request"`
	RetryBase        time.Duration `long:"retry-base"        description:"Initial delay between retries of a failed pool call"`
	RetryMax         time.Duration `long:"retry-max"         description:"Maximum delay between retries of a failed pool call"`
	RetryAttempts    int           `long:"retry-attempts"    description:"Maximum number of retries of a failed pool call per round"`
}

func DefaultConfig() Config {
	return Config{
		URL:            defaultURL,
		RequestTimeout: defaultRequestTimeout,
		RetryBase:      DefaultRetryBase,
		RetryMax:       DefaultRetryMax,
		RetryAttempts:  DefaultRetryAttempts,
	}
}

// Backoff returns fresh retry state configured by c.
func (c Config) Backoff() *Backoff {
	return NewBackoff(c.RetryBase, c.RetryMax, c.RetryAttempts)
}

// implement zap.ObjectMarshaler interface.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("url", c.URL)
	enc.AddBool("use-http", c.UseHTTP)
	enc.AddDuration("request-timeout", c.RequestTimeout)
	enc.AddInt("transport-retries", c.TransportRetries)
	enc.AddDuration("retry-base", c.RetryBase)
	enc.AddDuration("retry-max", c.RetryMax)
	enc.AddInt("retry-attempts", c.RetryAttempts)
	return nil
}
