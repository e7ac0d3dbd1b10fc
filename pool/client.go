package pool

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/ore-hq/pool-miner/shared"
	"github.com/ore-hq/pool-miner/signing"
)

const (
	headerPubkey    = "X-Miner-Pubkey"
	headerTimestamp = "X-Miner-Timestamp"
	headerSignature = "X-Miner-Signature"
	headerSession   = "X-Session-Id"
)

// Signer signs messages with the operator's key.
type Signer interface {
	Sign(msg []byte) []byte
	PublicKey() []byte
}

// Client talks to the pool over HTTP. It holds no state besides its configuration
// and is safe for concurrent use.
type Client struct {
	baseURL   *url.URL
	client    *retryablehttp.Client
	signer    Signer
	sessionID uuid.UUID
	now       func() time.Time
}

type clientOptions struct {
	logger    *zap.Logger
	sessionID uuid.UUID
	now       func() time.Time
}

type OptionFunc func(*clientOptions)

func WithLogger(logger *zap.Logger) OptionFunc {
	return func(opts *clientOptions) {
		opts.logger = logger
	}
}

func WithSessionID(id uuid.UUID) OptionFunc {
	return func(opts *clientOptions) {
		opts.sessionID = id
	}
}

// WithNow overrides the time source of request timestamps.
func WithNow(now func() time.Time) OptionFunc {
	return func(opts *clientOptions) {
		opts.now = now
	}
}

// NewClient returns a client of the pool at cfg.URL. A URL without a scheme
// gets https, or http if cfg.UseHTTP is set.
func NewClient(cfg Config, signer Signer, opts ...OptionFunc) (*Client, error) {
	options := clientOptions{
		logger:    zap.NewNop(),
		sessionID: uuid.New(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty pool url", ErrInvalidRequest)
	}
	if !strings.Contains(raw, "://") {
		scheme := "https"
		if cfg.UseHTTP {
			scheme = "http"
		}
		raw = scheme + "://" + raw
	}
	baseURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing address: %w", err)
	}
	if baseURL.Host == "" {
		return nil, fmt.Errorf("parsing address: missing host in %q", cfg.URL)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.TransportRetries
	client.RetryWaitMin = cfg.RetryBase
	client.RetryWaitMax = cfg.RetryMax
	client.HTTPClient.Timeout = cfg.RequestTimeout
	client.Logger = &leveledLogger{options.logger.Named("http").Sugar()}
	// Hand the last response back instead of a generic "giving up" error,
	// so that status codes can be mapped below.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL:   baseURL,
		client:    client,
		signer:    signer,
		sessionID: options.sessionID,
		now:       options.now,
	}, nil
}

func (c *Client) SessionID() uuid.UUID {
	return c.sessionID
}

func (c *Client) pubkey() string {
	return base58.Encode(c.signer.PublicKey())
}

// FetchChallenge returns the pool's current challenge. lastRound is the last round the
// miner worked on; the pool answers ErrNoNewChallenge if it has nothing newer.
// The call is idempotent.
func (c *Client) FetchChallenge(ctx context.Context, lastRound uint64) (*shared.Challenge, error) {
	query := url.Values{}
	if lastRound > 0 {
		query.Set("last_round", strconv.FormatUint(lastRound, 10))
	}
	status, data, err := c.req(ctx, http.MethodGet, "/v1/challenge", query, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching challenge: %w", err)
	}
	if status == http.StatusNoContent {
		return nil, ErrNoNewChallenge
	}
	if err := statusError(status, data); err != nil {
		return nil, fmt.Errorf("fetching challenge: %w", err)
	}

	var res challengeResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("%w: decoding challenge: %v", ErrMalformedResponse, err)
	}
	if len(res.Challenge) == 0 {
		return nil, fmt.Errorf("%w: empty challenge", ErrMalformedResponse)
	}

	challenge := &shared.Challenge{
		Bytes:    res.Challenge,
		RoundID:  res.RoundID,
		IssuedAt: time.UnixMilli(res.IssuedAt),
		Algo:     res.Algo,
	}
	switch {
	case res.NonceStart != nil && res.NonceEnd != nil:
		space := shared.NonceRange{Start: *res.NonceStart, End: *res.NonceEnd}
		if space.Empty() {
			return nil, fmt.Errorf("%w: empty nonce space %s", ErrMalformedResponse, space)
		}
		challenge.Space = &space
	case res.NonceStart != nil || res.NonceEnd != nil:
		return nil, fmt.Errorf("%w: incomplete nonce space", ErrMalformedResponse)
	}
	return challenge, nil
}

// SubmitSolution submits the best solution of a round. signature must cover
// signing.SubmitMessage(roundID, sol.Nonce, sol.Digest).
func (c *Client) SubmitSolution(
	ctx context.Context,
	roundID uint64,
	sol shared.Solution,
	signature []byte,
) (SubmitResult, error) {
	body := submitRequest{
		RoundID:    roundID,
		Nonce:      sol.Nonce,
		Digest:     sol.Digest,
		Difficulty: sol.Difficulty,
		Pubkey:     c.pubkey(),
		Signature:  signature,
	}
	status, data, err := c.req(ctx, http.MethodPost, "/v1/solution", nil, &body)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("submitting solution: %w", err)
	}

	var res submitResponse
	if len(bytes.TrimSpace(data)) > 0 {
		// Error statuses may carry plain text bodies.
		if err := json.Unmarshal(data, &res); err != nil && status == http.StatusOK {
			return SubmitResult{}, fmt.Errorf("%w: decoding submit response: %v", ErrUnconfirmedSubmit, err)
		}
	}
	if outcome, ok := parseOutcome(res.Status); ok {
		return SubmitResult{Outcome: outcome, Detail: res.Detail}, nil
	}

	switch status {
	case http.StatusConflict:
		return SubmitResult{Outcome: StaleRound, Detail: res.Detail}, nil
	case http.StatusUnprocessableEntity:
		return SubmitResult{Outcome: RejectedInvalid, Detail: res.Detail}, nil
	case http.StatusTooManyRequests:
		return SubmitResult{Outcome: RateLimited, Detail: res.Detail}, nil
	}
	if err := statusError(status, data); err != nil {
		return SubmitResult{}, fmt.Errorf("submitting solution: %w", err)
	}
	return SubmitResult{}, fmt.Errorf("%w: unknown submit status %q", ErrUnconfirmedSubmit, res.Status)
}

// Signup registers the miner's public key with the pool.
func (c *Client) Signup(ctx context.Context) error {
	msg, err := signing.SignupMessage(c.signer.PublicKey())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	body := signupRequest{
		Pubkey:    c.pubkey(),
		Signature: c.signer.Sign(msg),
	}
	status, data, err := c.req(ctx, http.MethodPost, "/v1/signup", nil, &body)
	if err != nil {
		return fmt.Errorf("signing up: %w", err)
	}
	if status == http.StatusConflict {
		return ErrAlreadyRegistered
	}
	if err := statusError(status, data); err != nil {
		return fmt.Errorf("signing up: %w", err)
	}
	return nil
}

// Rewards returns the rewards accrued by the miner and not claimed yet.
func (c *Client) Rewards(ctx context.Context) (Amount, error) {
	return c.amount(ctx, "/v1/rewards")
}

// Balance returns the token balance of the miner's wallet.
func (c *Client) Balance(ctx context.Context) (Amount, error) {
	return c.amount(ctx, "/v1/balance")
}

func (c *Client) amount(ctx context.Context, path string) (Amount, error) {
	status, data, err := c.req(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return Amount{}, fmt.Errorf("querying %s: %w", path, err)
	}
	if err := statusError(status, data); err != nil {
		return Amount{}, fmt.Errorf("querying %s: %w", path, err)
	}
	var res Amount
	if err := json.Unmarshal(data, &res); err != nil {
		return Amount{}, fmt.Errorf("%w: decoding amount: %v", ErrMalformedResponse, err)
	}
	return res, nil
}

// Claim withdraws amount (smallest unit) of accrued rewards to the miner's wallet.
func (c *Client) Claim(ctx context.Context, amount uint64) (ClaimReceipt, error) {
	ts := c.now().Unix()
	msg, err := signing.ClaimMessage(amount, ts)
	if err != nil {
		return ClaimReceipt{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	body := claimRequest{
		Pubkey:    c.pubkey(),
		Amount:    amount,
		Timestamp: ts,
		Signature: c.signer.Sign(msg),
	}
	status, data, err := c.req(ctx, http.MethodPost, "/v1/claim", nil, &body)
	if err != nil {
		return ClaimReceipt{}, fmt.Errorf("claiming: %w", err)
	}
	if err := statusError(status, data); err != nil {
		return ClaimReceipt{}, fmt.Errorf("claiming: %w", err)
	}
	var res ClaimReceipt
	if err := json.Unmarshal(data, &res); err != nil {
		return ClaimReceipt{}, fmt.Errorf("%w: decoding claim receipt: %v", ErrMalformedResponse, err)
	}
	return res, nil
}

// req performs an authenticated request and returns the status code and body.
// A returned error means no response was obtained.
func (c *Client) req(ctx context.Context, method, path string, query url.Values, reqBody any) (int, []byte, error) {
	var body io.Reader
	if reqBody != nil {
		jsonReqBody, err := json.Marshal(reqBody)
		if err != nil {
			return 0, nil, fmt.Errorf("marshaling request body: %w", err)
		}
		body = bytes.NewReader(jsonReqBody)
	}

	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return 0, nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	ts := c.now().Unix()
	auth, err := signing.AuthMessage(ts)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	req.Header.Set(headerPubkey, c.pubkey())
	req.Header.Set(headerTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(headerSignature, base64.StdEncoding.EncodeToString(c.signer.Sign(auth)))
	req.Header.Set(headerSession, c.sessionID.String())

	res, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, nil, ctxErr
		}
		return 0, nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: reading response body: %v", ErrUnreachable, err)
	}
	return res.StatusCode, data, nil
}

func statusError(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d, body: %s", ErrUnauthorized, status, body)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: body: %s", ErrRateLimited, body)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: body: %s", ErrNotFound, body)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: body: %s", ErrInvalidRequest, body)
	case status >= 500:
		return fmt.Errorf("%w: status %d, body: %s", ErrUnreachable, status, body)
	default:
		return fmt.Errorf("unrecognized response status: %d, body: %s", status, body)
	}
}

// leveledLogger adapts zap to retryablehttp.LeveledLogger.
type leveledLogger struct {
	l *zap.SugaredLogger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.l.Errorw(msg, keysAndValues...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.l.Infow(msg, keysAndValues...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.l.Debugw(msg, keysAndValues...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.l.Warnw(msg, keysAndValues...)
}
