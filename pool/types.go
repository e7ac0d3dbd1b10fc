package pool

import (
	"fmt"
	"strconv"
	"strings"
)

// SubmitOutcome is the pool's verdict on a submitted solution.
type SubmitOutcome int

const (
	Accepted SubmitOutcome = iota + 1
	// StaleRound means the pool already advanced past the submitted round.
	StaleRound
	// RejectedInvalid means the digest does not satisfy the challenge.
	RejectedInvalid
	RateLimited
)

func (o SubmitOutcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case StaleRound:
		return "stale_round"
	case RejectedInvalid:
		return "rejected_invalid"
	case RateLimited:
		return "rate_limited"
	default:
		return fmt.Sprintf("SubmitOutcome(%d)", int(o))
	}
}

func parseOutcome(s string) (SubmitOutcome, bool) {
	for _, o := range []SubmitOutcome{Accepted, StaleRound, RejectedInvalid, RateLimited} {
		if o.String() == s {
			return o, true
		}
	}
	return 0, false
}

type SubmitResult struct {
	Outcome SubmitOutcome
	// Detail is an optional human readable explanation from the pool.
	Detail string
}

// Amount is a token amount in its smallest unit together with the number of decimals.
type Amount struct {
	Raw      uint64 `json:"raw"`
	Decimals uint8  `json:"decimals"`
}

func (a Amount) String() string {
	s := strconv.FormatUint(a.Raw, 10)
	if a.Decimals == 0 {
		return s
	}
	d := int(a.Decimals)
	if len(s) <= d {
		s = strings.Repeat("0", d-len(s)+1) + s
	}
	return s[:len(s)-d] + "." + s[len(s)-d:]
}

type ClaimReceipt struct {
	Amount      Amount `json:"amount"`
	Transaction string `json:"tx"`
}

type challengeResponse struct {
	Challenge  []byte  `json:"challenge"`
	RoundID    uint64  `json:"round_id"`
	IssuedAt   int64   `json:"issued_at"`
	NonceStart *uint64 `json:"nonce_start,omitempty"`
	NonceEnd   *uint64 `json:"nonce_end,omitempty"`
	Algo       string  `json:"algo,omitempty"`
}

type submitRequest struct {
	RoundID    uint64 `json:"round_id"`
	Nonce      uint64 `json:"nonce"`
	Digest     []byte `json:"digest"`
	Difficulty uint32 `json:"difficulty"`
	Pubkey     string `json:"pubkey"`
	Signature  []byte `json:"signature"`
}

type submitResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type signupRequest struct {
	Pubkey    string `json:"pubkey"`
	Signature []byte `json:"signature"`
}

type claimRequest struct {
	Pubkey    string `json:"pubkey"`
	Amount    uint64 `json:"amount"`
	Timestamp int64  `json:"timestamp"`
	Signature []byte `json:"signature"`
}

// TokenDecimals is the number of decimals of the mined token.
const TokenDecimals = 11

// ParseAmount converts a decimal token amount such as "1.25" to its smallest unit.
func ParseAmount(s string, decimals uint8) (uint64, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidRequest)
	}
	if len(frac) > int(decimals) {
		return 0, fmt.Errorf("%w: amount %q has more than %d decimals", ErrInvalidRequest, s, decimals)
	}
	if whole == "" {
		whole = "0"
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	raw, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parsing amount %q: %v", ErrInvalidRequest, s, err)
	}
	return raw, nil
}
