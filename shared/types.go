package shared

import (
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// NonceRange is the half-open interval [Start, End) of nonces.
type NonceRange struct {
	Start uint64
	End   uint64
}

func (r NonceRange) Size() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

func (r NonceRange) Empty() bool {
	return r.Size() == 0
}

func (r NonceRange) Contains(nonce uint64) bool {
	return nonce >= r.Start && nonce < r.End
}

func (r NonceRange) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// implement zap.ObjectMarshaler interface.
func (r NonceRange) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("start", r.Start)
	enc.AddUint64("end", r.End)
	return nil
}

// Challenge is the input of a single mining round as issued by the pool.
// It must not be modified after it was received.
type Challenge struct {
	Bytes    []byte
	RoundID  uint64
	IssuedAt time.Time

	// Space is the nonce space assigned by the pool for this round.
	// Nil means the locally configured space is searched.
	Space *NonceRange
	// Algo names the hash function. Empty selects DefaultAlgo.
	Algo string
}

// implement zap.ObjectMarshaler interface.
func (c *Challenge) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("round", c.RoundID)
	enc.AddString("challenge", hex.EncodeToString(c.Bytes))
	enc.AddTime("issued_at", c.IssuedAt)
	if c.Algo != "" {
		enc.AddString("algo", c.Algo)
	}
	if c.Space != nil {
		return enc.AddObject("space", c.Space)
	}
	return nil
}

// Solution is a candidate nonce together with its digest and difficulty.
type Solution struct {
	Nonce      uint64
	Digest     []byte
	Difficulty uint32
}

// implement zap.ObjectMarshaler interface.
func (s *Solution) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint64("nonce", s.Nonce)
	enc.AddUint32("difficulty", s.Difficulty)
	enc.AddString("digest", hex.EncodeToString(s.Digest))
	return nil
}
