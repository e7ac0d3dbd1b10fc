package shared

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"math/bits"

	"github.com/minio/sha256-simd" // simd optimized sha256 computation
	"golang.org/x/crypto/blake2b"
)

const (
	AlgoSHA256  = "sha256"
	AlgoBlake2b = "blake2b"

	DefaultAlgo = AlgoSHA256
)

var (
	ErrUnknownAlgo        = errors.New("unknown hash algorithm")
	ErrDigestMismatch     = errors.New("digest does not match challenge and nonce")
	ErrDifficultyMismatch = errors.New("difficulty does not match digest")
)

// Hasher computes H(challenge, nonce).
// Implementations reuse an internal buffer and are not safe for concurrent use.
type Hasher interface {
	// Hash appends the digest of challenge || nonce to out and returns it.
	Hash(nonce uint64, out []byte) []byte
}

type powHasher struct {
	h     hash.Hash
	input []byte
}

// NewHasher returns the hasher for the given algorithm bound to challenge.
// Input layout is challenge || nonce (8 bytes, little endian).
func NewHasher(algo string, challenge []byte) (Hasher, error) {
	var h hash.Hash
	switch algo {
	case "", AlgoSHA256:
		h = sha256.New()
	case AlgoBlake2b:
		var err error
		h, err = blake2b.New256(nil)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgo, algo)
	}

	p := &powHasher{h: h, input: make([]byte, 0, len(challenge)+8)}
	p.input = append(p.input, challenge...)
	p.input = append(p.input, make([]byte, 8)...) // placeholder for nonce
	return p, nil
}

func (p *powHasher) Hash(nonce uint64, out []byte) []byte {
	nonceBytes := p.input[len(p.input)-8:]
	binary.LittleEndian.PutUint64(nonceBytes, nonce)

	p.h.Reset()
	p.h.Write(p.input)
	return p.h.Sum(out)
}

// Score returns the difficulty of a digest: the number of its leading zero bits.
func Score(digest []byte) uint32 {
	var n uint32
	for _, b := range digest {
		if b == 0 {
			n += 8
			continue
		}
		return n + uint32(bits.LeadingZeros8(b))
	}
	return n
}

// Verify recomputes the digest of sol for the challenge and checks its difficulty.
func Verify(challenge *Challenge, sol Solution) error {
	h, err := NewHasher(challenge.Algo, challenge.Bytes)
	if err != nil {
		return err
	}
	digest := h.Hash(sol.Nonce, nil)
	if !bytes.Equal(digest, sol.Digest) {
		return fmt.Errorf("%w: nonce %d", ErrDigestMismatch, sol.Nonce)
	}
	if Score(digest) != sol.Difficulty {
		return fmt.Errorf("%w: claimed %d, actual %d", ErrDifficultyMismatch, sol.Difficulty, Score(digest))
	}
	return nil
}
