package signing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudflare/circl/sign/ed25519"
	"github.com/mr-tron/base58"
)

var (
	ErrKeypairNotFound  = errors.New("keypair file not found")
	ErrMalformedKeypair = errors.New("malformed keypair")
)

// Identity is the operator's signing key.
// It is read-only after construction and safe for concurrent use.
type Identity struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewIdentity derives the identity from a 32 byte ed25519 seed.
func NewIdentity(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrMalformedKeypair, ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Identity{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

func GenerateIdentity() (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	return &Identity{priv: priv, pub: pub}, nil
}

// LoadKeypair reads a keypair file. Two formats are accepted:
//   - a JSON array of 64 byte values (seed followed by public key), as written by solana-keygen,
//   - a base58 string encoding the same 64 bytes.
func LoadKeypair(path string) (*Identity, error) {
	data, err := os.ReadFile(path) //#nosec G304
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrKeypairNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("reading keypair: %w", err)
	}
	return ParseKeypair(data)
}

// ResolveKeypair loads the keypair file at value. A value that names no file
// and contains no path separator is parsed as an inline base58 keypair.
func ResolveKeypair(value string) (*Identity, error) {
	id, err := LoadKeypair(value)
	if !errors.Is(err, ErrKeypairNotFound) || strings.ContainsRune(value, filepath.Separator) {
		return id, err
	}
	inline, perr := ParseKeypair([]byte(value))
	if perr != nil {
		return nil, err
	}
	return inline, nil
}

// ParseKeypair parses the contents of a keypair file, see LoadKeypair.
func ParseKeypair(data []byte) (*Identity, error) {
	data = bytes.TrimSpace(data)
	var raw []byte
	if bytes.HasPrefix(data, []byte("[")) {
		var values []int
		if err := json.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKeypair, err)
		}
		raw = make([]byte, len(values))
		for i, v := range values {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: value %d at %d is not a byte", ErrMalformedKeypair, v, i)
			}
			raw[i] = byte(v)
		}
	} else {
		var err error
		if raw, err = base58.Decode(string(data)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedKeypair, err)
		}
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedKeypair, ed25519.PrivateKeySize, len(raw))
	}
	id, err := NewIdentity(raw[:ed25519.SeedSize])
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(id.pub, raw[ed25519.SeedSize:]) {
		return nil, fmt.Errorf("%w: public key does not match secret key", ErrMalformedKeypair)
	}
	return id, nil
}

// Sign signs msg. Signatures are deterministic for a given key and message.
func (i *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(i.priv, msg)
}

func (i *Identity) PublicKey() []byte {
	return i.pub
}

// Address is the base58 encoding of the public key.
func (i *Identity) Address() string {
	return base58.Encode(i.pub)
}

// Verify checks signature of msg against the public key pub.
func Verify(pub, msg, signature []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, msg, signature)
}
