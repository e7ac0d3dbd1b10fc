package signing

import (
	"bytes"
	"fmt"

	"github.com/spacemeshos/go-scale"
)

// Every message kind starts with its own domain.
const (
	submitDomain = "poolminer/submit"
	authDomain   = "poolminer/auth"
	claimDomain  = "poolminer/claim"
	signupDomain = "poolminer/signup"
)

const (
	maxDigestSize = 64
	maxPubkeySize = 32
)

// SubmitPayload is the signed content of a solution submission.
type SubmitPayload struct {
	RoundID uint64
	Nonce   uint64
	Digest  []byte `scale:"max=64"`
}

func (p *SubmitPayload) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeString(enc, submitDomain)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, p.RoundID)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, p.Nonce)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, p.Digest, maxDigestSize)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// AuthPayload authenticates a request issued at Timestamp (unix seconds).
type AuthPayload struct {
	Timestamp int64
}

func (p *AuthPayload) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeString(enc, authDomain)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, uint64(p.Timestamp))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// ClaimPayload withdraws Amount (in the token's smallest unit).
type ClaimPayload struct {
	Amount    uint64
	Timestamp int64
}

func (p *ClaimPayload) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeString(enc, claimDomain)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, p.Amount)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact64(enc, uint64(p.Timestamp))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

type SignupPayload struct {
	Pubkey []byte `scale:"max=32"`
}

func (p *SignupPayload) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeString(enc, signupDomain)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, p.Pubkey, maxPubkeySize)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Encode returns the canonical bytes of a payload, the input of Sign and Verify.
func Encode(payload scale.Encodable) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := payload.EncodeScale(scale.NewEncoder(&buf)); err != nil {
		return nil, fmt.Errorf("failed to serialize message (%w)", err)
	}
	return buf.Bytes(), nil
}

// SubmitMessage is the canonical message signed for a solution submission.
func SubmitMessage(roundID, nonce uint64, digest []byte) ([]byte, error) {
	return Encode(&SubmitPayload{RoundID: roundID, Nonce: nonce, Digest: digest})
}

func AuthMessage(timestamp int64) ([]byte, error) {
	return Encode(&AuthPayload{Timestamp: timestamp})
}

func ClaimMessage(amount uint64, timestamp int64) ([]byte, error) {
	return Encode(&ClaimPayload{Amount: amount, Timestamp: timestamp})
}

func SignupMessage(pubkey []byte) ([]byte, error) {
	return Encode(&SignupPayload{Pubkey: pubkey})
}
