package ledger

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// signer signs the canonical payload of a contract mutation. The nonce is a
// process-wide monotonic counter seeded from the wall clock so restarts never
// reuse a value.
type signer struct {
	key       ed25519.PrivateKey
	publicKey string // hex-encoded
	nonce     atomic.Uint64
}

// newSigner parses a hex-encoded ed25519 key: either the 32-byte seed or the
// full 64-byte private key.
func newSigner(secretKey string) (*signer, error) {
	raw, err := hex.DecodeString(secretKey)
	if err != nil {
		return nil, fmt.Errorf("decoding ledger secret key: %w", err)
	}

	var key ed25519.PrivateKey
	switch len(raw) {
	case ed25519.SeedSize:
		key = ed25519.NewKeyFromSeed(raw)
	case ed25519.PrivateKeySize:
		key = ed25519.PrivateKey(raw)
	default:
		return nil, fmt.Errorf("ledger secret key must be %d or %d bytes, got %d",
			ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}

	s := &signer{
		key:       key,
		publicKey: hex.EncodeToString(key.Public().(ed25519.PublicKey)),
	}
	s.nonce.Store(uint64(time.Now().UnixNano()))
	return s, nil
}

// callPayload is the canonical signed body of one contract mutation.
type callPayload struct {
	Contract string          `json:"contract"`
	Method   string          `json:"method"`
	Args     json.RawMessage `json:"args"`
	Nonce    uint64          `json:"nonce"`
}

// signedCall is the wire shape submitted to broadcast_call.
type signedCall struct {
	Payload   string `json:"payload"`    // base64 of the canonical JSON payload
	Signature string `json:"signature"`  // base64 ed25519 signature over the payload bytes
	PublicKey string `json:"public_key"` // hex
}

// sign builds the signed call for a contract mutation.
func (s *signer) sign(contract, method string, args any) (signedCall, error) {
	rawArgs, err := json.Marshal(args)
	if err != nil {
		return signedCall{}, fmt.Errorf("encoding %s args: %w", method, err)
	}

	payload, err := json.Marshal(callPayload{
		Contract: contract,
		Method:   method,
		Args:     rawArgs,
		Nonce:    s.nonce.Add(1),
	})
	if err != nil {
		return signedCall{}, fmt.Errorf("encoding %s payload: %w", method, err)
	}

	return signedCall{
		Payload:   base64.StdEncoding.EncodeToString(payload),
		Signature: base64.StdEncoding.EncodeToString(ed25519.Sign(s.key, payload)),
		PublicKey: s.publicKey,
	}, nil
}
