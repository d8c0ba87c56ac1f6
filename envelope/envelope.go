// Package envelope wraps arbitrary payloads with a keyed digest computed
// against the ledger's shared verification key. The signature proves the
// payload was written by a holder of the current key material; it is a
// symmetric construction, not an asymmetric signature scheme.
package envelope

import (
	"time"

	"sliceledger/core/types"
	"sliceledger/crypto"
)

// KeyProvider supplies the current verification key. The ledger implements
// this, so a codec observes key repairs on its next call rather than holding
// stale material.
type KeyProvider interface {
	VerificationKey() (string, error)
}

// Codec signs payloads on the way into the ledger and verifies them on
// retrieval.
type Codec struct {
	digester crypto.Digester
	keys     KeyProvider
	now      func() time.Time
}

// Option adjusts codec construction.
type Option func(*Codec)

// WithClock replaces the signed-at timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns a codec signing with the given digest backend and key
// source.
func NewCodec(digester crypto.Digester, keys KeyProvider, opts ...Option) *Codec {
	c := &Codec{digester: digester, keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sign returns a copy of payload carrying a signature over the canonical
// serialization of the original fields concatenated with the verification
// key, plus a signed-at marker. The input payload is not mutated.
func (c *Codec) Sign(payload map[string]any) (map[string]any, error) {
	signature, err := c.signature(payload)
	if err != nil {
		return nil, err
	}
	signed := types.CopyPayload(payload)
	signed[types.FieldSignature] = signature
	signed[types.FieldSignedAt] = c.now().UTC().Format(time.RFC3339Nano)
	return signed, nil
}

// VerifyAndUnwrap recomputes the expected signature for signed, ignoring the
// signature and signed-at fields, and compares it to the stored one. On
// match it returns the signed payload and true; on mismatch it returns
// (nil, false) — absence, not an error, because this layer cannot
// distinguish "tampered" from "never signed with the current keys". A
// non-nil error is a collaborator failure.
func (c *Codec) VerifyAndUnwrap(signed map[string]any) (map[string]any, bool, error) {
	stored, ok := signed[types.FieldSignature].(string)
	if !ok || stored == "" {
		return nil, false, nil
	}
	bare := types.CopyPayload(signed)
	delete(bare, types.FieldSignature)
	delete(bare, types.FieldSignedAt)

	expected, err := c.signature(bare)
	if err != nil {
		return nil, false, err
	}
	if stored != expected {
		return nil, false, nil
	}
	return signed, true, nil
}

func (c *Codec) signature(payload map[string]any) (string, error) {
	key, err := c.keys.VerificationKey()
	if err != nil {
		return "", err
	}
	raw, err := crypto.CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	return c.digester.Sum(append(raw, key...)), nil
}
