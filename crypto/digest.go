package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"lukechampine.com/blake3"
)

// Digester produces fixed-length hexadecimal digests over canonical input
// bytes. Every hash the ledger computes (block hashes, merkle roots, envelope
// signatures) goes through this interface so the backend can be chosen at
// configuration time.
type Digester interface {
	// Sum returns the lowercase hex digest of data.
	Sum(data []byte) string
	// Name identifies the algorithm, matching the config value that selects it.
	Name() string
}

// NewDigester returns the digest backend for the given algorithm name. An
// empty name selects SHA-256.
func NewDigester(algorithm string) (Digester, error) {
	switch algorithm {
	case "", "sha256":
		return sha256Digester{}, nil
	case "blake3":
		return blake3Digester{}, nil
	default:
		return nil, fmt.Errorf("unknown digest algorithm %q", algorithm)
	}
}

// SHA256 returns the default digest backend.
func SHA256() Digester { return sha256Digester{} }

// Blake3 returns the BLAKE3 digest backend.
func Blake3() Digester { return blake3Digester{} }

type sha256Digester struct{}

func (sha256Digester) Sum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (sha256Digester) Name() string { return "sha256" }

type blake3Digester struct{}

func (blake3Digester) Sum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (blake3Digester) Name() string { return "blake3" }

// CanonicalJSON serializes v into the deterministic byte form used for all
// digest computations. encoding/json writes map keys in sorted order, so a
// value built from maps, slices, and scalars always serializes identically.
// Struct fields serialize in declaration order, which is likewise stable.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical serialization: %w", err)
	}
	return raw, nil
}
