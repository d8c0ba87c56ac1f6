package types

import (
	"fmt"
	"strings"

	"sliceledger/crypto"
)

// GenesisPrevHash is the sentinel link carried by block 0, which has no
// predecessor.
const GenesisPrevHash = "0"

// Block is a single sealed unit of the ledger. Once sealed, the stored Hash
// must equal the recomputed digest of the remaining fields; that invariant is
// re-checked by verification, never assumed from construction.
type Block struct {
	Index     uint64         `json:"index"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
	PrevHash  string         `json:"prev_hash"`
	Nonce     uint64         `json:"nonce"`
	Hash      string         `json:"hash"`
}

// hashContent is the digest input: every block field except the hash itself.
// Field order is fixed by the struct declaration and payload map keys are
// sorted by encoding/json, so serialization is deterministic.
type hashContent struct {
	Index     uint64         `json:"index"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
	PrevHash  string         `json:"prev_hash"`
	Nonce     uint64         `json:"nonce"`
}

// ComputeHash returns the digest of the block's canonical serialization. It
// is pure: the same field values always produce the same digest.
func (b *Block) ComputeHash(d crypto.Digester) (string, error) {
	raw, err := crypto.CanonicalJSON(hashContent{
		Index:     b.Index,
		Timestamp: b.Timestamp,
		Payload:   b.Payload,
		PrevHash:  b.PrevHash,
		Nonce:     b.Nonce,
	})
	if err != nil {
		return "", fmt.Errorf("block %d: %w", b.Index, err)
	}
	return d.Sum(raw), nil
}

// Seal increments the nonce until the recomputed hash carries difficulty
// leading zero characters, then stores that hash. Expected work grows as
// 16^difficulty; configuration validation keeps difficulty small enough that
// sealing stays interactive.
func (b *Block) Seal(d crypto.Digester, difficulty uint) error {
	target := strings.Repeat("0", int(difficulty))
	hash, err := b.ComputeHash(d)
	if err != nil {
		return err
	}
	for !strings.HasPrefix(hash, target) {
		b.Nonce++
		if hash, err = b.ComputeHash(d); err != nil {
			return err
		}
	}
	b.Hash = hash
	return nil
}

// Clone returns a copy of the block with its own payload map. Nested values
// are shared; callers needing a structural snapshot only compare the hash
// fields, which Clone copies by value.
func (b *Block) Clone() Block {
	out := *b
	out.Payload = CopyPayload(b.Payload)
	return out
}
