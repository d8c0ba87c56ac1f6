package core

import (
	"fmt"

	"sliceledger/crypto"
)

// MerkleRoot folds an ordered batch of payload entries into a single digest.
// Each entry is digested over its canonical serialization; levels with an odd
// count duplicate their last digest before pairing. The batch must not be
// empty — SealPending guarantees that before calling.
func MerkleRoot(d crypto.Digester, entries []map[string]any) (string, error) {
	hashes := make([]string, 0, len(entries))
	for i, entry := range entries {
		raw, err := crypto.CanonicalJSON(entry)
		if err != nil {
			return "", fmt.Errorf("merkle entry %d: %w", i, err)
		}
		hashes = append(hashes, d.Sum(raw))
	}

	if len(hashes)%2 == 1 {
		hashes = append(hashes, hashes[len(hashes)-1])
	}
	for len(hashes) > 1 {
		next := make([]string, 0, len(hashes)/2)
		for i := 0; i < len(hashes); i += 2 {
			next = append(next, d.Sum([]byte(hashes[i]+hashes[i+1])))
		}
		hashes = next
		if len(hashes)%2 == 1 && len(hashes) > 1 {
			hashes = append(hashes, hashes[len(hashes)-1])
		}
	}
	return hashes[0], nil
}
