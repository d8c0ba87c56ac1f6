// Package store layers the network-slice domain on top of the ledger core:
// slice records are signed, enqueued, and sealed on write, then located and
// signature-checked on read. It is an external collaborator of the core and
// only calls its public surface.
package store

import (
	"fmt"
	"sync"

	"sliceledger/core"
	"sliceledger/core/types"
	"sliceledger/envelope"
)

// Entry classification and envelope fields used for slice records.
const (
	entryTypeSlice = "network_slice"
	fieldType      = "type"
	fieldContent   = "content"
	fieldSliceID   = "slice_id"
)

// SliceStore persists signed network-slice records through the ledger.
type SliceStore struct {
	mu       sync.Mutex
	ledger   *core.Ledger
	codec    *envelope.Codec
	verified *bool
}

// New returns a slice store writing through the given ledger and codec.
func New(ledger *core.Ledger, codec *envelope.Codec) *SliceStore {
	return &SliceStore{ledger: ledger, codec: codec}
}

// StoreSlice signs the slice record, enqueues it wrapped in the slice entry
// envelope, and seals the pending batch into a new block. It returns the
// ledger entry id.
func (s *SliceStore) StoreSlice(slice map[string]any) (string, error) {
	signed, err := s.codec.Sign(slice)
	if err != nil {
		return "", fmt.Errorf("sign slice: %w", err)
	}
	id, err := s.ledger.Enqueue(map[string]any{
		fieldType:    entryTypeSlice,
		fieldContent: signed,
		"metadata": map[string]any{
			"source":   "slice-integrity-core",
			"category": "network_configuration",
			"version":  "1.0",
		},
	})
	if err != nil {
		return "", err
	}
	if _, err := s.ledger.SealPending(); err != nil {
		return "", fmt.Errorf("seal slice block: %w", err)
	}
	return id, nil
}

// RetrieveSlice scans slice entries for the given slice id and verifies the
// stored signature against the current keys. It returns (nil, false) when
// the slice is absent or its signature no longer matches; the caller cannot
// tell those cases apart.
func (s *SliceStore) RetrieveSlice(sliceID string) (map[string]any, bool, error) {
	for _, block := range s.ledger.Export() {
		for _, entry := range types.BlockEntries(block.Payload) {
			if entry[fieldType] != entryTypeSlice {
				continue
			}
			content, ok := entry[fieldContent].(map[string]any)
			if !ok || content[fieldSliceID] != sliceID {
				continue
			}
			return s.codec.VerifyAndUnwrap(content)
		}
	}
	return nil, false, nil
}

// VerifyIntegrity delegates to the ledger's chain verification and caches
// the outcome for LastVerified.
func (s *SliceStore) VerifyIntegrity() (bool, string, error) {
	valid, message, err := s.ledger.Verify()
	if err != nil {
		return false, "", err
	}
	s.mu.Lock()
	s.verified = &valid
	s.mu.Unlock()
	return valid, message, nil
}

// LastVerified reports the outcome of the most recent VerifyIntegrity call.
// Before any verification it optimistically reports true.
func (s *SliceStore) LastVerified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verified == nil {
		return true
	}
	return *s.verified
}
