// Package coretest builds already-inconsistent ledgers for tests. Tampering
// deliberately bypasses the sealing path; nothing here is production
// behavior and no production code imports this package.
package coretest

import (
	"fmt"

	"sliceledger/core"
	"sliceledger/core/types"
)

// TamperEntry overwrites fields of the first aggregated entry of the block
// at index — or of the payload itself when the block carries no entries —
// without re-sealing, leaving the stored hash stale.
func TamperEntry(l *core.Ledger, index uint64, fields map[string]any) error {
	block, err := l.Block(index)
	if err != nil {
		return err
	}
	target := block.Payload
	if entries := types.BlockEntries(block.Payload); len(entries) > 0 {
		target = entries[0]
	}
	for k, v := range fields {
		target[k] = v
	}
	return nil
}

// TamperContent overwrites fields inside the signed content envelope of the
// first entry of the block at index, breaking both the block hash and the
// entry's envelope signature.
func TamperContent(l *core.Ledger, index uint64, fields map[string]any) error {
	block, err := l.Block(index)
	if err != nil {
		return err
	}
	entries := types.BlockEntries(block.Payload)
	if len(entries) == 0 {
		return fmt.Errorf("block %d has no entries to tamper", index)
	}
	content, ok := entries[0]["content"].(map[string]any)
	if !ok {
		return fmt.Errorf("block %d entry 0 has no content envelope", index)
	}
	for k, v := range fields {
		content[k] = v
	}
	return nil
}

// BreakLink overwrites the stored previous-hash link of the block at index.
func BreakLink(l *core.Ledger, index uint64) error {
	if index == 0 {
		return fmt.Errorf("genesis carries no checkable link")
	}
	block, err := l.Block(index)
	if err != nil {
		return err
	}
	block.PrevHash = "tampered-" + block.PrevHash
	return nil
}

// CorruptKey replaces one shared key with material violating its canonical
// prefix.
func CorruptKey(l *core.Ledger, name string) {
	keys := l.Keys()
	keys[name] = "BROKEN_" + keys[name]
	l.SetSharedKeys(keys)
}
