package core

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"sliceledger/core/types"
	"sliceledger/crypto"
)

// RepairReason is the only reason this core records; repairs are always
// triggered by detection, never by operator narrative.
const RepairReason = "auto-repair"

// RepairRecord captures one repair event in the audit trail. Records are
// append-only and never mutated after creation. AffectedIndices is the
// detection result taken before any mutation, not the (larger) list of
// blocks the forward pass re-sealed.
type RepairRecord struct {
	Timestamp       string   `json:"timestamp"`
	Reason          string   `json:"reason"`
	AffectedIndices []uint64 `json:"affected_indices"`
	KeysReset       bool     `json:"keys_reset"`
}

// RepairResult reports what a repair pass changed.
type RepairResult struct {
	// Message summarises the pass; "no repairs needed" is the terminal
	// clean-state answer.
	Message string
	// Repaired lists, in order, every block index relinked and re-sealed.
	Repaired []uint64
	// KeysReset is true when the shared key set was restored to its
	// canonical values, an action distinct from block repair.
	KeysReset bool
	// Before is the structural snapshot taken before mutation, for
	// before/after reporting. Nil when nothing was mutated.
	Before []types.Block
}

// RepairEngine restores a ledger's internal consistency after tampering. The
// state machine is two-state: Clean (detection empty, keys valid) and
// Tampered; Repair is the only Tampered→Clean transition. Repair re-derives
// self-consistency, not authenticity — a post-repair "valid" chain is
// internally consistent, never proven unmodified since creation.
type RepairEngine struct {
	ledger  *Ledger
	logger  *slog.Logger
	trailMu sync.Mutex
	trail   []RepairRecord
}

// NewRepairEngine returns an engine bound to the given ledger.
func NewRepairEngine(l *Ledger) *RepairEngine {
	return &RepairEngine{ledger: l, logger: l.logger}
}

// Repair checks keys and blocks, then restores consistency in one pass:
//
//  1. A corrupted key set is reset to its canonical deterministic values.
//  2. Detection runs; if it is empty and keys were intact, the pass ends
//     with "no repairs needed" and no mutation.
//  3. Otherwise every block from the earliest flagged index to the chain
//     tip is relinked to its (possibly just-repaired) predecessor,
//     recomputed, and re-sealed — strictly left to right, single pass,
//     because each block's validity depends on its predecessor's hash.
//  4. A repair record with the pre-repair detection result is appended to
//     the audit trail.
//
// Genesis is always skipped; detection cannot flag it. A non-nil error is a
// collaborator failure — repair itself has no failure path once started.
func (e *RepairEngine) Repair() (*RepairResult, error) {
	l := e.ledger
	l.mu.Lock()
	defer l.mu.Unlock()

	res := &RepairResult{Repaired: []uint64{}}
	if l.keys.Validate() != nil {
		l.keys = crypto.DefaultSharedKeys()
		res.KeysReset = true
		l.metrics.KeyResets.Inc()
		e.logger.Warn("shared keys reset to canonical values")
	}

	tampered, err := l.tamperedLocked()
	if err != nil {
		return nil, err
	}
	if len(tampered) == 0 && !res.KeysReset {
		res.Message = "no repairs needed"
		return res, nil
	}

	res.Before = l.snapshotLocked()
	record := RepairRecord{
		Timestamp:       l.timestamp(),
		Reason:          RepairReason,
		AffectedIndices: append([]uint64{}, tampered...),
		KeysReset:       res.KeysReset,
	}

	var parts []string
	if len(tampered) > 0 {
		start := tampered[0]
		for i := start; i < uint64(len(l.chain)); i++ {
			if i == 0 {
				continue
			}
			block := l.chain[i]
			block.PrevHash = l.chain[i-1].Hash
			if err := block.Seal(l.digester, l.difficulty); err != nil {
				return nil, fmt.Errorf("re-seal block %d: %w", i, err)
			}
			res.Repaired = append(res.Repaired, i)
		}
		l.metrics.BlocksRepaired.Add(float64(len(res.Repaired)))
		parts = append(parts, fmt.Sprintf("repaired %d blocks starting at index %d", len(res.Repaired), start))
	}
	if res.KeysReset {
		parts = append(parts, "restored shared keys")
	}
	res.Message = strings.Join(parts, "; ")

	e.appendRecord(record)
	l.metrics.Repairs.Inc()
	e.logger.Info("repair pass complete",
		"affected", record.AffectedIndices,
		"repaired", res.Repaired,
		"keys_reset", res.KeysReset,
	)
	return res, nil
}

func (e *RepairEngine) appendRecord(record RepairRecord) {
	e.trailMu.Lock()
	defer e.trailMu.Unlock()
	e.trail = append(e.trail, record)
}

// Trail returns a copy of the audit trail, oldest record first.
func (e *RepairEngine) Trail() []RepairRecord {
	e.trailMu.Lock()
	defer e.trailMu.Unlock()
	out := make([]RepairRecord, len(e.trail))
	copy(out, e.trail)
	return out
}
