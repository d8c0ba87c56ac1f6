package core

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sliceledger/core/types"
	"sliceledger/crypto"
	"sliceledger/observability"
)

// Genesis sentinel payload fields.
const (
	genesisMessage = "sliceledger genesis block"
	genesisSource  = "slice-integrity-core"
)

// Ledger is an append-only, hash-chained sequence of sealed blocks plus the
// pending batch of not-yet-sealed entries. It exclusively owns both; the
// repair engine mutates blocks in place through it. All operations serialize
// behind a single writer lock so the HTTP surface can share one instance.
type Ledger struct {
	mu         sync.RWMutex
	difficulty uint
	digester   crypto.Digester
	keys       crypto.SharedKeySet
	chain      []*types.Block
	pending    []map[string]any

	now     func() time.Time
	nextID  func() string
	logger  *slog.Logger
	metrics *observability.LedgerMetrics
}

// Option adjusts ledger construction. The clock and id source are injectable
// so tests can build deterministic fixtures.
type Option func(*Ledger)

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDSource replaces the pending-entry id generator.
func WithIDSource(next func() string) Option {
	return func(l *Ledger) { l.nextID = next }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// NewLedger builds a ledger with a sealed genesis block. The shared key set
// is taken as given — a corrupted set is reported by Verify and restored by
// repair, never rejected here — and nil keys select the canonical defaults.
func NewLedger(difficulty uint, digester crypto.Digester, keys crypto.SharedKeySet, opts ...Option) (*Ledger, error) {
	if digester == nil {
		digester = crypto.SHA256()
	}
	if keys == nil {
		keys = crypto.DefaultSharedKeys()
	}
	l := &Ledger{
		difficulty: difficulty,
		digester:   digester,
		keys:       keys.Clone(),
		now:        time.Now,
		nextID:     uuid.NewString,
		logger:     slog.Default(),
		metrics:    observability.Ledger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.createGenesis(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) createGenesis() error {
	genesis := &types.Block{
		Index:     0,
		Timestamp: l.timestamp(),
		Payload: map[string]any{
			"message": genesisMessage,
			"source":  genesisSource,
		},
		PrevHash: types.GenesisPrevHash,
	}
	if err := genesis.Seal(l.digester, l.difficulty); err != nil {
		return fmt.Errorf("seal genesis: %w", err)
	}
	l.chain = append(l.chain, genesis)
	return nil
}

func (l *Ledger) timestamp() string {
	return l.now().UTC().Format(time.RFC3339Nano)
}

// Difficulty returns the proof-of-work difficulty blocks are sealed at.
func (l *Ledger) Difficulty() uint { return l.difficulty }

// Digester returns the digest backend the ledger seals and verifies with.
func (l *Ledger) Digester() crypto.Digester { return l.digester }

// Length returns the number of sealed blocks, genesis included.
func (l *Ledger) Length() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// PendingCount returns the number of entries awaiting the next seal.
func (l *Ledger) PendingCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pending)
}

// Latest returns the most recently sealed block.
func (l *Ledger) Latest() *types.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain[len(l.chain)-1]
}

// Block returns the block at index. The pointer aliases ledger-owned state;
// callers other than the repair engine must treat it as read-only.
func (l *Ledger) Block(index uint64) (*types.Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if index >= uint64(len(l.chain)) {
		return nil, fmt.Errorf("block %d not found", index)
	}
	return l.chain[index], nil
}

// Export returns a snapshot of the whole chain as block values.
func (l *Ledger) Export() []types.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() []types.Block {
	out := make([]types.Block, 0, len(l.chain))
	for _, b := range l.chain {
		out = append(out, b.Clone())
	}
	return out
}

// Enqueue copies payload, annotates it with a unique id and creation
// timestamp, and appends it to the pending batch. Nothing is sealed until
// SealPending runs.
func (l *Ledger) Enqueue(payload map[string]any) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("enqueue: nil payload")
	}
	entry := types.CopyPayload(payload)
	id := l.nextID()
	entry[types.FieldEntryID] = id
	entry[types.FieldTimestamp] = l.timestamp()

	l.mu.Lock()
	l.pending = append(l.pending, entry)
	l.mu.Unlock()

	l.metrics.EntriesEnqueued.Inc()
	return id, nil
}

// SealPending folds the pending batch into a new block: merkle root over the
// entries, aggregate payload, link to the current tip, proof-of-work seal,
// append, clear. An empty batch produces no block and no error — the (nil,
// nil) return is a no-op signal, not a failure.
func (l *Ledger) SealPending() (*types.Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.pending) == 0 {
		return nil, nil
	}

	root, err := MerkleRoot(l.digester, l.pending)
	if err != nil {
		return nil, err
	}
	latest := l.chain[len(l.chain)-1]
	block := &types.Block{
		Index:     latest.Index + 1,
		Timestamp: l.timestamp(),
		Payload: map[string]any{
			types.FieldEntries:    l.pending,
			types.FieldMerkleRoot: root,
		},
		PrevHash: latest.Hash,
	}

	started := time.Now()
	if err := block.Seal(l.digester, l.difficulty); err != nil {
		return nil, err
	}
	l.metrics.SealDuration.Observe(time.Since(started).Seconds())
	l.metrics.SealBatchSize.Observe(float64(len(l.pending)))
	l.metrics.BlocksSealed.Inc()

	l.chain = append(l.chain, block)
	l.pending = nil

	l.logger.Info("sealed block",
		"index", block.Index,
		"hash", block.Hash,
		"entries", len(types.BlockEntries(block.Payload)),
		"nonce", block.Nonce,
	)
	return block, nil
}

// Verify walks blocks 1..N-1, recomputing each block's hash and checking its
// link to the stored predecessor hash, then validates every shared key
// against its deterministic prefix. It fails fast: the message names the
// first inconsistent block index or key. Genesis is never checked — it has
// no predecessor and is sealed at construction. A non-nil error means a
// collaborator (serialization, digest) failed, not that the chain is invalid.
func (l *Ledger) Verify() (bool, string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := 1; i < len(l.chain); i++ {
		ok, reason, err := l.checkBlockLocked(i)
		if err != nil {
			return false, "", err
		}
		if !ok {
			l.metrics.VerifyRuns.WithLabelValues("invalid").Inc()
			return false, reason, nil
		}
	}
	if err := l.keys.Validate(); err != nil {
		l.metrics.VerifyRuns.WithLabelValues("invalid").Inc()
		return false, err.Error(), nil
	}

	l.metrics.VerifyRuns.WithLabelValues("valid").Inc()
	return true, "Ledger verification successful", nil
}

// checkBlockLocked runs the two independent consistency checks for the block
// at position i: stored hash against recomputed hash, then stored PrevHash
// against the predecessor's stored hash. Caller holds at least the read lock.
func (l *Ledger) checkBlockLocked(i int) (bool, string, error) {
	current := l.chain[i]
	recomputed, err := current.ComputeHash(l.digester)
	if err != nil {
		return false, "", err
	}
	if current.Hash != recomputed {
		return false, fmt.Sprintf("Block %d hash invalid", i), nil
	}
	if current.PrevHash != l.chain[i-1].Hash {
		return false, fmt.Sprintf("Block %d not connected to previous block", i), nil
	}
	return true, "", nil
}

// tamperedLocked returns the ordered indices of inconsistent blocks, genesis
// excluded, each index reported once. Caller holds at least the read lock.
func (l *Ledger) tamperedLocked() ([]uint64, error) {
	var tampered []uint64
	for i := 1; i < len(l.chain); i++ {
		ok, _, err := l.checkBlockLocked(i)
		if err != nil {
			return nil, err
		}
		if !ok {
			tampered = append(tampered, uint64(i))
		}
	}
	return tampered, nil
}

// EntryByID scans aggregated blocks for the entry carrying the given id and
// returns it, or nil when no block holds it.
func (l *Ledger) EntryByID(id string) map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, block := range l.chain {
		for _, entry := range types.BlockEntries(block.Payload) {
			if entry[types.FieldEntryID] == id {
				return entry
			}
		}
	}
	return nil
}

// Keys returns a copy of the current shared key set.
func (l *Ledger) Keys() crypto.SharedKeySet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.keys.Clone()
}

// VerificationKey returns the current envelope-signing key. The ledger
// implements envelope.KeyProvider so codecs observe key repairs immediately.
func (l *Ledger) VerificationKey() (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.keys.Verification()
}

// SetSharedKeys replaces the shared key set. This is the rotation surface;
// the new material is not validated here, matching construction.
func (l *Ledger) SetSharedKeys(keys crypto.SharedKeySet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = keys.Clone()
}
