package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics aggregates the instrumentation for the ledger core: entry
// intake, sealing work, verification outcomes, and repair activity.
type LedgerMetrics struct {
	EntriesEnqueued prometheus.Counter
	BlocksSealed    prometheus.Counter
	SealDuration    prometheus.Histogram
	SealBatchSize   prometheus.Histogram
	VerifyRuns      *prometheus.CounterVec
	TamperedBlocks  prometheus.Counter
	Repairs         prometheus.Counter
	BlocksRepaired  prometheus.Counter
	KeyResets       prometheus.Counter
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// Ledger returns the lazily-initialised metrics registry shared by every
// ledger instance in the process.
func Ledger() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			EntriesEnqueued: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "sliceledger",
				Subsystem: "ledger",
				Name:      "entries_enqueued_total",
				Help:      "Payload entries accepted into the pending batch.",
			}),
			BlocksSealed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "sliceledger",
				Subsystem: "ledger",
				Name:      "blocks_sealed_total",
				Help:      "Blocks sealed and appended to the chain.",
			}),
			SealDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "sliceledger",
				Subsystem: "ledger",
				Name:      "seal_duration_seconds",
				Help:      "Proof-of-work time spent sealing a block.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			}),
			SealBatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "sliceledger",
				Subsystem: "ledger",
				Name:      "seal_batch_entries",
				Help:      "Pending entries folded into each sealed block.",
				Buckets:   prometheus.LinearBuckets(1, 5, 10),
			}),
			VerifyRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sliceledger",
				Subsystem: "ledger",
				Name:      "verify_total",
				Help:      "Chain verification runs segmented by outcome.",
			}, []string{"outcome"}),
			TamperedBlocks: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "sliceledger",
				Subsystem: "repair",
				Name:      "tampered_blocks_total",
				Help:      "Blocks flagged inconsistent by tamper detection.",
			}),
			Repairs: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "sliceledger",
				Subsystem: "repair",
				Name:      "runs_total",
				Help:      "Repair passes that mutated the chain or reset keys.",
			}),
			BlocksRepaired: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "sliceledger",
				Subsystem: "repair",
				Name:      "blocks_repaired_total",
				Help:      "Blocks relinked and re-sealed by repair passes.",
			}),
			KeyResets: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "sliceledger",
				Subsystem: "repair",
				Name:      "key_resets_total",
				Help:      "Shared key sets restored to canonical values.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.EntriesEnqueued,
			ledgerRegistry.BlocksSealed,
			ledgerRegistry.SealDuration,
			ledgerRegistry.SealBatchSize,
			ledgerRegistry.VerifyRuns,
			ledgerRegistry.TamperedBlocks,
			ledgerRegistry.Repairs,
			ledgerRegistry.BlocksRepaired,
			ledgerRegistry.KeyResets,
		)
	})
	return ledgerRegistry
}
