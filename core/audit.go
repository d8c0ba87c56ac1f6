package core

// Auditor walks a ledger and reports which blocks are inconsistent and
// whether the shared keys are corrupted. Block corruption and key corruption
// are orthogonal failure axes; both gate overall chain validity and the
// repair engine consumes both predicates.
type Auditor struct {
	ledger *Ledger
}

// NewAuditor returns an auditor bound to the given ledger.
func NewAuditor(l *Ledger) *Auditor {
	return &Auditor{ledger: l}
}

// Detect returns the ordered indices of blocks failing either the self-hash
// check or the previous-link check. Genesis is excluded and a block failing
// both checks is reported once. Cost is one digest recomputation per block.
func (a *Auditor) Detect() ([]uint64, error) {
	l := a.ledger
	l.mu.RLock()
	defer l.mu.RUnlock()

	tampered, err := l.tamperedLocked()
	if err != nil {
		return nil, err
	}
	if len(tampered) > 0 {
		l.metrics.TamperedBlocks.Add(float64(len(tampered)))
	}
	return tampered, nil
}

// KeysCompromised reports whether any shared key violates its deterministic
// prefix, independently of block consistency.
func (a *Auditor) KeysCompromised() bool {
	l := a.ledger
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.keys.Validate() != nil
}
