package store

import (
	"testing"
	"time"

	"sliceledger/core"
	"sliceledger/core/coretest"
	"sliceledger/crypto"
	"sliceledger/envelope"
)

func newTestStore(t *testing.T) (*SliceStore, *core.Ledger) {
	t.Helper()
	ledger, err := core.NewLedger(1, crypto.SHA256(), nil,
		core.WithClock(func() time.Time { return time.Unix(1767225600, 0) }),
	)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	codec := envelope.NewCodec(crypto.SHA256(), ledger)
	return New(ledger, codec), ledger
}

func TestStoreAndRetrieveSlice(t *testing.T) {
	slices, ledger := newTestStore(t)

	id, err := slices.StoreSlice(map[string]any{
		"slice_id":  "emergency-12345",
		"type_name": "emergency",
		"priority":  100,
	})
	if err != nil {
		t.Fatalf("store slice: %v", err)
	}
	if id == "" {
		t.Fatal("empty entry id")
	}
	if ledger.Length() != 2 {
		t.Fatalf("ledger length = %d, want 2 (genesis + slice block)", ledger.Length())
	}

	slice, found, err := slices.RetrieveSlice("emergency-12345")
	if err != nil {
		t.Fatalf("retrieve slice: %v", err)
	}
	if !found {
		t.Fatal("stored slice not found")
	}
	if slice["priority"] != 100 {
		t.Fatalf("priority = %v", slice["priority"])
	}
}

func TestRetrieveUnknownSliceIsAbsent(t *testing.T) {
	slices, _ := newTestStore(t)
	if _, found, err := slices.RetrieveSlice("missing"); err != nil {
		t.Fatalf("retrieve slice: %v", err)
	} else if found {
		t.Fatal("unknown slice reported found")
	}
}

func TestTamperedSliceIsAbsentNotError(t *testing.T) {
	slices, ledger := newTestStore(t)
	if _, err := slices.StoreSlice(map[string]any{"slice_id": "emergency-1", "priority": 100}); err != nil {
		t.Fatalf("store slice: %v", err)
	}

	// Mutate the signed content in place; the envelope signature no longer
	// matches, so retrieval reports absence rather than an error.
	if err := coretest.TamperContent(ledger, 1, map[string]any{"priority": 50}); err != nil {
		t.Fatalf("tamper content: %v", err)
	}

	if _, found, err := slices.RetrieveSlice("emergency-1"); err != nil {
		t.Fatalf("retrieve slice: %v", err)
	} else if found {
		t.Fatal("tampered slice verified")
	}
}

func TestVerifyIntegrityCachesOutcome(t *testing.T) {
	slices, ledger := newTestStore(t)
	if !slices.LastVerified() {
		t.Fatal("initial verification state should be optimistic")
	}

	if _, err := slices.StoreSlice(map[string]any{"slice_id": "emergency-1", "priority": 100}); err != nil {
		t.Fatalf("store slice: %v", err)
	}
	if err := coretest.TamperEntry(ledger, 1, map[string]any{"priority": 50}); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	valid, message, err := slices.VerifyIntegrity()
	if err != nil {
		t.Fatalf("verify integrity: %v", err)
	}
	if valid {
		t.Fatal("tampered ledger verified")
	}
	if message == "" {
		t.Fatal("empty failure message")
	}
	if slices.LastVerified() {
		t.Fatal("verification state not updated")
	}
}
