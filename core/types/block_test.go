package types

import (
	"strings"
	"testing"

	"sliceledger/crypto"
)

func testBlock() *Block {
	return &Block{
		Index:     1,
		Timestamp: "2026-01-02T03:04:05Z",
		Payload:   map[string]any{"entries": []map[string]any{{"slice_id": "e1"}}, "merkle_root": "abc"},
		PrevHash:  "00aa",
	}
}

func TestComputeHashIsDeterministic(t *testing.T) {
	d := crypto.SHA256()
	b := testBlock()
	first, err := b.ComputeHash(d)
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}
	second, err := b.ComputeHash(d)
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}
	if first != second {
		t.Fatalf("hash not deterministic: %s != %s", first, second)
	}
}

func TestComputeHashCoversEveryField(t *testing.T) {
	d := crypto.SHA256()
	base := testBlock()
	baseline, err := base.ComputeHash(d)
	if err != nil {
		t.Fatalf("compute hash: %v", err)
	}

	mutations := map[string]func(*Block){
		"index":     func(b *Block) { b.Index++ },
		"timestamp": func(b *Block) { b.Timestamp = "2026-01-02T03:04:06Z" },
		"payload":   func(b *Block) { b.Payload["merkle_root"] = "def" },
		"prev_hash": func(b *Block) { b.PrevHash = "00bb" },
		"nonce":     func(b *Block) { b.Nonce++ },
	}
	for field, mutate := range mutations {
		b := testBlock()
		mutate(b)
		hash, err := b.ComputeHash(d)
		if err != nil {
			t.Fatalf("compute hash after %s mutation: %v", field, err)
		}
		if hash == baseline {
			t.Fatalf("mutating %s did not change the hash", field)
		}
	}
}

func TestSealMeetsDifficultyAndPostcondition(t *testing.T) {
	d := crypto.SHA256()
	b := testBlock()
	if err := b.Seal(d, 2); err != nil {
		t.Fatalf("seal: %v", err)
	}
	if !strings.HasPrefix(b.Hash, "00") {
		t.Fatalf("sealed hash %s does not meet difficulty", b.Hash)
	}
	recomputed, err := b.ComputeHash(d)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if b.Hash != recomputed {
		t.Fatalf("sealing post-condition violated: stored %s, recomputed %s", b.Hash, recomputed)
	}
}

func TestSealZeroDifficultyKeepsNonce(t *testing.T) {
	b := testBlock()
	if err := b.Seal(crypto.SHA256(), 0); err != nil {
		t.Fatalf("seal: %v", err)
	}
	if b.Nonce != 0 {
		t.Fatalf("nonce = %d, want 0 at zero difficulty", b.Nonce)
	}
}

func TestSealPropagatesSerializationFailure(t *testing.T) {
	b := testBlock()
	b.Payload["bad"] = make(chan int)
	if err := b.Seal(crypto.SHA256(), 1); err == nil {
		t.Fatal("expected serialization error to propagate")
	}
}

func TestCloneCopiesTopLevelPayload(t *testing.T) {
	b := testBlock()
	clone := b.Clone()
	clone.Payload["merkle_root"] = "mutated"
	if b.Payload["merkle_root"] == "mutated" {
		t.Fatal("clone shares top-level payload map")
	}
}
