package crypto

import (
	"strings"
	"testing"
)

func TestDigestersAreDeterministic(t *testing.T) {
	for _, algorithm := range []string{"sha256", "blake3"} {
		d, err := NewDigester(algorithm)
		if err != nil {
			t.Fatalf("new digester %s: %v", algorithm, err)
		}
		first := d.Sum([]byte("payload"))
		second := d.Sum([]byte("payload"))
		if first != second {
			t.Fatalf("%s digest not deterministic: %s != %s", algorithm, first, second)
		}
		if len(first) != 64 {
			t.Fatalf("%s digest length = %d, want 64 hex chars", algorithm, len(first))
		}
		if first != strings.ToLower(first) {
			t.Fatalf("%s digest not lowercase hex: %s", algorithm, first)
		}
	}
}

func TestDigesterBackendsDiffer(t *testing.T) {
	if SHA256().Sum([]byte("payload")) == Blake3().Sum([]byte("payload")) {
		t.Fatal("sha256 and blake3 produced the same digest")
	}
}

func TestNewDigesterDefaultsToSHA256(t *testing.T) {
	d, err := NewDigester("")
	if err != nil {
		t.Fatalf("new digester: %v", err)
	}
	if d.Name() != "sha256" {
		t.Fatalf("default digester = %s, want sha256", d.Name())
	}
}

func TestNewDigesterRejectsUnknownAlgorithm(t *testing.T) {
	if _, err := NewDigester("md5"); err == nil {
		t.Fatal("expected error for unknown algorithm")
	}
}

func TestCanonicalJSONOrdersMapKeys(t *testing.T) {
	raw, err := CanonicalJSON(map[string]any{"b": 2, "a": 1, "c": map[string]any{"z": 1, "y": 2}})
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	want := `{"a":1,"b":2,"c":{"y":2,"z":1}}`
	if string(raw) != want {
		t.Fatalf("canonical form = %s, want %s", raw, want)
	}
}

func TestCanonicalJSONPropagatesMarshalFailure(t *testing.T) {
	if _, err := CanonicalJSON(map[string]any{"bad": make(chan int)}); err == nil {
		t.Fatal("expected marshal error to propagate")
	}
}
