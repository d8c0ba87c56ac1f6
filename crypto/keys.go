package crypto

import (
	"fmt"
	"sort"
	"strings"
)

// Shared key names recognised by the ledger.
const (
	KeyPrimary      = "primary"
	KeySecondary    = "secondary"
	KeyVerification = "verification"
)

// Every shared key value must start with this prefix followed by the
// upper-cased key name and a trailing underscore. The suffix after the prefix
// is free-form key material.
const sharedKeyPrefix = "NB_KEY_5G_"

// SharedKeySet maps key names to symmetric key material. The ledger owns one
// set, injected at construction; the envelope codec is its only cryptographic
// consumer.
type SharedKeySet map[string]string

// DefaultSharedKeys returns the canonical deterministic key material. Key
// repair resets a corrupted set to exactly these values, so they must never
// change between releases.
func DefaultSharedKeys() SharedKeySet {
	return SharedKeySet{
		KeyPrimary:      "NB_KEY_5G_PRIMARY_12345",
		KeySecondary:    "NB_KEY_5G_SECONDARY_67890",
		KeyVerification: "NB_KEY_5G_VERIFICATION_ABCDE",
	}
}

// Validate checks every key value against its deterministic name-based
// prefix. The returned error names the first offending key, walking names in
// sorted order so the message is stable.
func (s SharedKeySet) Validate() error {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		want := sharedKeyPrefix + strings.ToUpper(name) + "_"
		if !strings.HasPrefix(s[name], want) {
			return fmt.Errorf("shared key %s has been tampered with", name)
		}
	}
	return nil
}

// Verification returns the key material used for envelope signatures.
func (s SharedKeySet) Verification() (string, error) {
	key, ok := s[KeyVerification]
	if !ok || key == "" {
		return "", fmt.Errorf("shared key %s is not configured", KeyVerification)
	}
	return key, nil
}

// Clone returns an independent copy of the set.
func (s SharedKeySet) Clone() SharedKeySet {
	out := make(SharedKeySet, len(s))
	for name, value := range s {
		out[name] = value
	}
	return out
}
