package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"sliceledger/crypto"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Default().ListenAddress, cfg.ListenAddress)
	require.Equal(t, uint(2), cfg.Difficulty)
	require.Equal(t, "sha256", cfg.DigestAlgorithm)

	// The file now exists and loads back to the same configuration.
	_, err = os.Stat(path)
	require.NoError(t, err)
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadAppliesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
ListenAddress = ":9000"
Difficulty = 3
DigestAlgorithm = "blake3"
DataDir = "/tmp/ledger"

[RateLimit]
RequestsPerMinute = 120.0
Burst = 5

[SharedKeys]
primary = "NB_KEY_5G_PRIMARY_OVERRIDE"
secondary = "NB_KEY_5G_SECONDARY_OVERRIDE"
verification = "NB_KEY_5G_VERIFICATION_OVERRIDE"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddress)
	require.Equal(t, uint(3), cfg.Difficulty)
	require.Equal(t, "blake3", cfg.DigestAlgorithm)
	require.Equal(t, 5, cfg.RateLimit.Burst)
	require.Equal(t, "NB_KEY_5G_PRIMARY_OVERRIDE", cfg.Keys()[crypto.KeyPrimary])
}

func TestValidateRejectsExcessiveDifficulty(t *testing.T) {
	cfg := Default()
	cfg.Difficulty = maxDifficulty + 1
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownDigest(t *testing.T) {
	cfg := Default()
	cfg.DigestAlgorithm = "md5"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsMalformedSharedKeys(t *testing.T) {
	cfg := Default()
	cfg.SharedKeys = map[string]string{"primary": "nope"}
	require.Error(t, cfg.Validate())
}

func TestKeysDefaultsWhenUnset(t *testing.T) {
	require.Equal(t, crypto.DefaultSharedKeys(), Default().Keys())
}
