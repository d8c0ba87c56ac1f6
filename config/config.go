package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"sliceledger/crypto"
)

// Sealing difficulty above this takes minutes per block at hex granularity;
// the loader refuses it rather than letting a typo stall the daemon.
const maxDifficulty = 6

// Config is the daemon configuration, decoded from TOML. Shared keys are an
// explicit configuration value injected into the ledger at construction;
// there is no global key state.
type Config struct {
	ListenAddress   string            `toml:"ListenAddress"`
	Env             string            `toml:"Env"`
	Difficulty      uint              `toml:"Difficulty"`
	DigestAlgorithm string            `toml:"DigestAlgorithm"`
	DataDir         string            `toml:"DataDir"`
	LogPath         string            `toml:"LogPath"`
	RateLimit       RateLimit         `toml:"RateLimit"`
	SharedKeys      map[string]string `toml:"SharedKeys"`
}

// RateLimit bounds per-client request rates on the HTTP surface.
type RateLimit struct {
	RequestsPerMinute float64 `toml:"RequestsPerMinute"`
	Burst             int     `toml:"Burst"`
}

// Default returns the configuration the daemon runs with when no file
// overrides it.
func Default() *Config {
	return &Config{
		ListenAddress:   ":8661",
		Difficulty:      2,
		DigestAlgorithm: "sha256",
		RateLimit: RateLimit{
			RequestsPerMinute: 600,
			Burst:             20,
		},
	}
}

// Load reads the configuration from path, creating a default file first when
// none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeDefault(path); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values the daemon cannot run with. Configured shared keys
// must satisfy the canonical prefix rule at load time; a set that fails here
// is a typo, not tampering.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("ListenAddress must not be empty")
	}
	if c.Difficulty > maxDifficulty {
		return fmt.Errorf("Difficulty %d exceeds maximum %d", c.Difficulty, maxDifficulty)
	}
	if _, err := crypto.NewDigester(c.DigestAlgorithm); err != nil {
		return err
	}
	if len(c.SharedKeys) > 0 {
		if err := c.Keys().Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns the shared key set the ledger should be constructed with:
// the configured overrides, or the canonical defaults when none are set.
func (c *Config) Keys() crypto.SharedKeySet {
	if len(c.SharedKeys) == 0 {
		return crypto.DefaultSharedKeys()
	}
	return crypto.SharedKeySet(c.SharedKeys).Clone()
}

func writeDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create default config %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(Default()); err != nil {
		return fmt.Errorf("write default config %s: %w", path, err)
	}
	return nil
}
