// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and saves the engine's TOML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/patronhq/poolengine/account"
)

// Config holds the engine configuration.
type Config struct {
	DataDir   string `toml:"data_dir"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogFile   string `toml:"log_file"`

	Pool    PoolConfig    `toml:"pool"`
	NATS    NATSConfig    `toml:"nats"`
	Metrics MetricsConfig `toml:"metrics"`
}

// PoolConfig holds defaults applied to newly created pools.
type PoolConfig struct {
	FeeBps       uint32 `toml:"fee_bps"`
	FeeRecipient string `toml:"fee_recipient"`
	DurationDays int    `toml:"duration_days"`
}

// NATSConfig configures event publishing. An empty URL disables it.
type NATSConfig struct {
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Listen    string `toml:"listen"`
	Namespace string `toml:"namespace"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:   DefaultDataDir(),
		LogLevel:  "info",
		LogFormat: "text",
		Pool: PoolConfig{
			DurationDays: 30,
		},
		NATS: NATSConfig{
			Subject: "pools",
		},
		Metrics: MetricsConfig{
			Listen:    ":9464",
			Namespace: "poolengine",
		},
	}
}

// DefaultDataDir returns the default data directory (~/.poolengine).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".poolengine"
	}
	return filepath.Join(home, ".poolengine")
}

// ConfigPath returns the path to the config file within dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// DatabasePath returns the path to the pool database within dataDir.
func DatabasePath(dataDir string) string {
	return filepath.Join(dataDir, "pools.db")
}

// LoadConfig reads a TOML config file. Keys missing from the file keep
// their default values; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in TOML format, creating parent
// directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# Pool engine configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// FeeRecipientAddress parses Pool.FeeRecipient. An empty value yields the
// zero address, which disables fees.
func (c Config) FeeRecipientAddress() (account.Address, error) {
	if c.Pool.FeeRecipient == "" {
		return account.Zero, nil
	}
	addr, err := account.Parse(c.Pool.FeeRecipient)
	if err != nil {
		return account.Zero, fmt.Errorf("%w: %w", ErrInvalidFeeRecipient, err)
	}
	return addr, nil
}
