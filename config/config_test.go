// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/patronhq/poolengine/account"
)

const recipient = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

// ---------------------------------------------------------------------------
// DefaultConfig tests
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "text"},
		{"LogFile", cfg.LogFile, ""},
		{"Pool.FeeBps", cfg.Pool.FeeBps, uint32(0)},
		{"Pool.DurationDays", cfg.Pool.DurationDays, 30},
		{"NATS.URL", cfg.NATS.URL, ""},
		{"NATS.Subject", cfg.NATS.Subject, "pools"},
		{"Metrics.Enabled", cfg.Metrics.Enabled, false},
		{"Metrics.Listen", cfg.Metrics.Listen, ":9464"},
		{"Metrics.Namespace", cfg.Metrics.Namespace, "poolengine"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}

	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
}

// ---------------------------------------------------------------------------
// SaveConfig / LoadConfig round-trip tests
// ---------------------------------------------------------------------------

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	original := Config{
		DataDir:   "/tmp/test-pools",
		LogLevel:  "debug",
		LogFormat: "json",
		LogFile:   "/tmp/pools.log",
		Pool: PoolConfig{
			FeeBps:       250,
			FeeRecipient: recipient,
			DurationDays: 14,
		},
		NATS: NATSConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "patron.pools",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Listen:    "127.0.0.1:9100",
			Namespace: "test",
		},
	}

	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if loaded != original {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, original)
	}
}

func TestSaveConfigCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.toml")

	cfg := DefaultConfig()
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig should create parent dirs: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Config file not created: %v", err)
	}
}

func TestSaveConfig_OutputFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "# Pool engine configuration") {
		t.Error("saved config should start with the header comment")
	}
	for _, want := range []string{"data_dir = ", "log_level = ", "[pool]", "[nats]", "[metrics]"} {
		if !strings.Contains(content, want) {
			t.Errorf("saved config should contain %q", want)
		}
	}
}

// ---------------------------------------------------------------------------
// LoadConfig tests
// ---------------------------------------------------------------------------

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.toml")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig nonexistent: got %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := os.WriteFile(path, []byte("this is not toml\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadConfig bad file: got %v, want ErrInvalidConfig", err)
	}
}

func TestLoadConfigWrongType(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := os.WriteFile(path, []byte("[pool]\nfee_bps = \"lots\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("LoadConfig wrong type: got %v, want ErrInvalidConfig", err)
	}
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `# operator overrides
log_level = "debug"

[pool]
fee_bps = 500
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if cfg.Pool.FeeBps != 500 {
		t.Errorf("Pool.FeeBps = %d, want 500", cfg.Pool.FeeBps)
	}
	// Unset fields should retain defaults.
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat = %q, want default %q", cfg.LogFormat, "text")
	}
	if cfg.Pool.DurationDays != 30 {
		t.Errorf("Pool.DurationDays = %d, want default 30", cfg.Pool.DurationDays)
	}
	if cfg.Metrics.Listen != ":9464" {
		t.Errorf("Metrics.Listen = %q, want default %q", cfg.Metrics.Listen, ":9464")
	}
}

func TestLoadConfigUnknownKeysIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := "future_key = \"value\"\nlog_format = \"json\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig with unknown key: %v", err)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "json")
	}
}

// ---------------------------------------------------------------------------
// ValidateConfig tests
// ---------------------------------------------------------------------------

func TestValidateConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("ValidateConfig(DefaultConfig()) = %v, want nil", err)
	}
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:    "empty_datadir",
			modify:  func(c *Config) { c.DataDir = "" },
			wantErr: ErrEmptyDataDir,
		},
		{
			name:    "bad_loglevel",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "bad_logformat",
			modify:  func(c *Config) { c.LogFormat = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
		{
			name:    "fee_too_high",
			modify:  func(c *Config) { c.Pool.FeeBps = 10_001 },
			wantErr: ErrInvalidFeeBps,
		},
		{
			name:    "bad_fee_recipient",
			modify:  func(c *Config) { c.Pool.FeeRecipient = "0x1234" },
			wantErr: ErrInvalidFeeRecipient,
		},
		{
			name:    "zero_duration",
			modify:  func(c *Config) { c.Pool.DurationDays = 0 },
			wantErr: ErrInvalidDuration,
		},
		{
			name: "nats_empty_subject",
			modify: func(c *Config) {
				c.NATS.URL = "nats://localhost:4222"
				c.NATS.Subject = ""
			},
			wantErr: ErrInvalidSubject,
		},
		{
			name: "nats_wildcard_subject",
			modify: func(c *Config) {
				c.NATS.URL = "nats://localhost:4222"
				c.NATS.Subject = "pools.>"
			},
			wantErr: ErrInvalidSubject,
		},
		{
			name: "nats_empty_token",
			modify: func(c *Config) {
				c.NATS.URL = "nats://localhost:4222"
				c.NATS.Subject = "pools..events"
			},
			wantErr: ErrInvalidSubject,
		},
		{
			name: "bad_metrics_listen",
			modify: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Listen = "not-a-valid-addr"
			},
			wantErr: ErrInvalidListenAddr,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			err := ValidateConfig(cfg)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateConfig: got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateConfigValidLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "INFO", "Debug"} {
		cfg := DefaultConfig()
		cfg.LogLevel = level
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("ValidateConfig with loglevel %q: %v", level, err)
		}
	}
}

func TestValidateConfig_SubjectIgnoredWithoutURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NATS.Subject = ""
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("NATS subject should not be checked when NATS is disabled: %v", err)
	}
}

func TestValidateConfig_ListenIgnoredWhenMetricsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Listen = "garbage"
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("metrics listen should not be checked when disabled: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Fee recipient
// ---------------------------------------------------------------------------

func TestFeeRecipientAddress(t *testing.T) {
	cfg := DefaultConfig()

	addr, err := cfg.FeeRecipientAddress()
	if err != nil || !addr.IsZero() {
		t.Errorf("empty recipient: got (%v, %v), want zero address", addr, err)
	}

	cfg.Pool.FeeRecipient = recipient
	addr, err = cfg.FeeRecipientAddress()
	if err != nil {
		t.Fatalf("FeeRecipientAddress: %v", err)
	}
	if addr != account.MustParse(recipient) {
		t.Errorf("FeeRecipientAddress = %s, want %s", addr, recipient)
	}

	cfg.Pool.FeeRecipient = strings.ToLower(recipient)
	if _, err := cfg.FeeRecipientAddress(); err != nil {
		t.Errorf("lowercase recipient should parse: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

func TestConfigPath(t *testing.T) {
	got := ConfigPath("/home/user/.poolengine")
	want := filepath.Join("/home/user/.poolengine", "config.toml")
	if got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
}

func TestDatabasePath(t *testing.T) {
	got := DatabasePath("/data")
	want := filepath.Join("/data", "pools.db")
	if got != want {
		t.Errorf("DatabasePath = %q, want %q", got, want)
	}
}

func TestDefaultDataDir_EndsWith_DotPoolengine(t *testing.T) {
	dir := DefaultDataDir()
	if !strings.HasSuffix(dir, ".poolengine") {
		t.Errorf("DefaultDataDir() = %q, want suffix %q", dir, ".poolengine")
	}
}
