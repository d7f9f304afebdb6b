// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if f := strings.ToLower(cfg.LogFormat); f != "text" && f != "json" {
		return ErrInvalidLogFormat
	}

	if cfg.Pool.FeeBps > 10_000 {
		return ErrInvalidFeeBps
	}
	if _, err := cfg.FeeRecipientAddress(); err != nil {
		return err
	}
	if cfg.Pool.DurationDays <= 0 {
		return ErrInvalidDuration
	}

	if cfg.NATS.URL != "" {
		if err := validateSubject(cfg.NATS.Subject); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidSubject, err)
		}
	}

	if cfg.Metrics.Enabled {
		if err := validateAddr(cfg.Metrics.Listen); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidListenAddr, err)
		}
	}

	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}

// validateSubject checks a NATS subject prefix: dot-separated tokens with
// no whitespace or wildcards.
func validateSubject(subject string) error {
	if subject == "" {
		return fmt.Errorf("empty subject")
	}
	if strings.ContainsAny(subject, " \t\r\n*>") {
		return fmt.Errorf("subject %q contains whitespace or wildcards", subject)
	}
	for _, tok := range strings.Split(subject, ".") {
		if tok == "" {
			return fmt.Errorf("subject %q has an empty token", subject)
		}
	}
	return nil
}
