// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import "errors"

var (
	// ErrInvalidLogLevel indicates the log level is not recognized.
	ErrInvalidLogLevel = errors.New("config: invalid log level (must be \"debug\", \"info\", \"warn\", or \"error\")")

	// ErrInvalidLogFormat indicates the log format is not recognized.
	ErrInvalidLogFormat = errors.New("config: invalid log format (must be \"text\" or \"json\")")

	// ErrEmptyDataDir indicates the data directory path is empty.
	ErrEmptyDataDir = errors.New("config: data directory must not be empty")

	// ErrConfigNotFound indicates the configuration file does not exist.
	ErrConfigNotFound = errors.New("config: configuration file not found")

	// ErrInvalidConfig indicates the configuration file is not valid TOML
	// or a value has the wrong type.
	ErrInvalidConfig = errors.New("config: invalid configuration file")

	// ErrInvalidFeeBps indicates a default fee above 10000 basis points.
	ErrInvalidFeeBps = errors.New("config: fee basis points must be between 0 and 10000")

	// ErrInvalidFeeRecipient indicates the fee recipient is not a valid account.
	ErrInvalidFeeRecipient = errors.New("config: invalid fee recipient")

	// ErrInvalidDuration indicates a non-positive default pool duration.
	ErrInvalidDuration = errors.New("config: default pool duration must be positive")

	// ErrInvalidListenAddr indicates the metrics listen address is malformed.
	ErrInvalidListenAddr = errors.New("config: invalid listen address")

	// ErrInvalidSubject indicates the NATS subject prefix is unusable.
	ErrInvalidSubject = errors.New("config: invalid NATS subject prefix")
)
