// Package logging builds the logrus logger used by the engine and CLI.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrUnknownFormat is returned for a format other than "text" or "json".
var ErrUnknownFormat = errors.New("logging: unknown format")

// New returns a logger writing to out at the given level. Levels are
// debug, info, warn and error; formats are text and json.
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return logger, nil
}

// Open is New writing to path, or to stderr when path is empty. The
// returned closer releases the file.
func Open(level, format, path string) (*logrus.Logger, io.Closer, error) {
	if path == "" {
		logger, err := New(level, format, os.Stderr)
		return logger, io.NopCloser(nil), err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("logging: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open %s: %w", path, err)
	}
	logger, err := New(level, format, f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return logger, f, nil
}
