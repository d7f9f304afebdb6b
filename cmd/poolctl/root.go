package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/patronhq/poolengine/account"
	"github.com/patronhq/poolengine/config"
	"github.com/patronhq/poolengine/event"
	"github.com/patronhq/poolengine/fixedpoint"
	"github.com/patronhq/poolengine/logging"
	"github.com/patronhq/poolengine/pool"
	"github.com/patronhq/poolengine/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "poolctl",
		Short: "Operate patronage pools",
		Long: `poolctl drives the pool accounting engine over a local bbolt database.
Every command opens the data directory, applies one operation and exits.
Events are journaled in the database and, when configured, published to NATS.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("datadir", config.DefaultDataDir(), "Data directory holding config.toml and pools.db")
	flags.String("log-level", "", "Override the configured log level")
	flags.String("now", "", "Operation time (RFC3339); defaults to the current time")

	root.AddCommand(
		newConfigCmd(),
		newPoolCmd(),
		newTierCmd(),
		newCommitCmd(),
		newRefundCmd(),
		newClaimCmd(),
		newPendingCmd(),
		newWithdrawCmd(),
		newRevenueCmd(),
		newDistributeCmd(),
		newFeeCmd(),
		newMintCmd(),
		newBalanceCmd(),
		newMetricsCmd(),
	)
	root.AddCommand(newLifecycleCmds()...)
	return root
}

// engine is one opened data directory.
type engine struct {
	cfg   config.Config
	log   *logrus.Logger
	store *store.BoltStore
	reg   *pool.Registry

	closers []io.Closer
}

// loadConfig reads config.toml from the data directory, falling back to
// defaults when the file does not exist.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	dataDir, _ := cmd.Flags().GetString("datadir")

	cfg, err := config.LoadConfig(config.ConfigPath(dataDir))
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		cfg = config.DefaultConfig()
	case err != nil:
		return config.Config{}, err
	}
	cfg.DataDir = dataDir

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openEngine opens the store, wires the event sinks and loads every pool.
func openEngine(cmd *cobra.Command) (*engine, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, logCloser, err := logging.Open(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return nil, err
	}
	e := &engine{cfg: cfg, log: log, closers: []io.Closer{logCloser}}

	e.store, err = store.OpenBoltStore(config.DatabasePath(cfg.DataDir))
	if err != nil {
		e.Close()
		return nil, err
	}
	e.closers = append(e.closers, e.store)
	e.store.SetLogger(log)

	sinks := event.Multi{e.store.Journal(log), event.NewLogSink(log)}
	if cfg.NATS.URL != "" {
		sink, nc, err := event.ConnectNATS(cfg.NATS.URL, cfg.NATS.Subject, log)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.closers = append(e.closers, natsCloser{nc})
		sinks = append(sinks, sink)
	}

	e.reg = pool.NewRegistry(e.store, pool.Options{
		Store:  e.store,
		Sink:   sinks,
		Logger: log,
	})
	n, err := e.reg.Load()
	if err != nil {
		e.Close()
		return nil, err
	}
	log.WithField("pools", n).Debug("engine opened")
	return e, nil
}

// Close releases everything openEngine acquired, newest first.
func (e *engine) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			e.log.WithError(err).Warn("close")
		}
	}
}

// pool looks up the pool named by the --pool flag.
func (e *engine) pool(cmd *cobra.Command) (*pool.Pool, error) {
	id, _ := cmd.Flags().GetString("pool")
	if id == "" {
		return nil, fmt.Errorf("--pool is required")
	}
	return e.reg.Get(id)
}

// natsCloser drains the connection so buffered events are flushed.
type natsCloser struct{ nc *nats.Conn }

func (c natsCloser) Close() error { return c.nc.Drain() }

// withEngine wraps a RunE body with engine setup and teardown.
func withEngine(fn func(cmd *cobra.Command, args []string, e *engine) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		return fn(cmd, args, e)
	}
}

// ---------------------------------------------------------------------------
// Flag helpers
// ---------------------------------------------------------------------------

func nowFlag(cmd *cobra.Command) (time.Time, error) {
	s, _ := cmd.Flags().GetString("now")
	if s == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--now: %w", err)
	}
	return t.UTC(), nil
}

func addressFlag(cmd *cobra.Command, name string) (account.Address, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return account.Zero, fmt.Errorf("--%s is required", name)
	}
	return parseAddress("--"+name, s)
}

func parseAddress(what, s string) (account.Address, error) {
	addr, err := account.Parse(s)
	if err != nil {
		return account.Zero, fmt.Errorf("%s: %w", what, err)
	}
	return addr, nil
}

func amountFlag(cmd *cobra.Command, name string) (fixedpoint.Amount, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return 0, nil
	}
	return parseAmount("--"+name, s)
}

func parseAmount(what, s string) (fixedpoint.Amount, error) {
	a, err := fixedpoint.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return a, nil
}

func addPoolFlag(cmd *cobra.Command) {
	cmd.Flags().String("pool", "", "Pool id")
}

func addAsFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().String("as", "", usage)
}
