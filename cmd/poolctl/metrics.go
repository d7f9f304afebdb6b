package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/patronhq/poolengine/metrics"
)

func newMetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Prometheus metrics",
	}
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics rebuilt from the event journals",
		Long: `Replay every pool's event journal into a Prometheus collector and serve it
on the configured listen address until interrupted. The data directory stays
locked while serving.`,
		Args: cobra.NoArgs,
		RunE: withEngine(runMetricsServe),
	}
	serve.Flags().String("listen", "", "Listen address (default from config)")
	cmd.AddCommand(serve)
	return cmd
}

// replayMetrics feeds every journaled event into a fresh collector.
func replayMetrics(e *engine) (*metrics.Collector, int, error) {
	c := metrics.NewCollector(e.cfg.Metrics.Namespace)
	n := 0
	for _, p := range e.reg.List() {
		events, err := e.store.Events(p.ID())
		if err != nil {
			return nil, 0, err
		}
		for _, ev := range events {
			c.Emit(ev)
		}
		n += len(events)
	}
	return c, n, nil
}

func runMetricsServe(cmd *cobra.Command, args []string, e *engine) error {
	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" {
		listen = e.cfg.Metrics.Listen
	}

	c, n, err := replayMetrics(e)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	e.log.WithField("listen", listen).WithField("events", n).Info("serving metrics")
	fmt.Fprintf(cmd.OutOrStdout(), "Serving metrics on %s/metrics\n", listen)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
