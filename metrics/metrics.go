// Package metrics exports pool engine activity as Prometheus metrics. The
// Collector is an event.Sink, so it only ever sees committed operations.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/patronhq/poolengine/event"
	"github.com/patronhq/poolengine/fixedpoint"
)

// Collector aggregates engine events into Prometheus collectors.
type Collector struct {
	registry *prometheus.Registry

	events      *prometheus.CounterVec
	committed   prometheus.Counter
	withdrawn   prometheus.Counter
	refunded    prometheus.Counter
	revenue     prometheus.Counter
	fees        prometheus.Counter
	distributed *prometheus.CounterVec
	pools       *prometheus.GaugeVec

	mu       sync.Mutex
	statuses map[string]string // pool id -> last known status
}

// Compile-time interface check.
var _ event.Sink = (*Collector)(nil)

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "poolengine"
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		statuses: make(map[string]string),
	}

	c.events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Committed pool events by kind",
		},
		[]string{"kind"},
	)
	c.committed = tokenCounter(namespace, "committed", "Tokens committed by patrons")
	c.withdrawn = tokenCounter(namespace, "withdrawn", "Capital withdrawn by pool owners")
	c.refunded = tokenCounter(namespace, "refunded", "Commitments returned to patrons")
	c.revenue = tokenCounter(namespace, "revenue", "Gross revenue received")
	c.fees = tokenCounter(namespace, "fees", "Platform fees paid out")
	c.distributed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distributed_tokens_total",
			Help:      "Revenue paid to LP holders, by settlement mode",
		},
		[]string{"mode"},
	)
	c.pools = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pools",
			Help:      "Pools by lifecycle status",
		},
		[]string{"status"},
	)

	c.registry.MustRegister(
		c.events,
		c.committed,
		c.withdrawn,
		c.refunded,
		c.revenue,
		c.fees,
		c.distributed,
		c.pools,
	)
	return c
}

func tokenCounter(namespace, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name + "_tokens_total",
		Help:      help,
	})
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Emit records e.
func (c *Collector) Emit(e event.Event) {
	c.events.WithLabelValues(e.Kind.String()).Inc()

	switch e.Kind {
	case event.KindCommitAccepted:
		c.committed.Add(tokens(e.Amount))
	case event.KindFundsWithdrawn:
		c.withdrawn.Add(tokens(e.Amount))
	case event.KindFundsReturned:
		c.refunded.Add(tokens(e.Amount))
	case event.KindRevenueReceived:
		c.revenue.Add(tokens(e.Amount))
		c.fees.Add(tokens(e.Fee))
	case event.KindRevenueDistributed:
		c.distributed.WithLabelValues("push").Add(tokens(e.Amount))
	case event.KindClaimed:
		c.distributed.WithLabelValues("pull").Add(tokens(e.Amount))
	}

	if e.Kind == event.KindPoolCreated || e.Kind == event.KindStatusChanged {
		c.trackStatus(e.PoolID, e.Status)
	}
}

func (c *Collector) trackStatus(poolID, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.statuses[poolID]; ok {
		if prev == status {
			return
		}
		c.pools.WithLabelValues(prev).Dec()
	}
	c.statuses[poolID] = status
	c.pools.WithLabelValues(status).Inc()
}

func tokens(a fixedpoint.Amount) float64 {
	return a.Decimal().InexactFloat64()
}
