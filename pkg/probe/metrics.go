package probe

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/cells/pkg/cells"
)

// MetricsConfig configures the Prometheus probe.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "cells").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for atoms modified per transaction.
	// Default: 1, 2, 4 ... 512.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus probe.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "cells",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a cells.Probe that records runtime activity as Prometheus
// metrics:
//   - cells_recomputations_total: derivations re-run
//   - cells_reactions_total: reactor callbacks run
//   - cells_transactions_total: closed transactions by outcome and depth
//   - cells_transaction_depth: currently open transactions
//   - cells_transaction_modified_atoms: atoms touched per closed transaction
//   - cells_cycles_total: cycle errors by kind
type Metrics struct {
	recomputations prometheus.Counter
	reactions      prometheus.Counter
	transactions   *prometheus.CounterVec
	depth          prometheus.Gauge
	modified       prometheus.Histogram
	cycles         *prometheus.CounterVec
}

// NewMetrics registers the metrics and returns the probe. Registering twice
// on the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		recomputations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputations_total",
			Help:        "Total number of derivation recomputations",
			ConstLabels: config.ConstLabels,
		}),

		reactions: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reactions_total",
			Help:        "Total number of reactor callbacks run",
			ConstLabels: config.ConstLabels,
		}),

		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transactions_total",
			Help:        "Total number of closed transactions by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome", "nested"}),

		depth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transaction_depth",
			Help:        "Number of currently open transactions",
			ConstLabels: config.ConstLabels,
		}),

		modified: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transaction_modified_atoms",
			Help:        "Number of atoms modified per closed transaction",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycles_total",
			Help:        "Total number of cycle errors by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}

// Recomputed implements cells.Probe.
func (m *Metrics) Recomputed(uint64) {
	m.recomputations.Inc()
}

// Reacted implements cells.Probe.
func (m *Metrics) Reacted(uint64) {
	m.reactions.Inc()
}

// TxnBegan implements cells.Probe.
func (m *Metrics) TxnBegan(string, int) {
	m.depth.Inc()
}

// TxnEnded implements cells.Probe.
func (m *Metrics) TxnEnded(_ string, depth int, outcome cells.Outcome, modified int) {
	m.depth.Dec()
	m.transactions.WithLabelValues(outcome.String(), strconv.FormatBool(depth > 1)).Inc()
	m.modified.Observe(float64(modified))
}

// Cycle implements cells.Probe.
func (m *Metrics) Cycle(err error) {
	m.cycles.WithLabelValues(cycleKind(err)).Inc()
}
