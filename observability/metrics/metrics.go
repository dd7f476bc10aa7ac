package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the Prometheus collectors for the settlement node.
type Metrics struct {
	OpenIntents         prometheus.Gauge
	IntentSubmissions   *prometheus.CounterVec
	SolutionSubmissions *prometheus.CounterVec
	ExecutedSolutions   prometheus.Counter
	DiscardedSolutions  prometheus.Counter
	ResolvedIntents     prometheus.Counter
	ExpiredIntents      prometheus.Counter
	BlockHeight         prometheus.Gauge
	ValidationSeconds   prometheus.Histogram
	ExecutionSeconds    prometheus.Histogram
}

var (
	registerOnce sync.Once
	shared       *Metrics
)

// New builds the collector set and registers it with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OpenIntents: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "intentnet_open_intents",
			Help: "Number of live intents in the inventory.",
		}),
		IntentSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intentnet_intent_submissions_total",
			Help: "Intent submissions by outcome.",
		}, []string{"outcome"}),
		SolutionSubmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "intentnet_solution_submissions_total",
			Help: "Solution submissions by outcome.",
		}, []string{"outcome"}),
		ExecutedSolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intentnet_solutions_executed_total",
			Help: "Winning solutions executed at block boundaries.",
		}),
		DiscardedSolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intentnet_solutions_discarded_total",
			Help: "Winning solutions discarded because execution failed.",
		}),
		ResolvedIntents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intentnet_intents_resolved_total",
			Help: "Intents fully or partially resolved by executed solutions.",
		}),
		ExpiredIntents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "intentnet_intents_expired_total",
			Help: "Intents swept after their deadline passed.",
		}),
		BlockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "intentnet_block_height",
			Help: "Current block number.",
		}),
		ValidationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "intentnet_solution_validation_seconds",
			Help:    "Wall time spent validating submitted solutions.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		ExecutionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "intentnet_solution_execution_seconds",
			Help:    "Wall time spent executing winning solutions.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}
	reg.MustRegister(
		m.OpenIntents,
		m.IntentSubmissions,
		m.SolutionSubmissions,
		m.ExecutedSolutions,
		m.DiscardedSolutions,
		m.ResolvedIntents,
		m.ExpiredIntents,
		m.BlockHeight,
		m.ValidationSeconds,
		m.ExecutionSeconds,
	)
	return m
}

// Default returns the process-wide collector set registered against the
// default Prometheus registry. Safe to call from multiple goroutines.
func Default() *Metrics {
	registerOnce.Do(func() {
		shared = New(prometheus.DefaultRegisterer)
	})
	return shared
}
