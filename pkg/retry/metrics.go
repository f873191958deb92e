package retry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsHandler exports run events as Prometheus metrics
type MetricsHandler struct {
	attempts prometheus.Counter
	failures *prometheus.CounterVec
	repairs  *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsHandler registers the retry metrics with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetricsHandler(reg prometheus.Registerer) *MetricsHandler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &MetricsHandler{
		attempts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "robustfetch_retry_attempts_total",
				Help: "Total number of attempts made after a failure",
			},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robustfetch_failures_total",
				Help: "Total number of failed attempts",
			},
			[]string{"action", "category"},
		),
		repairs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robustfetch_repairs_total",
				Help: "Total number of locator repairs",
			},
			[]string{"result"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robustfetch_runs_total",
				Help: "Total number of finished runs",
			},
			[]string{"state"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "robustfetch_run_duration_seconds",
				Help:    "Run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"state"},
		),
	}
}

// OnRetryAttempt handles retry attempt events
func (m *MetricsHandler) OnRetryAttempt(ctx context.Context, locator string, attempt int) {
	m.attempts.Inc()
}

// OnFailure handles failure events
func (m *MetricsHandler) OnFailure(ctx context.Context, event FailureEvent) {
	action := "unclassified"
	if event.Classified {
		action = event.Action.String()
	}
	m.failures.WithLabelValues(action, string(event.Category)).Inc()
}

// OnRepair handles locator repair events
func (m *MetricsHandler) OnRepair(ctx context.Context, from, to string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.repairs.WithLabelValues(result).Inc()
}

// OnOutcome handles outcome events
func (m *MetricsHandler) OnOutcome(ctx context.Context, event OutcomeEvent) {
	state := event.State.String()
	m.outcomes.WithLabelValues(state).Inc()
	m.duration.WithLabelValues(state).Observe(event.Duration.Seconds())
}
