// Package metrics records per-run collector metrics and pushes them to a
// Prometheus Pushgateway. A collector run is a short-lived job, so nothing is
// scraped; the values are pushed once when the run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Job is the Pushgateway job label.
const Job = "evcollect"

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeFailure = "failure"
)

// Metrics holds the collector's metrics in a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	// Runs counts finished runs by outcome.
	Runs *prometheus.CounterVec

	// EventsFetched counts events returned by the API.
	EventsFetched prometheus.Counter

	// PagesFetched counts event pages requested.
	PagesFetched prometheus.Counter

	// TokenRefreshes counts client-credentials exchanges.
	TokenRefreshes prometheus.Counter

	// SinkFailures counts failed sink deliveries by sink.
	SinkFailures *prometheus.CounterVec

	// RunDuration observes the wall time of each run.
	RunDuration prometheus.Histogram

	// LastSuccess is the Unix time of the last run that stored events.
	LastSuccess prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		Runs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evcollect_runs_total",
				Help: "The total number of collection runs",
			},
			[]string{"outcome"},
		),
		EventsFetched: f.NewCounter(prometheus.CounterOpts{
			Name: "evcollect_events_fetched_total",
			Help: "The total number of events fetched from the API",
		}),
		PagesFetched: f.NewCounter(prometheus.CounterOpts{
			Name: "evcollect_pages_fetched_total",
			Help: "The total number of event pages fetched from the API",
		}),
		TokenRefreshes: f.NewCounter(prometheus.CounterOpts{
			Name: "evcollect_token_refreshes_total",
			Help: "The total number of API token refreshes",
		}),
		SinkFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evcollect_sink_failures_total",
				Help: "The total number of failed sink deliveries",
			},
			[]string{"sink"},
		),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "evcollect_run_duration_seconds",
			Help:    "The duration of collection runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "evcollect_last_success_timestamp_seconds",
			Help: "Unix time of the last run that stored new events",
		}),
	}
}

// ObserveRun records the outcome and duration of one run.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	m.Runs.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(d.Seconds())
	if outcome == OutcomeSuccess {
		m.LastSuccess.SetToCurrentTime()
	}
}

// Push sends the registry's current values to the Pushgateway at url,
// replacing the previous push for the job.
func (m *Metrics) Push(ctx context.Context, url string) error {
	if err := push.New(url, Job).Gatherer(m.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
