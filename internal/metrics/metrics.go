// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors for collection runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "landscape"

// Fetch outcomes.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// Record stages.
const (
	StageFetched    = "fetched"
	StageNormalized = "normalized"
	StageSkipped    = "skipped"
	StageDuplicate  = "duplicate"
	StageMerged     = "merged"
	StageFiltered   = "filtered"
)

// Metrics holds the collectors. A nil *Metrics records nothing.
type Metrics struct {
	SourceFetches  *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	Records        *prometheus.CounterVec
	Runs           *prometheus.CounterVec
	BreakerTripped prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg gets a
// private registry, which keeps tests from colliding on the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		SourceFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "source_fetch_total",
				Help:      "Source fetches by outcome",
			},
			[]string{"source", "outcome"},
		),
		FetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "source_fetch_duration_seconds",
				Help:      "Duration of a source fetch including pagination",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"source"},
		),
		Records: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "records_total",
				Help:      "Records seen at each collection stage",
			},
			[]string{"stage"},
		),
		Runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "runs_total",
				Help:      "Finished pipeline runs by status",
			},
			[]string{"status"},
		),
		BreakerTripped: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "summarizer_breaker_tripped",
				Help:      "1 once the summarizer rate-limit breaker has tripped",
			},
		),
	}
}

// ObserveFetch records one source fetch.
func (m *Metrics) ObserveFetch(source, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SourceFetches.WithLabelValues(source, outcome).Inc()
	m.FetchDuration.WithLabelValues(source).Observe(d.Seconds())
}

// AddRecords adds n to the counter for stage.
func (m *Metrics) AddRecords(stage string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Records.WithLabelValues(stage).Add(float64(n))
}

// RunFinished counts a finished run.
func (m *Metrics) RunFinished(status string) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
}

// SetBreakerTripped exports the breaker state.
func (m *Metrics) SetBreakerTripped(tripped bool) {
	if m == nil {
		return
	}
	if tripped {
		m.BreakerTripped.Set(1)
		return
	}
	m.BreakerTripped.Set(0)
}
