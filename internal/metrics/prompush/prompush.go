// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// It adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the pipeline labels (stage, status, kind, dimension) onto
//     Prometheus labels; the job name becomes the Pushgateway grouping key.
//   - Pushing collected metrics to a Pushgateway instead of exposing a
//     scrape endpoint, which suits a batch process that exits when done.
//
// All Prometheus-specific dependencies live here so the rest of the project
// can swap backends without changes to the core pipeline.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"parkfacts/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stageCounter  *prometheus.CounterVec // parkfacts_stage_total
	stageDuration *prometheus.SummaryVec // parkfacts_stage_duration_seconds
	rowCounter    *prometheus.CounterVec // parkfacts_rows_total
	violationCtr  *prometheus.CounterVec // parkfacts_quality_violations_total
}

// NewBackend constructs a Pushgateway backend. jobName is the Pushgateway
// "job" grouping; gatewayURL is the base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "parkfacts"
	}

	reg := prometheus.NewRegistry()

	stageCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkfacts_stage_total",
			Help: "Total pipeline stage executions, partitioned by stage and status.",
		},
		[]string{"stage", "status"},
	)
	stageDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "parkfacts_stage_duration_seconds",
			Help:       "Duration of pipeline stages in seconds, partitioned by stage and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"stage", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkfacts_rows_total",
			Help: "Row-level counts per kind (loaded, skipped, filled, dropped, deduped, coerced, written).",
		},
		[]string{"kind"},
	)
	violationCtr := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parkfacts_quality_violations_total",
			Help: "Quality check violations per dimension.",
		},
		[]string{"dimension"},
	)

	for _, c := range []prometheus.Collector{stageCounter, stageDuration, rowCounter, violationCtr} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:    gatewayURL,
		jobName:       jobName,
		reg:           reg,
		stageCounter:  stageCounter,
		stageDuration: stageDuration,
		rowCounter:    rowCounter,
		violationCtr:  violationCtr,
	}, nil
}

// IncCounter routes known counter names onto their collectors; unknown names
// are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "parkfacts_stage_total":
		b.stageCounter.WithLabelValues(labels["stage"], labels["status"]).Add(delta)
	case "parkfacts_rows_total":
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	case "parkfacts_quality_violations_total":
		b.violationCtr.WithLabelValues(labels["dimension"]).Add(delta)
	}
}

// ObserveDuration records stage timings; other names are ignored.
func (b *Backend) ObserveDuration(name string, value float64, labels metrics.Labels) {
	if name != "parkfacts_stage_duration_seconds" {
		return
	}
	b.stageDuration.WithLabelValues(labels["stage"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
