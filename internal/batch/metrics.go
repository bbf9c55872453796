package batch

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Item outcomes counted by the metrics.
const (
	OutcomeCreated    = "created"
	OutcomeFailed     = "failed"
	OutcomeIncomplete = "incomplete"
	OutcomeExcluded   = "excluded"
	OutcomeMissing    = "missing"
)

// Metrics counts the items of one run. They are written once at the end of
// the run for the node exporter textfile collector.
type Metrics struct {
	RunID string

	registry *prometheus.Registry
	items    *prometheus.CounterVec
	posts    *prometheus.CounterVec
	finished prometheus.Gauge
	duration prometheus.Gauge
	started  time.Time
}

// NewMetrics creates the metrics of a new run with a random run id.
func NewMetrics(command string) *Metrics {
	runID := uuid.NewString()
	labels := prometheus.Labels{"command": command, "run_id": runID}

	m := &Metrics{
		RunID:    runID,
		registry: prometheus.NewRegistry(),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ccistac",
			Name:        "items_total",
			Help:        "STAC items processed, by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		posts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "ccistac",
			Name:        "catalogue_writes_total",
			Help:        "Catalogue writes, by action.",
			ConstLabels: labels,
		}, []string{"action"}),
		finished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "ccistac",
			Name:        "run_finished_timestamp_seconds",
			Help:        "Unix time the run finished.",
			ConstLabels: labels,
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "ccistac",
			Name:        "run_duration_seconds",
			Help:        "Wall time of the run.",
			ConstLabels: labels,
		}),
		started: time.Now(),
	}
	m.registry.MustRegister(m.items, m.posts, m.finished, m.duration)
	return m
}

// Item counts one processed item.
func (m *Metrics) Item(outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(outcome).Inc()
}

// Write counts one catalogue write.
func (m *Metrics) Write(action string) {
	if m == nil {
		return
	}
	m.posts.WithLabelValues(action).Inc()
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile stamps the run end and writes every metric to path.
func (m *Metrics) WriteTextfile(path string) error {
	now := time.Now()
	m.finished.Set(float64(now.Unix()))
	m.duration.Set(now.Sub(m.started).Seconds())
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
