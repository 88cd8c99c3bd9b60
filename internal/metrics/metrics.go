// Package metrics exposes pipeline counters for the node exporter textfile collector
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "glucose_insights"

// Metrics holds the counters of one pipeline run
type Metrics struct {
	registry *prometheus.Registry

	Participants    *prometheus.CounterVec // status: loaded, missing_glucose, missing_food
	Readings        prometheus.Counter
	DroppedRows     *prometheus.CounterVec // table, reason
	Interpolated    prometheus.Counter
	FoodEvents      *prometheus.CounterVec // category
	TimestampParse  *prometheus.CounterVec // strategy
	Examples        *prometheus.CounterVec // category, source
	SpikeEvents     *prometheus.CounterVec // source
	DailyPatterns   prometheus.Counter
	BuilderFailures *prometheus.CounterVec // dataset
	RunDuration     prometheus.Gauge
	LastSuccess     prometheus.Gauge
}

// New creates the pipeline metrics on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Participants: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "participants_total",
			Help:      "Participants by load status.",
		}, []string{"status"}),
		Readings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "glucose_readings_total",
			Help:      "Normalized glucose readings.",
		}),
		DroppedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_rows_total",
			Help:      "Input rows dropped during normalization.",
		}, []string{"table", "reason"}),
		Interpolated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpolated_readings_total",
			Help:      "Missing glucose values filled by interpolation.",
		}),
		FoodEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "food_events_total",
			Help:      "Food events by refined glycemic category.",
		}, []string{"category"}),
		TimestampParse: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "food_timestamp_strategy_total",
			Help:      "Food logs by the timestamp strategy that parsed them.",
		}, []string{"strategy"}),
		Examples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_examples_total",
			Help:      "Food response examples by category and source.",
		}, []string{"category", "source"}),
		SpikeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spike_events_total",
			Help:      "Spike game events by source.",
		}, []string{"source"}),
		DailyPatterns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "daily_patterns_total",
			Help:      "Representative days selected.",
		}),
		BuilderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builder_failures_total",
			Help:      "Dataset builders that failed and produced an empty result.",
		}, []string{"dataset"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
	}

	m.registry.MustRegister(
		m.Participants,
		m.Readings,
		m.DroppedRows,
		m.Interpolated,
		m.FoodEvents,
		m.TimestampParse,
		m.Examples,
		m.SpikeEvents,
		m.DailyPatterns,
		m.BuilderFailures,
		m.RunDuration,
		m.LastSuccess,
	)
	return m
}

// Registry returns the registry holding the pipeline metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Source returns the label value for synthetic or observed data
func Source(synthetic bool) string {
	if synthetic {
		return "synthetic"
	}
	return "real"
}

// WriteTextfile writes the metrics in text exposition format to path
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
