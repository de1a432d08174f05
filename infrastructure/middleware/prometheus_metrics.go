// Package middleware provides cross-cutting concerns for the reward engine.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-tally/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks the distribution of component rewards, how often
// aggregation falls back to zeros, aggregation latency and each node's
// latest best total.
type PrometheusMetrics struct {
	componentReward   *prometheus.HistogramVec
	aggregations      *prometheus.CounterVec
	aggregationTime   *prometheus.HistogramVec
	lastTotalReward   *prometheus.GaugeVec
	operationCounter  *prometheus.CounterVec
	operationLatency  *prometheus.HistogramVec
	observationValues *prometheus.HistogramVec
	systemGauges      *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// its metrics with reg. A nil reg uses the global Prometheus registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		// Reward-specific metrics.
		componentReward: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tally_component_reward",
				Help:    "Reward assigned by a component to a single completion.",
				Buckets: prometheus.LinearBuckets(0, 1, 13),
			},
			[]string{"component", "round"},
		),
		aggregations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_aggregations_total",
				Help: "Reward aggregations by outcome; fallback means the batch was scored as zeros.",
			},
			[]string{"round", "outcome"},
		),
		aggregationTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tally_aggregation_duration_seconds",
				Help:    "Time spent scoring and publishing one batch.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"round", "outcome"},
		),
		lastTotalReward: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tally_last_total_reward",
				Help: "Highest total reward of the node's most recent batch.",
			},
			[]string{"node", "round"},
		),

		// General metrics for anything else routed through the collector.
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tally_operations_total",
				Help: "Total number of other operations performed.",
			},
			[]string{"operation"},
		),
		operationLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tally_operation_duration_seconds",
				Help:    "Execution time of other operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		observationValues: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "tally_observations",
				Help: "Values of other observed distributions.",
			},
			[]string{"metric"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tally_system_state",
				Help: "Current values of other gauges.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	if operation == ports.MetricAggregation {
		pm.aggregationTime.WithLabelValues(labelOr(labels, "round"), labelOr(labels, "outcome")).
			Observe(duration.Seconds())
		return
	}
	pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricAggregationOutcome:
		pm.aggregations.WithLabelValues(labelOr(labels, "round"), labelOr(labels, "outcome")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricLastTotalReward:
		pm.lastTotalReward.WithLabelValues(labelOr(labels, "node"), labelOr(labels, "round")).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case ports.MetricComponentReward:
		pm.componentReward.WithLabelValues(labelOr(labels, "component"), labelOr(labels, "round")).Observe(value)
	default:
		pm.observationValues.WithLabelValues(metric).Observe(value)
	}
}

// labelOr returns the label's value, or "unknown" when it is missing.
func labelOr(labels map[string]string, name string) string {
	if v, ok := labels[name]; ok && v != "" {
		return v
	}
	return "unknown"
}
