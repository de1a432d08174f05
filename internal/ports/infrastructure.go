package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-tally/internal/domain"
)

// NodeState is the node coordination layer's record of a node's latest
// round. Every Publish overwrites the previous update; there is no merge
// and no history. Implementations are not required to be safe for
// concurrent writers: callers targeting one node serialize externally.
type NodeState interface {
	// Key identifies the node. It keys the chosen text in RoundOutput.
	Key() string

	// Publish replaces the node's latest update.
	Publish(ctx context.Context, update domain.NodeUpdate) error

	// Latest returns the most recent update, if any.
	Latest() (domain.NodeUpdate, bool)
}

// SampleField is one labelled value of a diagnostic sample.
type SampleField struct {
	Label string
	Value string
}

// Sample is a diagnostic snapshot of how one reward component scored the
// first completion of a batch.
type Sample struct {
	Component string
	Round     domain.Round
	Prompt    string
	Response  string
	Reward    float64
	Fields    []SampleField
	// FieldsFunc builds the detail fields on demand when Fields is nil.
	// Observers call Details only for samples they keep.
	FieldsFunc func() []SampleField
}

// Details returns the sample's detail fields, building them if needed.
func (s Sample) Details() []SampleField {
	if s.Fields == nil && s.FieldsFunc != nil {
		return s.FieldsFunc()
	}
	return s.Fields
}

// SampleObserver receives diagnostic samples. Observers are best-effort:
// they must not block for long, and their failures never reach the caller.
type SampleObserver interface {
	Observe(ctx context.Context, sample Sample)
}

// Metric names emitted by the reward aggregator.
const (
	MetricComponentReward    = "component_reward"
	MetricAggregationOutcome = "aggregation_outcome"
	MetricAggregation        = "aggregation"
	MetricLastTotalReward    = "last_total_reward"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram, such as the reward
	// a component assigned to one completion.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
