package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tally/internal/ports"
)

var _ ports.SampleObserver = (*OTelSampleObserver)(nil)

// MetricSamplesObserved counts samples attached to spans.
const MetricSamplesObserved = "samples_observed"

// OTelSampleObserver records every reward sample as a "reward.sample"
// event on the span carried by the context. Samples observed outside a
// recording span are counted but otherwise dropped.
type OTelSampleObserver struct {
	metrics ports.MetricsCollector
}

// NewOTelSampleObserver creates a span event observer. metrics may be nil.
func NewOTelSampleObserver(metrics ports.MetricsCollector) *OTelSampleObserver {
	return &OTelSampleObserver{metrics: metrics}
}

// Observe implements ports.SampleObserver.
func (o *OTelSampleObserver) Observe(ctx context.Context, sample ports.Sample) {
	if o.metrics != nil {
		o.metrics.RecordCounter(MetricSamplesObserved, 1, map[string]string{"component": sample.Component})
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent("reward.sample", trace.WithAttributes(sampleAttributes(sample)...))
}

// sampleAttributes flattens a sample into event attributes. Detail labels
// become "sample.detail.<label>" keys.
func sampleAttributes(sample ports.Sample) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("sample.component", sample.Component),
		attribute.String("sample.round", sample.Round.String()),
		attribute.Float64("sample.reward", sample.Reward),
		attribute.Int("sample.response_length", len(sample.Response)),
	}
	for _, f := range sample.Details() {
		attrs = append(attrs, attribute.String("sample.detail."+f.Label, f.Value))
	}
	return attrs
}
