package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-tally/infrastructure/nodestate"
	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
	"github.com/ahrav/go-tally/internal/testutils"
)

// stubScorer returns fixed values, an error or a panic.
type stubScorer struct {
	name   string
	values []float64
	err    error
	panic  any
	fields []ports.SampleField
	calls  int
	// detailCalls counts Details invocations.
	detailCalls int
	mu          sync.Mutex
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(ctx context.Context, batch domain.Batch) ([]float64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.panic != nil {
		panic(s.panic)
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.values != nil {
		return append([]float64(nil), s.values...), nil
	}
	return make([]float64, batch.Len()), nil
}

func (s *stubScorer) Validate() error { return nil }

func (s *stubScorer) Details(domain.Batch) []ports.SampleField {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detailCalls++
	return s.fields
}

func fixed(name string, values ...float64) *stubScorer {
	return &stubScorer{name: name, values: values}
}

// failingNode refuses every publish.
type failingNode struct {
	*nodestate.MemoryNodeState
}

func (f *failingNode) Publish(context.Context, domain.NodeUpdate) error {
	return ports.NewPublishError(f.Key(), "", errors.New("node unreachable"))
}

// panickingNode panics on publish.
type panickingNode struct {
	*nodestate.MemoryNodeState
}

func (p *panickingNode) Publish(context.Context, domain.NodeUpdate) error {
	panic("transport exploded")
}

// metricCall is one call into recordingMetrics.
type metricCall struct {
	kind   string
	name   string
	value  float64
	labels map[string]string
}

type recordingMetrics struct {
	mu    sync.Mutex
	calls []metricCall
}

func (m *recordingMetrics) add(kind, name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, metricCall{kind: kind, name: name, value: value, labels: labels})
}

func (m *recordingMetrics) RecordLatency(name string, d time.Duration, labels map[string]string) {
	m.add("latency", name, d.Seconds(), labels)
}

func (m *recordingMetrics) RecordCounter(name string, v float64, labels map[string]string) {
	m.add("counter", name, v, labels)
}

func (m *recordingMetrics) RecordGauge(name string, v float64, labels map[string]string) {
	m.add("gauge", name, v, labels)
}

func (m *recordingMetrics) RecordHistogram(name string, v float64, labels map[string]string) {
	m.add("histogram", name, v, labels)
}

func (m *recordingMetrics) byKind(kind, name string) []metricCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []metricCall
	for _, c := range m.calls {
		if c.kind == kind && c.name == name {
			out = append(out, c)
		}
	}
	return out
}

type recordingObserver struct {
	mu      sync.Mutex
	samples []ports.Sample
}

func (o *recordingObserver) Observe(_ context.Context, s ports.Sample) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.samples = append(o.samples, s)
}

type panickingObserver struct{}

// droppingObserver discards every sample without reading its details.
type droppingObserver struct{ seen int }

func (o *droppingObserver) Observe(context.Context, ports.Sample) { o.seen++ }

// panickingMetrics panics on every call.
type panickingMetrics struct{}

func (panickingMetrics) RecordLatency(string, time.Duration, map[string]string) {
	panic("metrics down")
}

func (panickingMetrics) RecordCounter(string, float64, map[string]string) { panic("metrics down") }

func (panickingMetrics) RecordGauge(string, float64, map[string]string) { panic("metrics down") }

func (panickingMetrics) RecordHistogram(string, float64, map[string]string) { panic("metrics down") }

func (panickingObserver) Observe(context.Context, ports.Sample) { panic("observer exploded") }

var (
	critiqueCompletion = testutils.CritiqueCompletion
	finalCompletion    = testutils.FinalCompletion
)

// debatePrompt restates question, embeds the peer answers keyed by id and
// appends critic votes after the feedback anchor.
func debatePrompt(question string, ids, answers []string, votes ...string) string {
	return testutils.DebatePrompt(question, testutils.Submissions(ids, answers), votes...)
}
