package observer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ahrav/go-tally/internal/ports"
)

var _ ports.SampleObserver = Fanout(nil)

// Fanout hands every sample to each observer in order. A panicking
// observer is skipped without affecting the others. Lazy detail fields are
// built at most once per sample.
type Fanout []ports.SampleObserver

// Observe implements ports.SampleObserver.
func (f Fanout) Observe(ctx context.Context, sample ports.Sample) {
	if sample.Fields == nil && sample.FieldsFunc != nil {
		sample.FieldsFunc = sync.OnceValue(sample.FieldsFunc)
	}
	for _, o := range f {
		if o == nil {
			continue
		}
		observeSafely(ctx, o, sample)
	}
}

func observeSafely(ctx context.Context, o ports.SampleObserver, sample ports.Sample) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("sample observer panicked", "component", sample.Component, "panic", r)
		}
	}()
	o.Observe(ctx, sample)
}
