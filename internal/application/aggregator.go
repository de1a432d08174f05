// Package application orchestrates the reward components of a debate
// round into one reward per completion and publishes the round's result.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
	"github.com/ahrav/go-tally/internal/tags"
)

// Aggregation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
)

// RewardAggregator runs a round's reward components over a batch, sums
// them, selects the best completion and publishes the result to the
// node's state.
//
// Reward never fails: any error or panic while scoring or publishing
// degrades the call to an all-zero vector of the batch's length and
// leaves node state as it was. At most one Reward call may be in flight
// per node; callers sharing a node serialize externally.
type RewardAggregator struct {
	round    domain.Round
	scorers  []ports.Scorer
	node     ports.NodeState
	selector domain.Selector
	observer ports.SampleObserver
	metrics  ports.MetricsCollector
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// AggregatorOption configures a RewardAggregator.
type AggregatorOption func(*RewardAggregator)

// WithSelector sets what Reward publishes. The default is domain.SelectMax.
func WithSelector(s domain.Selector) AggregatorOption {
	return func(a *RewardAggregator) { a.selector = s }
}

// WithObserver attaches a diagnostic sample observer.
func WithObserver(o ports.SampleObserver) AggregatorOption {
	return func(a *RewardAggregator) { a.observer = o }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m ports.MetricsCollector) AggregatorOption {
	return func(a *RewardAggregator) { a.metrics = m }
}

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) AggregatorOption {
	return func(a *RewardAggregator) { a.logger = l }
}

// WithClock overrides the time source used to stamp node updates.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *RewardAggregator) { a.now = now }
}

// NewRewardAggregator creates an aggregator for round that sums scorers in
// the given order and publishes to node.
func NewRewardAggregator(
	round domain.Round,
	node ports.NodeState,
	scorers []ports.Scorer,
	opts ...AggregatorOption,
) (*RewardAggregator, error) {
	if !round.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRound, round)
	}
	if node == nil {
		return nil, fmt.Errorf("%w: node state is required", domain.ErrInvalidConfiguration)
	}
	for i, s := range scorers {
		if s == nil {
			return nil, fmt.Errorf("%w: scorer %d is nil", domain.ErrInvalidConfiguration, i)
		}
	}

	a := &RewardAggregator{
		round:    round,
		scorers:  slices.Clone(scorers),
		node:     node,
		selector: domain.SelectMax,
		logger:   slog.Default(),
		tracer:   otel.Tracer("reward-aggregator"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	switch a.selector {
	case domain.SelectMax, domain.SelectRewardsOnly, domain.SelectNone:
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownSelector, a.selector)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a, nil
}

// NewRewardAggregatorFromConfig builds the round's pipeline from cfg
// through registry and wraps it in an aggregator using cfg's selector.
func NewRewardAggregatorFromConfig(
	cfg RewardConfig,
	round domain.Round,
	node ports.NodeState,
	registry ports.ScorerRegistry,
	opts ...AggregatorOption,
) (*RewardAggregator, error) {
	if err := cfg.Validate(registry); err != nil {
		return nil, err
	}
	rc, err := cfg.Round(round)
	if err != nil {
		return nil, err
	}
	pipeline, err := BuildPipeline(registry, round, rc)
	if err != nil {
		return nil, err
	}
	return NewRewardAggregator(round, node, pipeline, append([]AggregatorOption{WithSelector(cfg.Selector)}, opts...)...)
}

// Round returns the round this aggregator scores.
func (a *RewardAggregator) Round() domain.Round { return a.round }

// Components returns the component names in summation order.
func (a *RewardAggregator) Components() []string {
	names := make([]string, len(a.scorers))
	for i, s := range a.scorers {
		names[i] = s.Name()
	}
	return names
}

// Evaluate runs every component over the batch and collects the results.
// It fails on the first component error, panic or mis-sized result.
func (a *RewardAggregator) Evaluate(ctx context.Context, batch domain.Batch) (*domain.RewardVector, error) {
	vector := domain.NewRewardVector(batch.Len())
	for _, s := range a.scorers {
		values, err := a.score(ctx, s, batch)
		if err != nil {
			return nil, domain.NewScoringError(a.round, s.Name(), err)
		}
		if err := vector.Add(s.Name(), values); err != nil {
			return nil, domain.NewScoringError(a.round, s.Name(), err)
		}
	}
	return vector, nil
}

// score invokes one component, converting a panic into an error.
func (a *RewardAggregator) score(ctx context.Context, s ports.Scorer, batch domain.Batch) (values []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Debug("scorer panicked",
				"component", s.Name(),
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", domain.ErrScorerPanic, r)
		}
	}()
	return s.Score(ctx, batch)
}

// Reward scores the batch, publishes the result to node state according to
// the selector and returns an all-zero vector of the batch's length. The
// published reward vector, not the return value, carries the signal.
func (a *RewardAggregator) Reward(ctx context.Context, batch domain.Batch) []float64 {
	_, _ = a.Score(ctx, batch)
	return domain.Zeros(batch.Len())
}

// Score does Reward's work once and returns the evaluated components. On
// failure it returns the error that degraded the call and node state is
// left as it was. Like Reward, it never panics.
func (a *RewardAggregator) Score(ctx context.Context, batch domain.Batch) (*domain.RewardVector, error) {
	n := batch.Len()
	start := time.Now()

	ctx, span := a.tracer.Start(ctx, "RewardAggregator.Reward",
		trace.WithAttributes(
			attribute.String("round", a.round.String()),
			attribute.String("node", a.node.Key()),
			attribute.String("selector", string(a.selector)),
			attribute.Int("batch.size", n),
		),
	)
	defer span.End()

	vector, err := a.publish(ctx, batch)
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFallback
		span.RecordError(err)
		span.SetStatus(codes.Error, "reward fell back to zeros")
		a.logger.Warn("reward aggregation fell back to zeros",
			"round", a.round,
			"node", a.node.Key(),
			"component", failedComponent(err),
			"batch_size", n,
			"err", err,
		)
	} else {
		a.observe(ctx, batch, vector)
		a.contain("metrics collector", func() { a.recordRewards(vector) })
	}

	span.SetAttributes(attribute.String("outcome", outcome))
	a.contain("metrics collector", func() { a.record(outcome, time.Since(start)) })
	return vector, err
}

// contain runs fn and logs instead of propagating a panic.
func (a *RewardAggregator) contain(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Debug(what+" panicked", "round", a.round, "panic", r)
		}
	}()
	fn()
}

// publish runs steps that may fail. Node state is written last, so an
// error before it leaves the node untouched.
func (a *RewardAggregator) publish(ctx context.Context, batch domain.Batch) (vector *domain.RewardVector, err error) {
	defer func() {
		if r := recover(); r != nil {
			vector, err = nil, fmt.Errorf("%w: %v", domain.ErrScorerPanic, r)
		}
	}()

	vector, err = a.Evaluate(ctx, batch)
	if err != nil {
		return nil, err
	}
	if a.selector == domain.SelectNone {
		return vector, nil
	}

	total := vector.Total()
	update := domain.NodeUpdate{
		ID:        uuid.NewString(),
		NodeKey:   a.node.Key(),
		Round:     a.round,
		Rewards:   total,
		Timestamp: a.now(),
	}
	if a.selector == domain.SelectMax {
		update.Outputs = a.output(batch, total)
	}

	if err := a.node.Publish(ctx, update); err != nil {
		return nil, err
	}
	return vector, nil
}

// output builds the RoundOutput for the highest-scoring completion.
func (a *RewardAggregator) output(batch domain.Batch, total []float64) domain.RoundOutput {
	prompt := batch.PromptText()
	answer, _ := batch.Answer()

	chosen := ""
	if idx, ok := domain.Argmax(total); ok {
		chosen = batch.Responses()[idx]
	}

	return domain.RoundOutput{
		Question:   tags.OriginalQuestion(prompt),
		Answer:     answer,
		PromptText: prompt,
		Choice:     map[string]string{a.node.Key(): chosen},
	}
}

// Rank scores the batch and returns the summed rewards without publishing,
// for callers selecting completions directly. Failures yield zeros.
func (a *RewardAggregator) Rank(ctx context.Context, batch domain.Batch) []float64 {
	vector, err := func() (v *domain.RewardVector, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", domain.ErrScorerPanic, r)
			}
		}()
		return a.Evaluate(ctx, batch)
	}()
	if err != nil {
		a.logger.Warn("reward ranking fell back to zeros",
			"round", a.round,
			"component", failedComponent(err),
			"err", err,
		)
		return domain.Zeros(batch.Len())
	}
	return vector.Total()
}

// RewardFunc scores a batch and always returns one value per completion.
type RewardFunc func(ctx context.Context, batch domain.Batch) []float64

// NamedRewardFunc pairs a component name with its never-failing function.
type NamedRewardFunc struct {
	Name string
	Func RewardFunc
}

// RewardFuncs exposes each component as an independent RewardFunc for
// trainers that consume components separately.
func (a *RewardAggregator) RewardFuncs() []NamedRewardFunc {
	funcs := make([]NamedRewardFunc, len(a.scorers))
	for i, s := range a.scorers {
		funcs[i] = NamedRewardFunc{Name: s.Name(), Func: a.SafeFunc(s)}
	}
	return funcs
}

// SafeFunc wraps s so that errors, panics and mis-sized results become an
// all-zero vector of the batch's length.
func (a *RewardAggregator) SafeFunc(s ports.Scorer) RewardFunc {
	return func(ctx context.Context, batch domain.Batch) []float64 {
		values, err := a.score(ctx, s, batch)
		if err == nil && len(values) == batch.Len() {
			return values
		}
		if err == nil {
			err = fmt.Errorf("%w: got %d values, want %d", domain.ErrLengthMismatch, len(values), batch.Len())
		}
		a.logger.Warn("reward component fell back to zeros",
			"round", a.round,
			"component", s.Name(),
			"err", err,
		)
		return domain.Zeros(batch.Len())
	}
}

// observe hands one diagnostic sample per component to the observer.
// Observer panics are contained.
func (a *RewardAggregator) observe(ctx context.Context, batch domain.Batch, vector *domain.RewardVector) {
	if a.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.logger.Debug("sample observer panicked", "round", a.round, "panic", r)
		}
	}()

	response := ""
	if responses := batch.Responses(); len(responses) > 0 {
		response = responses[0]
	}
	for _, s := range a.scorers {
		sample := ports.Sample{
			Component: s.Name(),
			Round:     a.round,
			Prompt:    batch.PromptText(),
			Response:  response,
		}
		if values, ok := vector.Component(s.Name()); ok && len(values) > 0 {
			sample.Reward = values[0]
		}
		if d, ok := s.(ports.SampleDetailer); ok {
			sample.FieldsFunc = func() []ports.SampleField { return d.Details(batch) }
		}
		a.observer.Observe(ctx, sample)
	}
}

func (a *RewardAggregator) recordRewards(vector *domain.RewardVector) {
	if a.metrics == nil {
		return
	}
	round := a.round.String()
	for _, c := range vector.Components() {
		labels := map[string]string{"component": c.Name, "round": round}
		for _, v := range c.Values {
			a.metrics.RecordHistogram(ports.MetricComponentReward, v, labels)
		}
	}
	total := vector.Total()
	if idx, ok := domain.Argmax(total); ok {
		a.metrics.RecordGauge(ports.MetricLastTotalReward, total[idx],
			map[string]string{"node": a.node.Key(), "round": round})
	}
}

func (a *RewardAggregator) record(outcome string, elapsed time.Duration) {
	if a.metrics == nil {
		return
	}
	labels := map[string]string{"round": a.round.String(), "outcome": outcome}
	a.metrics.RecordCounter(ports.MetricAggregationOutcome, 1, labels)
	a.metrics.RecordLatency(ports.MetricAggregation, elapsed, labels)
}

// failedComponent extracts the component name from a scoring error.
func failedComponent(err error) string {
	var se *domain.ScoringError
	if errors.As(err, &se) {
		return se.Component
	}
	return ""
}
