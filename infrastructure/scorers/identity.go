package scorers

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
	"github.com/ahrav/go-tally/internal/tags"
)

var (
	_ ports.Scorer         = (*ProperIDScorer)(nil)
	_ ports.SampleDetailer = (*ProperIDScorer)(nil)
	_ ports.Scorer         = (*FinalAnswerScorer)(nil)
	_ ports.SampleDetailer = (*FinalAnswerScorer)(nil)
)

// WeightConfig configures scorers whose only parameter is the reward they
// award on success.
type WeightConfig struct {
	// Weight is awarded to successful completions.
	Weight float64 `yaml:"weight" json:"weight" validate:"gte=0"`
}

// DefaultWeightConfig returns weight 2.0.
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{Weight: 2.0}
}

// ProperIDScorer rewards a completion whose chosen identity is one of the
// agent identifiers declared in the prompt.
//
// Concurrency: ProperIDScorer is stateless and safe for concurrent use.
type ProperIDScorer struct {
	name    string
	round   domain.Round
	profile profile
	config  WeightConfig
	tracer  trace.Tracer
}

// NewProperIDScorer creates a ProperIDScorer reading the choice tag of
// round.
func NewProperIDScorer(name string, round domain.Round, config WeightConfig) (*ProperIDScorer, error) {
	if name == "" {
		return nil, ErrEmptyScorerName
	}
	p, err := profileFor(round)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &ProperIDScorer{
		name:    name,
		round:   round,
		profile: p,
		config:  config,
		tracer:  otel.Tracer("proper-id-scorer"),
	}, nil
}

// Name returns the reward component this scorer produces.
func (ps *ProperIDScorer) Name() string { return ps.name }

// Score returns the weight for each completion choosing a declared agent.
func (ps *ProperIDScorer) Score(ctx context.Context, batch domain.Batch) ([]float64, error) {
	ctx, span := ps.tracer.Start(ctx, "ProperIDScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.type", "proper_id"),
			attribute.String("scorer.id", ps.name),
			attribute.String("round", ps.round.String()),
			attribute.Int("batch.size", batch.Len()),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := checkBatch(batch); err != nil {
		span.RecordError(err)
		return nil, err
	}

	ids := tags.CandidateIDs(batch.PromptText())
	responses := batch.Responses()
	rewards := make([]float64, len(responses))
	for i, r := range responses {
		if slices.Contains(ids, tags.Extract(r, ps.profile.choice)) {
			rewards[i] = ps.config.Weight
		}
	}

	span.SetAttributes(attribute.Int("eval.candidate_ids", len(ids)))
	return rewards, nil
}

// Details reports the declared ids and the first completion's choice.
func (ps *ProperIDScorer) Details(batch domain.Batch) []ports.SampleField {
	ids := tags.CandidateIDs(batch.PromptText())
	choice := tags.Extract(firstOr(batch.Responses(), ""), ps.profile.choice)
	return []ports.SampleField{
		{Label: "Valid IDs", Value: "[" + strings.Join(ids, ", ") + "]"},
		{Label: "Extracted", Value: choice},
		{Label: "Got reward?", Value: strconv.FormatBool(slices.Contains(ids, choice))},
	}
}

// Validate checks the scorer configuration.
func (ps *ProperIDScorer) Validate() error {
	if err := validate.Struct(ps.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// NewProperIDFromConfig creates a ProperIDScorer from a configuration map.
// Missing keys keep their defaults.
func NewProperIDFromConfig(name string, round domain.Round, config map[string]any) (ports.Scorer, error) {
	cfg := DefaultWeightConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewProperIDScorer(name, round, cfg)
}

// FinalAnswerScorer rewards a completion whose own final answer equals the
// ground truth shared by the batch.
//
// Concurrency: FinalAnswerScorer is stateless and safe for concurrent use.
type FinalAnswerScorer struct {
	name   string
	round  domain.Round
	config WeightConfig
	tracer trace.Tracer
}

// NewFinalAnswerScorer creates a FinalAnswerScorer.
func NewFinalAnswerScorer(name string, round domain.Round, config WeightConfig) (*FinalAnswerScorer, error) {
	if name == "" {
		return nil, ErrEmptyScorerName
	}
	if !round.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRound, round)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &FinalAnswerScorer{
		name:   name,
		round:  round,
		config: config,
		tracer: otel.Tracer("final-answer-scorer"),
	}, nil
}

// Name returns the reward component this scorer produces.
func (fs *FinalAnswerScorer) Name() string { return fs.name }

// Score returns the weight for each completion answering correctly. Without
// ground truth every completion scores zero.
func (fs *FinalAnswerScorer) Score(ctx context.Context, batch domain.Batch) ([]float64, error) {
	ctx, span := fs.tracer.Start(ctx, "FinalAnswerScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.type", "final_answer"),
			attribute.String("scorer.id", fs.name),
			attribute.String("round", fs.round.String()),
			attribute.Int("batch.size", batch.Len()),
		),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := checkBatch(batch); err != nil {
		span.RecordError(err)
		return nil, err
	}

	responses := batch.Responses()
	rewards := make([]float64, len(responses))
	truth, ok := batch.Answer()
	if !ok {
		span.SetAttributes(attribute.Bool("eval.ground_truth", false))
		return rewards, nil
	}
	for i, r := range responses {
		if tags.Extract(r, tags.Answer) == truth {
			rewards[i] = fs.config.Weight
		}
	}
	return rewards, nil
}

// Details reports the ground truth and the first completion's answer.
func (fs *FinalAnswerScorer) Details(batch domain.Batch) []ports.SampleField {
	truth, _ := batch.Answer()
	return []ports.SampleField{
		{Label: "Answer", Value: truth},
		{Label: "Extracted", Value: tags.Extract(firstOr(batch.Responses(), ""), tags.Answer)},
	}
}

// Validate checks the scorer configuration.
func (fs *FinalAnswerScorer) Validate() error {
	if err := validate.Struct(fs.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// NewFinalAnswerFromConfig creates a FinalAnswerScorer from a configuration
// map. Missing keys keep their defaults.
func NewFinalAnswerFromConfig(name string, round domain.Round, config map[string]any) (ports.Scorer, error) {
	cfg := DefaultWeightConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewFinalAnswerScorer(name, round, cfg)
}
