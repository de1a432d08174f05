package scorers

import (
	"context"
	"fmt"
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
	_ ports.Scorer         = (*ConsensusScorer)(nil)
	_ ports.SampleDetailer = (*ConsensusScorer)(nil)
)

// ConsensusScorer rewards a completion whose chosen identity belongs to the
// majority of the peer identifications found in the prompt. Peers vote
// through the identify tag; ties put every tied identity in the majority.
//
// Concurrency: ConsensusScorer is stateless and safe for concurrent use.
type ConsensusScorer struct {
	name    string
	round   domain.Round
	profile profile
	config  ConsensusConfig
	tracer  trace.Tracer
}

// ConsensusConfig configures a ConsensusScorer.
type ConsensusConfig struct {
	// Weight is awarded to completions agreeing with the majority.
	Weight float64 `yaml:"weight" json:"weight" validate:"gte=0"`
}

// DefaultConsensusConfig returns weight 2.0.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{Weight: 2.0}
}

// NewConsensusScorer creates a ConsensusScorer reading the choice tag of
// round.
func NewConsensusScorer(name string, round domain.Round, config ConsensusConfig) (*ConsensusScorer, error) {
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

	return &ConsensusScorer{
		name:    name,
		round:   round,
		profile: p,
		config:  config,
		tracer:  otel.Tracer("consensus-scorer"),
	}, nil
}

// Name returns the reward component this scorer produces.
func (cs *ConsensusScorer) Name() string { return cs.name }

// Majority returns the majority set of the peer votes in promptText.
func (cs *ConsensusScorer) Majority(promptText string) domain.Majority {
	return domain.TallyMajority(tags.ExtractAll(promptText, tags.Identify))
}

// Score returns the weight for each completion agreeing with the majority.
func (cs *ConsensusScorer) Score(ctx context.Context, batch domain.Batch) ([]float64, error) {
	ctx, span := cs.tracer.Start(ctx, "ConsensusScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.type", "consensus"),
			attribute.String("scorer.id", cs.name),
			attribute.String("round", cs.round.String()),
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

	majority := cs.Majority(batch.PromptText())
	responses := batch.Responses()
	rewards := make([]float64, len(responses))
	for i, r := range responses {
		if majority.Contains(tags.Extract(r, cs.profile.choice)) {
			rewards[i] = cs.config.Weight
		}
	}

	span.SetAttributes(attribute.Int("eval.majority_size", len(majority)))
	return rewards, nil
}

// Details reports the vote distribution and the first completion's choice.
func (cs *ConsensusScorer) Details(batch domain.Batch) []ports.SampleField {
	prompt := batch.PromptText()
	votes := tags.ExtractAll(prompt, tags.Identify)
	choice := tags.Extract(firstOr(batch.Responses(), ""), cs.profile.choice)
	return []ports.SampleField{
		{Label: "Critic Choice Distribution", Value: "[" + strings.Join(votes, ", ") + "]"},
		{Label: "Extracted", Value: choice},
		{Label: "Got reward?", Value: strconv.FormatBool(cs.Majority(prompt).Contains(choice))},
	}
}

// Validate checks the scorer configuration.
func (cs *ConsensusScorer) Validate() error {
	if err := validate.Struct(cs.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// NewConsensusFromConfig creates a ConsensusScorer from a configuration
// map. Missing keys keep their defaults.
func NewConsensusFromConfig(name string, round domain.Round, config map[string]any) (ports.Scorer, error) {
	cfg := DefaultConsensusConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewConsensusScorer(name, round, cfg)
}
