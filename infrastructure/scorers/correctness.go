package scorers

import (
	"context"
	"fmt"
	"strconv"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
	"github.com/ahrav/go-tally/internal/tags"
)

var (
	_ ports.Scorer         = (*CorrectnessScorer)(nil)
	_ ports.SampleDetailer = (*CorrectnessScorer)(nil)

	// foldCaser is a package-level Unicode case folder shared by scorers.
	foldCaser = cases.Fold()
)

// DefaultNonePhrases are the choices that claim no peer answered correctly.
var DefaultNonePhrases = []string{
	"None",
	"No one",
	"All answers are wrong",
	"All answers were wrong",
	"All are wrong",
	"All were wrong",
	"None are correct",
	"None were correct",
	"No one is correct",
}

// CorrectnessScorer rewards a completion for the quality of the peer
// submission it chose. The choice is read from the round's identity tag
// and resolved against the submissions embedded in the prompt. A chosen
// submission earns layered partial credit: exact final answer, a digits
// only answer, strict and soft structure, and tag presence. Choosing a
// "no one is correct" phrase earns a flat bonus only when every peer's
// final answer indeed differs from ground truth.
//
// Concurrency: CorrectnessScorer is stateless and safe for concurrent use.
type CorrectnessScorer struct {
	name    string
	round   domain.Round
	profile profile
	config  CorrectnessConfig
	phrases map[string]struct{}
	tracer  trace.Tracer
}

// CorrectnessConfig configures a CorrectnessScorer. Every credit is summed
// before Weight is applied.
type CorrectnessConfig struct {
	// Weight multiplies each completion's summed credit.
	Weight float64 `yaml:"weight" json:"weight" validate:"gte=0"`

	// ExactCredit is earned when the chosen final answer equals ground truth.
	ExactCredit float64 `yaml:"exact_credit" json:"exact_credit" validate:"gte=0"`

	// DigitCredit is earned when the chosen final answer is all digits.
	DigitCredit float64 `yaml:"digit_credit" json:"digit_credit" validate:"gte=0"`

	// StrictCredit is earned when the chosen submission passes the strict
	// reasoning layout.
	StrictCredit float64 `yaml:"strict_credit" json:"strict_credit" validate:"gte=0"`

	// SoftCredit is earned when the chosen submission passes the soft
	// reasoning layout.
	SoftCredit float64 `yaml:"soft_credit" json:"soft_credit" validate:"gte=0"`

	// TagCredit and TailPenalty parameterise the submission's tag presence.
	TagCredit   float64 `yaml:"tag_credit" json:"tag_credit" validate:"gte=0"`
	TailPenalty float64 `yaml:"tail_penalty" json:"tail_penalty" validate:"gte=0"`

	// NoneBonus is earned by a verified "no one is correct" claim.
	NoneBonus float64 `yaml:"none_bonus" json:"none_bonus" validate:"gte=0"`

	// NonePhrases lists the choices treated as "no one is correct".
	NonePhrases []string `yaml:"none_phrases" json:"none_phrases" validate:"dive,required"`

	// FoldClaims matches NonePhrases with Unicode case folding.
	FoldClaims bool `yaml:"fold_claims" json:"fold_claims"`
}

// DefaultCorrectnessConfig returns weight 2.0 with the standard credits and
// a 10.0 bonus for a verified "no one is correct" claim.
func DefaultCorrectnessConfig() CorrectnessConfig {
	return CorrectnessConfig{
		Weight:       2.0,
		ExactCredit:  1.0,
		DigitCredit:  0.5,
		StrictCredit: 0.5,
		SoftCredit:   0.5,
		TagCredit:    0.125,
		TailPenalty:  0.001,
		NoneBonus:    10.0,
		NonePhrases:  append([]string(nil), DefaultNonePhrases...),
	}
}

// NewCorrectnessScorer creates a CorrectnessScorer reading the choice tag
// of round.
func NewCorrectnessScorer(name string, round domain.Round, config CorrectnessConfig) (*CorrectnessScorer, error) {
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

	cs := &CorrectnessScorer{
		name:    name,
		round:   round,
		profile: p,
		config:  config,
		phrases: make(map[string]struct{}, len(config.NonePhrases)),
		tracer:  otel.Tracer("correctness-scorer"),
	}
	for _, phrase := range config.NonePhrases {
		cs.phrases[cs.normalizeClaim(phrase)] = struct{}{}
	}
	return cs, nil
}

// Name returns the reward component this scorer produces.
func (cs *CorrectnessScorer) Name() string { return cs.name }

// Score returns the weighted correctness credit of each completion's choice.
func (cs *CorrectnessScorer) Score(ctx context.Context, batch domain.Batch) ([]float64, error) {
	ctx, span := cs.tracer.Start(ctx, "CorrectnessScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.type", "correctness"),
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

	peers := cs.profile.submissions(batch.PromptText())
	submissions := byID(peers)

	responses := batch.Responses()
	rewards := make([]float64, len(responses))
	for i, r := range responses {
		choice := tags.Extract(r, cs.profile.choice)
		rewards[i] = cs.credit(choice, submissions, peers, batch.GroundTruth) * cs.config.Weight
	}

	span.SetAttributes(attribute.Int("eval.submissions", len(peers)))
	return rewards, nil
}

// credit returns the unweighted credit for one choice. A choice naming a
// peer takes precedence over the phrase check.
func (cs *CorrectnessScorer) credit(
	choice string,
	submissions map[string]string,
	peers []domain.AgentSubmission,
	groundTruth []string,
) float64 {
	if text, ok := submissions[choice]; ok {
		truth, hasTruth := firstTruth(groundTruth)
		return cs.SubmissionCredit(text, truth, hasTruth)
	}
	if cs.IsNoneClaim(choice) && len(groundTruth) > 0 && AllIncorrect(peers, groundTruth) {
		return cs.config.NoneBonus
	}
	return 0
}

func firstTruth(groundTruth []string) (string, bool) {
	if len(groundTruth) == 0 {
		return "", false
	}
	return groundTruth[0], true
}

// SubmissionCredit returns the layered credit earned by choosing a peer
// submission.
func (cs *CorrectnessScorer) SubmissionCredit(text, truth string, hasTruth bool) float64 {
	credit := 0.0
	answer := tags.Extract(text, tags.Answer)
	if hasTruth && answer == truth {
		credit += cs.config.ExactCredit
	}
	if isDigits(answer) {
		credit += cs.config.DigitCredit
	}
	if SubmissionLayout.StrictMatch(text) {
		credit += cs.config.StrictCredit
	}
	if SubmissionLayout.SoftMatch(text) {
		credit += cs.config.SoftCredit
	}
	return credit + SubmissionLayout.TagPresence(text, cs.config.TagCredit, cs.config.TailPenalty)
}

// IsNoneClaim reports whether choice is one of the configured
// "no one is correct" phrases.
func (cs *CorrectnessScorer) IsNoneClaim(choice string) bool {
	_, ok := cs.phrases[cs.normalizeClaim(choice)]
	return ok
}

func (cs *CorrectnessScorer) normalizeClaim(s string) string {
	if cs.config.FoldClaims {
		return foldCaser.String(s)
	}
	return s
}

// AllIncorrect reports whether every peer's final answer differs from
// ground truth. A single ground-truth value is shared by every peer.
// Otherwise peers and values pair by position and the comparison stops at
// the shorter of the two; this pairing is only meaningful for a broadcast
// value. It holds vacuously when nothing is compared.
func AllIncorrect(peers []domain.AgentSubmission, groundTruth []string) bool {
	for i, p := range peers {
		var truth string
		switch {
		case len(groundTruth) == 1:
			truth = groundTruth[0]
		case i < len(groundTruth):
			truth = groundTruth[i]
		default:
			return true
		}
		if tags.Extract(p.Text, tags.Answer) == truth {
			return false
		}
	}
	return true
}

// isDigits reports whether s is non-empty and made only of Unicode digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Details describes how the first completion's choice was credited.
func (cs *CorrectnessScorer) Details(batch domain.Batch) []ports.SampleField {
	peers := cs.profile.submissions(batch.PromptText())
	submissions := byID(peers)
	choice := tags.Extract(firstOr(batch.Responses(), ""), cs.profile.choice)
	credit := cs.credit(choice, submissions, peers, batch.GroundTruth)
	return []ports.SampleField{
		{Label: "Chosen answer ID", Value: choice},
		{Label: "Extracted", Value: submissions[choice]},
		{Label: "Reward for choice", Value: strconv.FormatFloat(credit, 'f', -1, 64)},
	}
}

// Validate checks the scorer configuration.
func (cs *CorrectnessScorer) Validate() error {
	if err := validate.Struct(cs.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// NewCorrectnessFromConfig creates a CorrectnessScorer from a configuration
// map. Missing keys keep their defaults.
func NewCorrectnessFromConfig(name string, round domain.Round, config map[string]any) (ports.Scorer, error) {
	cfg := DefaultCorrectnessConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewCorrectnessScorer(name, round, cfg)
}
