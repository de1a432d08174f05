package scorers

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/pmezard/go-difflib/difflib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
	"github.com/ahrav/go-tally/internal/tags"
)

var (
	_ ports.Scorer         = (*QuestionSimilarityScorer)(nil)
	_ ports.SampleDetailer = (*QuestionSimilarityScorer)(nil)
)

// Similarity algorithms supported by QuestionSimilarityScorer.
const (
	// AlgorithmSequence is the longest-matching-block ratio 2*M/T.
	AlgorithmSequence = "sequence"
	// AlgorithmLevenshtein is one minus the normalized edit distance.
	AlgorithmLevenshtein = "levenshtein"
)

// QuestionSimilarityScorer rewards a completion for restating the original
// question faithfully. The restatement is read from the question tag; the
// original is located between the prompt's question anchors.
//
// Concurrency: QuestionSimilarityScorer is stateless and safe for
// concurrent use.
type QuestionSimilarityScorer struct {
	name   string
	round  domain.Round
	config QuestionSimilarityConfig
	tracer trace.Tracer
}

// QuestionSimilarityConfig configures a QuestionSimilarityScorer.
type QuestionSimilarityConfig struct {
	// Weight multiplies the similarity ratio.
	Weight float64 `yaml:"weight" json:"weight" validate:"gte=0"`

	// Algorithm selects how similarity is measured.
	Algorithm string `yaml:"algorithm" json:"algorithm" validate:"required,oneof=sequence levenshtein"`
}

// DefaultQuestionSimilarityConfig returns the sequence ratio at weight 1.0.
func DefaultQuestionSimilarityConfig() QuestionSimilarityConfig {
	return QuestionSimilarityConfig{Weight: 1.0, Algorithm: AlgorithmSequence}
}

// NewQuestionSimilarityScorer creates a QuestionSimilarityScorer.
func NewQuestionSimilarityScorer(name string, round domain.Round, config QuestionSimilarityConfig) (*QuestionSimilarityScorer, error) {
	if name == "" {
		return nil, ErrEmptyScorerName
	}
	if !round.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRound, round)
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &QuestionSimilarityScorer{
		name:   name,
		round:  round,
		config: config,
		tracer: otel.Tracer("question-similarity-scorer"),
	}, nil
}

// Name returns the reward component this scorer produces.
func (qs *QuestionSimilarityScorer) Name() string { return qs.name }

// Similarity returns the ratio in [0, 1] between a restated question and
// the original. An empty restatement scores 0.
func (qs *QuestionSimilarityScorer) Similarity(recreated, original string) float64 {
	if recreated == "" {
		return 0
	}
	if qs.config.Algorithm == AlgorithmLevenshtein {
		return levenshteinRatio(recreated, original)
	}
	return sequenceRatio(recreated, original)
}

// Score returns the weighted similarity of each completion's restatement.
func (qs *QuestionSimilarityScorer) Score(ctx context.Context, batch domain.Batch) ([]float64, error) {
	ctx, span := qs.tracer.Start(ctx, "QuestionSimilarityScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.type", "question_similarity"),
			attribute.String("scorer.id", qs.name),
			attribute.String("round", qs.round.String()),
			attribute.String("config.algorithm", qs.config.Algorithm),
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

	original := tags.OriginalQuestion(batch.PromptText())
	responses := batch.Responses()
	rewards := make([]float64, len(responses))
	for i, r := range responses {
		rewards[i] = qs.Similarity(tags.Extract(r, tags.Question), original) * qs.config.Weight
	}

	span.SetAttributes(attribute.Bool("eval.original_found", original != ""))
	return rewards, nil
}

// Details reports the original question, the first restatement and their
// similarity.
func (qs *QuestionSimilarityScorer) Details(batch domain.Batch) []ports.SampleField {
	original := tags.OriginalQuestion(batch.PromptText())
	recreated := tags.Extract(firstOr(batch.Responses(), ""), tags.Question)
	return []ports.SampleField{
		{Label: "Original Question", Value: original},
		{Label: "Extracted recreation", Value: recreated},
		{Label: "Similarity", Value: strconv.FormatFloat(qs.Similarity(recreated, original), 'f', -1, 64)},
	}
}

// Validate checks the scorer configuration.
func (qs *QuestionSimilarityScorer) Validate() error {
	if err := validate.Struct(qs.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// NewQuestionSimilarityFromConfig creates a QuestionSimilarityScorer from a
// configuration map. Missing keys keep their defaults.
func NewQuestionSimilarityFromConfig(name string, round domain.Round, config map[string]any) (ports.Scorer, error) {
	cfg := DefaultQuestionSimilarityConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewQuestionSimilarityScorer(name, round, cfg)
}

// sequenceRatio compares a and b rune by rune with difflib's matcher.
func sequenceRatio(a, b string) float64 {
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// levenshteinRatio is 1 - distance/maxLen over runes.
func levenshteinRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1.0
	}
	similarity := 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	if similarity < 0 {
		return 0
	}
	return similarity
}
