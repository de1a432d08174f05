package scorers

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

var (
	_ ports.Scorer         = (*FormatScorer)(nil)
	_ ports.SampleDetailer = (*FormatScorer)(nil)
	_ ports.Scorer         = (*TagPresenceScorer)(nil)
	_ ports.SampleDetailer = (*TagPresenceScorer)(nil)
)

// FormatMode selects which structural check a FormatScorer applies.
type FormatMode string

// Supported structural checks.
const (
	// FormatStrict requires the exact, anchored, line-oriented layout.
	FormatStrict FormatMode = "strict"
	// FormatSoft requires the sections in order, tolerating whitespace.
	FormatSoft FormatMode = "soft"
)

// FormatScorer awards its weight to completions whose structure conforms
// to the round's layout, and zero otherwise.
//
// Concurrency: FormatScorer is stateless and safe for concurrent use.
type FormatScorer struct {
	name   string
	round  domain.Round
	layout Layout
	config FormatConfig
	tracer trace.Tracer
}

// FormatConfig configures a FormatScorer.
type FormatConfig struct {
	// Mode selects the strict or soft check.
	Mode FormatMode `yaml:"mode" json:"mode" validate:"required,oneof=strict soft"`

	// Weight is awarded to conforming completions.
	Weight float64 `yaml:"weight" json:"weight" validate:"gte=0"`
}

// DefaultFormatConfig returns the strict check at weight 0.5.
func DefaultFormatConfig() FormatConfig {
	return FormatConfig{Mode: FormatStrict, Weight: 0.5}
}

// NewFormatScorer creates a FormatScorer for the round's completion layout.
func NewFormatScorer(name string, round domain.Round, config FormatConfig) (*FormatScorer, error) {
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

	return &FormatScorer{
		name:   name,
		round:  round,
		layout: p.layout,
		config: config,
		tracer: otel.Tracer("format-scorer"),
	}, nil
}

// Name returns the reward component this scorer produces.
func (fs *FormatScorer) Name() string { return fs.name }

// Matches reports whether text passes the configured structural check.
func (fs *FormatScorer) Matches(text string) bool {
	if fs.config.Mode == FormatSoft {
		return fs.layout.SoftMatch(text)
	}
	return fs.layout.StrictMatch(text)
}

// Score returns the weight for each conforming completion.
func (fs *FormatScorer) Score(ctx context.Context, batch domain.Batch) ([]float64, error) {
	ctx, span := fs.tracer.Start(ctx, "FormatScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.type", "format"),
			attribute.String("scorer.id", fs.name),
			attribute.String("round", fs.round.String()),
			attribute.String("config.mode", string(fs.config.Mode)),
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
	matched := 0
	for i, r := range responses {
		if fs.Matches(r) {
			rewards[i] = fs.config.Weight
			matched++
		}
	}

	span.SetAttributes(attribute.Int("eval.matched", matched))
	return rewards, nil
}

// Details reports whether the first completion conforms.
func (fs *FormatScorer) Details(batch domain.Batch) []ports.SampleField {
	return []ports.SampleField{
		{Label: "Matches?", Value: strconv.FormatBool(fs.Matches(firstOr(batch.Responses(), "")))},
	}
}

// Validate checks the scorer configuration.
func (fs *FormatScorer) Validate() error {
	if err := validate.Struct(fs.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// NewStrictFormatFromConfig creates a strict FormatScorer from a
// configuration map. Missing keys keep their defaults.
func NewStrictFormatFromConfig(name string, round domain.Round, config map[string]any) (ports.Scorer, error) {
	cfg := DefaultFormatConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewFormatScorer(name, round, cfg)
}

// NewSoftFormatFromConfig creates a soft FormatScorer from a configuration
// map. Missing keys keep their defaults.
func NewSoftFormatFromConfig(name string, round domain.Round, config map[string]any) (ports.Scorer, error) {
	cfg := DefaultFormatConfig()
	cfg.Mode = FormatSoft
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewFormatScorer(name, round, cfg)
}

// TagPresenceScorer gives continuous partial credit for each required
// delimiter of the round's layout, independent of the boolean checks.
//
// Concurrency: TagPresenceScorer is stateless and safe for concurrent use.
type TagPresenceScorer struct {
	name   string
	round  domain.Round
	layout Layout
	config TagPresenceConfig
	tracer trace.Tracer
}

// TagPresenceConfig configures a TagPresenceScorer.
type TagPresenceConfig struct {
	// Weight multiplies the raw presence score.
	Weight float64 `yaml:"weight" json:"weight" validate:"gte=0"`

	// TagCredit is earned by each marker present exactly once.
	TagCredit float64 `yaml:"tag_credit" json:"tag_credit" validate:"gte=0"`

	// TailPenalty is charged per character trailing the answer section.
	TailPenalty float64 `yaml:"tail_penalty" json:"tail_penalty" validate:"gte=0"`
}

// DefaultTagPresenceConfig returns weight 1.0, 0.125 per marker and 0.001
// per trailing character.
func DefaultTagPresenceConfig() TagPresenceConfig {
	return TagPresenceConfig{Weight: 1.0, TagCredit: 0.125, TailPenalty: 0.001}
}

// NewTagPresenceScorer creates a TagPresenceScorer for the round's layout.
func NewTagPresenceScorer(name string, round domain.Round, config TagPresenceConfig) (*TagPresenceScorer, error) {
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

	return &TagPresenceScorer{
		name:   name,
		round:  round,
		layout: p.layout,
		config: config,
		tracer: otel.Tracer("tag-presence-scorer"),
	}, nil
}

// Name returns the reward component this scorer produces.
func (ts *TagPresenceScorer) Name() string { return ts.name }

// Presence returns the unweighted presence score of text.
func (ts *TagPresenceScorer) Presence(text string) float64 {
	return ts.layout.TagPresence(text, ts.config.TagCredit, ts.config.TailPenalty)
}

// Score returns the weighted presence score of each completion.
func (ts *TagPresenceScorer) Score(ctx context.Context, batch domain.Batch) ([]float64, error) {
	ctx, span := ts.tracer.Start(ctx, "TagPresenceScorer.Score",
		trace.WithAttributes(
			attribute.String("scorer.type", "tag_presence"),
			attribute.String("scorer.id", ts.name),
			attribute.String("round", ts.round.String()),
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
	for i, r := range responses {
		rewards[i] = ts.Presence(r) * ts.config.Weight
	}
	return rewards, nil
}

// Details reports the first completion's raw presence score.
func (ts *TagPresenceScorer) Details(batch domain.Batch) []ports.SampleField {
	presence := ts.Presence(firstOr(batch.Responses(), ""))
	return []ports.SampleField{
		{Label: "Count reward", Value: strconv.FormatFloat(presence, 'f', -1, 64)},
	}
}

// Validate checks the scorer configuration.
func (ts *TagPresenceScorer) Validate() error {
	if err := validate.Struct(ts.config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// NewTagPresenceFromConfig creates a TagPresenceScorer from a configuration
// map. Missing keys keep their defaults.
func NewTagPresenceFromConfig(name string, round domain.Round, config map[string]any) (ports.Scorer, error) {
	cfg := DefaultTagPresenceConfig()
	if err := decodeConfig(config, &cfg); err != nil {
		return nil, err
	}
	return NewTagPresenceScorer(name, round, cfg)
}
