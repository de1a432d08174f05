// Package scorers provides the reward components that implement the
// ports.Scorer interface for the go-tally reward engine.
package scorers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/tags"
)

// Component names of every reward the engine knows how to compute.
const (
	ComponentProperID             = "proper_id"
	ComponentCorrectness          = "correctness"
	ComponentConsensus            = "consensus"
	ComponentConsensusCorrectness = "consensus_correctness"
	ComponentQuestionSimilarity   = "question_similarity"
	ComponentFinalCorrectness     = "final_correctness"
	ComponentStrictFormat         = "strict_format"
	ComponentSoftFormat           = "soft_format"
	ComponentTagPresence          = "tag_presence"
)

// Input validation constants bounding the work a single batch can demand.
const (
	// MaxCompletions is the maximum number of completions scored in one call.
	MaxCompletions = 10000
	// MaxStringLength is the maximum allowed length for the prompt or any
	// completion (10MB).
	MaxStringLength = 10 * 1024 * 1024
)

// Common errors returned by scorers.
var (
	// ErrEmptyScorerName is returned when a scorer is created without a name.
	ErrEmptyScorerName = errors.New("scorer name cannot be empty")

	// ErrBatchTooLarge is returned when a batch exceeds MaxCompletions.
	ErrBatchTooLarge = errors.New("batch exceeds completion limit")

	// ErrTextTooLong is returned when a prompt or completion exceeds
	// MaxStringLength.
	ErrTextTooLong = errors.New("text exceeds length limit")
)

// Package-level validator instance for configuration validation.
var validate = validator.New()

// profile captures what differs between rounds for scorers that read the
// agent's chosen identity or the peers' submissions.
type profile struct {
	// layout is the structure a completion of the round must follow.
	layout Layout
	// choice is the tag holding the agent's chosen identity.
	choice tags.Tag
	// cutoff truncates the prompt before submissions are parsed.
	cutoff string
}

func profileFor(round domain.Round) (profile, error) {
	switch round {
	case domain.RoundCritique:
		return profile{layout: CritiqueLayout, choice: tags.Identify}, nil
	case domain.RoundFinal:
		return profile{layout: FinalLayout, choice: tags.Majority, cutoff: tags.FeedbackAnchor}, nil
	default:
		return profile{}, fmt.Errorf("%w: %q", domain.ErrUnknownRound, round)
	}
}

// submissions returns the peer submissions visible in the round's prompt,
// in first-appearance order.
func (p profile) submissions(promptText string) []domain.AgentSubmission {
	return tags.Submissions(tags.Before(promptText, p.cutoff))
}

// byID indexes submissions by agent id.
func byID(subs []domain.AgentSubmission) map[string]string {
	m := make(map[string]string, len(subs))
	for _, s := range subs {
		m[s.ID] = s.Text
	}
	return m
}

// checkBatch enforces the input limits shared by every scorer.
func checkBatch(batch domain.Batch) error {
	if n := batch.Len(); n > MaxCompletions {
		return fmt.Errorf("%w: %d exceeds limit of %d", ErrBatchTooLarge, n, MaxCompletions)
	}
	if n := len(batch.PromptText()); n > MaxStringLength {
		return fmt.Errorf("%w: prompt is %d bytes, limit %d", ErrTextTooLong, n, MaxStringLength)
	}
	for i, r := range batch.Responses() {
		if len(r) > MaxStringLength {
			return fmt.Errorf("%w: completion %d is %d bytes, limit %d", ErrTextTooLong, i, len(r), MaxStringLength)
		}
	}
	return nil
}

// decodeConfig overlays a flat configuration map onto cfg, which should
// already hold defaults.
func decodeConfig(config map[string]any, cfg any) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// firstOr returns the first element of values or fallback when empty.
func firstOr(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}
