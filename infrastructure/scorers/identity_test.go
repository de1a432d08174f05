package scorers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tally/internal/domain"
)

func TestProperIDScorer_Score(t *testing.T) {
	subs := []domain.AgentSubmission{
		{ID: "A1", Text: reasoning("10")},
		{ID: "A2", Text: reasoning("12")},
	}
	scorer, err := NewProperIDScorer(ComponentProperID, domain.RoundCritique, DefaultWeightConfig())
	require.NoError(t, err)

	batch := domain.NewBatch(roundPrompt("q", subs), []string{
		critiqueCompletion("A2"),
		critiqueCompletion("A3"),
		critiqueCompletion("None"),
		"<identify>A1",
	}, "10")

	got, err := scorer.Score(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 0, 0}, got)

	fields := scorer.Details(batch)
	require.Len(t, fields, 3)
	assert.Equal(t, "[A1, A2]", fields[0].Value)
	assert.Equal(t, "A2", fields[1].Value)
	assert.Equal(t, "true", fields[2].Value)
}

func TestFinalAnswerScorer_Score(t *testing.T) {
	scorer, err := NewFinalAnswerScorer(ComponentFinalCorrectness, domain.RoundFinal, DefaultWeightConfig())
	require.NoError(t, err)

	completions := []string{
		finalCompletion("A1", "q", "10"),
		finalCompletion("A1", "q", "12"),
		"<answer>10</answer>",
		"10",
	}

	got, err := scorer.Score(context.Background(), domain.NewBatch("p", completions, "10"))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 2, 0}, got)

	// Only the first ground-truth value is used for every completion.
	got, err = scorer.Score(context.Background(), domain.NewBatch("p", completions, "10", "12"))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, 2, 0}, got)

	got, err = scorer.Score(context.Background(), domain.NewBatch("p", completions))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0}, got)
}

func TestIdentityScorers_FromConfig(t *testing.T) {
	proper, err := NewProperIDFromConfig(ComponentProperID, domain.RoundCritique, map[string]any{"weight": 1})
	require.NoError(t, err)
	assert.Equal(t, WeightConfig{Weight: 1}, proper.(*ProperIDScorer).config)

	final, err := NewFinalAnswerFromConfig(ComponentFinalCorrectness, domain.RoundFinal, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultWeightConfig(), final.(*FinalAnswerScorer).config)

	_, err = NewProperIDFromConfig(ComponentProperID, domain.Round("bogus"), nil)
	assert.ErrorIs(t, err, domain.ErrUnknownRound)

	_, err = NewFinalAnswerFromConfig(ComponentFinalCorrectness, domain.RoundFinal, map[string]any{"weight": "heavy"})
	assert.Error(t, err)
}
