package scorers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tally/internal/domain"
)

func TestQuestionSimilarityScorer_Similarity(t *testing.T) {
	sequence, err := NewQuestionSimilarityScorer(ComponentQuestionSimilarity, domain.RoundFinal, DefaultQuestionSimilarityConfig())
	require.NoError(t, err)
	edit, err := NewQuestionSimilarityScorer(ComponentQuestionSimilarity, domain.RoundFinal,
		QuestionSimilarityConfig{Weight: 1, Algorithm: AlgorithmLevenshtein})
	require.NoError(t, err)

	tests := []struct {
		name      string
		scorer    *QuestionSimilarityScorer
		recreated string
		original  string
		want      float64
	}{
		{name: "identical", scorer: sequence, recreated: "What is 5+5?", original: "What is 5+5?", want: 1},
		{name: "shifted overlap", scorer: sequence, recreated: "abcd", original: "bcde", want: 0.75},
		{name: "disjoint", scorer: sequence, recreated: "abc", original: "xyz", want: 0},
		{name: "empty recreation", scorer: sequence, recreated: "", original: "What is 5+5?", want: 0},
		{name: "empty original", scorer: sequence, recreated: "What?", original: "", want: 0},
		{name: "unicode runes", scorer: sequence, recreated: "café", original: "cafe", want: 0.75},
		{name: "edit distance one", scorer: edit, recreated: "What is 5+6?", original: "What is 5+5?", want: 1 - 1.0/12},
		{name: "edit empty recreation", scorer: edit, recreated: "", original: "q", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.scorer.Similarity(tt.recreated, tt.original)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestQuestionSimilarityScorer_Score(t *testing.T) {
	scorer, err := NewQuestionSimilarityScorer(ComponentQuestionSimilarity, domain.RoundFinal, DefaultQuestionSimilarityConfig())
	require.NoError(t, err)

	question := "Natalia sold clips to 48 of her friends. How many clips did she sell?"
	batch := domain.NewBatch(roundPrompt(question, nil), []string{
		finalCompletion("A1", question, "48"),
		finalCompletion("A1", "", "48"),
		"no question tag",
	}, "48")

	got, err := scorer.Score(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0}, got)
}

func TestQuestionSimilarityScorer_MissingAnchors(t *testing.T) {
	scorer, err := NewQuestionSimilarityScorer(ComponentQuestionSimilarity, domain.RoundFinal, DefaultQuestionSimilarityConfig())
	require.NoError(t, err)

	got, err := scorer.Score(context.Background(),
		domain.NewBatch("no anchors here", []string{finalCompletion("A1", "What?", "1")}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, got)
}

func TestNewQuestionSimilarityFromConfig(t *testing.T) {
	scorer, err := NewQuestionSimilarityFromConfig(ComponentQuestionSimilarity, domain.RoundFinal,
		map[string]any{"algorithm": "levenshtein", "weight": 0.5})
	require.NoError(t, err)
	assert.Equal(t, QuestionSimilarityConfig{Weight: 0.5, Algorithm: AlgorithmLevenshtein},
		scorer.(*QuestionSimilarityScorer).config)

	_, err = NewQuestionSimilarityFromConfig(ComponentQuestionSimilarity, domain.RoundFinal,
		map[string]any{"algorithm": "jaccard"})
	assert.Error(t, err)

	_, err = NewQuestionSimilarityFromConfig(ComponentQuestionSimilarity, domain.Round("x"), nil)
	assert.ErrorIs(t, err, domain.ErrUnknownRound)
}
