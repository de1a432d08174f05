package scorers

import (
	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/testutils"
)

var (
	reasoning          = testutils.Reasoning
	critiqueCompletion = testutils.CritiqueCompletion
	finalCompletion    = testutils.FinalCompletion
)

func roundPrompt(question string, subs []domain.AgentSubmission, votes ...string) string {
	return testutils.DebatePrompt(question, subs, votes...)
}
