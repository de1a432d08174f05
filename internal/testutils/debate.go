// Package testutils provides fixtures for testing, including debate prompt
// builders and a synthetic dataset generator. These helpers are intended
// for internal use within the project's test suites and are not part of
// the public API.
package testutils

import (
	"strconv"
	"strings"

	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/tags"
)

// Reasoning is a well-formed peer submission whose answer is answer.
func Reasoning(answer string) string {
	return "<think>\nworking it out\n</think>\n<answer>\n" + answer + "\n</answer>\n"
}

// CritiqueCompletion is a strictly formatted critique round completion
// identifying choice.
func CritiqueCompletion(choice string) string {
	return "<compare>\nA1 and A2 disagree\n</compare>\n" +
		"<explain>\nA1 adds correctly\n</explain>\n" +
		"<identify>\n" + choice + "\n</identify>\n"
}

// FinalCompletion is a strictly formatted final round completion.
func FinalCompletion(choice, question, answer string) string {
	return "<summarize_feedback>\nmost critics chose A1\n</summarize_feedback>\n" +
		"<majority>\n" + choice + "\n</majority>\n" +
		"<question>\n" + question + "\n</question>\n" +
		"<think>\n5 doubled\n</think>\n" +
		"<answer>\n" + answer + "\n</answer>\n"
}

// DebatePrompt restates question, embeds the peer submissions and, when
// votes are given, appends one critic per vote after the feedback anchor.
func DebatePrompt(question string, subs []domain.AgentSubmission, votes ...string) string {
	var b strings.Builder
	b.WriteString(tags.QuestionAnchor + question + tags.SuggestedAnchor)
	for _, s := range subs {
		b.WriteString("  \n\n" + tags.Student.Open() + s.ID + tags.Student.Close() + tags.SaidSeparator + s.Text)
	}
	if len(votes) > 0 {
		b.WriteString(tags.FeedbackAnchor)
		for i, v := range votes {
			b.WriteString(tags.Student.Open() + "critic" + strconv.Itoa(i) + tags.Student.Close() + tags.SaidSeparator)
			b.WriteString(CritiqueCompletion(v) + "\n")
		}
	}
	return b.String()
}

// Submissions pairs ids with Reasoning submissions answering answers.
func Submissions(ids, answers []string) []domain.AgentSubmission {
	subs := make([]domain.AgentSubmission, len(ids))
	for i, id := range ids {
		subs[i] = domain.AgentSubmission{ID: id, Text: Reasoning(answers[i])}
	}
	return subs
}
