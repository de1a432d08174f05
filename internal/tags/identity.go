package tags

import (
	"strings"

	"github.com/ahrav/go-tally/internal/domain"
)

// Fixed phrases of the round prompts.
const (
	// SaidSeparator follows an agent's id and precedes its submission.
	SaidSeparator = " said \n"

	// QuestionAnchor precedes the restated problem statement.
	QuestionAnchor = "The question we were given is: "

	// SuggestedAnchor follows the restated problem statement.
	SuggestedAnchor = "  \n\nThe following answers to this question were suggested:"

	// FeedbackAnchor separates the submissions from the critique feedback
	// in final round prompts.
	FeedbackAnchor = "  \nAfter comparing these answers, the following feedback was given about which answer is best: \n"
)

// CandidateIDs returns every agent identifier declared in the prompt, in
// document order with duplicates retained.
func CandidateIDs(promptText string) []string {
	return ExtractAll(promptText, Student)
}

// Submissions recovers the agent submissions embedded in the prompt. A
// repeated id keeps its first position and its last-seen text. Blocks
// without a closed id or without the said separator are skipped.
func Submissions(promptText string) []domain.AgentSubmission {
	fragments := strings.Split(promptText, Student.Open())
	subs := make([]domain.AgentSubmission, 0, len(fragments)-1)
	index := make(map[string]int, len(fragments)-1)

	for _, frag := range fragments[1:] {
		j := strings.Index(frag, Student.Close())
		if j < 0 {
			continue
		}
		id := strings.TrimSpace(frag[:j])
		rest := frag[j+len(Student.Close()):]

		k := strings.Index(rest, SaidSeparator)
		if k < 0 {
			continue
		}
		text := strings.TrimSpace(rest[k+len(SaidSeparator):])

		if pos, seen := index[id]; seen {
			subs[pos].Text = text
			continue
		}
		index[id] = len(subs)
		subs = append(subs, domain.AgentSubmission{ID: id, Text: text})
	}
	return subs
}

// SubmissionMap returns the prompt's submissions keyed by agent id.
func SubmissionMap(promptText string) map[string]string {
	subs := Submissions(promptText)
	m := make(map[string]string, len(subs))
	for _, s := range subs {
		m[s.ID] = s.Text
	}
	return m
}

// OriginalQuestion returns the restated problem statement bracketed by
// QuestionAnchor and SuggestedAnchor, or "" if either anchor is absent.
func OriginalQuestion(promptText string) string {
	i := strings.Index(promptText, SuggestedAnchor)
	if i < 0 {
		return ""
	}
	before := promptText[:i]
	j := strings.Index(before, QuestionAnchor)
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(before[j+len(QuestionAnchor):])
}

// Before returns the text preceding the first occurrence of anchor, or
// the whole text when the anchor is absent or empty.
func Before(text, anchor string) string {
	if anchor == "" {
		return text
	}
	if i := strings.Index(text, anchor); i >= 0 {
		return text[:i]
	}
	return text
}
