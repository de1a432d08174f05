// Package tags extracts delimiter-tagged sections from loosely formatted
// model output. Extraction never fails: a missing delimiter yields an
// absent value and an unclosed block is dropped.
package tags

import (
	"strings"
)

// Tag is the bare name of a delimiter pair, e.g. "answer" for
// <answer>...</answer>.
type Tag string

// Tag vocabulary shared by the debate rounds.
const (
	Student           Tag = "student"
	Identify          Tag = "identify"
	Compare           Tag = "compare"
	Explain           Tag = "explain"
	SummarizeFeedback Tag = "summarize_feedback"
	Majority          Tag = "majority"
	Question          Tag = "question"
	Think             Tag = "think"
	Answer            Tag = "answer"
)

// Open returns the opening delimiter.
func (t Tag) Open() string { return "<" + string(t) + ">" }

// Close returns the closing delimiter.
func (t Tag) Close() string { return "</" + string(t) + ">" }

// ExtractBetween returns the trimmed text between the first occurrence of
// startTag and the first occurrence of endTag after it. ok is false when
// either delimiter is missing or empty.
func ExtractBetween(text, startTag, endTag string) (string, bool) {
	if startTag == "" || endTag == "" {
		return "", false
	}
	i := strings.Index(text, startTag)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(startTag):]
	j := strings.Index(rest, endTag)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:j]), true
}

// Extract is ExtractBetween for a tag pair, returning "" when absent.
func Extract(text string, tag Tag) string {
	v, _ := ExtractBetween(text, tag.Open(), tag.Close())
	return v
}

// ExtractAllBlocks splits text on every startTag and keeps, for each
// fragment, the trimmed text before its first endTag. Fragments that are
// never closed are dropped.
func ExtractAllBlocks(text, startTag, endTag string) []string {
	if startTag == "" || endTag == "" {
		return []string{}
	}
	fragments := strings.Split(text, startTag)
	blocks := make([]string, 0, len(fragments)-1)
	for _, frag := range fragments[1:] {
		j := strings.Index(frag, endTag)
		if j < 0 {
			continue
		}
		blocks = append(blocks, strings.TrimSpace(frag[:j]))
	}
	return blocks
}

// ExtractAll is ExtractAllBlocks for a tag pair.
func ExtractAll(text string, tag Tag) []string {
	return ExtractAllBlocks(text, tag.Open(), tag.Close())
}
