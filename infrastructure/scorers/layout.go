package scorers

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ahrav/go-tally/internal/tags"
)

// Marker is one delimiter a well-formed completion contains exactly once.
type Marker struct {
	// Text is the literal delimiter, including its surrounding newlines.
	Text string
	// Tail, when set, is the delimiter after whose last occurrence any
	// remaining text is penalised.
	Tail string
	// Allowance is the number of trailing characters tolerated after Tail.
	Allowance int
}

// Layout describes the ordered tag sections a completion must contain and
// the checks derived from them.
type Layout struct {
	// Name identifies the layout in spans and samples.
	Name string
	// Sections lists the tags in the order they must appear.
	Sections []tags.Tag
	// Markers are the delimiters credited by TagPresence.
	Markers []Marker

	strict *regexp.Regexp
	soft   *regexp.Regexp
}

// Layouts for each kind of text the engine scores.
var (
	// CritiqueLayout is the structure of a critique round completion.
	CritiqueLayout = NewLayout("critique", tags.Compare, tags.Explain, tags.Identify)

	// FinalLayout is the structure of a final round completion.
	FinalLayout = NewLayout("final",
		tags.SummarizeFeedback, tags.Majority, tags.Question, tags.Think, tags.Answer)

	// SubmissionLayout is the reasoning structure of a peer submission.
	SubmissionLayout = NewLayout("submission", tags.Think, tags.Answer)
)

// NewLayout builds a layout from its ordered sections. The strict pattern
// requires every section on its own lines and nothing else, anchored at
// both ends. The soft pattern only requires the sections in order,
// separated by optional whitespace, anywhere in the text. The last section
// is the answer section: trailing text after it is penalised.
func NewLayout(name string, sections ...tags.Tag) Layout {
	var strict, soft strings.Builder
	strict.WriteString(`\A`)
	soft.WriteString(`(?s)`)

	markers := make([]Marker, 0, 2*len(sections))
	for i, t := range sections {
		open, closing := regexp.QuoteMeta(t.Open()), regexp.QuoteMeta(t.Close())
		strict.WriteString(open + `\n.*?\n` + closing + `\n`)
		if i > 0 {
			soft.WriteString(`\s*`)
		}
		soft.WriteString(open + `.*?` + closing)

		if i < len(sections)-1 {
			markers = append(markers,
				Marker{Text: t.Open() + "\n"},
				Marker{Text: "\n" + t.Close() + "\n"},
			)
			continue
		}
		markers = append(markers,
			Marker{Text: "\n" + t.Open() + "\n", Tail: "\n" + t.Close() + "\n"},
			Marker{Text: "\n" + t.Close(), Tail: "\n" + t.Close(), Allowance: 1},
		)
	}
	strict.WriteString(`\z`)

	return Layout{
		Name:     name,
		Sections: sections,
		Markers:  markers,
		strict:   regexp.MustCompile(strict.String()),
		soft:     regexp.MustCompile(soft.String()),
	}
}

// StrictMatch reports whether text is exactly the layout's sections, each
// delimiter on its own line, followed by a single newline.
func (l Layout) StrictMatch(text string) bool { return l.strict.MatchString(text) }

// SoftMatch reports whether the layout's sections appear in order anywhere
// in text. StrictMatch implies SoftMatch.
func (l Layout) SoftMatch(text string) bool { return l.soft.MatchString(text) }

// MaxTagPresence is the ceiling TagPresence can reach for a given credit.
func (l Layout) MaxTagPresence(credit float64) float64 {
	return float64(len(l.Markers)) * credit
}

// TagPresence awards credit for every marker present exactly once and
// subtracts penalty per character of text trailing the answer section.
// Characters are counted as runes. A missing tail delimiter costs nothing.
func (l Layout) TagPresence(text string, credit, penalty float64) float64 {
	score := 0.0
	for _, m := range l.Markers {
		if strings.Count(text, m.Text) != 1 {
			continue
		}
		score += credit
		if m.Tail == "" {
			continue
		}
		i := strings.LastIndex(text, m.Tail)
		if i < 0 {
			continue
		}
		if n := utf8.RuneCountInString(text[i+len(m.Tail):]) - m.Allowance; n > 0 {
			score -= float64(n) * penalty
		}
	}
	return score
}
