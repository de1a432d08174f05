package scorers

import (
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
)

func TestLayout_StructuralMatch(t *testing.T) {
	tests := []struct {
		name       string
		layout     Layout
		text       string
		wantStrict bool
		wantSoft   bool
	}{
		{
			name:       "well formed critique",
			layout:     CritiqueLayout,
			text:       critiqueCompletion("A1"),
			wantStrict: true,
			wantSoft:   true,
		},
		{
			name:       "critique missing trailing newline",
			layout:     CritiqueLayout,
			text:       "<compare>\nx\n</compare>\n<explain>\ny\n</explain>\n<identify>\nA1\n</identify>",
			wantStrict: false,
			wantSoft:   true,
		},
		{
			name:       "critique with an extra trailing newline",
			layout:     CritiqueLayout,
			text:       critiqueCompletion("A1") + "\n",
			wantStrict: false,
			wantSoft:   true,
		},
		{
			name:       "critique with loose whitespace and preamble",
			layout:     CritiqueLayout,
			text:       "Sure!\n<compare> x </compare>\n\n  <explain>multi\nline</explain> <identify>A1</identify> done",
			wantStrict: false,
			wantSoft:   true,
		},
		{
			name:       "critique sections out of order",
			layout:     CritiqueLayout,
			text:       "<explain>\ny\n</explain>\n<compare>\nx\n</compare>\n<identify>\nA1\n</identify>\n",
			wantStrict: false,
			wantSoft:   false,
		},
		{
			name:       "critique with multi-line section body",
			layout:     CritiqueLayout,
			text:       "<compare>\nline one\nline two\n</compare>\n<explain>\ny\n</explain>\n<identify>\nA1\n</identify>\n",
			wantStrict: false,
			wantSoft:   true,
		},
		{
			name:       "well formed final",
			layout:     FinalLayout,
			text:       finalCompletion("A1", "What is 5 doubled?", "10"),
			wantStrict: true,
			wantSoft:   true,
		},
		{
			name:       "final missing question",
			layout:     FinalLayout,
			text:       "<summarize_feedback>\nf\n</summarize_feedback>\n<majority>\nA1\n</majority>\n<think>\nt\n</think>\n<answer>\n10\n</answer>\n",
			wantStrict: false,
			wantSoft:   false,
		},
		{
			name:       "well formed submission",
			layout:     SubmissionLayout,
			text:       reasoning("10"),
			wantStrict: true,
			wantSoft:   true,
		},
		{
			name:       "empty text",
			layout:     SubmissionLayout,
			text:       "",
			wantStrict: false,
			wantSoft:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStrict, tt.layout.StrictMatch(tt.text))
			assert.Equal(t, tt.wantSoft, tt.layout.SoftMatch(tt.text))
		})
	}
}

func TestLayout_StrictImpliesSoft(t *testing.T) {
	layouts := []Layout{CritiqueLayout, FinalLayout, SubmissionLayout}
	property := func(bodies []string, trailer string) bool {
		for _, l := range layouts {
			text := ""
			for i, section := range l.Sections {
				body := "x"
				if i < len(bodies) {
					body = bodies[i]
				}
				text += section.Open() + "\n" + body + "\n" + section.Close() + "\n"
			}
			for _, candidate := range []string{text, text + trailer, trailer + text} {
				if l.StrictMatch(candidate) && !l.SoftMatch(candidate) {
					return false
				}
			}
		}
		return true
	}
	assert.NoError(t, quick.Check(property, nil))
}

func TestLayout_Markers(t *testing.T) {
	assert.Len(t, CritiqueLayout.Markers, 6)
	assert.Len(t, FinalLayout.Markers, 10)
	assert.Len(t, SubmissionLayout.Markers, 4)

	assert.Equal(t, Marker{Text: "<compare>\n"}, CritiqueLayout.Markers[0])
	assert.Equal(t, Marker{Text: "\n<identify>\n", Tail: "\n</identify>\n"}, CritiqueLayout.Markers[4])
	assert.Equal(t, Marker{Text: "\n</identify>", Tail: "\n</identify>", Allowance: 1}, CritiqueLayout.Markers[5])
	assert.Equal(t, Marker{Text: "\n</answer>", Tail: "\n</answer>", Allowance: 1}, FinalLayout.Markers[9])
}

func TestLayout_TagPresence(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
		text   string
		want   float64
	}{
		{
			name:   "well formed critique reaches ceiling",
			layout: CritiqueLayout,
			text:   critiqueCompletion("A1"),
			want:   0.75,
		},
		{
			name:   "well formed final reaches ceiling",
			layout: FinalLayout,
			text:   finalCompletion("A1", "q", "10"),
			want:   1.25,
		},
		{
			name:   "trailing text is penalised per character",
			layout: CritiqueLayout,
			text:   critiqueCompletion("A1") + "xyz",
			want:   0.75 - 0.003 - 0.003,
		},
		{
			name:   "trailing runes count once each",
			layout: SubmissionLayout,
			text:   reasoning("10") + "é",
			want:   0.5 - 0.001 - 0.001,
		},
		{
			name:   "submission without trailing newline",
			layout: SubmissionLayout,
			text:   "<think>\n5\n</think>\n<answer>\n10\n</answer>",
			want:   0.5,
		},
		{
			name:   "duplicated marker earns nothing",
			layout: SubmissionLayout,
			text:   "<think>\na\n</think>\n<think>\nb\n</think>\n",
			want:   0,
		},
		{
			name:   "no markers",
			layout: FinalLayout,
			text:   "just an answer: 10",
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.layout.TagPresence(tt.text, 0.125, 0.001), 1e-9)
		})
	}
}

func TestLayout_TagPresenceMonotonic(t *testing.T) {
	// Each prefix of a well-formed critique holds at least as many markers
	// as the one before it.
	full := critiqueCompletion("A1")
	cuts := []int{0}
	for i := 1; i <= len(full); i++ {
		cuts = append(cuts, i)
	}

	best := CritiqueLayout.MaxTagPresence(0.125)
	prev := 0.0
	for _, cut := range cuts {
		score := CritiqueLayout.TagPresence(full[:cut], 0.125, 0)
		assert.GreaterOrEqual(t, score, prev, "prefix %d", cut)
		assert.LessOrEqual(t, score, best)
		prev = score
	}
	assert.InDelta(t, best, prev, 1e-9)
}
