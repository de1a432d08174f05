package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgmax(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		wantIdx int
		wantOK  bool
	}{
		{name: "empty", values: nil, wantIdx: 0, wantOK: false},
		{name: "single", values: []float64{0.3}, wantIdx: 0, wantOK: true},
		{name: "clear winner", values: []float64{0.1, 2.5, 1.0}, wantIdx: 1, wantOK: true},
		{name: "tie resolves to first", values: []float64{1.0, 3.0, 3.0, 0}, wantIdx: 1, wantOK: true},
		{name: "all equal", values: []float64{0, 0, 0}, wantIdx: 0, wantOK: true},
		{name: "negative values", values: []float64{-3, -1, -2}, wantIdx: 1, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, ok := Argmax(tt.values)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantIdx, idx)
		})
	}
}

func TestTallyMajority(t *testing.T) {
	tests := []struct {
		name    string
		choices []string
		want    Majority
	}{
		{name: "no votes", choices: []string{}, want: Majority{}},
		{name: "single winner", choices: []string{"a", "a", "b"}, want: Majority{"a"}},
		{name: "two way tie keeps both", choices: []string{"a", "b"}, want: Majority{"a", "b"}},
		{name: "tie in first appearance order", choices: []string{"c", "b", "b", "c", "a"}, want: Majority{"c", "b"}},
		{name: "empty votes ignored", choices: []string{"", "", "", "x"}, want: Majority{"x"}},
		{name: "whitespace votes ignored", choices: []string{"  ", "\n"}, want: Majority{}},
		{name: "all empty", choices: []string{"", ""}, want: Majority{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TallyMajority(tt.choices)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMajority_Contains(t *testing.T) {
	m := TallyMajority([]string{"Student #1", "Student #2", "Student #1"})

	assert.True(t, m.Contains("Student #1"))
	assert.False(t, m.Contains("Student #2"))
	assert.False(t, m.Contains(""), "empty choice is never in the majority")
}
