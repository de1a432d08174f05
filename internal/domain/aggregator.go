package domain

import "strings"

// Argmax returns the index of the largest value. Ties resolve to the first
// index attaining the maximum. ok is false for an empty slice.
func Argmax(values []float64) (idx int, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	for i := 1; i < len(values); i++ {
		if values[i] > values[idx] {
			idx = i
		}
	}
	return idx, true
}

// Majority is the set of choices tied for the highest vote count, in order
// of first appearance among the votes.
type Majority []string

// Contains reports whether choice is a member of the majority set.
func (m Majority) Contains(choice string) bool {
	for _, c := range m {
		if c == choice {
			return true
		}
	}
	return false
}

// TallyMajority counts non-empty choices and returns every choice whose
// count equals the maximum. Ties are inclusive. An input without any
// non-empty choice yields an empty majority.
func TallyMajority(choices []string) Majority {
	counts := make(map[string]int, len(choices))
	order := make([]string, 0, len(choices))
	maxVotes := 0
	for _, c := range choices {
		if strings.TrimSpace(c) == "" {
			continue
		}
		if _, seen := counts[c]; !seen {
			order = append(order, c)
		}
		counts[c]++
		if counts[c] > maxVotes {
			maxVotes = counts[c]
		}
	}

	majority := make(Majority, 0, len(order))
	for _, c := range order {
		if counts[c] == maxVotes {
			majority = append(majority, c)
		}
	}
	return majority
}
