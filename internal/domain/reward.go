package domain

import (
	"fmt"
)

// Component is one named reward signal with a value per completion.
type Component struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// RewardVector holds the ordered reward components of one batch. Every
// component has exactly Size values.
type RewardVector struct {
	size       int
	components []Component
}

// NewRewardVector creates an empty vector for a batch of n completions.
func NewRewardVector(n int) *RewardVector {
	return &RewardVector{size: n}
}

// Size returns the number of completions the vector covers.
func (rv *RewardVector) Size() int { return rv.size }

// Add appends a component. It rejects values whose length differs from the
// batch size so a mis-sized scorer can never leak into the total.
func (rv *RewardVector) Add(name string, values []float64) error {
	if len(values) != rv.size {
		return fmt.Errorf("%w: component %s has %d values, want %d",
			ErrLengthMismatch, name, len(values), rv.size)
	}
	rv.components = append(rv.components, Component{
		Name:   name,
		Values: append([]float64(nil), values...),
	})
	return nil
}

// Components returns a copy of the components in insertion order.
func (rv *RewardVector) Components() []Component {
	out := make([]Component, len(rv.components))
	for i, c := range rv.components {
		out[i] = Component{Name: c.Name, Values: append([]float64(nil), c.Values...)}
	}
	return out
}

// Component returns the values of the named component.
func (rv *RewardVector) Component(name string) ([]float64, bool) {
	for _, c := range rv.components {
		if c.Name == name {
			return append([]float64(nil), c.Values...), true
		}
	}
	return nil, false
}

// Total sums the components element-wise.
func (rv *RewardVector) Total() []float64 {
	total := make([]float64, rv.size)
	for _, c := range rv.components {
		for i, v := range c.Values {
			total[i] += v
		}
	}
	return total
}

// Zeros returns an all-zero vector of length n.
func Zeros(n int) []float64 {
	if n < 0 {
		n = 0
	}
	return make([]float64, n)
}
