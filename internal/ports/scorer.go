// Package ports defines the core interfaces that form the contract between
// the domain/application layers and the infrastructure layer.
// These interfaces enable dependency inversion and make the system testable.
package ports

import (
	"context"

	"github.com/ahrav/go-tally/internal/domain"
)

// Scorer computes one named reward component for a batch of completions.
// Scorers are stateless and safe for concurrent use.
type Scorer interface {
	// Name returns the reward component this scorer produces.
	Name() string

	// Score returns one value per completion in the batch. Implementations
	// must return exactly batch.Len() values whenever err is nil; any
	// other outcome is reported as an error rather than a short slice.
	Score(ctx context.Context, batch domain.Batch) ([]float64, error)

	// Validate checks that the scorer is properly configured.
	Validate() error
}

// SampleDetailer is implemented by scorers that can explain their decision
// for the first completion of a batch in a diagnostic sample.
type SampleDetailer interface {
	// Details returns labelled values describing how the first completion
	// was scored.
	Details(batch domain.Batch) []SampleField
}

// ScorerFactory builds the named Scorer for a round from a flat
// configuration map.
type ScorerFactory func(name string, round domain.Round, config map[string]any) (Scorer, error)

// ScorerRegistry creates scorers by component name.
type ScorerRegistry interface {
	// CreateScorer builds the named component for round.
	CreateScorer(name string, round domain.Round, config map[string]any) (Scorer, error)

	// RegisterScorerFactory adds or replaces the factory for name.
	RegisterScorerFactory(name string, factory ScorerFactory) error

	// SupportedComponents lists registered component names in sorted order.
	SupportedComponents() []string
}
