package application

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ahrav/go-tally/infrastructure/scorers"
	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.ScorerRegistry = (*DefaultScorerRegistry)(nil)

// DefaultScorerRegistry implements the ScorerRegistry interface, creating
// reward components by name from flat configuration maps. It supports
// registering custom factories at runtime.
type DefaultScorerRegistry struct {
	// factories maps component names to their factory functions.
	factories map[string]ports.ScorerFactory
	// mu protects concurrent access to the factories map.
	mu sync.RWMutex
}

// NewDefaultScorerRegistry creates a registry with every built-in reward
// component registered.
func NewDefaultScorerRegistry() *DefaultScorerRegistry {
	registry := &DefaultScorerRegistry{
		factories: make(map[string]ports.ScorerFactory),
	}
	registry.registerBuiltinFactories()
	return registry
}

// registerBuiltinFactories registers the components shipped with the engine.
func (r *DefaultScorerRegistry) registerBuiltinFactories() {
	r.factories[scorers.ComponentProperID] = scorers.NewProperIDFromConfig
	r.factories[scorers.ComponentCorrectness] = scorers.NewCorrectnessFromConfig
	r.factories[scorers.ComponentConsensusCorrectness] = scorers.NewCorrectnessFromConfig
	r.factories[scorers.ComponentConsensus] = scorers.NewConsensusFromConfig
	r.factories[scorers.ComponentQuestionSimilarity] = scorers.NewQuestionSimilarityFromConfig
	r.factories[scorers.ComponentFinalCorrectness] = scorers.NewFinalAnswerFromConfig
	r.factories[scorers.ComponentStrictFormat] = scorers.NewStrictFormatFromConfig
	r.factories[scorers.ComponentSoftFormat] = scorers.NewSoftFormatFromConfig
	r.factories[scorers.ComponentTagPresence] = scorers.NewTagPresenceFromConfig
}

// CreateScorer builds the named component for round.
func (r *DefaultScorerRegistry) CreateScorer(
	name string,
	round domain.Round,
	config map[string]any,
) (ports.Scorer, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ports.ErrUnsupportedComponent, name)
	}

	if config == nil {
		config = make(map[string]any)
	}

	scorer, err := factory(name, round, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create component %s for round %s: %w", name, round, err)
	}

	return scorer, nil
}

// RegisterScorerFactory registers a factory for a component name, replacing
// any previous factory.
func (r *DefaultScorerRegistry) RegisterScorerFactory(
	name string,
	factory ports.ScorerFactory,
) error {
	if name == "" {
		return fmt.Errorf("component name cannot be empty")
	}

	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = factory
	return nil
}

// SupportedComponents returns every registered component name, sorted.
func (r *DefaultScorerRegistry) SupportedComponents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// BuildPipeline creates the scorers of a round in configured order.
func BuildPipeline(registry ports.ScorerRegistry, round domain.Round, cfg RoundConfig) ([]ports.Scorer, error) {
	if !round.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRound, round)
	}

	pipeline := make([]ports.Scorer, 0, len(cfg.Components))
	seen := make(map[string]struct{}, len(cfg.Components))
	for _, comp := range cfg.Components {
		if _, dup := seen[comp.Name]; dup {
			return nil, fmt.Errorf("%w: component %s listed twice in round %s",
				domain.ErrInvalidConfiguration, comp.Name, round)
		}
		seen[comp.Name] = struct{}{}

		scorer, err := registry.CreateScorer(comp.Name, round, copyParams(comp.Parameters))
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, scorer)
	}
	return pipeline, nil
}
