package application

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tally/infrastructure/scorers"
	"github.com/ahrav/go-tally/internal/domain"
	"github.com/ahrav/go-tally/internal/ports"
)

// configValidate validates RewardConfig structures.
var configValidate = validator.New()

// RewardConfig is the complete scoring policy of the engine: which reward
// components run in each round, with which weights and inner constants,
// and how the winning completion is published.
type RewardConfig struct {
	// Version specifies the configuration schema version.
	Version string `yaml:"version" json:"version" validate:"required,semver"`
	// Selector controls what is published to node state after scoring.
	Selector domain.Selector `yaml:"selector" json:"selector" validate:"required,oneof=max rewards_only none"`
	// Critique lists the components of the critique round.
	Critique RoundConfig `yaml:"critique" json:"critique"`
	// Final lists the components of the final consensus round.
	Final RoundConfig `yaml:"final" json:"final"`
	// Sampling configures diagnostic sample logging.
	Sampling SamplingConfig `yaml:"sampling" json:"sampling"`
}

// RoundConfig lists a round's reward components in summation order.
type RoundConfig struct {
	Components []ComponentConfig `yaml:"components" json:"components" validate:"required,min=1,dive"`
}

// ComponentConfig names one reward component and its parameters. The
// parameters are decoded by the component's factory; keys it does not set
// keep the component's defaults.
type ComponentConfig struct {
	// Name is the registered component name.
	Name string `yaml:"name" json:"name" validate:"required,min=1,max=100"`
	// Parameters holds component-specific settings such as weight.
	Parameters map[string]any `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// SamplingConfig configures the best-effort diagnostic sample logger.
type SamplingConfig struct {
	// Enabled turns sample logging on.
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Probability is the chance that any one sample is written.
	Probability float64 `yaml:"probability" json:"probability" validate:"min=0,max=1"`
	// Dir is the root directory holding per-host sample directories.
	Dir string `yaml:"dir" json:"dir" validate:"required_if=Enabled true"`
	// PerSecond bounds sustained sample writes.
	PerSecond float64 `yaml:"per_second" json:"per_second" validate:"gte=0"`
	// Burst bounds sample writes in a burst.
	Burst int `yaml:"burst" json:"burst" validate:"gte=0"`
}

// DefaultRewardConfig returns the standard scoring policy.
func DefaultRewardConfig() RewardConfig {
	correctness := map[string]any{
		"weight":        2.0,
		"exact_credit":  1.0,
		"digit_credit":  0.5,
		"strict_credit": 0.5,
		"soft_credit":   0.5,
		"tag_credit":    0.125,
		"tail_penalty":  0.001,
		"none_bonus":    10.0,
	}
	format := func(weight float64) map[string]any { return map[string]any{"weight": weight} }
	presence := map[string]any{"weight": 1.0, "tag_credit": 0.125, "tail_penalty": 0.001}

	return RewardConfig{
		Version:  "1.0.0",
		Selector: domain.SelectMax,
		Critique: RoundConfig{Components: []ComponentConfig{
			{Name: scorers.ComponentProperID, Parameters: format(2.0)},
			{Name: scorers.ComponentCorrectness, Parameters: copyParams(correctness)},
			{Name: scorers.ComponentStrictFormat, Parameters: format(0.5)},
			{Name: scorers.ComponentSoftFormat, Parameters: format(0.5)},
			{Name: scorers.ComponentTagPresence, Parameters: copyParams(presence)},
		}},
		Final: RoundConfig{Components: []ComponentConfig{
			{Name: scorers.ComponentConsensus, Parameters: format(2.0)},
			{Name: scorers.ComponentConsensusCorrectness, Parameters: copyParams(correctness)},
			{Name: scorers.ComponentQuestionSimilarity, Parameters: map[string]any{"weight": 1.0, "algorithm": scorers.AlgorithmSequence}},
			{Name: scorers.ComponentFinalCorrectness, Parameters: format(2.0)},
			{Name: scorers.ComponentStrictFormat, Parameters: format(0.5)},
			{Name: scorers.ComponentSoftFormat, Parameters: format(0.5)},
			{Name: scorers.ComponentTagPresence, Parameters: copyParams(presence)},
		}},
		Sampling: SamplingConfig{
			Enabled:     false,
			Probability: 0.01,
			Dir:         "model_output_samples",
			PerSecond:   5,
			Burst:       10,
		},
	}
}

func copyParams(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Round returns the configuration of round.
func (c RewardConfig) Round(round domain.Round) (RoundConfig, error) {
	switch round {
	case domain.RoundCritique:
		return c.Critique, nil
	case domain.RoundFinal:
		return c.Final, nil
	default:
		return RoundConfig{}, fmt.Errorf("%w: %q", domain.ErrUnknownRound, round)
	}
}

// Validate checks struct constraints and that every component name is
// registered.
func (c RewardConfig) Validate(registry ports.ScorerRegistry) error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}
	if registry == nil {
		return nil
	}

	known := make(map[string]struct{})
	for _, name := range registry.SupportedComponents() {
		known[name] = struct{}{}
	}
	verr := domain.NewValidationError("reward config")
	for _, rc := range []struct {
		round domain.Round
		cfg   RoundConfig
	}{{domain.RoundCritique, c.Critique}, {domain.RoundFinal, c.Final}} {
		for _, comp := range rc.cfg.Components {
			if _, ok := known[comp.Name]; !ok {
				verr.AddError(fmt.Sprintf("%s: unknown component %q", rc.round, comp.Name))
			}
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// ParseRewardConfig overlays YAML data onto the default configuration. A
// round whose components are listed replaces the default list entirely.
func ParseRewardConfig(data []byte) (RewardConfig, error) {
	cfg := DefaultRewardConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RewardConfig{}, ports.NewConfigError("yaml", err)
	}
	if err := cfg.Validate(nil); err != nil {
		return RewardConfig{}, err
	}
	return cfg, nil
}

// LoadRewardConfig reads and parses the YAML configuration at path. A
// missing file matches ports.ErrConfigNotFound.
func LoadRewardConfig(path string) (RewardConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		err = fmt.Errorf("%w: %w", ports.ErrConfigNotFound, err)
	}
	if err != nil {
		return RewardConfig{}, ports.NewConfigError(path, err)
	}
	return ParseRewardConfig(data)
}
