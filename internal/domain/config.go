package domain

import (
	"errors"
	"fmt"
)

// OptimizerConfig holds the tunables of one optimizer run. The first five
// fields are accepted from callers; the rest are service-side settings.
// The Max fields bound what a caller may ask for.
type OptimizerConfig struct {
	PopulationSize    int     `json:"population_size" yaml:"population_size"`
	Generations       int     `json:"generations" yaml:"generations"`
	MutationRate      float64 `json:"mutation_rate" yaml:"mutation_rate"`
	CrossoverRate     float64 `json:"crossover_rate" yaml:"crossover_rate"`
	TargetModuleCount int     `json:"target_module_count" yaml:"target_module_count"`

	TournamentSize int     `json:"-" yaml:"tournament_size"`
	EliteRatio     float64 `json:"-" yaml:"elite_ratio"`
	TopK           int     `json:"-" yaml:"top_k"`
	Workers        int     `json:"-" yaml:"workers"`

	MaxPopulationSize    int `json:"-" yaml:"max_population_size"`
	MaxGenerations       int `json:"-" yaml:"max_generations"`
	MaxTargetModuleCount int `json:"-" yaml:"max_target_module_count"`
}

func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		PopulationSize:    20,
		Generations:       10,
		MutationRate:      0.1,
		CrossoverRate:     0.7,
		TargetModuleCount: 5,
		TournamentSize:    3,
		EliteRatio:        0.1,
		TopK:              5,
		Workers:           4,

		MaxPopulationSize:    200,
		MaxGenerations:       100,
		MaxTargetModuleCount: 20,
	}
}

var ErrInvalidConfig = errors.New("invalid optimizer config")

func (c OptimizerConfig) Validate() error {
	switch {
	case c.PopulationSize <= 0:
		return fmt.Errorf("%w: population_size must be positive", ErrInvalidConfig)
	case c.PopulationSize > c.MaxPopulationSize:
		return fmt.Errorf("%w: population_size must not exceed %d", ErrInvalidConfig, c.MaxPopulationSize)
	case c.Generations < 0:
		return fmt.Errorf("%w: generations must not be negative", ErrInvalidConfig)
	case c.Generations > c.MaxGenerations:
		return fmt.Errorf("%w: generations must not exceed %d", ErrInvalidConfig, c.MaxGenerations)
	case c.MutationRate < 0 || c.MutationRate > 1:
		return fmt.Errorf("%w: mutation_rate must be in [0,1]", ErrInvalidConfig)
	case c.CrossoverRate < 0 || c.CrossoverRate > 1:
		return fmt.Errorf("%w: crossover_rate must be in [0,1]", ErrInvalidConfig)
	case c.TargetModuleCount <= 0:
		return fmt.Errorf("%w: target_module_count must be positive", ErrInvalidConfig)
	case c.TargetModuleCount > c.MaxTargetModuleCount:
		return fmt.Errorf("%w: target_module_count must not exceed %d", ErrInvalidConfig, c.MaxTargetModuleCount)
	case c.TournamentSize <= 0:
		return fmt.Errorf("%w: tournament_size must be positive", ErrInvalidConfig)
	case c.EliteRatio < 0 || c.EliteRatio > 1:
		return fmt.Errorf("%w: elite_ratio must be in [0,1]", ErrInvalidConfig)
	case c.TopK <= 0:
		return fmt.Errorf("%w: top_k must be positive", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	return nil
}
