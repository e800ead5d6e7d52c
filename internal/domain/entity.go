package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	ModuleTypeProblem              = "problem"
	ModuleTypeSolution             = "solution"
	ModuleTypeTargetMarket         = "target_market"
	ModuleTypeBusinessModel        = "business_model"
	ModuleTypeCompetitiveAdvantage = "competitive_advantage"
	ModuleTypeRevenueModel         = "revenue_model"
	ModuleTypeGoToMarket           = "go_to_market"
	ModuleTypeTeam                 = "team"
)

var moduleTypes = map[string]struct{}{
	ModuleTypeProblem:              {},
	ModuleTypeSolution:             {},
	ModuleTypeTargetMarket:         {},
	ModuleTypeBusinessModel:        {},
	ModuleTypeCompetitiveAdvantage: {},
	ModuleTypeRevenueModel:         {},
	ModuleTypeGoToMarket:           {},
	ModuleTypeTeam:                 {},
}

// IsModuleType reports whether t belongs to the closed set of module types.
func IsModuleType(t string) bool {
	_, ok := moduleTypes[t]
	return ok
}

type Module struct {
	Id           string    `json:"id"`
	Type         string    `json:"module_type"`
	Content      string    `json:"content"`
	Embedding    []float64 `json:"embedding,omitempty"`
	UsageCount   int       `json:"usage_count"`
	QualityScore float64   `json:"quality_score"`
}

// Scores is the breakdown returned by the scoring oracle. Every value is in [0,5].
type Scores struct {
	NoveltyScore         float64 `json:"novelty_score"`
	ComplementarityScore float64 `json:"complementarity_score"`
	MarketabilityScore   float64 `json:"marketability_score"`
	OverallScore         float64 `json:"overall_score"`
}

type Individual struct {
	Modules []string `json:"modules"`
	Fitness float64  `json:"fitness"`
	Scores  *Scores  `json:"scores,omitempty"`
}

// Clone returns a deep copy so elites and parents never share module slices.
func (i Individual) Clone() Individual {
	c := Individual{Modules: append([]string(nil), i.Modules...), Fitness: i.Fitness}
	if i.Scores != nil {
		s := *i.Scores
		c.Scores = &s
	}
	return c
}

type GenerationRecord struct {
	Id             string    `json:"id"`
	RunId          string    `json:"run_id"`
	Generation     int       `json:"generation"`
	PopulationSize int       `json:"population_size"`
	BestFitness    float64   `json:"best_fitness"`
	AverageFitness float64   `json:"average_fitness"`
	MutationRate   float64   `json:"mutation_rate"`
	CrossoverRate  float64   `json:"crossover_rate"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	RunStatePending   = "pending"
	RunStateRunning   = "running"
	RunStateCompleted = "completed"
	RunStateCancelled = "cancelled"
	RunStateFailed    = "failed"
)

type OptimizationRun struct {
	Id          string          `json:"id"`
	State       string          `json:"state"`
	SeedModules []string        `json:"seed_modules"`
	Config      OptimizerConfig `json:"config"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Idea struct {
	Id          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	AIScore     *float64 `json:"ai_score"`
	AIAnalysis  string   `json:"ai_analysis"`
}

var ErrScoreOutOfRange = errors.New("score out of range")

// Validate checks that every component score lies in [0,5].
func (s Scores) Validate() error {
	for name, v := range map[string]float64{
		"novelty_score":         s.NoveltyScore,
		"complementarity_score": s.ComplementarityScore,
		"marketability_score":   s.MarketabilityScore,
		"overall_score":         s.OverallScore,
	} {
		if math.IsNaN(v) || v < 0 || v > 5 {
			return fmt.Errorf("%w: %s=%v", ErrScoreOutOfRange, name, v)
		}
	}
	return nil
}
