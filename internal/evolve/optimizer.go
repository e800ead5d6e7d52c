package evolve

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

type Request struct {
	RunId     string
	Available []string
	Seeds     []string
	Config    domain.OptimizerConfig

	// Rand drives every random choice of the run. A randomly seeded source is
	// used when nil.
	Rand *rand.Rand
}

type Result struct {
	Best        []domain.Individual
	Generations int
	Cancelled   bool
}

type Optimizer struct {
	Oracle   Oracle
	Recorder Recorder
	Now      func() time.Time
}

// Run evolves a population for the configured number of generations and
// returns the fittest combinations of the final population. A cancelled
// context stops the run at the next generation boundary; the best individuals
// of the last fully evaluated generation are returned without error.
func (o *Optimizer) Run(ctx context.Context, req Request) (Result, error) {
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	available := dedupe(req.Available)
	if len(available) < cfg.TargetModuleCount {
		return Result{}, fmt.Errorf("%w: have %d, need %d", ErrInsufficientModules, len(available), cfg.TargetModuleCount)
	}

	r := req.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	pop := generatePopulation(r, available, req.Seeds, cfg)
	var evaluated []domain.Individual
	result := Result{}

	for gen := 0; gen < cfg.Generations; gen++ {
		if ctx.Err() != nil {
			return o.cancelled(req.RunId, result, evaluated, pop, cfg), nil
		}

		o.evaluate(ctx, req.RunId, pop, cfg.Workers)
		if ctx.Err() != nil {
			return o.cancelled(req.RunId, result, evaluated, pop, cfg), nil
		}
		evaluated = pop

		o.record(ctx, req.RunId, gen, pop, cfg)

		pop = nextGeneration(r, pop, available, cfg)
		result.Generations = gen + 1
	}

	if ctx.Err() != nil {
		return o.cancelled(req.RunId, result, evaluated, pop, cfg), nil
	}

	o.evaluate(ctx, req.RunId, pop, cfg.Workers)
	if ctx.Err() != nil {
		return o.cancelled(req.RunId, result, evaluated, pop, cfg), nil
	}

	result.Best = topK(pop, cfg.TopK)
	return result, nil
}

func (o *Optimizer) cancelled(runId string, result Result, evaluated, pop []domain.Individual, cfg domain.OptimizerConfig) Result {
	slog.Info("optimizer run cancelled", "run_id", runId, "generations", result.Generations)

	if evaluated == nil {
		evaluated = pop
	}
	result.Best = topK(evaluated, cfg.TopK)
	result.Cancelled = true
	return result
}

func (o *Optimizer) record(ctx context.Context, runId string, gen int, pop []domain.Individual, cfg domain.OptimizerConfig) {
	best, avg := stats(pop)
	slog.Info("generation evaluated", "run_id", runId, "generation", gen, "best_fitness", best, "average_fitness", avg)

	if o.Recorder == nil {
		return
	}

	now := time.Now
	if o.Now != nil {
		now = o.Now
	}

	err := o.Recorder.Insert(ctx, domain.GenerationRecord{
		Id:             uuid.NewString(),
		RunId:          runId,
		Generation:     gen,
		PopulationSize: len(pop),
		BestFitness:    best,
		AverageFitness: avg,
		MutationRate:   cfg.MutationRate,
		CrossoverRate:  cfg.CrossoverRate,
		CreatedAt:      now(),
	})

	if err != nil {
		slog.Error(fmt.Sprintf("Error occured: recording generation %d: %s", gen, err.Error()), "run_id", runId)
	}
}

func stats(pop []domain.Individual) (best, avg float64) {
	if len(pop) == 0 {
		return 0, 0
	}

	var sum float64
	best = pop[0].Fitness
	for _, ind := range pop {
		sum += ind.Fitness
		best = max(best, ind.Fitness)
	}
	return best, sum / float64(len(pop))
}

func topK(pop []domain.Individual, k int) []domain.Individual {
	sorted := byFitness(pop)
	if k > len(sorted) {
		k = len(sorted)
	}

	out := make([]domain.Individual, k)
	for i := range out {
		out[i] = sorted[i].Clone()
	}
	return out
}
