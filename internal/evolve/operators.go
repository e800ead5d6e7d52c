package evolve

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

// tournament samples size distinct individuals and returns the fittest.
func tournament(r *rand.Rand, pop []domain.Individual, size int) domain.Individual {
	if size > len(pop) {
		size = len(pop)
	}

	best := -1
	for _, i := range r.Perm(len(pop))[:size] {
		if best < 0 || pop[i].Fitness > pop[best].Fitness {
			best = i
		}
	}
	return pop[best]
}

// crossover swaps the tails of both parents at one random point. Children
// lose duplicate ids and so may end up shorter than their parents.
func crossover(r *rand.Rand, p1, p2 domain.Individual) (domain.Individual, domain.Individual) {
	n := min(len(p1.Modules), len(p2.Modules))
	point := 0
	if n > 0 {
		point = r.IntN(n)
	}

	a := dedupe(concat(p1.Modules[:point], p2.Modules[point:]))
	b := dedupe(concat(p2.Modules[:point], p1.Modules[point:]))

	return domain.Individual{Modules: a}, domain.Individual{Modules: b}
}

func concat(head, tail []string) []string {
	out := make([]string, 0, len(head)+len(tail))
	return append(append(out, head...), tail...)
}

// mutate replaces one random gene with an available id the individual does
// not already carry. Nothing changes when no such id exists.
func mutate(r *rand.Rand, ind *domain.Individual, available []string) {
	if len(ind.Modules) == 0 {
		return
	}

	present := toSet(ind.Modules)
	candidates := make([]string, 0, len(available))
	for _, id := range available {
		if _, ok := present[id]; !ok {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return
	}

	ind.Modules[r.IntN(len(ind.Modules))] = candidates[r.IntN(len(candidates))]
	ind.Fitness = 0
	ind.Scores = nil
}

func eliteCount(size int, ratio float64) int {
	return int(math.Floor(float64(size)*ratio + 1e-9))
}

// byFitness returns a copy of pop sorted by descending fitness.
func byFitness(pop []domain.Individual) []domain.Individual {
	sorted := slices.Clone(pop)
	slices.SortStableFunc(sorted, func(a, b domain.Individual) int {
		return cmp.Compare(b.Fitness, a.Fitness)
	})
	return sorted
}

// nextGeneration breeds a replacement population from an evaluated one.
func nextGeneration(r *rand.Rand, pop []domain.Individual, available []string, cfg domain.OptimizerConfig) []domain.Individual {
	next := make([]domain.Individual, 0, len(pop))

	for _, elite := range byFitness(pop)[:eliteCount(len(pop), cfg.EliteRatio)] {
		next = append(next, elite.Clone())
	}

	for len(next) < len(pop) {
		p1 := tournament(r, pop, cfg.TournamentSize)
		p2 := tournament(r, pop, cfg.TournamentSize)

		var c1, c2 domain.Individual
		if r.Float64() < cfg.CrossoverRate {
			c1, c2 = crossover(r, p1, p2)
		} else {
			c1, c2 = p1.Clone(), p2.Clone()
		}

		if r.Float64() < cfg.MutationRate {
			mutate(r, &c1, available)
		}
		if r.Float64() < cfg.MutationRate {
			mutate(r, &c2, available)
		}

		next = append(next, c1)
		if len(next) < len(pop) {
			next = append(next, c2)
		}
	}

	return next
}
