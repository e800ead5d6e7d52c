package evolve

import (
	"math/rand/v2"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

const seedProbability = 0.3

func generatePopulation(r *rand.Rand, available []string, seeds []string, cfg domain.OptimizerConfig) []domain.Individual {
	seeds = dedupe(seeds)
	if len(seeds) > cfg.TargetModuleCount {
		seeds = seeds[:cfg.TargetModuleCount]
	}

	seedSet := toSet(seeds)
	nonSeed := make([]string, 0, len(available))
	for _, id := range available {
		if _, ok := seedSet[id]; !ok {
			nonSeed = append(nonSeed, id)
		}
	}

	pop := make([]domain.Individual, cfg.PopulationSize)
	for i := range pop {
		var modules []string
		if len(seeds) > 0 && r.Float64() < seedProbability {
			modules = append(append(modules, seeds...), sample(r, nonSeed, cfg.TargetModuleCount-len(seeds))...)
		} else {
			modules = sample(r, available, cfg.TargetModuleCount)
		}
		pop[i] = domain.Individual{Modules: modules}
	}

	return pop
}

// sample draws up to k distinct elements of ids uniformly at random.
func sample(r *rand.Rand, ids []string, k int) []string {
	if k > len(ids) {
		k = len(ids)
	}
	if k <= 0 {
		return nil
	}

	out := make([]string, k)
	for i, j := range r.Perm(len(ids))[:k] {
		out[i] = ids[j]
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
