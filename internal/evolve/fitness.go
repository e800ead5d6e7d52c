package evolve

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

// evaluate scores every individual in place on at most workers concurrent
// oracle calls. A failed call leaves the individual at fitness 0.
func (o *Optimizer) evaluate(ctx context.Context, runId string, pop []domain.Individual, workers int) {
	var g errgroup.Group
	g.SetLimit(workers)

	for i := range pop {
		g.Go(func() error {
			ind := &pop[i]

			scores, err := o.Oracle.Score(ctx, ind.Modules)
			if err == nil {
				err = scores.Validate()
			}
			if err != nil {
				ind.Fitness = 0
				ind.Scores = nil
				slog.Warn(fmt.Sprintf("Error occured: scoring %v: %s", ind.Modules, err.Error()), "run_id", runId)
				return nil
			}

			ind.Fitness = scores.OverallScore
			ind.Scores = &scores
			return nil
		})
	}

	_ = g.Wait()
}
