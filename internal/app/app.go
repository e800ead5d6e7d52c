package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/evolve"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/persistence"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/registry"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/rescore"
)

type ModuleRepo interface {
	Read(ctx context.Context, filter persistence.ModuleReadFilter) ([]domain.Module, error)
}

type RunRepo interface {
	Insert(ctx context.Context, run domain.OptimizationRun) error
	Update(ctx context.Context, id string, state string) error
}

type GenerationReader interface {
	Read(ctx context.Context, runId string) ([]domain.GenerationRecord, error)
}

type Optimizer interface {
	Run(ctx context.Context, req evolve.Request) (evolve.Result, error)
}

type Scorer interface {
	Score(ctx context.Context, moduleIds []string) (domain.Scores, error)
}

type Rescorer interface {
	Run(ctx context.Context) (rescore.Summary, error)
}

type Analytics interface {
	Capture(ctx context.Context, eventType string, distinctId string, props map[string]any) error
}

// App holds the service dependencies. RunRepo, Generations and Analytics
// are optional.
type App struct {
	ModuleRepo  ModuleRepo
	RunRepo     RunRepo
	Generations GenerationReader
	Optimizer   Optimizer
	Scorer      Scorer
	Rescorer    Rescorer
	Analytics   Analytics
	Registry    *registry.Registry
	Config      Config
}

func (a *App) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("POST /optimize", AppHandler(a.optimize))
	mux.Handle("POST /score", AppHandler(a.score))
	mux.Handle("POST /runs/{id}/cancel", AppHandler(a.cancelRun))
	mux.Handle("GET /runs/{id}/generations", AppHandler(a.runGenerations))
	mux.Handle("POST /ideas/rescore", AppHandler(a.rescoreIdeas))
	mux.Handle("GET /healthz", AppHandler(a.health))

	return mux
}

// Start serves until ctx is done, then cancels in-flight runs and shuts the
// server down.
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", a.Config.Port),
		Handler:           a.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	maxAge := a.Config.MaxRunAge
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.Registry.Run(sweepCtx, time.Minute, maxAge)

	errCh := make(chan error, 1)
	go func() {
		slog.Info(fmt.Sprintf("App running on %s...", a.Config.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	if n := a.Registry.Drain(); n > 0 {
		slog.Info("cancelled in-flight runs", "count", n)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
