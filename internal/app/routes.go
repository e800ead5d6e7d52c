package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/evolve"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/persistence"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/registry"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/rescore"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/scoring"
)

type optimizationReq struct {
	RunId             string          `json:"run_id"`
	SeedModules       []string        `json:"seed_modules"`
	TargetModuleTypes []string        `json:"target_module_types"`
	Config            json.RawMessage `json:"config"`
}

type optimizationResp struct {
	Success          bool                   `json:"success"`
	RunId            string                 `json:"run_id"`
	BestCombinations []domain.Individual    `json:"best_combinations"`
	Config           domain.OptimizerConfig `json:"config"`
	Generations      int                    `json:"generations_completed"`
	Cancelled        bool                   `json:"cancelled"`
}

type scoreReq struct {
	ModuleIds []string `json:"module_ids"`
}

type scoreResp struct {
	Success bool          `json:"success"`
	Scores  domain.Scores `json:"scores"`
}

type rescoreResp struct {
	Success bool            `json:"success"`
	Summary rescore.Summary `json:"summary"`
}

type generationsResp struct {
	Success     bool                      `json:"success"`
	RunId       string                    `json:"run_id"`
	Generations []domain.GenerationRecord `json:"generations"`
}

type statusResp struct {
	Success bool   `json:"success"`
	RunId   string `json:"run_id,omitempty"`
}

func (a *App) optimize(w http.ResponseWriter, r *http.Request) *AppResp {
	body, err := Read(r.Body)
	if err != nil {
		return get400("Request body is required.").resp(err)
	}

	req, err := ReadJSON[optimizationReq](body)
	if err != nil {
		return get400("Request body is not valid JSON.").resp(err)
	}

	cfg := a.Config.Optimizer
	if len(req.Config) > 0 && string(req.Config) != "null" {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return get400("config is not a valid object.").resp(err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return get400(err.Error()).resp(err)
	}

	for _, t := range req.TargetModuleTypes {
		if !domain.IsModuleType(t) {
			err := fmt.Errorf("unknown module type %q", t)
			return get400(err.Error()).resp(err)
		}
	}

	modules, err := a.ModuleRepo.Read(r.Context(), persistence.ModuleReadFilter{Types: req.TargetModuleTypes})
	if err != nil {
		return get500().resp(err)
	}

	if len(modules) < cfg.TargetModuleCount {
		err := fmt.Errorf("%w: have %d, need %d", evolve.ErrInsufficientModules, len(modules), cfg.TargetModuleCount)
		return get400(err.Error()).resp(err)
	}

	available := make([]string, len(modules))
	for i, m := range modules {
		available[i] = m.Id
	}

	if unknown := outsidePool(req.SeedModules, available); len(unknown) > 0 {
		err := fmt.Errorf("seed modules not in the module pool: %s", strings.Join(unknown, ", "))
		return get400(err.Error()).resp(err)
	}

	runId := req.RunId
	if runId == "" {
		runId = uuid.NewString()
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := a.Registry.Register(runId, cancel); err != nil {
		if errors.Is(err, registry.ErrDuplicateKey) {
			return get409().resp(err)
		}
		return get500().resp(err)
	}
	defer a.Registry.Release(runId)

	a.insertRun(r.Context(), domain.OptimizationRun{
		Id:          runId,
		State:       domain.RunStateRunning,
		SeedModules: req.SeedModules,
		Config:      cfg,
		CreatedAt:   time.Now().UTC(),
	})

	result, err := a.Optimizer.Run(ctx, evolve.Request{
		RunId:     runId,
		Available: available,
		Seeds:     req.SeedModules,
		Config:    cfg,
	})
	if err != nil {
		a.finishRun(runId, domain.RunStateFailed, nil)
		if errors.Is(err, evolve.ErrInsufficientModules) || errors.Is(err, domain.ErrInvalidConfig) {
			return get400(err.Error()).resp(err)
		}
		return get500().resp(err)
	}

	state := domain.RunStateCompleted
	if result.Cancelled {
		state = domain.RunStateCancelled
	}
	a.finishRun(runId, state, map[string]any{
		"generations":  result.Generations,
		"best_fitness": bestFitness(result.Best),
	})

	return ok(optimizationResp{
		Success:          true,
		RunId:            runId,
		BestCombinations: result.Best,
		Config:           cfg,
		Generations:      result.Generations,
		Cancelled:        result.Cancelled,
	})
}

// outsidePool returns the seeds that are missing from the pool, which is
// the store filtered by the requested module types.
func outsidePool(seeds []string, pool []string) []string {
	known := make(map[string]bool, len(pool))
	for _, id := range pool {
		known[id] = true
	}

	var out []string
	for _, id := range seeds {
		if !known[id] {
			out = append(out, id)
		}
	}
	return out
}

func bestFitness(best []domain.Individual) float64 {
	if len(best) == 0 {
		return 0
	}
	return best[0].Fitness
}

func (a *App) insertRun(ctx context.Context, run domain.OptimizationRun) {
	if a.RunRepo == nil {
		return
	}
	if err := a.RunRepo.Insert(ctx, run); err != nil {
		slog.Error(fmt.Sprintf("Error occured: %s", err.Error()), "run_id", run.Id)
	}
}

// finishRun records the final state of a run. It runs detached from the
// request context, which is usually cancelled for runs that were aborted.
func (a *App) finishRun(runId string, state string, props map[string]any) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.RunRepo != nil {
		if err := a.RunRepo.Update(ctx, runId, state); err != nil {
			slog.Error(fmt.Sprintf("Error occured: %s", err.Error()), "run_id", runId)
		}
	}

	if a.Analytics != nil && props != nil {
		if err := a.Analytics.Capture(ctx, fmt.Sprintf("optimization_%s", state), runId, props); err != nil {
			slog.Error(fmt.Sprintf("Error occured: %s", err.Error()), "run_id", runId)
		}
	}
}

func (a *App) score(w http.ResponseWriter, r *http.Request) *AppResp {
	body, err := Read(r.Body)
	if err != nil {
		return get400("Request body is required.").resp(err)
	}

	req, err := ReadJSON[scoreReq](body)
	if err != nil {
		return get400("Request body is not valid JSON.").resp(err)
	}

	scores, err := a.Scorer.Score(r.Context(), req.ModuleIds)

	var malformed *scoring.MalformedResponseError
	switch {
	case err == nil:
		return ok(scoreResp{Success: true, Scores: scores})
	case errors.Is(err, scoring.ErrNoModules), errors.Is(err, scoring.ErrUnknownModules):
		return get400(err.Error()).resp(err)
	case errors.As(err, &malformed):
		return get502().resp(err)
	default:
		return get500().resp(err)
	}
}

func (a *App) cancelRun(w http.ResponseWriter, r *http.Request) *AppResp {
	runId := r.PathValue("id")

	if !a.Registry.Cancel(runId) {
		return get404().resp(fmt.Errorf("run %s is not in progress", runId))
	}

	slog.Info("run cancelled by caller", "run_id", runId)
	return &AppResp{Code: http.StatusAccepted, Body: statusResp{Success: true, RunId: runId}}
}

func (a *App) runGenerations(w http.ResponseWriter, r *http.Request) *AppResp {
	runId := r.PathValue("id")

	if a.Generations == nil {
		return get404().resp(errors.New("generation records are not stored"))
	}

	records, err := a.Generations.Read(r.Context(), runId)
	if err != nil {
		return get500().resp(err)
	}
	if records == nil {
		records = []domain.GenerationRecord{}
	}

	return ok(generationsResp{Success: true, RunId: runId, Generations: records})
}

func (a *App) rescoreIdeas(w http.ResponseWriter, r *http.Request) *AppResp {
	summary, err := a.Rescorer.Run(r.Context())
	if err != nil {
		return get500().resp(err)
	}

	return ok(rescoreResp{Success: true, Summary: summary})
}

func (a *App) health(w http.ResponseWriter, r *http.Request) *AppResp {
	return ok(statusResp{Success: true})
}
