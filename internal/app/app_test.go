package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/evolve"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/persistence"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/registry"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/rescore"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/scoring"
)

type stubModules struct {
	modules []domain.Module
	err     error
	filter  persistence.ModuleReadFilter
}

func (s *stubModules) Read(_ context.Context, filter persistence.ModuleReadFilter) ([]domain.Module, error) {
	s.filter = filter
	return s.modules, s.err
}

type lenOracle struct {
	calls atomic.Int64
}

func (o *lenOracle) Score(_ context.Context, ids []string) (domain.Scores, error) {
	o.calls.Add(1)
	v := float64(len(ids))
	return domain.Scores{NoveltyScore: v, ComplementarityScore: v, MarketabilityScore: v, OverallScore: v}, nil
}

type memRuns struct {
	mu     sync.Mutex
	runs   []domain.OptimizationRun
	states map[string]string
}

func (m *memRuns) Insert(_ context.Context, run domain.OptimizationRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRuns) Update(_ context.Context, id string, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states == nil {
		m.states = map[string]string{}
	}
	m.states[id] = state
	return nil
}

type memAnalytics struct {
	events []string
}

func (m *memAnalytics) Capture(_ context.Context, eventType string, distinctId string, _ map[string]any) error {
	m.events = append(m.events, eventType+":"+distinctId)
	return nil
}

func modules(n int) []domain.Module {
	out := make([]domain.Module, n)
	for i := range out {
		out[i] = domain.Module{Id: fmt.Sprintf("m%d", i), Type: domain.ModuleTypeProblem}
	}
	return out
}

func newTestApp(mods *stubModules, oracle evolve.Oracle) *App {
	return &App{
		ModuleRepo: mods,
		Optimizer:  &evolve.Optimizer{Oracle: oracle},
		Registry:   registry.New(),
		Config:     Config{Optimizer: domain.DefaultOptimizerConfig()},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestOptimize_SmallScenario(t *testing.T) {
	oracle := &lenOracle{}
	runs := &memRuns{}
	analytics := &memAnalytics{}
	a := newTestApp(&stubModules{modules: modules(6)}, oracle)
	a.RunRepo = runs
	a.Analytics = analytics

	body := `{"run_id":"run-42","config":{"population_size":4,"generations":1,"mutation_rate":0,"crossover_rate":0,"target_module_count":2}}`
	rec, out := do(t, a.Routes(), http.MethodPost, "/optimize", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "run-42", out["run_id"])
	best := out["best_combinations"].([]any)
	require.Len(t, best, 4)
	for _, b := range best {
		ind := b.(map[string]any)
		assert.Equal(t, 2.0, ind["fitness"])
		assert.Len(t, ind["modules"], 2)
		assert.Equal(t, 2.0, ind["scores"].(map[string]any)["overall_score"])
	}
	cfg := out["config"].(map[string]any)
	assert.Equal(t, 4.0, cfg["population_size"])
	assert.Equal(t, 2.0, cfg["target_module_count"])

	require.Len(t, runs.runs, 1)
	assert.Equal(t, domain.RunStateRunning, runs.runs[0].State)
	assert.Equal(t, domain.RunStateCompleted, runs.states["run-42"])
	assert.Equal(t, []string{"optimization_completed:run-42"}, analytics.events)
	assert.Zero(t, a.Registry.Len())
}

func TestOptimize_DefaultsAndTypeFilter(t *testing.T) {
	mods := &stubModules{modules: modules(12)}
	a := newTestApp(mods, &lenOracle{})

	rec, out := do(t, a.Routes(), http.MethodPost, "/optimize", `{"target_module_types":["problem","solution"],"config":{"generations":1}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"problem", "solution"}, mods.filter.Types)
	assert.Len(t, out["best_combinations"], 5)
	cfg := out["config"].(map[string]any)
	assert.Equal(t, 20.0, cfg["population_size"])
	assert.Equal(t, 0.7, cfg["crossover_rate"])
	assert.NotEmpty(t, out["run_id"])
}

func TestOptimize_InsufficientModules(t *testing.T) {
	oracle := &lenOracle{}
	a := newTestApp(&stubModules{modules: modules(1)}, oracle)

	rec, out := do(t, a.Routes(), http.MethodPost, "/optimize", `{"config":{"target_module_count":5}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "insufficient modules")
	assert.Zero(t, oracle.calls.Load())
}

func TestOptimize_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"not json", `{`},
		{"rate out of range", `{"config":{"mutation_rate":1.5}}`},
		{"config not object", `{"config":"fast"}`},
		{"unknown module type", `{"target_module_types":["pitch_deck"]}`},
		{"generations above max", `{"config":{"generations":100000}}`},
		{"target above max", `{"config":{"target_module_count":1000}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(&stubModules{modules: modules(10)}, &lenOracle{})
			rec, out := do(t, a.Routes(), http.MethodPost, "/optimize", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, false, out["success"])
		})
	}
}

func TestOptimize_PopulationAboveMaximum(t *testing.T) {
	oracle := &lenOracle{}
	a := newTestApp(&stubModules{modules: modules(10)}, oracle)

	body := `{"config":{"population_size":1099511627776,"generations":1,"target_module_count":2}}`
	rec, out := do(t, a.Routes(), http.MethodPost, "/optimize", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out["error"], "population_size must not exceed 200")
	assert.Zero(t, oracle.calls.Load())
	assert.Zero(t, a.Registry.Len())
}

func TestOptimize_RaisedMaximum(t *testing.T) {
	a := newTestApp(&stubModules{modules: modules(10)}, &lenOracle{})
	a.Config.Optimizer.MaxPopulationSize = 300

	rec, out := do(t, a.Routes(), http.MethodPost, "/optimize", `{"config":{"population_size":250,"generations":0,"target_module_count":2}}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 250.0, out["config"].(map[string]any)["population_size"])
	assert.NotContains(t, out["config"], "max_population_size")
}

func TestOptimize_SeedModules(t *testing.T) {
	tests := []struct {
		name  string
		seeds string
		code  int
	}{
		{"known seeds", `["m1","m2"]`, http.StatusOK},
		{"unknown seed", `["m1","ghost"]`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &lenOracle{}
			a := newTestApp(&stubModules{modules: modules(6)}, oracle)

			body := fmt.Sprintf(`{"seed_modules":%s,"config":{"population_size":4,"generations":1,"target_module_count":2}}`, tt.seeds)
			rec, out := do(t, a.Routes(), http.MethodPost, "/optimize", body)

			assert.Equal(t, tt.code, rec.Code)
			if tt.code == http.StatusBadRequest {
				assert.Contains(t, out["error"], "ghost")
				assert.NotContains(t, out["error"], "m1")
				assert.Zero(t, oracle.calls.Load())
			}
		})
	}
}

// Seeds that exist in the store but fall outside the requested types are
// not part of the pool.
func TestOptimize_SeedOutsideTargetTypes(t *testing.T) {
	mods := &stubModules{modules: modules(6)}
	a := newTestApp(mods, &lenOracle{})

	rec, out := do(t, a.Routes(), http.MethodPost, "/optimize", `{"seed_modules":["team-1"],"target_module_types":["problem"],"config":{"target_module_count":2}}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, out["error"], "team-1")
	assert.Equal(t, []string{"problem"}, mods.filter.Types)
}

func TestOptimize_ModuleStoreFailure(t *testing.T) {
	a := newTestApp(&stubModules{err: errors.New("supabase down")}, &lenOracle{})

	rec, out := do(t, a.Routes(), http.MethodPost, "/optimize", `{}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Sorry, there was an internal server error.", out["error"])
}

func TestOptimize_DuplicateRunId(t *testing.T) {
	a := newTestApp(&stubModules{modules: modules(10)}, &lenOracle{})
	require.NoError(t, a.Registry.Register("busy", func() {}))

	rec, _ := do(t, a.Routes(), http.MethodPost, "/optimize", `{"run_id":"busy"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

// blockingOracle parks every call until its context is cancelled.
type blockingOracle struct {
	started chan struct{}
	once    sync.Once
}

func (o *blockingOracle) Score(ctx context.Context, _ []string) (domain.Scores, error) {
	o.once.Do(func() { close(o.started) })
	<-ctx.Done()
	return domain.Scores{}, ctx.Err()
}

func TestCancelRun(t *testing.T) {
	oracle := &blockingOracle{started: make(chan struct{})}
	runs := &memRuns{}
	a := newTestApp(&stubModules{modules: modules(10)}, oracle)
	a.RunRepo = runs
	h := a.Routes()

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		req := httptest.NewRequest(http.MethodPost, "/optimize", strings.NewReader(`{"run_id":"long"}`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		done <- rec
	}()

	select {
	case <-oracle.started:
	case <-time.After(5 * time.Second):
		t.Fatal("optimizer never called the oracle")
	}

	rec, out := do(t, h, http.MethodPost, "/runs/long/cancel", ``)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "long", out["run_id"])

	optRec := <-done
	require.Equal(t, http.StatusOK, optRec.Code)
	var resp optimizationResp
	require.NoError(t, json.Unmarshal(optRec.Body.Bytes(), &resp))
	assert.True(t, resp.Cancelled)
	assert.Len(t, resp.BestCombinations, 5)
	assert.Equal(t, domain.RunStateCancelled, runs.states["long"])
}

type stubGenerations struct {
	records []domain.GenerationRecord
	err     error
	runId   string
}

func (s *stubGenerations) Read(_ context.Context, runId string) ([]domain.GenerationRecord, error) {
	s.runId = runId
	return s.records, s.err
}

func TestRunGenerations(t *testing.T) {
	gens := &stubGenerations{records: []domain.GenerationRecord{
		{Id: "g0", RunId: "run-7", Generation: 0, BestFitness: 2},
		{Id: "g1", RunId: "run-7", Generation: 1, BestFitness: 3.5},
	}}
	a := &App{Generations: gens}

	rec, out := do(t, a.Routes(), http.MethodGet, "/runs/run-7/generations", ``)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-7", gens.runId)
	assert.Equal(t, "run-7", out["run_id"])
	records := out["generations"].([]any)
	require.Len(t, records, 2)
	assert.Equal(t, 3.5, records[1].(map[string]any)["best_fitness"])
}

func TestRunGenerations_Errors(t *testing.T) {
	rec, out := do(t, (&App{Generations: &stubGenerations{}}).Routes(), http.MethodGet, "/runs/none/generations", ``)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, out["generations"])

	rec, _ = do(t, (&App{Generations: &stubGenerations{err: errors.New("db down")}}).Routes(), http.MethodGet, "/runs/x/generations", ``)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec, _ = do(t, (&App{}).Routes(), http.MethodGet, "/runs/x/generations", ``)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Records written by the optimizer are served back for the same run.
func TestRunGenerations_FromGenerationLog(t *testing.T) {
	genLog := &persistence.GenerationLog{Path: filepath.Join(t.TempDir(), "generations.csv")}
	a := newTestApp(&stubModules{modules: modules(6)}, &lenOracle{})
	a.Optimizer = &evolve.Optimizer{Oracle: &lenOracle{}, Recorder: genLog}
	a.Generations = genLog
	h := a.Routes()

	rec, _ := do(t, h, http.MethodPost, "/optimize", `{"run_id":"logged","config":{"population_size":4,"generations":3,"target_module_count":2}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out := do(t, h, http.MethodGet, "/runs/logged/generations", ``)

	require.Equal(t, http.StatusOK, rec.Code)
	records := out["generations"].([]any)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, float64(i), r.(map[string]any)["generation"])
		assert.Equal(t, "logged", r.(map[string]any)["run_id"])
	}
}

func TestCancelRun_Unknown(t *testing.T) {
	a := newTestApp(&stubModules{}, &lenOracle{})

	rec, out := do(t, a.Routes(), http.MethodPost, "/runs/nope/cancel", ``)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, out["success"])
}

type stubScorer struct {
	scores domain.Scores
	err    error
	ids    []string
}

func (s *stubScorer) Score(_ context.Context, ids []string) (domain.Scores, error) {
	s.ids = ids
	return s.scores, s.err
}

func TestScore(t *testing.T) {
	scorer := &stubScorer{scores: domain.Scores{NoveltyScore: 1, ComplementarityScore: 2, MarketabilityScore: 3, OverallScore: 4}}
	a := &App{Scorer: scorer}

	rec, out := do(t, a.Routes(), http.MethodPost, "/score", `{"module_ids":["a","b"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, 4.0, out["scores"].(map[string]any)["overall_score"])
	assert.Equal(t, []string{"a", "b"}, scorer.ids)
}

func TestScore_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"no modules", scoring.ErrNoModules, http.StatusBadRequest},
		{"unknown modules", fmt.Errorf("%w: x", scoring.ErrUnknownModules), http.StatusBadRequest},
		{"malformed", &scoring.MalformedResponseError{Reason: "invalid json"}, http.StatusBadGateway},
		{"llm down", errors.New("timeout"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &App{Scorer: &stubScorer{err: tt.err}}
			rec, out := do(t, a.Routes(), http.MethodPost, "/score", `{"module_ids":["a"]}`)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, false, out["success"])
		})
	}
}

// The HTTP oracle client and the scoring endpoint speak the same contract.
func TestScoringRepoAgainstScoreEndpoint(t *testing.T) {
	scorer := &stubScorer{scores: domain.Scores{OverallScore: 3.5}}
	srv := httptest.NewServer((&App{Scorer: scorer}).Routes())
	defer srv.Close()

	scores, err := persistence.ScoringRepo{Url: srv.URL + "/score"}.Score(context.Background(), []string{"x", "y"})

	require.NoError(t, err)
	assert.Equal(t, 3.5, scores.OverallScore)
	assert.Equal(t, []string{"x", "y"}, scorer.ids)
}

type stubRescorer struct {
	summary rescore.Summary
	err     error
}

func (s stubRescorer) Run(context.Context) (rescore.Summary, error) {
	return s.summary, s.err
}

func TestRescoreIdeas(t *testing.T) {
	a := &App{Rescorer: stubRescorer{summary: rescore.Summary{Processed: 3, Scored: 2, Fallback: 1}}}

	rec, out := do(t, a.Routes(), http.MethodPost, "/ideas/rescore", ``)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3.0, out["summary"].(map[string]any)["processed"])

	a.Rescorer = stubRescorer{err: errors.New("db down")}
	rec, _ = do(t, a.Routes(), http.MethodPost, "/ideas/rescore", ``)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	rec, out := do(t, (&App{}).Routes(), http.MethodGet, "/healthz", ``)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
}
