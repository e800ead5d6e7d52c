package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"
	"golang.org/x/time/rate"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/app"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/evolve"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/persistence"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/registry"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/rescore"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/scoring"
)

const llmSystemPrompt = "You are a precise startup analyst. Always answer with one JSON object that matches the requested keys."

func config() app.Config {
	port := os.Getenv("GOPORT")
	if port == "" {
		port = "8000"
	}

	dbUrl := os.Getenv("DB_URL")
	if dbUrl == "" {
		slog.Error("DB_URL environment variable not set")
	}

	dbApiKey := os.Getenv("DB_API_KEY")
	if dbApiKey == "" {
		slog.Error("DB_API_KEY environment variable not set")
	}

	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = "gemini"
	}

	oaiApiKey := os.Getenv("OAI_API_KEY")
	geminiApiKey := os.Getenv("GEMINI_API_KEY")
	if provider == "openai" && oaiApiKey == "" {
		slog.Error("OAI_API_KEY environment variable not set")
	} else if provider == "gemini" && geminiApiKey == "" {
		slog.Error("GEMINI_API_KEY environment variable not set")
	}

	oracleRPS := 0.0
	if v := os.Getenv("ORACLE_RPS"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Error(fmt.Sprintf("Error occured: ORACLE_RPS: %s", err.Error()))
		} else {
			oracleRPS = parsed
		}
	}

	maxRunAge := 30 * time.Minute
	if v := os.Getenv("RUN_MAX_AGE"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			slog.Error(fmt.Sprintf("Error occured: RUN_MAX_AGE: %s", err.Error()))
		} else {
			maxRunAge = parsed
		}
	}

	optimizer := domain.DefaultOptimizerConfig()
	if path := os.Getenv("OPTIMIZER_CONFIG"); path != "" {
		loaded, err := app.LoadOptimizerConfig(path, optimizer)
		if err != nil {
			slog.Error(fmt.Sprintf("Error occured: %s", err.Error()))
		} else {
			optimizer = loaded
		}
	}

	return app.Config{
		Port:          port,
		DBUrl:         dbUrl,
		DBApiKey:      dbApiKey,
		OAIApiKey:     oaiApiKey,
		GeminiApiKey:  geminiApiKey,
		LLMProvider:   provider,
		LLMModel:      os.Getenv("LLM_MODEL"),
		ScoringUrl:    os.Getenv("SCORING_URL"),
		PHApiKey:      os.Getenv("PH_API_KEY"),
		OracleRPS:     oracleRPS,
		GenerationLog: os.Getenv("GENERATION_LOG"),
		MaxRunAge:     maxRunAge,
		Optimizer:     optimizer,
	}
}

func generator(ctx context.Context, config app.Config) scoring.Generator {
	if config.LLMProvider == "gemini" {
		gemini, err := scoring.NewGeminiGenerator(ctx, config.GeminiApiKey, config.LLMModel, llmSystemPrompt)
		if err == nil {
			return gemini
		}
		slog.Error(fmt.Sprintf("Error occured: %s, falling back to OpenAI", err.Error()))
	}

	model := config.LLMModel
	if model == "" || config.LLMProvider != "openai" {
		model = "gpt-4o-mini"
	}

	return persistence.OAIRepo{
		BaseHeaders:  []string{fmt.Sprintf("Authorization: Bearer %s", config.OAIApiKey)},
		Model:        model,
		SystemPrompt: llmSystemPrompt,
	}
}

func main() {
	config := config()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbHeader := []string{
		fmt.Sprintf("apikey: %s", config.DBApiKey),
		fmt.Sprintf("Authorization: Bearer %s", config.DBApiKey)}
	dbUrlBase := fmt.Sprintf("%s/rest/v1", config.DBUrl)

	moduleRepo := persistence.ModuleRepo{BaseHeaders: dbHeader, BaseUrl: fmt.Sprintf("%s/modules", dbUrlBase)}
	runRepo := persistence.RunRepo{BaseHeaders: dbHeader, BaseUrl: fmt.Sprintf("%s/optimization_runs", dbUrlBase)}
	ideaRepo := persistence.IdeaRepo{BaseHeaders: dbHeader, BaseUrl: fmt.Sprintf("%s/ideas", dbUrlBase)}

	llm := generator(ctx, config)
	scorer := scoring.Service{Modules: moduleRepo, LLM: llm}

	var oracle evolve.Oracle = scorer
	if config.ScoringUrl != "" {
		limit := rate.Inf
		if config.OracleRPS > 0 {
			limit = rate.Limit(config.OracleRPS)
		}
		oracle = persistence.ScoringRepo{
			BaseHeaders: dbHeader,
			Url:         config.ScoringUrl,
			Limiter:     rate.NewLimiter(limit, config.Optimizer.Workers),
		}
	}

	var generations interface {
		evolve.Recorder
		app.GenerationReader
	} = persistence.GenerationRepo{BaseHeaders: dbHeader, BaseUrl: fmt.Sprintf("%s/generation_records", dbUrlBase)}
	if config.GenerationLog != "" {
		generations = &persistence.GenerationLog{Path: config.GenerationLog}
	}

	var analytics app.Analytics
	if config.PHApiKey != "" {
		analytics = persistence.PHRepo{ApiKey: config.PHApiKey}
	}

	a := app.App{
		ModuleRepo:  moduleRepo,
		RunRepo:     runRepo,
		Generations: generations,
		Optimizer:   &evolve.Optimizer{Oracle: oracle, Recorder: generations},
		Scorer:      scorer,
		Rescorer:    rescore.Rescorer{Ideas: ideaRepo, Analyzer: rescore.LLMAnalyzer{LLM: llm}},
		Analytics:   analytics,
		Registry:    registry.New(),
		Config:      config,
	}

	if err := a.Start(ctx); err != nil {
		slog.Error(fmt.Sprintf("Error occured: %s", err.Error()))
		os.Exit(1)
	}
}
