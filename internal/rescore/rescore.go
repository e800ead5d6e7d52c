// Package rescore re-runs AI analysis over ideas that never received a score.
package rescore

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 2 * time.Second
	defaultBatchSize   = 50

	fallbackAnalysis = "Automatic analysis was unavailable for this idea. The score is a heuristic based on how detailed the submission is."
)

type IdeaStore interface {
	ReadUnscored(ctx context.Context, limit int) ([]domain.Idea, error)
	UpdateScore(ctx context.Context, id string, score float64, analysis string) error
}

type Analysis struct {
	Score float64
	Text  string
}

type Analyzer interface {
	Analyze(ctx context.Context, idea domain.Idea) (Analysis, error)
}

type Summary struct {
	Processed int `json:"processed"`
	Scored    int `json:"scored"`
	Fallback  int `json:"fallback"`
	Failed    int `json:"failed"`
}

// Rescorer retries the analyzer a fixed number of times per idea, waiting a
// fixed backoff between attempts, and falls back to a heuristic score.
type Rescorer struct {
	Ideas       IdeaStore
	Analyzer    Analyzer
	MaxAttempts int
	Backoff     time.Duration
	BatchSize   int
}

func (r Rescorer) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	batch := r.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	ideas, err := r.Ideas.ReadUnscored(ctx, batch)
	if err != nil {
		return summary, fmt.Errorf("reading unscored ideas: %w", err)
	}

	for _, idea := range ideas {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		analysis, ok := r.analyze(ctx, idea)
		if !ok {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			analysis = Analysis{Score: FallbackScore(idea), Text: fallbackAnalysis}
		}

		summary.Processed++
		if err := r.Ideas.UpdateScore(ctx, idea.Id, analysis.Score, analysis.Text); err != nil {
			summary.Failed++
			slog.Error(fmt.Sprintf("Error occured: saving score for idea %s: %s", idea.Id, err.Error()))
			continue
		}

		if ok {
			summary.Scored++
		} else {
			summary.Fallback++
		}
	}

	slog.Info("rescore finished", "processed", summary.Processed, "scored", summary.Scored, "fallback", summary.Fallback, "failed", summary.Failed)
	return summary, nil
}

func (r Rescorer) analyze(ctx context.Context, idea domain.Idea) (Analysis, bool) {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	backoff := r.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		analysis, err := r.Analyzer.Analyze(ctx, idea)
		if err == nil {
			return analysis, true
		}

		slog.Warn(fmt.Sprintf("Error occured: analyzing idea %s (attempt %d/%d): %s", idea.Id, attempt, attempts, err.Error()))

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return Analysis{}, false
			case <-time.After(backoff):
			}
		}
	}

	return Analysis{}, false
}

// FallbackScore rates an idea on a 0-10 scale from the amount of detail in
// its submission: 4 for a bare title, up to 7 for a thorough description.
func FallbackScore(idea domain.Idea) float64 {
	words := len(strings.Fields(idea.Title)) + len(strings.Fields(idea.Description))
	score := 4 + math.Min(float64(words)/20, 3)
	if strings.TrimSpace(idea.Title) == "" {
		score--
	}
	return math.Round(score*10) / 10
}
