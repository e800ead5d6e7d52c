// Package scoring rates a combination of business plan modules with an LLM.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

var (
	ErrNoModules      = errors.New("no module ids given")
	ErrUnknownModules = errors.New("unknown module ids")
)

type ModuleReader interface {
	ReadByIds(ctx context.Context, ids []string) ([]domain.Module, error)
}

// Generator returns the raw text completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	Modules ModuleReader
	LLM     Generator
}

// Score loads the modules, asks the LLM to rate them as one business plan and
// returns the validated scores. It satisfies evolve.Oracle.
func (s Service) Score(ctx context.Context, moduleIds []string) (domain.Scores, error) {
	if len(moduleIds) == 0 {
		return domain.Scores{}, ErrNoModules
	}

	modules, err := s.Modules.ReadByIds(ctx, moduleIds)
	if err != nil {
		return domain.Scores{}, fmt.Errorf("loading modules: %w", err)
	}

	if missing := missingIds(moduleIds, modules); len(missing) > 0 {
		return domain.Scores{}, fmt.Errorf("%w: %s", ErrUnknownModules, strings.Join(missing, ", "))
	}

	raw, err := s.LLM.Generate(ctx, buildPrompt(orderLike(moduleIds, modules)))
	if err != nil {
		return domain.Scores{}, fmt.Errorf("generating scores: %w", err)
	}

	return ParseScores(raw)
}

func missingIds(ids []string, modules []domain.Module) []string {
	found := make(map[string]struct{}, len(modules))
	for _, m := range modules {
		found[m.Id] = struct{}{}
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok && !slices.Contains(missing, id) {
			missing = append(missing, id)
		}
	}
	return missing
}

// orderLike returns modules in the order their ids were requested.
func orderLike(ids []string, modules []domain.Module) []domain.Module {
	byId := make(map[string]domain.Module, len(modules))
	for _, m := range modules {
		byId[m.Id] = m
	}

	out := make([]domain.Module, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, byId[id])
	}
	return out
}

func buildPrompt(modules []domain.Module) string {
	var b strings.Builder

	b.WriteString("You are a venture capital analyst. The following modules were combined into one startup business plan.\n\n")
	for i, m := range modules {
		fmt.Fprintf(&b, "Module %d (%s):\n%s\n\n", i+1, m.Type, strings.TrimSpace(m.Content))
	}
	b.WriteString(`Rate the combination on a scale from 0 to 5 for:
- novelty: how original the resulting idea is
- complementarity: how well the modules support each other
- marketability: how likely the idea is to find paying customers
- overall: your overall assessment

Respond with a single JSON object and nothing else:
{"novelty_score": <number>, "complementarity_score": <number>, "marketability_score": <number>, "overall_score": <number>}`)

	return b.String()
}
