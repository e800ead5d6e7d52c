package rescore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
	"github.com/Barac9492/ideadroppro-1-sub001/internal/scoring"
)

type rawAnalysis struct {
	Score    *float64 `json:"score"`
	Analysis string   `json:"analysis"`
}

// LLMAnalyzer asks an LLM for a 0-10 score and a short written analysis.
type LLMAnalyzer struct {
	LLM scoring.Generator
}

func (a LLMAnalyzer) Analyze(ctx context.Context, idea domain.Idea) (Analysis, error) {
	raw, err := a.LLM.Generate(ctx, buildPrompt(idea))
	if err != nil {
		return Analysis{}, err
	}

	return parseAnalysis(raw)
}

func buildPrompt(idea domain.Idea) string {
	return fmt.Sprintf(`Evaluate the following startup idea as an experienced early stage investor.

Title: %s

Description:
%s

Respond with a single JSON object and nothing else:
{"score": <number from 0 to 10>, "analysis": "<two to four sentences on strengths, risks and market>"}`,
		strings.TrimSpace(idea.Title), strings.TrimSpace(idea.Description))
}

func parseAnalysis(raw string) (Analysis, error) {
	var ra rawAnalysis
	if err := json.Unmarshal([]byte(scoring.StripFences(raw)), &ra); err != nil {
		return Analysis{}, &scoring.MalformedResponseError{Raw: raw, Reason: "invalid json", Err: err}
	}

	switch {
	case ra.Score == nil:
		return Analysis{}, &scoring.MalformedResponseError{Raw: raw, Reason: "missing score"}
	case math.IsNaN(*ra.Score) || *ra.Score < 0 || *ra.Score > 10:
		return Analysis{}, &scoring.MalformedResponseError{Raw: raw, Reason: fmt.Sprintf("score %v out of range", *ra.Score)}
	case strings.TrimSpace(ra.Analysis) == "":
		return Analysis{}, &scoring.MalformedResponseError{Raw: raw, Reason: "missing analysis"}
	}

	return Analysis{Score: *ra.Score, Text: strings.TrimSpace(ra.Analysis)}, nil
}
