package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

var ErrMalformedScores = errors.New("malformed scoring response")

type scoreReq struct {
	ModuleIds []string `json:"module_ids"`
}

type scoreResp struct {
	Success bool           `json:"success"`
	Scores  *domain.Scores `json:"scores"`
	Error   string         `json:"error"`
}

// ScoringRepo calls the sibling scoring endpoint once per combination.
// Limiter, when set, caps the request rate across all concurrent callers.
type ScoringRepo struct {
	BaseHeaders []string
	Url         string
	Client      *http.Client
	Limiter     *rate.Limiter
}

func (r ScoringRepo) Score(ctx context.Context, moduleIds []string) (domain.Scores, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return domain.Scores{}, err
		}
	}

	body, err := json.Marshal(scoreReq{ModuleIds: moduleIds})

	if err != nil {
		return domain.Scores{}, err
	}

	resp, err := request[scoreResp](ctx, r.Client, reqConfig{
		Method:  "POST",
		Url:     r.Url,
		Body:    body,
		Headers: jsonHeaders(r.BaseHeaders)},
		200)

	if err != nil {
		return domain.Scores{}, err
	}

	switch {
	case resp == nil:
		return domain.Scores{}, fmt.Errorf("%w: empty body", ErrMalformedScores)
	case !resp.Success:
		return domain.Scores{}, fmt.Errorf("scoring failed: %s", resp.Error)
	case resp.Scores == nil:
		return domain.Scores{}, fmt.Errorf("%w: missing scores", ErrMalformedScores)
	}

	if err := resp.Scores.Validate(); err != nil {
		return domain.Scores{}, fmt.Errorf("%w: %w", ErrMalformedScores, err)
	}

	return *resp.Scores, nil
}
