package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

type IdeaRepo struct {
	BaseHeaders []string
	BaseUrl     string
	Client      *http.Client
}

// ReadUnscored returns up to limit ideas that have never received an AI score.
func (r IdeaRepo) ReadUnscored(ctx context.Context, limit int) ([]domain.Idea, error) {
	records, err := request[[]domain.Idea](ctx, r.Client, reqConfig{
		Method: "GET",
		Url:    r.BaseUrl,
		UrlParams: []string{
			"select=id,title,description,ai_score,ai_analysis",
			"ai_score=is.null",
			"order=created_at.asc",
			fmt.Sprintf("limit=%d", limit)},
		Headers: r.BaseHeaders},
		200)

	if err != nil {
		return nil, err
	}
	if records == nil {
		return nil, nil
	}

	return *records, nil
}

func (r IdeaRepo) UpdateScore(ctx context.Context, id string, score float64, analysis string) error {
	body, err := json.Marshal(map[string]any{"ai_score": score, "ai_analysis": analysis})

	if err != nil {
		return err
	}

	_, err = request[domain.Idea](ctx, r.Client, reqConfig{
		Method:    "PATCH",
		Url:       r.BaseUrl,
		UrlParams: []string{fmt.Sprintf("id=eq.%s", url.QueryEscape(id))},
		Body:      body,
		Headers:   jsonHeaders(r.BaseHeaders)},
		204)

	return err
}
