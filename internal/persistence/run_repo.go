package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

type RunRepo struct {
	BaseHeaders []string
	BaseUrl     string
	Client      *http.Client
}

func (r RunRepo) Insert(ctx context.Context, run domain.OptimizationRun) error {
	body, err := json.Marshal(run)

	if err != nil {
		return err
	}

	_, err = request[domain.OptimizationRun](ctx, r.Client, reqConfig{
		Method:  "POST",
		Url:     r.BaseUrl,
		Body:    body,
		Headers: jsonHeaders(r.BaseHeaders)},
		201)

	return err
}

func (r RunRepo) Update(ctx context.Context, id string, state string) error {
	body, err := json.Marshal(map[string]string{"state": state})

	if err != nil {
		return err
	}

	_, err = request[domain.OptimizationRun](ctx, r.Client, reqConfig{
		Method:    "PATCH",
		Url:       r.BaseUrl,
		UrlParams: []string{fmt.Sprintf("id=eq.%s", url.QueryEscape(id))},
		Body:      body,
		Headers:   jsonHeaders(r.BaseHeaders)},
		204)

	return err
}
