package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

type GenerationRepo struct {
	BaseHeaders []string
	BaseUrl     string
	Client      *http.Client
}

func (r GenerationRepo) Insert(ctx context.Context, record domain.GenerationRecord) error {
	body, err := json.Marshal(record)

	if err != nil {
		return err
	}

	_, err = request[domain.GenerationRecord](ctx, r.Client, reqConfig{
		Method:  "POST",
		Url:     r.BaseUrl,
		Body:    body,
		Headers: jsonHeaders(r.BaseHeaders)},
		201)

	return err
}

// Read returns the records of one run ordered by generation.
func (r GenerationRepo) Read(ctx context.Context, runId string) ([]domain.GenerationRecord, error) {
	records, err := request[[]domain.GenerationRecord](ctx, r.Client, reqConfig{
		Method: "GET",
		Url:    r.BaseUrl,
		UrlParams: []string{
			"select=id,run_id,generation,population_size,best_fitness,average_fitness,mutation_rate,crossover_rate,created_at",
			fmt.Sprintf("run_id=eq.%s", url.QueryEscape(runId)),
			"order=generation.asc"},
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
