package persistence

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Barac9492/ideadroppro-1-sub001/internal/domain"
)

const moduleColumns = "select=id,module_type,content,embedding,usage_count,quality_score"

type ModuleReadFilter struct {
	Types []string
}

type ModuleRepo struct {
	BaseHeaders []string
	BaseUrl     string
	Client      *http.Client
}

func (r ModuleRepo) Read(ctx context.Context, filter ModuleReadFilter) ([]domain.Module, error) {
	params := []string{moduleColumns}
	if len(filter.Types) > 0 {
		params = append(params, fmt.Sprintf("module_type=%s", url.QueryEscape(inList(filter.Types))))
	}

	records, err := request[[]domain.Module](ctx, r.Client, reqConfig{
		Method:    "GET",
		Url:       r.BaseUrl,
		UrlParams: params,
		Headers:   r.BaseHeaders},
		200)

	if err != nil {
		return nil, err
	}
	if records == nil {
		return nil, nil
	}

	return *records, nil
}

func (r ModuleRepo) ReadByIds(ctx context.Context, ids []string) ([]domain.Module, error) {
	records, err := request[[]domain.Module](ctx, r.Client, reqConfig{
		Method:    "GET",
		Url:       r.BaseUrl,
		UrlParams: []string{moduleColumns, fmt.Sprintf("id=%s", url.QueryEscape(inList(ids)))},
		Headers:   r.BaseHeaders},
		200)

	if err != nil {
		return nil, err
	}
	if records == nil {
		return nil, nil
	}

	return *records, nil
}
