package persistence

import (
	"context"
	"encoding/json"
	"net/http"
)

const phDefaultUrl = "https://eu.posthog.com/capture/"

type phEvent struct {
	ApiKey     string         `json:"api_key"`
	Event      string         `json:"event"`
	Properties map[string]any `json:"properties"`
}

type PHRepo struct {
	BaseHeaders []string
	ApiKey      string
	Url         string
	Client      *http.Client
}

func (r PHRepo) Capture(ctx context.Context, eventType string, distinctId string, props map[string]any) error {
	url := r.Url
	if url == "" {
		url = phDefaultUrl
	}

	properties := map[string]any{"distinct_id": distinctId}
	for k, v := range props {
		properties[k] = v
	}

	body, err := json.Marshal(phEvent{ApiKey: r.ApiKey, Event: eventType, Properties: properties})

	if err != nil {
		return err
	}

	_, err = request[struct{}](ctx, r.Client, reqConfig{Method: "POST", Url: url, Headers: jsonHeaders(r.BaseHeaders), Body: body}, 200)

	return err
}
