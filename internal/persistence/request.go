package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type reqConfig struct {
	Method    string
	Url       string
	UrlParams []string
	Headers   []string
	Body      []byte
}

// StatusError is returned when a remote answers with an unexpected status code.
type StatusError struct {
	Method string
	Url    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status code error: %s %s returned %d: %s", e.Method, e.Url, e.Code, e.Body)
}

func request[T any](ctx context.Context, client *http.Client, config reqConfig, expectedResCode int) (*T, error) {
	url := config.Url
	if len(config.UrlParams) > 0 {
		url = fmt.Sprintf("%s?%s", url, strings.Join(config.UrlParams, "&"))
	}

	req, err := http.NewRequestWithContext(ctx, config.Method, url, bytes.NewBuffer(config.Body))

	if err != nil {
		return nil, err
	}

	for i := 0; i < len(config.Headers); i++ {
		key, value, ok := strings.Cut(config.Headers[i], ":")
		if !ok {
			return nil, fmt.Errorf("malformed header %q", key)
		}
		req.Header.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)

	if err != nil {
		return nil, err
	}

	body, err := read(resp.Body)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode != expectedResCode {
		return nil, &StatusError{Method: config.Method, Url: config.Url, Code: resp.StatusCode, Body: string(body)}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var t *T
	t, err = readJSON[T](body)

	if err != nil {
		return nil, err
	}

	return t, nil
}

func read(reader io.ReadCloser) ([]byte, error) {
	defer func() {
		if err := reader.Close(); err != nil {
			slog.Error(fmt.Sprintf("Error occured: %s", err.Error()))
		}
	}()

	return io.ReadAll(reader)
}

func readJSON[T any](content []byte) (*T, error) {
	var t *T
	err := json.Unmarshal(content, &t)

	if err != nil {
		return nil, err
	}

	return t, nil
}

// inList renders a PostgREST "in" filter value.
func inList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return fmt.Sprintf("in.(%s)", strings.Join(quoted, ","))
}

func jsonHeaders(base []string) []string {
	headers := make([]string, 0, len(base)+1)
	headers = append(headers, base...)
	return append(headers, "Content-Type:application/json")
}
