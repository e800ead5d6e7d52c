package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

type AppResp struct {
	Error   error
	Message string
	Code    int
	Body    any
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// AppHandler adapts a handler returning *AppResp to http.Handler and writes
// the response as JSON.
type AppHandler func(http.ResponseWriter, *http.Request) *AppResp

func (h AppHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)

	if resp.Error != nil {
		slog.Error(fmt.Sprintf(`Error occured: %s`, resp.Error.Error()), "path", r.URL.Path)
	}

	code := resp.Code
	if code == 0 {
		code = http.StatusOK
	}

	body := resp.Body
	if body == nil {
		body = errorBody{Success: false, Error: resp.Message}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error(fmt.Sprintf(`Error occured: %s`, err.Error()))
	}
}

func ok(body any) *AppResp {
	return &AppResp{Code: http.StatusOK, Body: body}
}
