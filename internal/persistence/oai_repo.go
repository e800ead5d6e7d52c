package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

const oaiDefaultBaseUrl = "https://api.openai.com/v1"

type OAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponseFormat struct {
	Type string `json:"type"`
}

type oaiChatReq struct {
	Model          string            `json:"model"`
	Messages       []OAIMessage      `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat oaiResponseFormat `json:"response_format"`
}

type oaiChoice struct {
	Message OAIMessage `json:"message"`
}

type oaiChatResp struct {
	Choices []oaiChoice `json:"choices"`
}

// OAIRepo talks to the OpenAI chat completions API in JSON mode.
type OAIRepo struct {
	BaseHeaders  []string
	BaseUrl      string
	Model        string
	SystemPrompt string
	Client       *http.Client
}

func (r OAIRepo) Generate(ctx context.Context, prompt string) (string, error) {
	baseUrl := r.BaseUrl
	if baseUrl == "" {
		baseUrl = oaiDefaultBaseUrl
	}

	messages := []OAIMessage{{Role: "user", Content: prompt}}
	if r.SystemPrompt != "" {
		messages = append([]OAIMessage{{Role: "system", Content: r.SystemPrompt}}, messages...)
	}

	body, err := json.Marshal(oaiChatReq{
		Model:          r.Model,
		Messages:       messages,
		Temperature:    0.2,
		ResponseFormat: oaiResponseFormat{Type: "json_object"},
	})

	if err != nil {
		return "", err
	}

	resp, err := request[oaiChatResp](ctx, r.Client, reqConfig{
		Method:  "POST",
		Url:     baseUrl + "/chat/completions",
		Body:    body,
		Headers: jsonHeaders(r.BaseHeaders)},
		200)

	if err != nil {
		return "", err
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("unexpected assistant response error")
	}

	return resp.Choices[0].Message.Content, nil
}
