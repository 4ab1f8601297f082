package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/bibbank/taxrisk/internal/domain/port"
	"github.com/bibbank/taxrisk/internal/domain/service"
)

// OpenAI calls the Chat Completions API.
type OpenAI struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAI creates an OpenAI judge provider. Timeouts come from the caller's context.
func NewOpenAI(baseURL, apiKey, model string, client *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAI{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, model: model, client: client}
}

type openAIChatRequest struct {
	Model          string              `json:"model"`
	Messages       []openAIChatMessage `json:"messages"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Temperature    float64             `json:"temperature"`
	ResponseFormat *openAIFormat       `json:"response_format,omitempty"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message      openAIChatMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *OpenAI) Name() string { return "openai" }

// Complete sends one chat completion in JSON mode.
func (p *OpenAI) Complete(ctx context.Context, req port.JudgeRequest) (string, error) {
	payload := openAIChatRequest{
		Model: p.model,
		Messages: []openAIChatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:      req.MaxTokens,
		Temperature:    defaultTemperature,
		ResponseFormat: &openAIFormat{Type: "json_object"},
	}

	var out openAIChatResponse
	err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		payload, &out, defaultMaxResponseBytes,
		func(body []byte) string {
			var e openAIErrorResponse
			if json.Unmarshal(body, &e) != nil {
				return ""
			}
			return e.Error.Message
		})
	if err != nil {
		return "", err
	}

	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: openai response had no choices", service.ErrProvider)
	}
	return out.Choices[0].Message.Content, nil
}
