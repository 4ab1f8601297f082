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

const anthropicVersion = "2023-06-01"

// Anthropic calls the Messages API.
type Anthropic struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewAnthropic creates an Anthropic judge provider.
func NewAnthropic(baseURL, apiKey, model string, client *http.Client) *Anthropic {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Anthropic{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, model: model, client: client}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Anthropic) Name() string { return "anthropic" }

// Complete sends one message and concatenates the text blocks of the reply.
func (p *Anthropic) Complete(ctx context.Context, req port.JudgeRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	payload := anthropicRequest{
		Model:       p.model,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   maxTokens,
		Temperature: defaultTemperature,
	}

	var out anthropicResponse
	err := postJSON(ctx, p.client, p.Name(), p.baseURL+"/messages",
		map[string]string{"x-api-key": p.apiKey, "anthropic-version": anthropicVersion},
		payload, &out, defaultMaxResponseBytes,
		func(body []byte) string {
			var e anthropicError
			if json.Unmarshal(body, &e) != nil {
				return ""
			}
			return e.Error.Message
		})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: anthropic response had no text content", service.ErrProvider)
	}
	return b.String(), nil
}
