package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bibbank/taxrisk/internal/domain/port"
	"github.com/bibbank/taxrisk/internal/domain/service"
)

// Gemini calls the generateContent API.
type Gemini struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGemini creates a Gemini judge provider.
func NewGemini(baseURL, apiKey, model string, client *http.Client) *Gemini {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Gemini{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, model: model, client: client}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
		Temperature      float64 `json:"temperature"`
		ResponseMimeType string  `json:"responseMimeType,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *Gemini) Name() string { return "gemini" }

// Complete sends one generateContent request and joins the first candidate's text parts.
func (p *Gemini) Complete(ctx context.Context, req port.JudgeRequest) (string, error) {
	var payload geminiRequest
	if req.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	payload.Contents = []geminiContent{{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}}}
	payload.GenerationConfig.MaxOutputTokens = req.MaxTokens
	payload.GenerationConfig.Temperature = defaultTemperature
	payload.GenerationConfig.ResponseMimeType = "application/json"

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, url.PathEscape(p.model))

	var out geminiResponse
	err := postJSON(ctx, p.client, p.Name(), endpoint,
		map[string]string{"x-goog-api-key": p.apiKey},
		payload, &out, defaultMaxResponseBytes,
		func(body []byte) string {
			var e geminiError
			if json.Unmarshal(body, &e) != nil {
				return ""
			}
			return e.Error.Message
		})
	if err != nil {
		return "", err
	}

	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini response had no candidates", service.ErrProvider)
	}
	var b strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: gemini candidate had no text", service.ErrProvider)
	}
	return b.String(), nil
}
