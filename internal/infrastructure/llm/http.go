package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bibbank/taxrisk/internal/domain/service"
)

const (
	defaultMaxResponseBytes = 4 * 1024 * 1024
	defaultTemperature      = 0.0
)

// postJSON sends payload to url and decodes a 2xx body into out. Error bodies are
// passed to describe so each provider can surface its own error message.
func postJSON(
	ctx context.Context,
	client *http.Client,
	provider, url string,
	headers map[string]string,
	payload, out any,
	maxBytes int64,
	describe func(body []byte) string,
) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", service.ErrProvider, provider, err)
	}
	if int64(len(respBody)) > maxBytes {
		return fmt.Errorf("%w: %s response exceeded limit (%d bytes)", service.ErrProvider, provider, maxBytes)
	}

	if resp.StatusCode >= 400 {
		msg := describe(respBody)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %s error status %d: %s", service.ErrProvider, provider, resp.StatusCode, msg)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", service.ErrProvider, provider, err)
	}
	return nil
}
