package chutes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"labsight/internal/config"
	"labsight/internal/llm"
	"labsight/internal/port"
)

const completionsPath = "/v1/chat/completions"

func init() {
	llm.RegisterProvider("chutes", func(cfg *config.LLMConfig) (port.ChatCompleter, error) {
		return NewCompleter(cfg), nil
	})
}

// Completer implements port.ChatCompleter against the Chutes.ai
// OpenAI-compatible chat completions API.
type Completer struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewCompleter creates a Chutes-backed completer from the LLM config.
func NewCompleter(cfg *config.LLMConfig) *Completer {
	base := strings.TrimRight(cfg.ChutesBaseURL, "/")
	if base == "" {
		base = "https://llm.chutes.ai"
	}
	return newCompleter(cfg, base+completionsPath)
}

// NewCompleterWithEndpoint creates a completer pointing at a custom API endpoint (for testing).
func NewCompleterWithEndpoint(cfg *config.LLMConfig, endpoint string) *Completer {
	return newCompleter(cfg, endpoint)
}

func newCompleter(cfg *config.LLMConfig, endpoint string) *Completer {
	model := cfg.ChutesModel
	if model == "" {
		model = "chutesai/Mistral-Small-3.2-24B-Instruct-2506"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Completer{
		apiKey:   cfg.ChutesAPIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Completer) Name() string {
	return "chutes"
}

func (c *Completer) Complete(ctx context.Context, in port.ChatRequest) (string, error) {
	var messages []map[string]string
	if in.System != "" {
		messages = append(messages, map[string]string{"role": "system", "content": in.System})
	}
	messages = append(messages, map[string]string{"role": "user", "content": in.User})

	reqBody := map[string]interface{}{
		"model":    c.model,
		"messages": messages,
	}
	if in.ForceJSON {
		reqBody["response_format"] = map[string]interface{}{"type": "json_object"}
	}
	if in.Temperature > 0 {
		reqBody["temperature"] = in.Temperature
	}
	if in.MaxTokens > 0 {
		reqBody["max_tokens"] = in.MaxTokens
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling chutes API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("chutes API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := llm.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return "", llm.NewRateLimitError("chutes", baseErr, retryAfter)
		}
		return "", baseErr
	}

	return parseResponse(respBody)
}

// apiResponse models the OpenAI-compatible chat completions response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from API: no choices")
	}

	if resp.Choices[0].FinishReason == "length" {
		return "", fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit")
	}

	return resp.Choices[0].Message.Content, nil
}
