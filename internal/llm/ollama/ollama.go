package ollama

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

func init() {
	llm.RegisterProvider("ollama", func(cfg *config.LLMConfig) (port.ChatCompleter, error) {
		return NewCompleter(cfg), nil
	})
}

// Completer implements port.ChatCompleter against a local Ollama server's
// generate API. Responses are requested unstreamed.
type Completer struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewCompleter creates an Ollama-backed completer from the LLM config.
func NewCompleter(cfg *config.LLMConfig) *Completer {
	baseURL := strings.TrimRight(cfg.OllamaBaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := cfg.OllamaModel
	if model == "" {
		model = "llama3.1"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Completer{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Completer) Name() string {
	return "ollama"
}

func (c *Completer) Complete(ctx context.Context, in port.ChatRequest) (string, error) {
	reqBody := map[string]interface{}{
		"model":  c.model,
		"prompt": in.User,
		"stream": false,
	}
	if in.System != "" {
		reqBody["system"] = in.System
	}
	if in.ForceJSON {
		reqBody["format"] = "json"
	}
	if in.Temperature > 0 {
		reqBody["options"] = map[string]interface{}{"temperature": in.Temperature}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			return "", fmt.Errorf("ollama API error: %s", resp.Status)
		}
		return "", fmt.Errorf("ollama API error: %s: %s", resp.Status, msg)
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return strings.TrimSpace(out.Response), nil
}
