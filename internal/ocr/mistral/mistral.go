package mistral

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"labsight/internal/config"
	"labsight/internal/ocr"
	"labsight/internal/port"
)

const ocrPath = "/v1/ocr"

func init() {
	ocr.RegisterProvider("mistral", func(cfg *config.ExtractionConfig) (port.TextExtractor, error) {
		return NewExtractor(cfg), nil
	})
}

// Extractor implements port.TextExtractor using the Mistral OCR API. PDF and
// image inputs are sent as document_url and image_url sources; inline bytes
// are encoded as data URIs.
type Extractor struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewExtractor creates a Mistral-backed extractor from the extraction config.
func NewExtractor(cfg *config.ExtractionConfig) *Extractor {
	base := strings.TrimRight(cfg.MistralBaseURL, "/")
	if base == "" {
		base = "https://api.mistral.ai"
	}
	return newExtractor(cfg, base+ocrPath)
}

// NewExtractorWithEndpoint creates an extractor pointing at a custom API endpoint (for testing).
func NewExtractorWithEndpoint(cfg *config.ExtractionConfig, endpoint string) *Extractor {
	return newExtractor(cfg, endpoint)
}

func newExtractor(cfg *config.ExtractionConfig, endpoint string) *Extractor {
	model := cfg.MistralModel
	if model == "" {
		model = "mistral-ocr-latest"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Extractor{
		apiKey:   cfg.MistralAPIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (e *Extractor) Name() string {
	return "mistral"
}

func (e *Extractor) Extract(ctx context.Context, input port.ExtractInput) (*port.ExtractOutput, error) {
	document, err := buildDocumentSource(input)
	if err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"model":                e.model,
		"document":             document,
		"include_image_base64": false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling mistral OCR API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mistral OCR API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return parseResponse(respBody, input.ContentType)
}

func buildDocumentSource(input port.ExtractInput) (map[string]interface{}, error) {
	isPDF := input.ContentType == "application/pdf"

	if input.URL != "" {
		if isPDF {
			return map[string]interface{}{"type": "document_url", "document_url": input.URL}, nil
		}
		return map[string]interface{}{"type": "image_url", "image_url": input.URL}, nil
	}

	if len(input.Data) == 0 {
		return nil, fmt.Errorf("no document URL or file data provided")
	}

	encoded := base64.StdEncoding.EncodeToString(input.Data)
	switch input.ContentType {
	case "application/pdf":
		dataURI := fmt.Sprintf("data:%s;base64,%s", input.ContentType, encoded)
		return map[string]interface{}{"type": "document_url", "document_url": dataURI}, nil
	case "image/jpeg", "image/png":
		dataURI := fmt.Sprintf("data:%s;base64,%s", input.ContentType, encoded)
		return map[string]interface{}{"type": "image_url", "image_url": dataURI}, nil
	default:
		return nil, fmt.Errorf("unsupported content type for OCR: %s", input.ContentType)
	}
}

// apiResponse models the Mistral OCR API response.
type apiResponse struct {
	Pages []struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

func parseResponse(body []byte, contentType string) (*port.ExtractOutput, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	parts := make([]string, 0, len(resp.Pages))
	for i, page := range resp.Pages {
		if contentType == "application/pdf" {
			parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i+1, page.Markdown))
		} else {
			parts = append(parts, page.Markdown)
		}
	}

	return &port.ExtractOutput{
		Text:      strings.TrimSpace(strings.Join(parts, "\n\n")),
		PageCount: len(resp.Pages),
	}, nil
}
