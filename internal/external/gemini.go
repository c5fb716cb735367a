package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"floodwatch/internal/types"
)

const (
	geminiAPIBase      = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel = "gemini-2.5-flash"
)

// GeminiClientConfig configures a GeminiClient.
type GeminiClientConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// GeminiClient generates alert email content with structured JSON output.
type GeminiClient struct {
	base    *BaseClient
	apiKey  string
	model   string
	baseURL string
}

// NewGeminiClient creates a GeminiClient. Generation is slow, so the
// default HTTP timeout is longer than for the email providers.
func NewGeminiClient(httpClient *http.Client, cfg GeminiClientConfig) *GeminiClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	base := NewBaseClient(httpClient, "gemini", RetryPolicy{
		MaxRetries: 1,
		MinWait:    time.Second,
		MaxWait:    5 * time.Second,
	}, userAgent)
	return NewGeminiClientWithBase(base, cfg)
}

// NewGeminiClientWithBase creates a GeminiClient over an existing BaseClient.
func NewGeminiClientWithBase(base *BaseClient, cfg GeminiClientConfig) *GeminiClient {
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = geminiAPIBase
	}
	return &GeminiClient{
		base:    base,
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt with schema as the response schema and decodes the
// first candidate into AlertContent.
func (g *GeminiClient) Generate(ctx context.Context, prompt string, schema map[string]any) (types.AlertContent, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		},
	})
	if err != nil {
		return types.AlertContent{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal Gemini request", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.AlertContent{}, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create Gemini request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.base.Do(req)
	if err != nil {
		return types.AlertContent{}, wrapTransportError("gemini", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.AlertContent{}, types.NewAppError(types.ErrCodeUpstreamContentGen, "failed to read Gemini response", err)
	}
	var out geminiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return types.AlertContent{}, types.NewAppError(types.ErrCodeUpstreamContentGen,
			fmt.Sprintf("Gemini returned undecodable body (%d)", resp.StatusCode), err)
	}
	if resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil {
			msg = out.Error.Message
		}
		return types.AlertContent{}, types.NewAppError(types.ErrCodeUpstreamContentGen,
			fmt.Sprintf("Gemini error (%d): %s", resp.StatusCode, msg), nil)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return types.AlertContent{}, types.NewAppError(types.ErrCodeUpstreamContentGen, "Gemini returned no candidates", nil)
	}

	var content types.AlertContent
	text := out.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &content); err != nil {
		return types.AlertContent{}, types.NewAppError(types.ErrCodeUpstreamContentGen, "Gemini candidate is not valid JSON", err)
	}
	return content, nil
}

// stripCodeFence removes a ```json fence some models wrap JSON output in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
