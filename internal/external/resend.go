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

const resendAPIBase = "https://api.resend.com"

const userAgent = "floodwatch/1.0"

// ResendClientConfig configures a ResendClient.
type ResendClientConfig struct {
	APIKey  string
	From    Sender
	BaseURL string
}

// ResendClient implements EmailProvider with the Resend emails API.
type ResendClient struct {
	base    *BaseClient
	apiKey  string
	from    Sender
	baseURL string
}

// NewResendClient creates a ResendClient with its own BaseClient.
func NewResendClient(httpClient *http.Client, cfg ResendClientConfig) *ResendClient {
	base := NewBaseClient(httpClient, "resend", RetryPolicy{
		MaxRetries: 2,
		MinWait:    500 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}, userAgent)
	return NewResendClientWithBase(base, cfg)
}

// NewResendClientWithBase creates a ResendClient over an existing BaseClient.
func NewResendClientWithBase(base *BaseClient, cfg ResendClientConfig) *ResendClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = resendAPIBase
	}
	return &ResendClient{
		base:    base,
		apiKey:  cfg.APIKey,
		from:    cfg.From,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

// SendEmail posts the message and returns the Resend email id.
func (r *ResendClient) SendEmail(ctx context.Context, to, subject, html string) (string, error) {
	body, err := json.Marshal(resendRequest{
		From:    r.fromHeader(),
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal Resend payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create Resend request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.base.Do(req)
	if err != nil {
		return "", wrapTransportError("resend", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamEmailProvider, "failed to read Resend response", err)
	}
	var out resendResponse
	_ = json.Unmarshal(raw, &out)

	if resp.StatusCode >= 300 {
		msg := out.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", types.NewAppError(types.ErrCodeUpstreamEmailProvider,
			fmt.Sprintf("Resend error (%d): %s", resp.StatusCode, msg), nil)
	}
	return out.ID, nil
}

func (r *ResendClient) fromHeader() string {
	if r.from.Name == "" {
		return r.from.Address
	}
	return fmt.Sprintf("%s <%s>", r.from.Name, r.from.Address)
}

var _ EmailProvider = (*ResendClient)(nil)
