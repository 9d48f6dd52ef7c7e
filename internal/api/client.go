package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/mentha-ai/mentha-cli/internal/providers"
	"github.com/sirupsen/logrus"
)

const userAgent = "Mentha-CLI/1.0"

// Client talks to the Mentha backend REST API
type Client struct {
	client *resty.Client
}

// Ensure Client implements the backend interfaces
var (
	_ PromptsBackend = (*Client)(nil)
	_ QueryBackend   = (*Client)(nil)
	_ HistoryBackend = (*Client)(nil)
)

// CreatePromptRequest is the body of a tracked prompt creation
type CreatePromptRequest struct {
	PromptText     string                `json:"prompt_text"`
	Category       *models.Category      `json:"category"`
	CheckFrequency models.CheckFrequency `json:"check_frequency"`
}

// CheckRequest is the body of a prompt check
type CheckRequest struct {
	BrandName   string   `json:"brand_name"`
	Competitors []string `json:"competitors"`
}

type debugQueryRequest struct {
	BrandID   string         `json:"brand_id"`
	Prompt    string         `json:"prompt"`
	Providers []providers.ID `json:"providers"`
}

// ProviderAnswer is one provider's entry in a debug query response
type ProviderAnswer struct {
	Provider  providers.ID `json:"provider"`
	Content   string       `json:"content"`
	Mentioned bool         `json:"mentioned"`
	Error     string       `json:"error,omitempty"`
}

// QueryResult is the batched multi-provider answer to an ad-hoc query
type QueryResult struct {
	Responses []ProviderAnswer `json:"responses"`
	Error     string           `json:"error,omitempty"`
	CheckID   string           `json:"check_id,omitempty"`
}

// NewClient creates a backend client. A zero timeout leaves requests bounded
// only by their context.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept", "application/json")

	if token != "" {
		client.SetAuthToken(token)
	}

	return &Client{client: client}
}

// ListPrompts fetches every tracked prompt of a brand
func (c *Client) ListPrompts(ctx context.Context, brandID string) ([]models.TrackedPrompt, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("brandId", brandID).
		Get("/api/prompts/{brandId}")
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	if resp.IsError() {
		return nil, newStatusError(resp.StatusCode(), resp.Body())
	}

	prompts, err := decodeList[models.TrackedPrompt](resp.Body(), "prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to decode prompts: %w", err)
	}

	logrus.Debugf("Fetched %d tracked prompts for brand %s", len(prompts), brandID)
	return prompts, nil
}

// CreatePrompt creates a tracked prompt and returns the server's copy
func (c *Client) CreatePrompt(ctx context.Context, brandID string, req CreatePromptRequest) (*models.TrackedPrompt, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("brandId", brandID).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/prompts/{brandId}")
	if err != nil {
		return nil, fmt.Errorf("failed to create prompt: %w", err)
	}
	if resp.IsError() {
		return nil, newStatusError(resp.StatusCode(), resp.Body())
	}

	var prompt models.TrackedPrompt
	if err := json.Unmarshal(resp.Body(), &prompt); err != nil {
		return nil, fmt.Errorf("failed to decode created prompt: %w", err)
	}

	return &prompt, nil
}

// DeletePrompt removes a tracked prompt
func (c *Client) DeletePrompt(ctx context.Context, promptID string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("promptId", promptID).
		Delete("/api/prompts/{promptId}")
	if err != nil {
		return fmt.Errorf("failed to delete prompt %s: %w", promptID, err)
	}
	if resp.IsError() {
		return newStatusError(resp.StatusCode(), resp.Body())
	}
	return nil
}

// CheckPrompt evaluates a tracked prompt against the backend's providers
func (c *Client) CheckPrompt(ctx context.Context, promptID string, req CheckRequest) (*models.PromptCheckResult, error) {
	if req.Competitors == nil {
		req.Competitors = []string{}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("promptId", promptID).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/prompts/{promptId}/check")
	if err != nil {
		return nil, fmt.Errorf("failed to check prompt %s: %w", promptID, err)
	}
	if resp.IsError() {
		return nil, newStatusError(resp.StatusCode(), resp.Body())
	}

	var result models.PromptCheckResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode check result: %w", err)
	}

	if err := result.Validate(); err != nil {
		logrus.Warnf("Check result for prompt %s is inconsistent: %v", promptID, err)
	}

	return &result, nil
}

// DebugQuery sends one ad-hoc prompt to the selected providers. A backend
// `error` with no responses is returned as an *Error.
func (c *Client) DebugQuery(ctx context.Context, brandID, prompt string, providerIDs []providers.ID) (*QueryResult, error) {
	if providerIDs == nil {
		providerIDs = []providers.ID{}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(debugQueryRequest{BrandID: brandID, Prompt: prompt, Providers: providerIDs}).
		Post("/prompts/debug-query")
	if err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}
	if resp.IsError() {
		return nil, newStatusError(resp.StatusCode(), resp.Body())
	}

	var result QueryResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to decode query result: %w", err)
	}

	if result.Error != "" && len(result.Responses) == 0 {
		return nil, &Error{Message: result.Error}
	}

	return &result, nil
}

// ListSessions fetches the persisted chat sessions of a brand, most recent first
func (c *Client) ListSessions(ctx context.Context, brandID string) ([]models.ChatSession, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("brandId", brandID).
		Get("/prompts/debug-history/{brandId}")
	if err != nil {
		return nil, fmt.Errorf("failed to list chat sessions: %w", err)
	}
	if resp.IsError() {
		return nil, newStatusError(resp.StatusCode(), resp.Body())
	}

	sessions, err := decodeList[models.ChatSession](resp.Body(), "sessions")
	if err != nil {
		return nil, fmt.Errorf("failed to decode chat sessions: %w", err)
	}

	return sessions, nil
}

// decodeList accepts either a bare JSON array or an object wrapping it under key
func decodeList[T any](body []byte, key string) ([]T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, err
	}

	items := []T{}
	if raw, ok := wrapped[key]; ok && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
	}
	return items, nil
}
