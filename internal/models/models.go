package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/providers"
)

var (
	// ErrEmptyPrompt is returned when prompt text is blank
	ErrEmptyPrompt = errors.New("prompt text is required")
	// ErrInvalidCategory is returned for a category outside the enum
	ErrInvalidCategory = errors.New("invalid prompt category")
)

// Category classifies a tracked prompt
type Category string

const (
	CategoryProduct              Category = "product"
	CategoryCompetitorComparison Category = "competitor_comparison"
	CategoryFeature              Category = "feature"
	CategoryReview               Category = "review"
	CategoryOther                Category = "other"
)

// Categories lists every valid category
var Categories = []Category{
	CategoryProduct,
	CategoryCompetitorComparison,
	CategoryFeature,
	CategoryReview,
	CategoryOther,
}

// Valid reports whether c is one of the enumerated categories
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory parses a category name. Hyphens are accepted in place of underscores.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// CheckFrequency is how often a tracked prompt should be re-evaluated
type CheckFrequency string

const (
	FrequencyHourly CheckFrequency = "hourly"
	FrequencyDaily  CheckFrequency = "daily"
	FrequencyWeekly CheckFrequency = "weekly"
)

// Interval returns the cadence as a duration. Unknown values count as daily.
func (f CheckFrequency) Interval() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// TrackedPrompt is a user-defined question monitored over time
type TrackedPrompt struct {
	ID             string         `json:"id"`
	BrandID        string         `json:"brand_id"`
	PromptText     string         `json:"prompt_text"`
	Category       *Category      `json:"category"`
	IsActive       bool           `json:"is_active"`
	CheckFrequency CheckFrequency `json:"check_frequency"`
	LastCheckedAt  *time.Time     `json:"last_checked_at"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Validate enforces the tracked prompt invariants
func (p *TrackedPrompt) Validate() error {
	if strings.TrimSpace(p.PromptText) == "" {
		return ErrEmptyPrompt
	}
	if p.Category != nil && !p.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, *p.Category)
	}
	return nil
}

// ProviderResult is one provider's outcome within a prompt check
type ProviderResult struct {
	Provider       providers.ID `json:"provider"`
	Mentioned      bool         `json:"mentioned"`
	Position       *int         `json:"position,omitempty"`        // 1-based rank
	Sentiment      string       `json:"sentiment,omitempty"`       // "positive", "negative", "neutral"
	SentimentScore *float64     `json:"sentiment_score,omitempty"`
}

// PromptCheckResult is the outcome of evaluating a tracked prompt once
type PromptCheckResult struct {
	VisibilityRate      int              `json:"visibility_rate"`
	ModelsChecked       int              `json:"models_checked"`
	BrandMentionedCount int              `json:"brand_mentioned_count"`
	Results             []ProviderResult `json:"results"`
}

// VisibilityRate is the rounded percentage of checked providers that mentioned the brand
func VisibilityRate(mentioned, checked int) int {
	if checked <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(mentioned) / float64(checked)))
}

// Validate enforces the count and rate invariants
func (r *PromptCheckResult) Validate() error {
	if r.BrandMentionedCount < 0 || r.ModelsChecked < 0 {
		return fmt.Errorf("negative provider counts")
	}
	if r.BrandMentionedCount > r.ModelsChecked {
		return fmt.Errorf("brand mentioned by %d of %d providers", r.BrandMentionedCount, r.ModelsChecked)
	}
	if want := VisibilityRate(r.BrandMentionedCount, r.ModelsChecked); r.VisibilityRate != want {
		return fmt.Errorf("visibility rate %d does not match %d/%d (want %d)",
			r.VisibilityRate, r.BrandMentionedCount, r.ModelsChecked, want)
	}
	return nil
}

// Role is the author of a chat message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ResponseState is the variant tag of a ProviderResponse
type ResponseState int

const (
	StateLoading ResponseState = iota
	StateSuccess
	StateError
)

func (s ResponseState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ProviderResponse is one provider's answer inside an assistant message.
// Build it with LoadingResponse, SuccessResponse or ErrorResponse.
type ProviderResponse struct {
	Provider  providers.ID
	State     ResponseState
	Content   string
	Mentioned bool
	Error     string
}

func LoadingResponse(p providers.ID) ProviderResponse {
	return ProviderResponse{Provider: p, State: StateLoading}
}

func SuccessResponse(p providers.ID, content string, mentioned bool) ProviderResponse {
	return ProviderResponse{Provider: p, State: StateSuccess, Content: content, Mentioned: mentioned}
}

func ErrorResponse(p providers.ID, message string) ProviderResponse {
	return ProviderResponse{Provider: p, State: StateError, Error: message}
}

// IsLoading reports whether the provider is still awaiting an answer
func (r ProviderResponse) IsLoading() bool {
	return r.State == StateLoading
}

// ChatMessage is one turn in an interactive session
type ChatMessage struct {
	ID        string
	Role      Role
	Content   string
	Responses []ProviderResponse
	Timestamp time.Time
}

// Validate checks the role-dependent shape of the message
func (m *ChatMessage) Validate() error {
	switch m.Role {
	case RoleUser:
		if m.Content == "" || m.Responses != nil {
			return fmt.Errorf("user message %s must have content and no responses", m.ID)
		}
	case RoleAssistant:
		if m.Content != "" || m.Responses == nil {
			return fmt.Errorf("assistant message %s must have responses and no content", m.ID)
		}
	default:
		return fmt.Errorf("message %s has unknown role %q", m.ID, m.Role)
	}
	return nil
}

// Clone returns a deep copy of the message
func (m ChatMessage) Clone() ChatMessage {
	if m.Responses != nil {
		responses := make([]ProviderResponse, len(m.Responses))
		copy(responses, m.Responses)
		m.Responses = responses
	}
	return m
}

// SessionResult is a stored provider answer within a chat session
type SessionResult struct {
	Provider  providers.ID `json:"provider"`
	Content   string       `json:"content"`
	Mentioned bool         `json:"mentioned"`
	Error     string       `json:"error,omitempty"`
}

// ChatSession is a persisted prompt together with its provider answers
type ChatSession struct {
	ID        string          `json:"id"`
	BrandID   string          `json:"brand_id"`
	Prompt    string          `json:"prompt"`
	CreatedAt time.Time       `json:"created_at"`
	Results   []SessionResult `json:"results"`
}

// PromptCheckSummary is one prompt's line in a watch report
type PromptCheckSummary struct {
	PromptID       string             `json:"prompt_id"`
	PromptText     string             `json:"prompt_text"`
	Result         *PromptCheckResult `json:"result,omitempty"`
	Error          string             `json:"error,omitempty"`
	BelowThreshold bool               `json:"below_threshold"`
}

// WatchReport summarizes one scheduled run over a brand's due prompts
type WatchReport struct {
	GeneratedAt       time.Time            `json:"generated_at"`
	BrandID           string               `json:"brand_id"`
	BrandName         string               `json:"brand_name"`
	PromptsChecked    int                  `json:"prompts_checked"`
	FailedChecks      int                  `json:"failed_checks"`
	AverageVisibility int                  `json:"average_visibility"`
	AlertThreshold    int                  `json:"alert_threshold"`
	Checks            []PromptCheckSummary `json:"checks"`
}

// Alerts returns the successful checks that fell below the alert threshold
func (r *WatchReport) Alerts() []PromptCheckSummary {
	var alerts []PromptCheckSummary
	for _, c := range r.Checks {
		if c.BelowThreshold {
			alerts = append(alerts, c)
		}
	}
	return alerts
}
