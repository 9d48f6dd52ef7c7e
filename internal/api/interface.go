package api

import (
	"context"

	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/mentha-ai/mentha-cli/internal/providers"
)

// PromptsBackend defines the tracked prompt endpoints
type PromptsBackend interface {
	ListPrompts(ctx context.Context, brandID string) ([]models.TrackedPrompt, error)
	CreatePrompt(ctx context.Context, brandID string, req CreatePromptRequest) (*models.TrackedPrompt, error)
	DeletePrompt(ctx context.Context, promptID string) error
	CheckPrompt(ctx context.Context, promptID string, req CheckRequest) (*models.PromptCheckResult, error)
}

// QueryBackend defines the ad-hoc multi-provider query endpoint
type QueryBackend interface {
	DebugQuery(ctx context.Context, brandID, prompt string, providerIDs []providers.ID) (*QueryResult, error)
}

// HistoryBackend defines the chat session history endpoint
type HistoryBackend interface {
	ListSessions(ctx context.Context, brandID string) ([]models.ChatSession, error)
}
