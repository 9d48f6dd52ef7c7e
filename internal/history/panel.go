package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mentha-ai/mentha-cli/internal/api"
	"github.com/mentha-ai/mentha-cli/internal/chat"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrSessionNotFound is returned when selecting a session that is not listed
var ErrSessionNotFound = errors.New("chat session not found")

// Panel lists a brand's stored chat sessions and resumes them into a chat
// session. It re-fetches whenever an attached session completes a turn.
type Panel struct {
	backend api.HistoryBackend
	brandID string

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions []models.ChatSession
	selected string
	version  int
	detach   func()
}

// NewPanel creates a history panel for brandID
func NewPanel(backend api.HistoryBackend, brandID string) *Panel {
	ctx, cancel := context.WithCancel(context.Background())
	return &Panel{
		backend: backend,
		brandID: brandID,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Load fetches the session list in backend order (most recent first)
func (p *Panel) Load(ctx context.Context) ([]models.ChatSession, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	sessions, err := p.backend.ListSessions(ctx, p.brandID)
	if err != nil {
		logrus.WithError(err).Errorf("Failed to load chat history for brand %s", p.brandID)
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx.Err() != nil {
		return nil, p.ctx.Err()
	}

	p.sessions = append([]models.ChatSession(nil), sessions...)
	p.version++
	return p.snapshot(), nil
}

// Attach subscribes the panel to session so that each successful turn
// triggers a refresh. Attaching again replaces the previous subscription.
func (p *Panel) Attach(session *chat.Session) {
	unsubscribe := session.Subscribe(func(e chat.Event) {
		if e.Kind != chat.EventTurnCompleted {
			return
		}
		if _, err := p.Load(p.ctx); err != nil {
			logrus.Debugf("History refresh after turn failed: %v", err)
		}
	})

	p.mu.Lock()
	previous := p.detach
	p.detach = unsubscribe
	p.mu.Unlock()

	if previous != nil {
		previous()
	}
}

// Select resumes a listed session into target, replacing its transcript
func (p *Panel) Select(target *chat.Session, sessionID string) error {
	p.mu.RLock()
	var record *models.ChatSession
	for i := range p.sessions {
		if p.sessions[i].ID == sessionID {
			record = &p.sessions[i]
			break
		}
	}
	var messages []models.ChatMessage
	if record != nil {
		messages = Rehydrate(*record)
	}
	p.mu.RUnlock()

	if record == nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	if err := target.Resume(messages); err != nil {
		return fmt.Errorf("failed to resume session %s: %w", sessionID, err)
	}

	p.mu.Lock()
	p.selected = sessionID
	p.mu.Unlock()
	return nil
}

// Clear drops the selection highlight, used when a new chat starts
func (p *Panel) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.selected = ""
}

// Sessions returns the loaded list
func (p *Panel) Sessions() []models.ChatSession {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot()
}

// Selected returns the id of the highlighted session
func (p *Panel) Selected() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.selected
}

// Version increases with every successful load
func (p *Panel) Version() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.version
}

// Close detaches the panel and discards in-flight loads
func (p *Panel) Close() {
	p.cancel()

	p.mu.Lock()
	detach := p.detach
	p.detach = nil
	p.mu.Unlock()

	if detach != nil {
		detach()
	}
}

func (p *Panel) snapshot() []models.ChatSession {
	out := make([]models.ChatSession, len(p.sessions))
	copy(out, p.sessions)
	return out
}

// Rehydrate rebuilds the transcript of a stored session: the user message and,
// when the record has results, one assistant message mapped 1:1 from them.
func Rehydrate(record models.ChatSession) []models.ChatMessage {
	messages := []models.ChatMessage{{
		ID:        record.ID + "-user",
		Role:      models.RoleUser,
		Content:   record.Prompt,
		Timestamp: record.CreatedAt,
	}}

	if len(record.Results) == 0 {
		return messages
	}

	responses := make([]models.ProviderResponse, 0, len(record.Results))
	for _, r := range record.Results {
		if r.Error != "" {
			responses = append(responses, models.ErrorResponse(r.Provider, r.Error))
			continue
		}
		responses = append(responses, models.SuccessResponse(r.Provider, r.Content, r.Mentioned))
	}

	return append(messages, models.ChatMessage{
		ID:        record.ID + "-assistant",
		Role:      models.RoleAssistant,
		Responses: responses,
		Timestamp: record.CreatedAt,
	})
}
