package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mentha-ai/mentha-cli/internal/api"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/mentha-ai/mentha-cli/internal/providers"
	"github.com/sirupsen/logrus"
)

var (
	// ErrClosed is returned when submitting to a closed session
	ErrClosed = errors.New("chat session is closed")
	// ErrNoProviders is returned when submitting with an empty selection
	ErrNoProviders = errors.New("no providers selected")
)

// EventKind identifies what changed in a session
type EventKind int

const (
	// EventMessageUpdated fires when a message is appended or resolved
	EventMessageUpdated EventKind = iota
	// EventTurnCompleted fires after a turn resolved successfully
	EventTurnCompleted
	// EventReset fires when the transcript is replaced or cleared
	EventReset
)

// Event describes a change to a session
type Event struct {
	Kind      EventKind
	MessageID string
	CheckID   string
}

// Turn is one submitted exchange
type Turn struct {
	UserMessageID      string
	AssistantMessageID string
	Providers          []providers.ID

	done chan struct{}
}

// Done is closed once the assistant message has been resolved or dropped
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the turn resolves or ctx ends
func (t *Turn) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Session is an in-memory transcript of ad-hoc multi-provider queries for one
// brand. It owns its provider selection and a cancellation scope: requests
// still in flight when the session closes never touch its state.
type Session struct {
	backend api.QueryBackend
	brandID string
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.RWMutex
	messages     []models.ChatMessage
	selection    []providers.ID
	currentCheck string
	subscribers  map[int]func(Event)
	nextSubID    int
}

// NewSession creates a session with every known provider selected
func NewSession(backend api.QueryBackend, brandID string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		backend:     backend,
		brandID:     brandID,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		selection:   providers.IDs(),
		subscribers: make(map[int]func(Event)),
	}
}

// Providers returns the current selection
func (s *Session) Providers() []providers.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]providers.ID(nil), s.selection...)
}

// SetProviders replaces the selection. It only affects later turns.
func (s *Session) SetProviders(ids []providers.ID) error {
	selection := make([]providers.ID, 0, len(ids))
	seen := make(map[providers.ID]bool)
	for _, id := range ids {
		if _, ok := providers.Lookup(id); !ok {
			return providers.ErrUnknownProvider
		}
		if !seen[id] {
			seen[id] = true
			selection = append(selection, id)
		}
	}

	s.mu.Lock()
	s.selection = selection
	s.mu.Unlock()
	return nil
}

// ToggleProvider adds or removes one provider, keeping registry order
func (s *Session) ToggleProvider(id providers.ID) error {
	if _, ok := providers.Lookup(id); !ok {
		return providers.ErrUnknownProvider
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	selected := make(map[providers.ID]bool)
	for _, p := range s.selection {
		selected[p] = true
	}
	selected[id] = !selected[id]

	var next []providers.ID
	for _, p := range providers.IDs() {
		if selected[p] {
			next = append(next, p)
		}
	}
	s.selection = next
	return nil
}

// Submit appends the user message and a loading placeholder for every
// selected provider, then resolves the placeholder in the background. An
// empty selection is rejected without touching the transcript.
func (s *Session) Submit(ctx context.Context, prompt string) (*Turn, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, models.ErrEmptyPrompt
	}
	now := s.now()

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if len(s.selection) == 0 {
		s.mu.Unlock()
		return nil, ErrNoProviders
	}
	requested := append([]providers.ID(nil), s.selection...)

	user := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   prompt,
		Timestamp: now,
	}

	placeholders := make([]models.ProviderResponse, 0, len(requested))
	for _, p := range requested {
		placeholders = append(placeholders, models.LoadingResponse(p))
	}
	assistant := models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Responses: placeholders,
		Timestamp: now,
	}

	s.messages = append(s.messages, user, assistant)
	s.wg.Add(1)
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessageUpdated, MessageID: user.ID})
	s.emit(Event{Kind: EventMessageUpdated, MessageID: assistant.ID})

	turn := &Turn{
		UserMessageID:      user.ID,
		AssistantMessageID: assistant.ID,
		Providers:          requested,
		done:               make(chan struct{}),
	}

	go s.resolve(ctx, turn, prompt)

	return turn, nil
}

func (s *Session) resolve(ctx context.Context, turn *Turn, prompt string) {
	defer s.wg.Done()
	defer close(turn.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	result, err := s.backend.DebugQuery(ctx, s.brandID, prompt, turn.Providers)

	var responses []models.ProviderResponse
	if err != nil {
		logrus.WithError(err).Errorf("Chat query failed for brand %s", s.brandID)
		msg := api.Message(err)
		responses = make([]models.ProviderResponse, 0, len(turn.Providers))
		for _, p := range turn.Providers {
			responses = append(responses, models.ErrorResponse(p, msg))
		}
	} else {
		responses = make([]models.ProviderResponse, 0, len(result.Responses))
		for _, answer := range result.Responses {
			if answer.Error != "" {
				responses = append(responses, models.ErrorResponse(answer.Provider, answer.Error))
				continue
			}
			responses = append(responses, models.SuccessResponse(answer.Provider, answer.Content, answer.Mentioned))
		}
	}

	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		logrus.Debugf("Dropping response for message %s: session closed", turn.AssistantMessageID)
		return
	}

	idx := s.indexOf(turn.AssistantMessageID)
	if idx < 0 {
		s.mu.Unlock()
		logrus.Debugf("Dropping response for message %s: no longer in transcript", turn.AssistantMessageID)
		return
	}

	s.messages[idx].Responses = responses
	if err == nil {
		s.currentCheck = result.CheckID
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventMessageUpdated, MessageID: turn.AssistantMessageID})
	if err == nil {
		s.emit(Event{Kind: EventTurnCompleted, MessageID: turn.AssistantMessageID, CheckID: result.CheckID})
	}
}

// Resume replaces the whole transcript and clears the current check pointer
func (s *Session) Resume(messages []models.ChatMessage) error {
	for i := range messages {
		if err := messages[i].Validate(); err != nil {
			return err
		}
	}

	cloned := make([]models.ChatMessage, 0, len(messages))
	for _, m := range messages {
		cloned = append(cloned, m.Clone())
	}

	s.mu.Lock()
	s.messages = cloned
	s.currentCheck = ""
	s.mu.Unlock()

	s.emit(Event{Kind: EventReset})
	return nil
}

// NewChat clears the transcript and the current check pointer
func (s *Session) NewChat() {
	s.mu.Lock()
	s.messages = nil
	s.currentCheck = ""
	s.mu.Unlock()

	s.emit(Event{Kind: EventReset})
}

// Messages returns a copy of the transcript
func (s *Session) Messages() []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ChatMessage, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m.Clone())
	}
	return out
}

// Message returns a copy of one message
func (s *Session) Message(id string) (models.ChatMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.indexOf(id); idx >= 0 {
		return s.messages[idx].Clone(), true
	}
	return models.ChatMessage{}, false
}

// CurrentCheck returns the backend id of the last resolved turn, if any
func (s *Session) CurrentCheck() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentCheck
}

// BrandID returns the brand the session queries for
func (s *Session) BrandID() string {
	return s.brandID
}

// Subscribe registers fn for session events and returns its cancel func.
// Callbacks run on the goroutine that caused the change.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// Close cancels in-flight turns and waits for them to finish
func (s *Session) Close() {
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) emit(e Event) {
	s.mu.RLock()
	subs := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}

func (s *Session) indexOf(id string) int {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}
