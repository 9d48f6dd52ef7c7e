package prompts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/api"
	"github.com/mentha-ai/mentha-cli/internal/check"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("prompt store is closed")

// Store holds an in-memory copy of one brand's tracked prompts. The backend
// owns the prompts; the store only mirrors the results of its own calls.
type Store struct {
	backend      api.PromptsBackend
	orchestrator *check.Orchestrator
	brandID      string
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	prompts    []models.TrackedPrompt
	lastResult *CheckOutcome
}

// CheckOutcome is the most recent successful check, shown in the summary view
type CheckOutcome struct {
	PromptID string
	Result   models.PromptCheckResult
}

// NewStore creates a store for brandID
func NewStore(backend api.PromptsBackend, orchestrator *check.Orchestrator, brandID string) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		backend:      backend,
		orchestrator: orchestrator,
		brandID:      brandID,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Close cancels in-flight requests; their results are discarded
func (s *Store) Close() {
	s.cancel()
}

// List fetches the brand's prompts. On failure the list is left empty.
func (s *Store) List(ctx context.Context) ([]models.TrackedPrompt, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	prompts, err := s.backend.ListPrompts(ctx, s.brandID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}

	if err != nil {
		logrus.WithError(err).Errorf("Failed to fetch tracked prompts for brand %s", s.brandID)
		s.prompts = nil
		return nil, err
	}

	s.prompts = append([]models.TrackedPrompt(nil), prompts...)
	return s.snapshot(), nil
}

// Create adds a prompt with a daily cadence. Blank text is rejected before any
// request is made.
func (s *Store) Create(ctx context.Context, text string, category *models.Category) (*models.TrackedPrompt, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.ErrEmptyPrompt
	}
	if category != nil && !category.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidCategory, *category)
	}

	ctx, cancel := s.scope(ctx)
	defer cancel()

	prompt, err := s.backend.CreatePrompt(ctx, s.brandID, api.CreatePromptRequest{
		PromptText:     text,
		Category:       category,
		CheckFrequency: models.FrequencyDaily,
	})
	if err != nil {
		logrus.WithError(err).Errorf("Failed to create tracked prompt for brand %s", s.brandID)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}

	s.prompts = append([]models.TrackedPrompt{*prompt}, s.prompts...)
	logrus.Infof("Created tracked prompt %s for brand %s", prompt.ID, s.brandID)
	return prompt, nil
}

// Delete removes a prompt, leaving the order of the others unchanged
func (s *Store) Delete(ctx context.Context, promptID string) error {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	if err := s.backend.DeletePrompt(ctx, promptID); err != nil {
		logrus.WithError(err).Errorf("Failed to delete tracked prompt %s", promptID)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return ErrClosed
	}

	for i, p := range s.prompts {
		if p.ID == promptID {
			s.prompts = append(s.prompts[:i:i], s.prompts[i+1:]...)
			break
		}
	}
	if s.lastResult != nil && s.lastResult.PromptID == promptID {
		s.lastResult = nil
	}
	s.orchestrator.Forget(promptID)
	return nil
}

// Check runs a check for promptID. On success the prompt is marked as checked
// now without re-fetching, and the result becomes the last result.
func (s *Store) Check(ctx context.Context, promptID, brandName string, competitors []string) (*models.PromptCheckResult, error) {
	ctx, cancel := s.scope(ctx)
	defer cancel()

	result, err := s.orchestrator.Run(ctx, promptID, brandName, competitors)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return nil, ErrClosed
	}

	checkedAt := s.now()
	for i := range s.prompts {
		if s.prompts[i].ID == promptID {
			s.prompts[i].LastCheckedAt = &checkedAt
			break
		}
	}
	s.lastResult = &CheckOutcome{PromptID: promptID, Result: *result}

	return result, nil
}

// Checking reports whether a check for promptID is in flight
func (s *Store) Checking(promptID string) bool {
	return s.orchestrator.Running(promptID)
}

// Prompts returns a copy of the current list
func (s *Store) Prompts() []models.TrackedPrompt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// LastResult returns the most recent successful check, if any
func (s *Store) LastResult() (CheckOutcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.lastResult == nil {
		return CheckOutcome{}, false
	}
	return *s.lastResult, true
}

// BrandID returns the brand this store mirrors
func (s *Store) BrandID() string {
	return s.brandID
}

func (s *Store) snapshot() []models.TrackedPrompt {
	out := make([]models.TrackedPrompt, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// scope derives a request context that is also cancelled when the store closes
func (s *Store) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
