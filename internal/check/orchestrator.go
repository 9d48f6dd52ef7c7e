package check

import (
	"context"
	"fmt"
	"sync"

	"github.com/mentha-ai/mentha-cli/internal/api"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// State is the lifecycle of one prompt's check
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Checker is the subset of the backend a check needs
type Checker interface {
	CheckPrompt(ctx context.Context, promptID string, req api.CheckRequest) (*models.PromptCheckResult, error)
}

// Orchestrator runs prompt checks, keeping at most one request in flight per
// prompt. A trigger for a prompt that is already running joins that request.
// The shared request lives as long as at least one caller still waits on it.
type Orchestrator struct {
	backend Checker
	group   singleflight.Group

	mu      sync.RWMutex
	states  map[string]State
	flights map[string]*flight
}

// flight is the shared lifetime of one prompt's in-flight check
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

// NewOrchestrator creates a new check orchestrator
func NewOrchestrator(backend Checker) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		states:  make(map[string]State),
		flights: make(map[string]*flight),
	}
}

// Run checks promptID for brandName against the backend's providers. It
// returns early with ctx.Err() when ctx ends, without aborting the request
// for other callers still waiting on it.
func (o *Orchestrator) Run(ctx context.Context, promptID, brandName string, competitors []string) (*models.PromptCheckResult, error) {
	f := o.join(ctx, promptID)
	defer o.leave(promptID, f)

	ch := o.group.DoChan(promptID, func() (interface{}, error) {
		o.setState(promptID, f, StateRunning)

		result, err := o.backend.CheckPrompt(f.ctx, promptID, api.CheckRequest{
			BrandName:   brandName,
			Competitors: competitors,
		})
		if err != nil {
			o.setState(promptID, f, StateFailed)
			logrus.WithError(err).Errorf("Check failed for prompt %s", promptID)
			return nil, fmt.Errorf("check prompt %s: %w", promptID, err)
		}

		o.setState(promptID, f, StateSucceeded)
		logrus.Infof("Prompt %s checked: %d%% visibility (%d/%d providers)",
			promptID, result.VisibilityRate, result.BrandMentionedCount, result.ModelsChecked)
		return result, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			logrus.Debugf("Check for prompt %s joined an in-flight request", promptID)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.PromptCheckResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) join(ctx context.Context, promptID string) *flight {
	o.mu.Lock()
	defer o.mu.Unlock()

	f, ok := o.flights[promptID]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		o.flights[promptID] = f
	}
	f.waiters++
	return f
}

// leave drops one waiter. The last one out cancels the request and lets the
// next trigger start a fresh one.
func (o *Orchestrator) leave(promptID string, f *flight) {
	o.mu.Lock()
	defer o.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}

	f.cancel()
	if o.flights[promptID] != f {
		return
	}
	delete(o.flights, promptID)
	o.group.Forget(promptID)
	if o.states[promptID] == StateRunning {
		delete(o.states, promptID)
	}
}

// State returns the current check state of promptID
func (o *Orchestrator) State(promptID string) State {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if state, ok := o.states[promptID]; ok {
		return state
	}
	return StateIdle
}

// Running reports whether a check for promptID is in flight
func (o *Orchestrator) Running(promptID string) bool {
	return o.State(promptID) == StateRunning
}

// Forget drops the state kept for promptID. A check still in flight for it
// completes for its callers but no longer records a state.
func (o *Orchestrator) Forget(promptID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.states, promptID)
	if _, ok := o.flights[promptID]; ok {
		delete(o.flights, promptID)
		o.group.Forget(promptID)
	}
}

func (o *Orchestrator) setState(promptID string, f *flight, state State) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.flights[promptID] != f {
		return
	}
	o.states[promptID] = state
}
