package render

import (
	"sync"

	"github.com/mentha-ai/mentha-cli/internal/providers"
)

// MessageView holds the expand/collapse state of one assistant message's cards.
// Cards start expanded.
type MessageView struct {
	mu        sync.Mutex
	collapsed map[providers.ID]bool
}

// NewMessageView creates a view with every card expanded
func NewMessageView() *MessageView {
	return &MessageView{collapsed: make(map[providers.ID]bool)}
}

// Toggle flips a single card
func (v *MessageView) Toggle(p providers.ID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.collapsed[p] = !v.collapsed[p]
}

// Expanded reports whether the card for p is expanded
func (v *MessageView) Expanded(p providers.ID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.collapsed[p]
}

// AllCollapsed reports whether every given card is collapsed
func (v *MessageView) AllCollapsed(ids []providers.ID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(ids) == 0 {
		return false
	}
	for _, p := range ids {
		if !v.collapsed[p] {
			return false
		}
	}
	return true
}

// ToggleAll collapses every card unless all of them already are, in which
// case it expands them all.
func (v *MessageView) ToggleAll(ids []providers.ID) {
	collapse := !v.AllCollapsed(ids)

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range ids {
		v.collapsed[p] = collapse
	}
}

// Views tracks MessageView state per message id
type Views struct {
	mu    sync.Mutex
	views map[string]*MessageView
}

// NewViews creates an empty view registry
func NewViews() *Views {
	return &Views{views: make(map[string]*MessageView)}
}

// For returns the view for messageID, creating it on first use
func (v *Views) For(messageID string) *MessageView {
	v.mu.Lock()
	defer v.mu.Unlock()

	view, ok := v.views[messageID]
	if !ok {
		view = NewMessageView()
		v.views[messageID] = view
	}
	return view
}

// Reset forgets every view, used when the transcript is replaced
func (v *Views) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.views = make(map[string]*MessageView)
}
