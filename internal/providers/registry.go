package providers

import (
	"errors"
	"fmt"
	"strings"
)

// ID identifies an AI answer provider
type ID string

const (
	OpenAI     ID = "openai"
	Anthropic  ID = "anthropic"
	Perplexity ID = "perplexity"
	Gemini     ID = "gemini"
)

// ErrUnknownProvider is returned when parsing an identifier outside the registry
var ErrUnknownProvider = errors.New("unknown provider")

// Info holds display metadata for a provider
type Info struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

var registry = []Info{
	{ID: OpenAI, Name: "ChatGPT", Icon: "/providers/openai.svg", Color: "#10a37f"},
	{ID: Anthropic, Name: "Claude", Icon: "/providers/claude.svg", Color: "#d97757"},
	{ID: Perplexity, Name: "Perplexity", Icon: "/providers/perplexity.svg", Color: "#20808d"},
	{ID: Gemini, Name: "Gemini", Icon: "/providers/gemini.svg", Color: "#4285f4"},
}

// All returns every known provider in display order
func All() []Info {
	out := make([]Info, len(registry))
	copy(out, registry)
	return out
}

// IDs returns every known provider identifier in display order
func IDs() []ID {
	ids := make([]ID, 0, len(registry))
	for _, info := range registry {
		ids = append(ids, info.ID)
	}
	return ids
}

// Lookup returns the metadata for id
func Lookup(id ID) (Info, bool) {
	for _, info := range registry {
		if info.ID == id {
			return info, true
		}
	}
	return Info{}, false
}

// DisplayName returns the provider's display name, or the raw identifier
// when the backend reports a provider this registry does not know.
func DisplayName(id ID) string {
	if info, ok := Lookup(id); ok {
		return info.Name
	}
	return string(id)
}

// Parse converts a user-supplied name into a known provider identifier
func Parse(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := Lookup(id); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
	}
	return id, nil
}

// ParseList parses a list of names, dropping duplicates while keeping order
func ParseList(names []string) ([]ID, error) {
	seen := make(map[ID]bool)
	var ids []ID
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		id, err := Parse(name)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}
