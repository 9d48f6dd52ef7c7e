package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/check"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/mentha-ai/mentha-cli/internal/prompts"
	"github.com/mentha-ai/mentha-cli/internal/providers"
)

const (
	// PreviewLength is how many characters a collapsed card shows
	PreviewLength = 60

	loadingIndicator = "● ● ●"
	mentionedBadge   = "[mentioned]"
)

// Preview truncates content to PreviewLength characters
func Preview(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + "..."
}

// ToggleAllLabel is the label of the collapse-all control for a message
func ToggleAllLabel(msg models.ChatMessage, view *MessageView) string {
	if len(msg.Responses) <= 1 {
		return ""
	}
	if view.AllCollapsed(responseProviders(msg)) {
		return "[expand all]"
	}
	return "[collapse all]"
}

// Message writes one transcript message
func Message(w io.Writer, msg models.ChatMessage, view *MessageView) {
	if msg.Role == models.RoleUser {
		fmt.Fprintf(w, "\nyou> %s\n", msg.Content)
		return
	}

	if label := ToggleAllLabel(msg, view); label != "" {
		fmt.Fprintf(w, "%s\n", label)
	}

	if len(msg.Responses) == 0 {
		fmt.Fprintln(w, "  (no providers answered)")
		return
	}

	for _, r := range msg.Responses {
		card(w, r, view.Expanded(r.Provider))
	}
}

func card(w io.Writer, r models.ProviderResponse, expanded bool) {
	header := fmt.Sprintf("── %s", providers.DisplayName(r.Provider))
	if r.State == models.StateSuccess && r.Mentioned {
		header += " " + mentionedBadge
	}
	if !expanded {
		header += " (+)"
	}
	fmt.Fprintln(w, header)

	switch r.State {
	case models.StateLoading:
		fmt.Fprintf(w, "   %s\n", loadingIndicator)
	case models.StateError:
		fmt.Fprintf(w, "   error: %s\n", r.Error)
	default:
		if !expanded {
			fmt.Fprintf(w, "   %s\n", Preview(r.Content))
			return
		}
		for _, line := range strings.Split(strings.TrimRight(r.Content, "\n"), "\n") {
			fmt.Fprintf(w, "   %s\n", line)
		}
	}
}

// Transcript writes every message of a session
func Transcript(w io.Writer, messages []models.ChatMessage, views *Views) {
	for _, msg := range messages {
		Message(w, msg, views.For(msg.ID))
	}
}

// CheckSummary writes the result of a prompt check: the aggregate rate with
// its color band, then one row per provider.
func CheckSummary(w io.Writer, promptText string, result models.PromptCheckResult) {
	fmt.Fprintf(w, "Prompt: %s\n", promptText)
	fmt.Fprintf(w, "Visibility: %d%% [%s] (%d of %d providers mentioned the brand)\n",
		result.VisibilityRate, check.BandFor(result.VisibilityRate), result.BrandMentionedCount, result.ModelsChecked)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range result.Results {
		mark := "✗"
		if r.Mentioned {
			mark = "✓"
		}
		rank := ""
		if r.Position != nil {
			rank = fmt.Sprintf("#%d", *r.Position)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", mark, providers.DisplayName(r.Provider), rank, r.Sentiment)
	}
	tw.Flush()
}

// PromptList writes a brand's tracked prompts, or the empty state
func PromptList(w io.Writer, list []models.TrackedPrompt, now time.Time, checking func(id string) bool) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No tracked prompts yet.")
		fmt.Fprintln(w, `Quick add: mentha prompts add "best CRM tools"`)
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPROMPT\tCATEGORY\tFREQUENCY\tLAST CHECKED")
	for _, p := range list {
		category := "-"
		if p.Category != nil {
			category = string(*p.Category)
		}
		last := prompts.TimeAgo(p.LastCheckedAt, now)
		if checking != nil && checking(p.ID) {
			last += " (checking)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.PromptText, category, p.CheckFrequency, last)
	}
	tw.Flush()
}

// SessionList writes the stored chat sessions, marking the selected one
func SessionList(w io.Writer, sessions []models.ChatSession, selectedID string, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No chat history yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, s := range sessions {
		marker := " "
		if s.ID == selectedID {
			marker = "*"
		}
		created := s.CreatedAt
		fmt.Fprintf(tw, "%s %s\t%s\t%d providers\t%s\n",
			marker, s.ID, Preview(s.Prompt), len(s.Results), prompts.TimeAgo(&created, now))
	}
	tw.Flush()
}

// ProviderList writes the provider registry, marking the selected providers
func ProviderList(w io.Writer, selected []providers.ID) {
	on := make(map[providers.ID]bool)
	for _, id := range selected {
		on[id] = true
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, info := range providers.All() {
		mark := "[ ]"
		if on[info.ID] {
			mark = "[x]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, info.ID, info.Name, info.Color)
	}
	tw.Flush()
}

func responseProviders(msg models.ChatMessage) []providers.ID {
	ids := make([]providers.ID, 0, len(msg.Responses))
	for _, r := range msg.Responses {
		ids = append(ids, r.Provider)
	}
	return ids
}
