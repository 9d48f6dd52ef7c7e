package prompts

import (
	"fmt"
	"time"
)

// NeverChecked is shown for prompts without a completed check
const NeverChecked = "Never checked"

// TimeAgo formats t relative to now in minute, hour or day buckets
func TimeAgo(t *time.Time, now time.Time) string {
	if t == nil {
		return NeverChecked
	}

	elapsed := now.Sub(*t)
	if elapsed < 0 {
		elapsed = 0
	}

	switch {
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed/time.Minute))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(elapsed/(24*time.Hour)))
	}
}
