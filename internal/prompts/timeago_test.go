package prompts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeAgo(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		t := now.Add(-d)
		return &t
	}

	tests := []struct {
		name     string
		checked  *time.Time
		expected string
	}{
		{name: "Never", checked: nil, expected: "Never checked"},
		{name: "Seconds", checked: at(45 * time.Second), expected: "0m ago"},
		{name: "Minutes", checked: at(59 * time.Minute), expected: "59m ago"},
		{name: "Ninety minutes", checked: at(90 * time.Minute), expected: "1h ago"},
		{name: "Just under a day", checked: at(23*time.Hour + 59*time.Minute), expected: "23h ago"},
		{name: "Fifty hours", checked: at(50 * time.Hour), expected: "2d ago"},
		{name: "Clock skew", checked: at(-5 * time.Minute), expected: "0m ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TimeAgo(tt.checked, now))
		})
	}
}
