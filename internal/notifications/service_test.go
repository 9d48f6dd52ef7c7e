package notifications

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/config"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *models.WatchReport {
	return &models.WatchReport{
		GeneratedAt:       time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
		BrandID:           "acme",
		BrandName:         "Acme",
		PromptsChecked:    2,
		FailedChecks:      1,
		AverageVisibility: 25,
		AlertThreshold:    40,
		Checks: []models.PromptCheckSummary{
			{
				PromptID:       "p1",
				PromptText:     "best CRM tools",
				Result:         &models.PromptCheckResult{VisibilityRate: 25, ModelsChecked: 4, BrandMentionedCount: 1},
				BelowThreshold: true,
			},
			{PromptID: "p2", PromptText: "Acme vs Globex", Error: "backend returned status 502: bad gateway"},
		},
	}
}

func TestBuildTeamsMessage(t *testing.T) {
	message := buildTeamsMessage(sampleReport())

	assert.Equal(t, "MessageCard", message.Type)
	assert.Equal(t, "d13438", message.ThemeColor)
	assert.Contains(t, message.Title, "Acme")
	require.Len(t, message.Sections, 2)
	assert.Equal(t, "Below 40% visibility", message.Sections[1].ActivityTitle)
	assert.Contains(t, message.Sections[1].ActivityText, "best CRM tools")
}

func TestBuildEmail(t *testing.T) {
	html, err := buildEmailHTML(sampleReport())
	require.NoError(t, err)
	assert.Contains(t, html, `class="check red"`)
	assert.Contains(t, html, "check failed: backend returned status 502: bad gateway")

	text := buildEmailText(sampleReport())
	assert.Contains(t, text, "Visibility: 25% [red] (1 of 4 providers)")
	assert.Contains(t, text, "Average visibility: 25%")
}

func TestSendReport_Teams(t *testing.T) {
	var received TeamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})
	assert.True(t, service.Enabled())
	require.NoError(t, service.SendReport(sampleReport()))
	assert.Equal(t, "MessageCard", received.Type)
}

func TestSendReport_TeamsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("invalid card"))
	}))
	defer server.Close()

	service := NewService(&config.Config{TeamsWebhookURL: server.URL})
	err := service.SendReport(sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid card")
}

func TestSendReport_NoChannels(t *testing.T) {
	service := NewService(&config.Config{})
	assert.False(t, service.Enabled())
	assert.NoError(t, service.SendReport(sampleReport()))
}
