package models

import (
	"testing"

	"github.com/mentha-ai/mentha-cli/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityRate(t *testing.T) {
	tests := []struct {
		name      string
		mentioned int
		checked   int
		expected  int
	}{
		{name: "None checked", mentioned: 0, checked: 0, expected: 0},
		{name: "All mentioned", mentioned: 4, checked: 4, expected: 100},
		{name: "One of three rounds down", mentioned: 1, checked: 3, expected: 33},
		{name: "Two of three rounds up", mentioned: 2, checked: 3, expected: 67},
		{name: "Half", mentioned: 2, checked: 4, expected: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VisibilityRate(tt.mentioned, tt.checked))
		})
	}
}

func TestPromptCheckResult_Validate(t *testing.T) {
	valid := PromptCheckResult{VisibilityRate: 67, ModelsChecked: 3, BrandMentionedCount: 2}
	assert.NoError(t, valid.Validate())

	tooMany := PromptCheckResult{VisibilityRate: 100, ModelsChecked: 2, BrandMentionedCount: 3}
	assert.Error(t, tooMany.Validate())

	wrongRate := PromptCheckResult{VisibilityRate: 50, ModelsChecked: 3, BrandMentionedCount: 2}
	assert.Error(t, wrongRate.Validate())
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("competitor-comparison")
	require.NoError(t, err)
	assert.Equal(t, CategoryCompetitorComparison, c)

	_, err = ParseCategory("pricing")
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestTrackedPrompt_Validate(t *testing.T) {
	bad := Category("pricing")
	tests := []struct {
		name    string
		prompt  TrackedPrompt
		wantErr error
	}{
		{name: "Valid without category", prompt: TrackedPrompt{PromptText: "best CRM tools"}},
		{name: "Blank text", prompt: TrackedPrompt{PromptText: "   "}, wantErr: ErrEmptyPrompt},
		{name: "Bad category", prompt: TrackedPrompt{PromptText: "x", Category: &bad}, wantErr: ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prompt.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestChatMessage_Validate(t *testing.T) {
	user := ChatMessage{ID: "1", Role: RoleUser, Content: "hi"}
	assert.NoError(t, user.Validate())

	assistant := ChatMessage{ID: "2", Role: RoleAssistant, Responses: []ProviderResponse{LoadingResponse(providers.OpenAI)}}
	assert.NoError(t, assistant.Validate())

	emptyAssistant := ChatMessage{ID: "3", Role: RoleAssistant, Responses: []ProviderResponse{}}
	assert.NoError(t, emptyAssistant.Validate())

	mixed := ChatMessage{ID: "4", Role: RoleUser, Content: "hi", Responses: []ProviderResponse{}}
	assert.Error(t, mixed.Validate())

	noResponses := ChatMessage{ID: "5", Role: RoleAssistant}
	assert.Error(t, noResponses.Validate())
}

func TestChatMessage_CloneIsDeep(t *testing.T) {
	msg := ChatMessage{Role: RoleAssistant, Responses: []ProviderResponse{LoadingResponse(providers.Gemini)}}
	clone := msg.Clone()
	clone.Responses[0] = ErrorResponse(providers.Gemini, "boom")
	assert.True(t, msg.Responses[0].IsLoading())
}

func TestCheckFrequency_Interval(t *testing.T) {
	assert.Equal(t, "1h0m0s", FrequencyHourly.Interval().String())
	assert.Equal(t, "24h0m0s", FrequencyDaily.Interval().String())
	assert.Equal(t, "168h0m0s", FrequencyWeekly.Interval().String())
	assert.Equal(t, "24h0m0s", CheckFrequency("").Interval().String())
}
