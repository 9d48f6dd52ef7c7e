package watch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/api"
	"github.com/mentha-ai/mentha-cli/internal/check"
	"github.com/mentha-ai/mentha-cli/internal/config"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/mentha-ai/mentha-cli/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBackend is a mock implementation of the prompts backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListPrompts(ctx context.Context, brandID string) ([]models.TrackedPrompt, error) {
	args := m.Called(ctx, brandID)
	list, _ := args.Get(0).([]models.TrackedPrompt)
	return list, args.Error(1)
}

func (m *MockBackend) CreatePrompt(ctx context.Context, brandID string, req api.CreatePromptRequest) (*models.TrackedPrompt, error) {
	args := m.Called(ctx, brandID, req)
	p, _ := args.Get(0).(*models.TrackedPrompt)
	return p, args.Error(1)
}

func (m *MockBackend) DeletePrompt(ctx context.Context, promptID string) error {
	args := m.Called(ctx, promptID)
	return args.Error(0)
}

func (m *MockBackend) CheckPrompt(ctx context.Context, promptID string, req api.CheckRequest) (*models.PromptCheckResult, error) {
	args := m.Called(ctx, promptID, req)
	r, _ := args.Get(0).(*models.PromptCheckResult)
	return r, args.Error(1)
}

// MockStorage is a mock implementation of the storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, filename string, data []byte) error {
	args := m.Called(ctx, filename, data)
	return args.Error(0)
}

func (m *MockStorage) Retrieve(ctx context.Context, filename string) ([]byte, error) {
	args := m.Called(ctx, filename)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, filename string) error {
	args := m.Called(ctx, filename)
	return args.Error(0)
}

// MockNotificationService is a mock implementation of the notification service
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendReport(report *models.WatchReport) error {
	args := m.Called(report)
	return args.Error(0)
}

func testConfig() *config.Config {
	return &config.Config{
		BrandID:                  "acme",
		BrandName:                "Acme",
		Competitors:              []string{"Globex"},
		WatchConcurrency:         2,
		VisibilityAlertThreshold: 40,
	}
}

func ago(d time.Duration, now time.Time) *time.Time {
	t := now.Add(-d)
	return &t
}

func TestDue(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		prompt   models.TrackedPrompt
		expected bool
	}{
		{
			name:     "never checked",
			prompt:   models.TrackedPrompt{IsActive: true, CheckFrequency: models.FrequencyDaily},
			expected: true,
		},
		{
			name:     "inactive",
			prompt:   models.TrackedPrompt{IsActive: false, CheckFrequency: models.FrequencyDaily},
			expected: false,
		},
		{
			name:     "daily checked an hour ago",
			prompt:   models.TrackedPrompt{IsActive: true, CheckFrequency: models.FrequencyDaily, LastCheckedAt: ago(time.Hour, now)},
			expected: false,
		},
		{
			name:     "daily checked a day ago",
			prompt:   models.TrackedPrompt{IsActive: true, CheckFrequency: models.FrequencyDaily, LastCheckedAt: ago(24*time.Hour, now)},
			expected: true,
		},
		{
			name:     "hourly checked two hours ago",
			prompt:   models.TrackedPrompt{IsActive: true, CheckFrequency: models.FrequencyHourly, LastCheckedAt: ago(2*time.Hour, now)},
			expected: true,
		},
		{
			name:     "weekly checked three days ago",
			prompt:   models.TrackedPrompt{IsActive: true, CheckFrequency: models.FrequencyWeekly, LastCheckedAt: ago(72*time.Hour, now)},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Due(tt.prompt, now))
		})
	}
}

func TestService_RunChecks(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	backend := &MockBackend{}
	mockStorage := &MockStorage{}
	mockNotifications := &MockNotificationService{}

	backend.On("ListPrompts", mock.Anything, "acme").Return([]models.TrackedPrompt{
		{ID: "p1", PromptText: "best CRM tools", IsActive: true, CheckFrequency: models.FrequencyDaily},
		{ID: "p2", PromptText: "Acme vs Globex", IsActive: true, CheckFrequency: models.FrequencyDaily},
		{ID: "p3", PromptText: "CRM for startups", IsActive: true, CheckFrequency: models.FrequencyDaily},
		{ID: "p4", PromptText: "paused", IsActive: false, CheckFrequency: models.FrequencyDaily},
	}, nil)

	req := api.CheckRequest{BrandName: "Acme", Competitors: []string{"Globex"}}
	backend.On("CheckPrompt", mock.Anything, "p1", req).
		Return(&models.PromptCheckResult{VisibilityRate: 75, ModelsChecked: 4, BrandMentionedCount: 3}, nil)
	backend.On("CheckPrompt", mock.Anything, "p2", req).
		Return(&models.PromptCheckResult{VisibilityRate: 25, ModelsChecked: 4, BrandMentionedCount: 1}, nil)
	backend.On("CheckPrompt", mock.Anything, "p3", req).
		Return(nil, &api.Error{StatusCode: 502, Message: "bad gateway"})

	mockStorage.On("Store", mock.Anything, "checks-2026-10-19-12-00-00.json", mock.Anything).Return(nil)
	mockNotifications.On("SendReport", mock.Anything).Return(nil)

	service := NewService(testConfig(), backend, check.NewOrchestrator(backend), mockStorage, mockNotifications)
	service.now = func() time.Time { return now }

	report, err := service.RunChecks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.PromptsChecked)
	assert.Equal(t, 1, report.FailedChecks)
	assert.Equal(t, 50, report.AverageVisibility)
	require.Len(t, report.Checks, 3)
	assert.Equal(t, "bad gateway", report.Checks[2].Error)

	alerts := report.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "p2", alerts[0].PromptID)

	backend.AssertNotCalled(t, "CheckPrompt", mock.Anything, "p4", mock.Anything)
	mockNotifications.AssertCalled(t, "SendReport", report)

	stored := mockStorage.Calls[0].Arguments.Get(2).([]byte)
	var archived models.WatchReport
	require.NoError(t, json.Unmarshal(stored, &archived))
	assert.Equal(t, 50, archived.AverageVisibility)

	metrics := service.GetMetrics()
	assert.Equal(t, 1, metrics.TotalRuns)
	assert.Equal(t, 1, metrics.Alerts)
	assert.Equal(t, float64(50), testutil.ToFloat64(service.collectors.averageVisibility))
	assert.Equal(t, float64(1), testutil.ToFloat64(service.collectors.checks.WithLabelValues("failed")))
}

func TestService_RunChecks_NothingDue(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	backend := &MockBackend{}
	mockNotifications := &MockNotificationService{}

	backend.On("ListPrompts", mock.Anything, "acme").Return([]models.TrackedPrompt{
		{ID: "p1", IsActive: true, CheckFrequency: models.FrequencyDaily, LastCheckedAt: ago(time.Hour, now)},
	}, nil)

	service := NewService(testConfig(), backend, check.NewOrchestrator(backend), nil, mockNotifications)
	service.now = func() time.Time { return now }

	report, err := service.RunChecks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Checks)
	mockNotifications.AssertNotCalled(t, "SendReport", mock.Anything)
	backend.AssertNotCalled(t, "CheckPrompt", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_RunChecks_ListFailure(t *testing.T) {
	backend := &MockBackend{}
	backend.On("ListPrompts", mock.Anything, "acme").Return(nil, errors.New("connection refused"))

	service := NewService(testConfig(), backend, check.NewOrchestrator(backend), nil, nil)

	_, err := service.RunChecks(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, float64(1), testutil.ToFloat64(service.collectors.runFailures))
	assert.False(t, service.Running())
}

func TestService_RunChecks_NotificationFailure(t *testing.T) {
	backend := &MockBackend{}
	mockNotifications := &MockNotificationService{}

	backend.On("ListPrompts", mock.Anything, "acme").Return([]models.TrackedPrompt{
		{ID: "p1", IsActive: true, CheckFrequency: models.FrequencyHourly},
	}, nil)
	backend.On("CheckPrompt", mock.Anything, "p1", mock.Anything).
		Return(&models.PromptCheckResult{VisibilityRate: 100, ModelsChecked: 1, BrandMentionedCount: 1}, nil)
	mockNotifications.On("SendReport", mock.Anything).Return(errors.New("smtp down"))

	service := NewService(testConfig(), backend, check.NewOrchestrator(backend), nil, mockNotifications)

	report, err := service.RunChecks(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 100, report.AverageVisibility)
	assert.Equal(t, 1, service.GetMetrics().TotalRuns)
}

func TestService_ListReports(t *testing.T) {
	mockStorage := &MockStorage{}
	mockStorage.On("List", mock.Anything, "checks-").Return([]string{
		"checks-2026-10-18-12-00-00.json",
		"checks-2026-10-19-12-00-00.json",
	}, nil)

	service := NewService(testConfig(), &MockBackend{}, nil, mockStorage, nil)

	names, err := service.ListReports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "checks-2026-10-19-12-00-00.json", names[0])

	noStorage := NewService(testConfig(), &MockBackend{}, nil, nil, nil)
	names, err = noStorage.ListReports(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestService_RunChecks_PrunesOldReports(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	backend := &MockBackend{}
	mockStorage := &MockStorage{}

	backend.On("ListPrompts", mock.Anything, "acme").Return([]models.TrackedPrompt{
		{ID: "p1", IsActive: true, CheckFrequency: models.FrequencyDaily},
	}, nil)
	backend.On("CheckPrompt", mock.Anything, "p1", mock.Anything).
		Return(&models.PromptCheckResult{VisibilityRate: 50, ModelsChecked: 2, BrandMentionedCount: 1}, nil)

	mockStorage.On("Store", mock.Anything, "checks-2026-10-19-12-00-00.json", mock.Anything).Return(nil)
	mockStorage.On("List", mock.Anything, "checks-").Return([]string{
		"checks-2026-10-17-12-00-00.json",
		"checks-2026-10-18-12-00-00.json",
		"checks-2026-10-19-12-00-00.json",
	}, nil)
	mockStorage.On("Delete", mock.Anything, "checks-2026-10-17-12-00-00.json").Return(nil).Once()

	cfg := testConfig()
	cfg.ReportRetention = 2
	service := NewService(cfg, backend, check.NewOrchestrator(backend), mockStorage, nil)
	service.now = func() time.Time { return now }

	_, err := service.RunChecks(context.Background())
	require.NoError(t, err)

	mockStorage.AssertExpectations(t)
	mockStorage.AssertNumberOfCalls(t, "Delete", 1)
}

func TestService_Report(t *testing.T) {
	data, err := json.Marshal(models.WatchReport{BrandID: "acme", AverageVisibility: 62})
	require.NoError(t, err)

	mockStorage := &MockStorage{}
	mockStorage.On("Retrieve", mock.Anything, "checks-2026-10-19-12-00-00.json").Return(data, nil)

	service := NewService(testConfig(), &MockBackend{}, nil, mockStorage, nil)

	report, err := service.Report(context.Background(), "checks-2026-10-19-12-00-00.json")
	require.NoError(t, err)
	assert.Equal(t, 62, report.AverageVisibility)

	_, err = service.Report(context.Background(), "secrets.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	mockStorage.AssertNumberOfCalls(t, "Retrieve", 1)

	noStorage := NewService(testConfig(), &MockBackend{}, nil, nil, nil)
	_, err = noStorage.Report(context.Background(), "checks-2026-10-19-12-00-00.json")
	assert.ErrorIs(t, err, ErrNoArchive)
}
