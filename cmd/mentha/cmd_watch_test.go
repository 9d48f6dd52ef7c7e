package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mentha-ai/mentha-cli/internal/api"
	"github.com/mentha-ai/mentha-cli/internal/check"
	"github.com/mentha-ai/mentha-cli/internal/config"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/mentha-ai/mentha-cli/internal/storage"
	"github.com/mentha-ai/mentha-cli/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestRouterWithArchive(t, nil)
}

func newTestRouterWithArchive(t *testing.T, archive storage.StorageInterface) http.Handler {
	t.Helper()
	backend := api.NewClient("http://127.0.0.1:1", "", 0)
	cfg := &config.Config{BrandID: "acme", WatchConcurrency: 1, VisibilityAlertThreshold: 40}
	service := watch.NewService(cfg, backend, check.NewOrchestrator(backend), archive, nil)
	return newRouter(context.Background(), service)
}

func TestRouter_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mentha_watch_runs_total 0")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var metrics watch.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, 0, metrics.TotalRuns)
}

func TestRouter_ReportsWithoutStorage(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reports":[]}`, rec.Body.String())
}

func TestRouter_Report(t *testing.T) {
	ctx := context.Background()
	archive, err := storage.NewSQLiteStorage(ctx, filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	defer archive.Close()

	data, err := json.Marshal(models.WatchReport{BrandID: "acme", AverageVisibility: 62})
	require.NoError(t, err)
	require.NoError(t, archive.Store(ctx, "checks-2026-10-19-12-00-00.json", data))

	router := newTestRouterWithArchive(t, archive)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/checks-2026-10-19-12-00-00.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var report models.WatchReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 62, report.AverageVisibility)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/checks-2026-01-01-00-00-00.json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/checks-2026-10-19-12-00-00.json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_TriggerRequiresPost(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trigger", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
