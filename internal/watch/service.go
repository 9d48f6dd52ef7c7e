package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/api"
	"github.com/mentha-ai/mentha-cli/internal/check"
	"github.com/mentha-ai/mentha-cli/internal/config"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/mentha-ai/mentha-cli/internal/notifications"
	"github.com/mentha-ai/mentha-cli/internal/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrRunInProgress is returned when a run is triggered while another is active
	ErrRunInProgress = errors.New("watch run already in progress")
	// ErrNoArchive is returned when reading reports without a configured storage
	ErrNoArchive = errors.New("report archive is disabled")
)

const reportPrefix = "checks-"

// Service re-checks a brand's tracked prompts on their cadence
type Service struct {
	config              *config.Config
	backend             api.PromptsBackend
	orchestrator        *check.Orchestrator
	storage             storage.StorageInterface
	notificationService notifications.NotificationInterface
	collectors          *collectors
	now                 func() time.Time

	running atomic.Bool

	mu      sync.RWMutex
	metrics *Metrics
}

// Metrics is the JSON snapshot of the last run
type Metrics struct {
	LastRun           time.Time `json:"last_run"`
	LastRunDuration   string    `json:"last_run_duration"`
	PromptsChecked    int       `json:"prompts_checked"`
	FailedChecks      int       `json:"failed_checks"`
	AverageVisibility int       `json:"average_visibility"`
	Alerts            int       `json:"alerts"`
	TotalRuns         int       `json:"total_runs"`
}

// NewService creates a new watch service. storage and notificationService
// may be nil, in which case reports are neither archived nor sent.
func NewService(cfg *config.Config, backend api.PromptsBackend, orchestrator *check.Orchestrator,
	storage storage.StorageInterface, notificationService notifications.NotificationInterface) *Service {
	return &Service{
		config:              cfg,
		backend:             backend,
		orchestrator:        orchestrator,
		storage:             storage,
		notificationService: notificationService,
		collectors:          newCollectors(),
		now:                 time.Now,
		metrics:             &Metrics{},
	}
}

// Due reports whether an active prompt's check interval has elapsed
func Due(prompt models.TrackedPrompt, now time.Time) bool {
	if !prompt.IsActive {
		return false
	}
	if prompt.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*prompt.LastCheckedAt) >= prompt.CheckFrequency.Interval()
}

// RunChecks checks every due prompt of the configured brand, then archives
// and sends the resulting report.
func (s *Service) RunChecks(ctx context.Context) (*models.WatchReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	start := s.now()
	logrus.Infof("Starting watch run for brand %s", s.config.BrandID)

	list, err := s.backend.ListPrompts(ctx, s.config.BrandID)
	if err != nil {
		s.collectors.runFailures.Inc()
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}

	var due []models.TrackedPrompt
	for _, p := range list {
		if Due(p, start) {
			due = append(due, p)
		}
	}
	logrus.Infof("%d of %d prompts are due", len(due), len(list))

	checks := make([]models.PromptCheckSummary, len(due))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.config.WatchConcurrency, 1))
	for i, p := range due {
		g.Go(func() error {
			summary := models.PromptCheckSummary{PromptID: p.ID, PromptText: p.PromptText}

			result, err := s.orchestrator.Run(gctx, p.ID, s.config.DisplayBrand(), s.config.Competitors)
			if err != nil {
				summary.Error = api.Message(err)
				s.collectors.checks.WithLabelValues("failed").Inc()
			} else {
				summary.Result = result
				summary.BelowThreshold = result.VisibilityRate < s.config.VisibilityAlertThreshold
				s.collectors.checks.WithLabelValues("succeeded").Inc()
			}

			checks[i] = summary
			return nil
		})
	}
	_ = g.Wait()

	report := s.buildReport(start, checks)

	if err := s.storeReport(ctx, report); err != nil {
		logrus.Errorf("Failed to store report: %v", err)
	} else if err := s.pruneReports(ctx); err != nil {
		logrus.Errorf("Failed to prune reports: %v", err)
	}

	s.updateMetrics(report, s.now().Sub(start))

	if len(report.Checks) > 0 && s.notificationService != nil {
		if err := s.notificationService.SendReport(report); err != nil {
			return report, fmt.Errorf("failed to send report: %w", err)
		}
	}

	logrus.Infof("Watch run completed in %v: %d checked, %d failed, %d%% average visibility",
		s.now().Sub(start), report.PromptsChecked, report.FailedChecks, report.AverageVisibility)
	return report, nil
}

func (s *Service) buildReport(generatedAt time.Time, checks []models.PromptCheckSummary) *models.WatchReport {
	report := &models.WatchReport{
		GeneratedAt:    generatedAt,
		BrandID:        s.config.BrandID,
		BrandName:      s.config.DisplayBrand(),
		AlertThreshold: s.config.VisibilityAlertThreshold,
		Checks:         checks,
	}

	total, succeeded := 0, 0
	for _, c := range checks {
		if c.Result == nil {
			report.FailedChecks++
			continue
		}
		total += c.Result.VisibilityRate
		succeeded++
	}

	report.PromptsChecked = succeeded
	if succeeded > 0 {
		report.AverageVisibility = (total + succeeded/2) / succeeded
	}

	return report
}

func (s *Service) storeReport(ctx context.Context, report *models.WatchReport) error {
	if s.storage == nil || len(report.Checks) == 0 {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	filename := fmt.Sprintf("%s%s.json", reportPrefix, report.GeneratedAt.Format("2006-01-02-15-04-05"))
	return s.storage.Store(ctx, filename, data)
}

// pruneReports deletes the oldest archived reports beyond REPORT_RETENTION
func (s *Service) pruneReports(ctx context.Context) error {
	if s.storage == nil || s.config.ReportRetention == 0 {
		return nil
	}

	names, err := s.ListReports(ctx)
	if err != nil {
		return err
	}
	if len(names) <= s.config.ReportRetention {
		return nil
	}

	for _, name := range names[s.config.ReportRetention:] {
		if err := s.storage.Delete(ctx, name); err != nil {
			return fmt.Errorf("failed to delete report %s: %w", name, err)
		}
		logrus.Debugf("Pruned report %s", name)
	}
	return nil
}

// Report loads one archived report by name
func (s *Service) Report(ctx context.Context, name string) (*models.WatchReport, error) {
	if s.storage == nil {
		return nil, ErrNoArchive
	}
	if !strings.HasPrefix(name, reportPrefix) {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, name)
	}

	data, err := s.storage.Retrieve(ctx, name)
	if err != nil {
		return nil, err
	}

	var report models.WatchReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", name, err)
	}
	return &report, nil
}

func (s *Service) updateMetrics(report *models.WatchReport, duration time.Duration) {
	s.collectors.observe(report, duration)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics.LastRun = report.GeneratedAt
	s.metrics.LastRunDuration = duration.String()
	s.metrics.PromptsChecked = report.PromptsChecked
	s.metrics.FailedChecks = report.FailedChecks
	s.metrics.AverageVisibility = report.AverageVisibility
	s.metrics.Alerts = len(report.Alerts())
	s.metrics.TotalRuns++
}

// GetMetrics returns a copy of the last run's metrics
func (s *Service) GetMetrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.metrics
}

// Running reports whether a run is in progress
func (s *Service) Running() bool {
	return s.running.Load()
}

// ListReports returns the archived report names, newest first
func (s *Service) ListReports(ctx context.Context) ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}

	names, err := s.storage.List(ctx, reportPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
