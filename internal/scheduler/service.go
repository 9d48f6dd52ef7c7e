package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/mentha-ai/mentha-cli/internal/config"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/mentha-ai/mentha-cli/internal/watch"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner is the job the scheduler triggers
type Runner interface {
	RunChecks(ctx context.Context) (*models.WatchReport, error)
}

var _ Runner = (*watch.Service)(nil)

// Service handles scheduling of watch runs
type Service struct {
	config *config.Config
	runner Runner
	cron   *cron.Cron
	ctx    context.Context
}

// NewService creates a new scheduler service
func NewService(cfg *config.Config, runner Runner) *Service {
	return &Service{
		config: cfg,
		runner: runner,
		cron:   cron.New(cron.WithSeconds()),
	}
}

// Start schedules watch runs on WATCH_SCHEDULE. Runs use ctx, so cancelling
// it aborts a run in progress.
func (s *Service) Start(ctx context.Context) error {
	s.ctx = ctx

	if _, err := s.cron.AddFunc(s.config.WatchSchedule, s.run); err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", s.config.WatchSchedule, err)
	}

	s.cron.Start()
	logrus.Infof("Scheduler started with schedule %q", s.config.WatchSchedule)
	return nil
}

func (s *Service) run() {
	logrus.Info("Starting scheduled watch run")
	if _, err := s.runner.RunChecks(s.ctx); err != nil {
		if errors.Is(err, watch.ErrRunInProgress) {
			logrus.Warn("Skipping scheduled run: previous run still in progress")
			return
		}
		logrus.Errorf("Scheduled watch run failed: %v", err)
	}
}

// Stop stops the scheduler and waits for a running job to return
func (s *Service) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		logrus.Info("Scheduler stopped")
	}
}
