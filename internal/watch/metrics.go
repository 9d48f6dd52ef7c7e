package watch

import (
	"time"

	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mentha"

type collectors struct {
	registry *prometheus.Registry

	checks            *prometheus.CounterVec
	runs              prometheus.Counter
	runFailures       prometheus.Counter
	averageVisibility prometheus.Gauge
	alerts            prometheus.Gauge
	runDuration       prometheus.Histogram
}

func newCollectors() *collectors {
	c := &collectors{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_checks_total",
			Help:      "Prompt checks run by the watcher, by outcome.",
		}, []string{"outcome"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_runs_total",
			Help:      "Completed watch runs.",
		}),
		runFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_run_failures_total",
			Help:      "Watch runs that could not list prompts.",
		}),
		averageVisibility: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "average_visibility_percent",
			Help:      "Average visibility rate of the last watch run.",
		}),
		alerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prompts_below_threshold",
			Help:      "Prompts below the alert threshold in the last watch run.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "watch_run_duration_seconds",
			Help:      "Duration of watch runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	c.registry.MustRegister(c.checks, c.runs, c.runFailures, c.averageVisibility, c.alerts, c.runDuration)
	return c
}

func (c *collectors) observe(report *models.WatchReport, duration time.Duration) {
	c.runs.Inc()
	c.runDuration.Observe(duration.Seconds())
	if report.PromptsChecked > 0 {
		c.averageVisibility.Set(float64(report.AverageVisibility))
	}
	c.alerts.Set(float64(len(report.Alerts())))
}

// Registry exposes the watcher's prometheus collectors
func (s *Service) Registry() *prometheus.Registry {
	return s.collectors.registry
}
