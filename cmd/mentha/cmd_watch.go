package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mentha-ai/mentha-cli/internal/check"
	"github.com/mentha-ai/mentha-cli/internal/notifications"
	"github.com/mentha-ai/mentha-cli/internal/render"
	"github.com/mentha-ai/mentha-cli/internal/scheduler"
	"github.com/mentha-ai/mentha-cli/internal/storage"
	"github.com/mentha-ai/mentha-cli/internal/watch"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check tracked prompts on their cadence",
	Long: `Run the prompt watcher. Due prompts are checked on WATCH_SCHEDULE, each
run is archived to the configured storage and reported to Teams or email.

The daemon serves:
  GET  /health        liveness
  GET  /metrics       prometheus metrics
  GET  /metrics.json  last run summary
  GET  /reports       archived report names
  GET  /reports/{name} one archived report
  POST /trigger       start a run now

REPORT_RETENTION limits how many reports the archive keeps.
Use --once to run a single pass and print the report.`,
	Args:    cobra.NoArgs,
	PreRunE: requireBrand,
	RunE:    runWatch,
}

func init() {
	watchCmd.Flags().Bool("once", false, "Run a single pass and exit")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	archive, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if closer, ok := archive.(io.Closer); ok {
		defer closer.Close()
	}

	var notifier notifications.NotificationInterface
	if n := notifications.NewService(cfg); n.Enabled() {
		notifier = n
	}

	watchService := watch.NewService(cfg, client, check.NewOrchestrator(client), archive, notifier)

	if once, _ := cmd.Flags().GetBool("once"); once {
		report, err := watchService.RunChecks(ctx)
		if report != nil {
			for _, c := range report.Checks {
				if c.Result == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Prompt: %s\ncheck failed: %s\n\n", c.PromptText, c.Error)
					continue
				}
				render.CheckSummary(cmd.OutOrStdout(), c.PromptText, *c.Result)
				fmt.Fprintln(cmd.OutOrStdout())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d checked, %d failed, %d%% average visibility\n",
				report.PromptsChecked, report.FailedChecks, report.AverageVisibility)
		}
		return err
	}

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.Infof("Starting Mentha prompt watcher for brand %s", cfg.BrandID)

	schedulerService := scheduler.NewService(cfg, watchService)
	if err := schedulerService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer schedulerService.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      newRouter(ctx, watchService),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logrus.Errorf("Server forced to shutdown: %v", err)
		}
		return nil
	})

	err = g.Wait()
	logrus.Info("Server exited")
	return err
}

func newRouter(ctx context.Context, watchService *watch.Service) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(watchService.Registry(), promhttp.HandlerOpts{})).Methods("GET")
	router.HandleFunc("/metrics.json", metricsHandler(watchService)).Methods("GET")
	router.HandleFunc("/reports", reportsHandler(watchService)).Methods("GET")
	router.HandleFunc("/reports/{name}", reportHandler(watchService)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(ctx, watchService)).Methods("POST")

	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to write response: %v", err)
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func metricsHandler(watchService *watch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, watchService.GetMetrics())
	}
}

func reportsHandler(watchService *watch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names, err := watchService.ListReports(r.Context())
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		if names == nil {
			names = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"reports": names})
	}
}

func reportHandler(watchService *watch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := watchService.Report(r.Context(), mux.Vars(r)["name"])
		switch {
		case errors.Is(err, watch.ErrNoArchive), errors.Is(err, storage.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case err != nil:
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusOK, report)
		}
	}
}

func triggerHandler(ctx context.Context, watchService *watch.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if watchService.Running() {
			writeJSON(w, http.StatusConflict, map[string]string{"error": watch.ErrRunInProgress.Error()})
			return
		}

		go func() {
			if _, err := watchService.RunChecks(ctx); err != nil {
				logrus.Errorf("Manual watch trigger failed: %v", err)
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"message": "Watch run triggered"})
	}
}
