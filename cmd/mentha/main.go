package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mentha-ai/mentha-cli/internal/api"
	"github.com/mentha-ai/mentha-cli/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

var (
	cfg    *config.Config
	client *api.Client
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mentha",
	Short: "Mentha - track how AI assistants talk about your brand",
	Long: `mentha is the command-line client for the Mentha AEO/GEO backend.

It manages tracked prompts, runs visibility checks across AI providers,
and offers an interactive multi-provider chat with session history.

Examples:
  mentha prompts add "best CRM tools" --category competitor_comparison
  mentha prompts check <prompt-id>
  mentha chat
  mentha history list
  mentha watch`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(doctorCmd)

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("brand", "", "Brand id (overrides MENTHA_BRAND_ID)")
}

func setup(cmd *cobra.Command, args []string) error {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using environment variables")
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	if brand, _ := cmd.Flags().GetString("brand"); brand != "" {
		cfg.BrandID = brand
	}

	logrus.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetOutput(cmd.ErrOrStderr())

	client = api.NewClient(cfg.APIBaseURL, cfg.APIToken, cfg.RequestTimeout)
	return nil
}

// requireBrand is a PreRunE for commands scoped to a brand
func requireBrand(cmd *cobra.Command, args []string) error {
	return cfg.RequireBrand()
}
