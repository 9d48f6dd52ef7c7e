package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/api"
	"github.com/mentha-ai/mentha-cli/internal/config"
	"github.com/mentha-ai/mentha-cli/internal/notifications"
	"github.com/mentha-ai/mentha-cli/internal/providers"
	"github.com/mentha-ai/mentha-cli/internal/storage"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration and backend connectivity",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "🔍 Mentha - Connectivity Check")
	fmt.Fprintln(out, "==============================")

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	fmt.Fprintln(out, "\n⚙️  Configuration")
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintf(out, "   Backend:   %s\n", cfg.APIBaseURL)
	fmt.Fprintf(out, "   Brand:     %s\n", orUnset(cfg.BrandID))
	fmt.Fprintf(out, "   Providers: %s\n", providerNames(cfg.Providers))
	fmt.Fprintf(out, "   Schedule:  %s\n", cfg.WatchSchedule)

	fmt.Fprintln(out, "\n📡 Testing Services...")
	fmt.Fprintln(out, strings.Repeat("-", 40))

	failures := 0
	failures += testBackend(ctx, out, client, cfg)
	failures += testStorage(ctx, out, cfg)
	testNotifications(out, cfg)

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}

	fmt.Fprintln(out, "\n✅ Connectivity check completed!")
	return nil
}

func testBackend(ctx context.Context, out io.Writer, backend api.PromptsBackend, cfg *config.Config) int {
	fmt.Fprint(out, "🔸 Testing backend... ")

	if cfg.BrandID == "" {
		fmt.Fprintln(out, "⚠️  SKIPPED (MENTHA_BRAND_ID not set)")
		return 0
	}

	list, err := backend.ListPrompts(ctx, cfg.BrandID)
	if err != nil {
		fmt.Fprintf(out, "❌ ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "✅ SUCCESS (%d tracked prompts)\n", len(list))
	return 0
}

func testStorage(ctx context.Context, out io.Writer, cfg *config.Config) int {
	fmt.Fprintf(out, "🔸 Testing %s storage... ", cfg.StorageBackend)

	archive, err := storage.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(out, "❌ ERROR: %v\n", err)
		return 1
	}
	if archive == nil {
		fmt.Fprintln(out, "⚠️  DISABLED (reports are not archived)")
		return 0
	}
	if closer, ok := archive.(io.Closer); ok {
		defer closer.Close()
	}

	names, err := archive.List(ctx, "checks-")
	if err != nil {
		fmt.Fprintf(out, "❌ ERROR: %v\n", err)
		return 1
	}

	fmt.Fprintf(out, "✅ SUCCESS (%d archived reports)\n", len(names))
	return 0
}

func testNotifications(out io.Writer, cfg *config.Config) {
	fmt.Fprint(out, "🔸 Notifications... ")

	if !notifications.NewService(cfg).Enabled() {
		fmt.Fprintln(out, "⚠️  DISABLED (no Teams webhook or email configured)")
		return
	}

	var channels []string
	if cfg.TeamsWebhookURL != "" {
		channels = append(channels, "Teams")
	}
	if cfg.NotificationEmail != "" {
		channels = append(channels, "email")
	}
	fmt.Fprintf(out, "✅ CONFIGURED (%s)\n", strings.Join(channels, ", "))
}

func orUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

func providerNames(ids []providers.ID) string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, providers.DisplayName(id))
	}
	return strings.Join(names, ", ")
}
