package main

import (
	"fmt"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/chat"
	"github.com/mentha-ai/mentha-cli/internal/history"
	"github.com/mentha-ai/mentha-cli/internal/render"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse stored chat sessions",
}

var historyListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored chat sessions, most recent first",
	Args:    cobra.NoArgs,
	PreRunE: requireBrand,
	RunE:    runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:     "show <session-id>",
	Short:   "Print the transcript of a stored session",
	Args:    cobra.ExactArgs(1),
	PreRunE: requireBrand,
	RunE:    runHistoryShow,
}

func init() {
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	panel := history.NewPanel(client, cfg.BrandID)
	defer panel.Close()

	sessions, err := panel.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	render.SessionList(cmd.OutOrStdout(), sessions, "", time.Now())
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	panel := history.NewPanel(client, cfg.BrandID)
	defer panel.Close()

	if _, err := panel.Load(cmd.Context()); err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	session := chat.NewSession(client, cfg.BrandID)
	defer session.Close()

	if err := panel.Select(session, args[0]); err != nil {
		return err
	}

	render.Transcript(cmd.OutOrStdout(), session.Messages(), render.NewViews())
	return nil
}
