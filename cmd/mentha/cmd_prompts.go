package main

import (
	"fmt"
	"time"

	"github.com/mentha-ai/mentha-cli/internal/check"
	"github.com/mentha-ai/mentha-cli/internal/models"
	"github.com/mentha-ai/mentha-cli/internal/prompts"
	"github.com/mentha-ai/mentha-cli/internal/render"
	"github.com/spf13/cobra"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage tracked prompts",
	Long: `Manage the prompts tracked for a brand and check their AI visibility.

Examples:
  mentha prompts list
  mentha prompts add "best CRM tools" --category competitor_comparison
  mentha prompts check <prompt-id>
  mentha prompts delete <prompt-id>`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setup(cmd, args); err != nil {
			return err
		}
		return requireBrand(cmd, args)
	},
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked prompts",
	Args:  cobra.NoArgs,
	RunE:  runPromptsList,
}

var promptsAddCmd = &cobra.Command{
	Use:   "add <prompt text>",
	Short: "Track a new prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsAdd,
}

var promptsDeleteCmd = &cobra.Command{
	Use:   "delete <prompt-id>",
	Short: "Stop tracking a prompt",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsDelete,
}

var promptsCheckCmd = &cobra.Command{
	Use:   "check <prompt-id>",
	Short: "Check a prompt's visibility across providers",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromptsCheck,
}

func init() {
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsAddCmd)
	promptsCmd.AddCommand(promptsDeleteCmd)
	promptsCmd.AddCommand(promptsCheckCmd)

	promptsAddCmd.Flags().String("category", "", "Prompt category (product, competitor_comparison, feature, review, other)")
}

func newPromptStore() *prompts.Store {
	return prompts.NewStore(client, check.NewOrchestrator(client), cfg.BrandID)
}

func runPromptsList(cmd *cobra.Command, args []string) error {
	store := newPromptStore()
	defer store.Close()

	list, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load prompts: %w", err)
	}

	render.PromptList(cmd.OutOrStdout(), list, time.Now(), store.Checking)
	return nil
}

func runPromptsAdd(cmd *cobra.Command, args []string) error {
	var category *models.Category
	if raw, _ := cmd.Flags().GetString("category"); raw != "" {
		c, err := models.ParseCategory(raw)
		if err != nil {
			return err
		}
		category = &c
	}

	store := newPromptStore()
	defer store.Close()

	created, err := store.Create(cmd.Context(), args[0], category)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Tracking %q (%s, checked %s)\n", created.PromptText, created.ID, created.CheckFrequency)
	return nil
}

func runPromptsDelete(cmd *cobra.Command, args []string) error {
	store := newPromptStore()
	defer store.Close()

	if err := store.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted prompt %s\n", args[0])
	return nil
}

func runPromptsCheck(cmd *cobra.Command, args []string) error {
	store := newPromptStore()
	defer store.Close()

	promptID := args[0]
	promptText := promptID
	if list, err := store.List(cmd.Context()); err == nil {
		for _, p := range list {
			if p.ID == promptID {
				promptText = p.PromptText
				break
			}
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Checking %q for %s...\n", promptText, cfg.DisplayBrand())

	result, err := store.Check(cmd.Context(), promptID, cfg.DisplayBrand(), cfg.Competitors)
	if err != nil {
		return err
	}

	render.CheckSummary(cmd.OutOrStdout(), promptText, *result)
	return nil
}
