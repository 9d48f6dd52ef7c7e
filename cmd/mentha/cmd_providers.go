package main

import (
	"github.com/mentha-ai/mentha-cli/internal/render"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the AI providers and the default selection",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		render.ProviderList(cmd.OutOrStdout(), cfg.Providers)
	},
}
