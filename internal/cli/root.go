// Package cli implements the command-line interface for spin.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spinframework/spin-cli/internal/config"
)

// NewRootCommand creates the top-level spin command.
func NewRootCommand(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "spin",
		Short: "The developer tool for serverless WebAssembly applications",
		Long: `Spin is the developer tool for building, distributing, and running
serverless applications. Its command surface is extended by installable
plugins managed with the "plugins" subcommands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newPluginsCommand(cfg, logger))
	root.AddCommand(newVersionCommand())
	root.AddCommand(newCompletionCommand())

	return root
}
