package cmd

import (
	"github.com/spf13/cobra"
	"github.com/uxentio/books-pipeline/internal/cli"
)

func newConfigCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage books-pipeline configuration",
		Long: `Manage books-pipeline configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (BOOKS_*)
3. Config file (books-pipeline.yaml)
4. Defaults`,
	}

	cmd.AddCommand(cli.NewConfigShowCmd(env))
	cmd.AddCommand(cli.NewConfigInitCmd(env))

	return cmd
}
