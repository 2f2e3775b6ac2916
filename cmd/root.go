package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/uxentio/books-pipeline/internal/cli"
	"github.com/uxentio/books-pipeline/internal/logging"
)

func NewRootCmd(version string) *cobra.Command {
	env := cli.NewEnv(version)
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "books-pipeline",
		Short: "Book metadata integration from Goodreads and Google Books",
		Long: `books-pipeline scrapes book metadata from Goodreads, enriches it through the
Google Books API and integrates both sources into one canonical record per book.

Outputs are dim_book and book_source_detail (Parquet, optionally SQLite),
a quality report and a schema document.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			if err := env.Resolve(cmd, cfgFile); err != nil {
				return err
			}
			return logging.Setup(env.Config.Log.Level, env.Config.Log.Format)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./books-pipeline.yaml or ~/.books-pipeline/books-pipeline.yaml)")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (auto, text, json)")
	cli.BindKey(flags, "log-level", "log.level")
	cli.BindKey(flags, "log-format", "log.format")

	// Add subcommands
	cmd.AddCommand(cli.NewIntegrateCmd(env))
	cmd.AddCommand(newAcquireCmd(env))
	cmd.AddCommand(cli.NewRunCmd(env))
	cmd.AddCommand(cli.NewInspectCmd(env))
	cmd.AddCommand(cli.NewReportCmd(env))
	cmd.AddCommand(newConfigCmd(env))

	return cmd
}
