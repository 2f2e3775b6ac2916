package cli

import (
	"github.com/spf13/cobra"
	"github.com/uxentio/books-pipeline/internal/pipeline"
)

// NewRunCmd creates the run command, which chains scrape, enrich and integrate.
func NewRunCmd(env *Env) *cobra.Command {
	var skipAcquire bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape, enrich and integrate in one go",
		Long: `Run the full pipeline: scrape Goodreads, enrich through Google Books,
then integrate both landing files.

With --skip-acquire the existing landing files are integrated as they are.`,
		Example: `  # Full run for the configured query
  books-pipeline run

  # Full run for another query with the group-union policy
  books-pipeline run --query "statistics" --policy group-union

  # Re-integrate without touching the network
  books-pipeline run --skip-acquire`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			if !skipAcquire {
				if err := executeScrape(ctx, w, env.Config); err != nil {
					return err
				}
				if err := executeEnrich(ctx, w, env.Config); err != nil {
					return err
				}
			}

			opts := pipeline.OptionsFromConfig(env.Config, env.Version)
			return executeIntegrate(ctx, w, opts)
		},
	}

	addPathFlags(cmd)
	addScrapeFlags(cmd)
	addIntegrateFlags(cmd)
	cmd.Flags().BoolVar(&skipAcquire, "skip-acquire", false, "Integrate existing landing files without scraping")

	return cmd
}
