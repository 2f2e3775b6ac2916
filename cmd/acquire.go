package cmd

import (
	"github.com/spf13/cobra"
	"github.com/uxentio/books-pipeline/internal/cli"
)

func newAcquireCmd(env *cli.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Fetch the landing files from Goodreads and Google Books",
		Long: `Acquisition tools that produce the landing directory read by integrate.

scrape writes goodreads_books.json from a Goodreads search, enrich looks the
scraped books up in Google Books and writes googlebooks_books.csv.`,
	}

	// Add acquire subcommands
	cmd.AddCommand(cli.NewScrapeCmd(env))
	cmd.AddCommand(cli.NewEnrichCmd(env))

	return cmd
}
