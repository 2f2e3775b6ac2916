package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/uxentio/books-pipeline/internal/acquire"
	"github.com/uxentio/books-pipeline/internal/acquire/goodreads"
	"github.com/uxentio/books-pipeline/internal/acquire/googlebooks"
	"github.com/uxentio/books-pipeline/internal/config"
	"github.com/uxentio/books-pipeline/internal/landing"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape Goodreads search results into the landing JSON",
		Long: `Search Goodreads for a query and scrape each result's book page.

Requests are paced, cached and, unless disabled, checked against robots.txt.
The result is written to goodreads_books.json in the landing directory.`,
		Example: `  # Scrape 15 books for the configured query
  books-pipeline acquire scrape

  # Scrape a different query, two seconds between requests
  books-pipeline acquire scrape --query "machine learning" --max-books 10 --delay 2s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeScrape(cmd.Context(), cmd.OutOrStdout(), env.Config)
		},
	}

	addScrapeFlags(cmd)
	flags := cmd.Flags()
	flags.String("landing", "", "Landing directory to write into")
	BindKey(flags, "landing", "paths.landing")

	return cmd
}

func addScrapeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("query", "", "Goodreads search query")
	flags.Int("max-books", 0, "Maximum number of books to scrape (1-500)")
	flags.Duration("delay", 0, "Minimum delay between Goodreads requests")
	flags.Bool("respect-robots", true, "Check robots.txt before each request")
	BindKey(flags, "query", "acquire.query")
	BindKey(flags, "max-books", "acquire.max_books")
	BindKey(flags, "delay", "acquire.scrape_delay")
	BindKey(flags, "respect-robots", "acquire.respect_robots")
}

// NewEnrichCmd creates the enrich command.
func NewEnrichCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Look up scraped books in Google Books into the landing CSV",
		Long: `Look up every book in goodreads_books.json through the Google Books
volumes API, trying ISBN-13, ISBN-10, title with author and title alone.

Matches are written to googlebooks_books.csv in the landing directory.
An API key is optional; set GOOGLE_BOOKS_API_KEY or acquire.api_key.`,
		Example: `  # Enrich the landing JSON
  books-pipeline acquire enrich

  # Slow down API calls
  books-pipeline acquire enrich --delay 1s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeEnrich(cmd.Context(), cmd.OutOrStdout(), env.Config)
		},
	}

	flags := cmd.Flags()
	flags.String("landing", "", "Landing directory to read from and write into")
	flags.Duration("delay", 0, "Minimum delay between API requests")
	BindKey(flags, "landing", "paths.landing")
	BindKey(flags, "delay", "acquire.enrich_delay")

	return cmd
}

func newFetcher(cfg config.AcquireConfig, delay time.Duration, respectRobots bool) *acquire.Fetcher {
	return acquire.NewFetcher(acquire.FetcherOptions{
		UserAgent:     cfg.UserAgent,
		Delay:         delay,
		Timeout:       cfg.Timeout,
		CacheTTL:      cfg.CacheTTL,
		RespectRobots: respectRobots,
	})
}

func executeScrape(ctx context.Context, w io.Writer, cfg *config.Config) error {
	fetcher := newFetcher(cfg.Acquire, cfg.Acquire.ScrapeDelay, cfg.Acquire.RespectRobots)
	scraper := goodreads.NewScraper(fetcher, cfg.Acquire.GoodreadsURL, cfg.Acquire.UserAgent)

	doc, err := scraper.Search(ctx, cfg.Acquire.Query, cfg.Acquire.MaxBooks)
	if err != nil {
		return fmt.Errorf("goodreads scrape failed: %w", err)
	}
	// an empty result would replace a usable landing file
	if len(doc.Books) == 0 {
		return fmt.Errorf("no books scraped for query %q", cfg.Acquire.Query)
	}

	path := filepath.Join(cfg.Paths.Landing, landing.GoodreadsFile)
	if err := landing.WriteGoodreads(path, doc); err != nil {
		return err
	}

	slog.Info("Goodreads landing written", "path", path, "books", len(doc.Books))
	fmt.Fprintf(w, "Scraped %d books for %q into %s\n", len(doc.Books), cfg.Acquire.Query, path)
	return nil
}

func executeEnrich(ctx context.Context, w io.Writer, cfg *config.Config) error {
	doc, err := landing.NewLoader(cfg.Paths.Landing).LoadGoodreads()
	if err != nil {
		return err
	}

	fetcher := newFetcher(cfg.Acquire, cfg.Acquire.EnrichDelay, false)
	client, err := googlebooks.NewClient(ctx, fetcher, googlebooks.Options{
		APIKey:   cfg.Acquire.APIKey,
		Endpoint: cfg.Acquire.GoogleBooksURL,
	})
	if err != nil {
		return err
	}

	rows, err := client.Enrich(ctx, doc.Books)
	if err != nil {
		return fmt.Errorf("google books enrichment failed: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("no Google Books volumes found for %d books", len(doc.Books))
	}

	path := filepath.Join(cfg.Paths.Landing, landing.GoogleBooksFile)
	if err := landing.WriteGoogleBooks(path, rows); err != nil {
		return err
	}

	slog.Info("Google Books landing written", "path", path, "rows", len(rows))
	fmt.Fprintf(w, "Found %d of %d books in Google Books, written to %s\n", len(rows), len(doc.Books), path)
	return nil
}
