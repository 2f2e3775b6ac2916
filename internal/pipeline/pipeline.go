// Package pipeline sequences one integration run: load landing files,
// normalize, resolve, audit and, only when every blocking check passes,
// write the standard artifacts. The quality report is written either way.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/uxentio/books-pipeline/internal/config"
	"github.com/uxentio/books-pipeline/internal/docs"
	"github.com/uxentio/books-pipeline/internal/landing"
	"github.com/uxentio/books-pipeline/internal/matching"
	"github.com/uxentio/books-pipeline/internal/models"
	"github.com/uxentio/books-pipeline/internal/quality"
	"github.com/uxentio/books-pipeline/internal/standard"
	"github.com/uxentio/books-pipeline/internal/survivorship"
)

// ReportFile is the quality report written into the docs directory.
const ReportFile = "quality_metrics.json"

// ErrLocked is returned when another run holds the standard directory.
var ErrLocked = errors.New("standard directory is locked by another run")

// Fields whose completeness is reported for each table.
var (
	goodreadsRequired   = []string{"title", "author", "book_url"}
	googleBooksRequired = []string{"title", "authors"}
	bookRequired        = []string{
		"book_id", "titulo", "autor_principal", "editorial", "anio_publicacion",
		"idioma", "isbn13", "rating_promedio", "precio",
	}
)

// Options configure one run.
type Options struct {
	LandingDir  string
	StandardDir string
	DocsDir     string
	RunsDir     string

	Policy       string
	ReuseB       bool
	DeriveISBN13 bool

	CompletenessThreshold float64
	MinTitleCompleteness  float64

	SQLite    bool
	SchemaDoc bool

	Version string
	// Now defaults to time.Now.
	Now func() time.Time
}

// OptionsFromConfig maps resolved configuration onto run options.
func OptionsFromConfig(cfg *config.Config, version string) Options {
	return Options{
		LandingDir:            cfg.Paths.Landing,
		StandardDir:           cfg.Paths.Standard,
		DocsDir:               cfg.Paths.Docs,
		RunsDir:               cfg.Paths.Runs,
		Policy:                cfg.Survivorship.Policy,
		ReuseB:                cfg.Matching.ReuseB,
		DeriveISBN13:          cfg.Survivorship.DeriveISBN13,
		CompletenessThreshold: cfg.Quality.CompletenessThreshold,
		MinTitleCompleteness:  cfg.Quality.MinTitleCompleteness,
		SQLite:                cfg.Output.SQLite,
		SchemaDoc:             cfg.Output.SchemaDoc,
		Version:               version,
	}
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Result is what a run produced. Report and ReportPath are always set once
// the report could be written.
type Result struct {
	Report     *quality.Report
	ReportPath string
	Books      []models.CanonicalBook
	Details    []models.SourceDetail
	Artifacts  []string
}

// Run executes one integration.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := opts.now().UTC()
	runID := uuid.NewString()

	report := quality.NewReport(runID, start, quality.PipelineInfo{
		Version:      opts.Version,
		Policy:       policyName(opts.Policy),
		ReuseB:       opts.ReuseB,
		DeriveISBN13: opts.DeriveISBN13,
		LandingDir:   opts.LandingDir,
		StandardDir:  opts.StandardDir,
		DocsDir:      opts.DocsDir,
	})
	result := &Result{Report: report, ReportPath: filepath.Join(opts.DocsDir, ReportFile)}

	slog.Info("Starting integration run", "run_id", runID, "policy", report.Pipeline.Policy)

	runErr := integrate(ctx, opts, start, report, result)

	report.Finish(opts.now().UTC(), runErr)
	if err := report.SaveToJSON(result.ReportPath); err != nil {
		if runErr != nil {
			return result, fmt.Errorf("%w (also failed to save report: %v)", runErr, err)
		}
		return result, fmt.Errorf("failed to save quality report: %w", err)
	}

	if opts.RunsDir != "" {
		path, err := SaveRun(opts.RunsDir, report, result.Artifacts)
		if err != nil {
			slog.Warn("Failed to record run history", "error", err)
		} else {
			slog.Debug("Recorded run history", "path", path)
		}
	}

	if runErr != nil {
		slog.Error("Integration run failed", "run_id", runID, "error", runErr, "report", result.ReportPath)
		return result, runErr
	}

	slog.Info("Integration run finished",
		"run_id", runID,
		"books", len(result.Books),
		"source_details", len(result.Details),
		"warnings", len(report.Warnings),
		"seconds", report.Summary.ExecutionTimeSeconds)
	return result, nil
}

func integrate(ctx context.Context, opts Options, start time.Time, report *quality.Report, result *Result) error {
	if err := os.MkdirAll(opts.StandardDir, 0755); err != nil {
		return fmt.Errorf("failed to create standard directory: %w", err)
	}
	lock := flock.New(filepath.Join(opts.StandardDir, standard.LockFile))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !locked {
		return ErrLocked
	}
	defer lock.Unlock()

	// Load
	loader := landing.NewLoader(opts.LandingDir)
	doc, err := loader.LoadGoodreads()
	if err != nil {
		return err
	}
	report.SourceFiles = append(report.SourceFiles, quality.SourceFile{
		Source: string(models.SourceGoodreads), Path: loader.GoodreadsPath(), Records: len(doc.Books), LoadedAt: opts.now().UTC(),
	})

	rows, err := loader.LoadGoogleBooks()
	if err != nil {
		return err
	}
	report.SourceFiles = append(report.SourceFiles, quality.SourceFile{
		Source: string(models.SourceGoogleBooks), Path: loader.GoogleBooksPath(), Records: len(rows), LoadedAt: opts.now().UTC(),
	})

	slog.Info("Landing files loaded", "goodreads", len(doc.Books), "googlebooks", len(rows))

	// Normalize
	failures := landing.ParseFailures{}
	a := landing.GoodreadsRecords(doc.Books, start, failures)
	b := landing.GoogleBooksRecords(rows, start, failures)

	report.SourceBreakdown = map[string]quality.SourceBreakdown{
		string(models.SourceGoodreads):   quality.BreakdownFor(a),
		string(models.SourceGoogleBooks): quality.BreakdownFor(b),
	}

	aTable := quality.SourceTable(models.SourceGoodreads, a)
	bTable := quality.SourceTable(models.SourceGoogleBooks, b)
	report.SourceCompleteness = map[string]map[string]float64{
		string(models.SourceGoodreads):   quality.Absorb(report, quality.Completeness(aTable, goodreadsRequired, opts.CompletenessThreshold)),
		string(models.SourceGoogleBooks): quality.Absorb(report, quality.Completeness(bTable, googleBooksRequired, opts.CompletenessThreshold)),
	}
	report.Normalization = &quality.Normalization{
		IdentifierValidity: map[string]map[string]float64{
			string(models.SourceGoodreads):   quality.Absorb(report, quality.IdentifierValidity(aTable)),
			string(models.SourceGoogleBooks): quality.Absorb(report, quality.IdentifierValidity(bTable)),
		},
		ParseFailures: failures,
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Resolve
	policy, err := survivorship.New(opts.Policy, survivorship.Options{
		Matching:     matching.Options{ReuseB: opts.ReuseB},
		DeriveISBN13: opts.DeriveISBN13,
	})
	if err != nil {
		return err
	}
	outcome, err := policy.Integrate(a, b)
	if err != nil {
		return fmt.Errorf("failed to integrate sources: %w", err)
	}

	books := make([]models.CanonicalBook, len(outcome.Resolutions))
	for i := range outcome.Resolutions {
		outcome.Resolutions[i].Book.UpdatedAt = start
		books[i] = outcome.Resolutions[i].Book
	}
	result.Books = books

	slog.Info("Sources resolved", "policy", policy.Name(), "input_records", outcome.InputRecords, "books", len(books))

	// Audit
	bookTable := quality.BookTable(books)
	report.Normalization.DatesValidPct = quality.Absorb(report, quality.Format(bookTable, "fecha_publicacion", "ISO-8601", quality.ISODate))
	report.Normalization.LanguagesValidPct = quality.Absorb(report, quality.Format(bookTable, "idioma", "BCP-47", quality.BCP47))
	report.Normalization.CurrenciesValidPct = quality.Absorb(report, quality.Format(bookTable, "moneda", "ISO-4217", quality.ISO4217))

	dedup := &quality.Deduplication{
		Policy:         policy.Name(),
		InputRecords:   outcome.InputRecords,
		OutputRecords:  len(books),
		Removed:        outcome.InputRecords - len(books),
		MergedGroups:   outcome.MergedGroups,
		DuplicateBooks: quality.Absorb(report, quality.Duplicates(bookTable, "book_id")),
	}
	if outcome.Pairs != nil {
		stats := matching.ComputeStats(outcome.Pairs)
		dedup.Matching = &stats
	}
	report.Deduplication = dedup

	report.Completeness = quality.Absorb(report, quality.Completeness(bookTable, bookRequired, opts.CompletenessThreshold))
	report.DataQuality, report.QualityChecks = quality.Summarize(books)

	details := standard.SourceDetails(a, b, outcome.Resolutions)
	result.Details = details
	report.RecordCounts = recordCounts(books, details)

	check, invErr := quality.AssertInvariants(books, opts.MinTitleCompleteness)
	report.Invariants = &check.Value
	quality.Absorb(report, check)
	if invErr != nil {
		return invErr
	}

	// Emit
	return writeArtifacts(ctx, opts, start, books, details, result)
}

func writeArtifacts(ctx context.Context, opts Options, start time.Time, books []models.CanonicalBook, details []models.SourceDetail, result *Result) error {
	bookRows := standard.BookRows(books)
	detailRows := standard.SourceDetailRows(details)

	bookPath := filepath.Join(opts.StandardDir, standard.BookFile)
	if err := standard.WriteParquet(bookPath, bookRows); err != nil {
		return fmt.Errorf("failed to write dim_book: %w", err)
	}
	result.Artifacts = append(result.Artifacts, bookPath)

	detailPath := filepath.Join(opts.StandardDir, standard.SourceDetailFile)
	if err := standard.WriteParquet(detailPath, detailRows); err != nil {
		return fmt.Errorf("failed to write book_source_detail: %w", err)
	}
	result.Artifacts = append(result.Artifacts, detailPath)

	if opts.SQLite {
		dbPath := filepath.Join(opts.StandardDir, standard.SQLiteFile)
		if err := standard.WriteSQLite(ctx, dbPath, bookRows, detailRows); err != nil {
			return fmt.Errorf("failed to write sqlite mirror: %w", err)
		}
		result.Artifacts = append(result.Artifacts, dbPath)
	}

	if opts.SchemaDoc {
		path, err := docs.WriteSchema(opts.DocsDir, opts.Version, start)
		if err != nil {
			return err
		}
		result.Artifacts = append(result.Artifacts, path)
	}

	for _, path := range result.Artifacts {
		slog.Info("Wrote artifact", "path", path)
	}
	return nil
}

func recordCounts(books []models.CanonicalBook, details []models.SourceDetail) *quality.RecordCounts {
	rc := &quality.RecordCounts{DimBookTotal: len(books), SourceDetailTotal: len(details)}
	for _, b := range books {
		if b.ISBN13 != "" || b.ISBN10 != "" {
			rc.DimBookWithISBN++
		}
		if b.Price.Valid {
			rc.DimBookWithPrice++
		}
		if b.AverageRating != nil {
			rc.DimBookWithRating++
		}
	}
	for _, d := range details {
		switch d.SourceName {
		case models.SourceGoodreads:
			rc.SourceDetailGoodreads++
		case models.SourceGoogleBooks:
			rc.SourceDetailGoogleBooks++
		}
	}
	return rc
}

func policyName(name string) string {
	if name == "" {
		return survivorship.PolicyPairwise
	}
	return name
}
