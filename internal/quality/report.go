package quality

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/uxentio/books-pipeline/internal/matching"
	"github.com/uxentio/books-pipeline/internal/models"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Report is the quality_metrics.json document. Sections are filled in as the
// run progresses, so a failed run still serializes whatever it reached.
type Report struct {
	RunID              string                        `json:"run_id"`
	ExecutionDate      time.Time                     `json:"execution_date"`
	Pipeline           PipelineInfo                  `json:"pipeline_execution"`
	Summary            ExecutionSummary              `json:"execution_summary"`
	SourceFiles        []SourceFile                  `json:"source_files,omitempty"`
	SourceBreakdown    map[string]SourceBreakdown    `json:"source_breakdown,omitempty"`
	SourceCompleteness map[string]map[string]float64 `json:"source_completeness,omitempty"`
	Normalization      *Normalization                `json:"normalization,omitempty"`
	Deduplication      *Deduplication                `json:"deduplication,omitempty"`
	RecordCounts       *RecordCounts                 `json:"record_counts,omitempty"`
	Completeness       map[string]float64            `json:"completeness,omitempty"`
	DataQuality        *DataQuality                  `json:"data_quality,omitempty"`
	QualityChecks      *QualityChecks                `json:"quality_checks,omitempty"`
	Invariants         *InvariantSummary             `json:"invariants,omitempty"`
	Warnings           []string                      `json:"warnings"`
	Errors             []string                      `json:"errors"`
}

// PipelineInfo records how the run was configured.
type PipelineInfo struct {
	Version      string `json:"version"`
	Policy       string `json:"survivorship_policy"`
	ReuseB       bool   `json:"reuse_googlebooks_matches"`
	DeriveISBN13 bool   `json:"derive_isbn13"`
	LandingDir   string `json:"landing_dir"`
	StandardDir  string `json:"standard_dir"`
	DocsDir      string `json:"docs_dir"`
}

// ExecutionSummary is the run outcome.
type ExecutionSummary struct {
	Status               string    `json:"status"`
	StartTime            time.Time `json:"start_time"`
	EndTime              time.Time `json:"end_time"`
	ExecutionTimeSeconds float64   `json:"execution_time_seconds"`
	Error                string    `json:"error,omitempty"`
}

// SourceFile describes one landing file that was read.
type SourceFile struct {
	Source   string    `json:"source"`
	Path     string    `json:"path"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loaded_at"`
}

// SourceBreakdown counts populated fields in one source batch.
type SourceBreakdown struct {
	Records    int `json:"records"`
	WithISBN13 int `json:"with_isbn13"`
	WithISBN10 int `json:"with_isbn10"`
	WithRating int `json:"with_rating"`
	WithPrice  int `json:"with_price"`
}

// Normalization holds format validity for normalized googlebooks fields,
// raw identifier validity per source, and parse failures by field.
type Normalization struct {
	DatesValidPct      float64                       `json:"dates_valid_pct"`
	LanguagesValidPct  float64                       `json:"languages_valid_pct"`
	CurrenciesValidPct float64                       `json:"currencies_valid_pct"`
	IdentifierValidity map[string]map[string]float64 `json:"identifier_validity"`
	ParseFailures      map[string]int                `json:"parse_failures"`
}

// Deduplication summarizes how many records collapsed into canonical books.
type Deduplication struct {
	Policy         string          `json:"policy"`
	InputRecords   int             `json:"input_records"`
	OutputRecords  int             `json:"output_records"`
	Removed        int             `json:"removed"`
	MergedGroups   int             `json:"merged_groups"`
	DuplicateBooks int             `json:"duplicate_books"`
	Matching       *matching.Stats `json:"matching,omitempty"`
}

// RecordCounts covers both output tables.
type RecordCounts struct {
	DimBookTotal            int `json:"dim_book_total"`
	DimBookWithISBN         int `json:"dim_book_with_isbn"`
	DimBookWithPrice        int `json:"dim_book_with_price"`
	DimBookWithRating       int `json:"dim_book_with_rating"`
	SourceDetailTotal       int `json:"source_detail_total"`
	SourceDetailGoodreads   int `json:"source_detail_goodreads"`
	SourceDetailGoogleBooks int `json:"source_detail_googlebooks"`
}

// DataQuality is the percentage view over dim_book.
type DataQuality struct {
	PercentValidTitles     float64 `json:"percent_valid_titles"`
	PercentValidISBNs      float64 `json:"percent_valid_isbns"`
	PercentWithRating      float64 `json:"percent_with_rating"`
	PercentWithPrice       float64 `json:"percent_with_price"`
	PercentWithGoogleBooks float64 `json:"percent_with_googlebooks_data"`
	PercentWithYear        float64 `json:"percent_with_year"`
}

// QualityChecks is the count view over dim_book.
type QualityChecks struct {
	TotalBooks                int `json:"total_books"`
	BooksWithCompleteMetadata int `json:"books_with_complete_metadata"`
	BooksWithRating           int `json:"books_with_rating"`
	BooksWithPrice            int `json:"books_with_price"`
}

// NewReport starts a report for a run.
func NewReport(runID string, start time.Time, info PipelineInfo) *Report {
	return &Report{
		RunID:         runID,
		ExecutionDate: start,
		Pipeline:      info,
		Summary:       ExecutionSummary{Status: StatusFailed, StartTime: start},
		Warnings:      []string{},
		Errors:        []string{},
	}
}

// Absorb folds a check's diagnostics into the report and returns its value.
func Absorb[T any](r *Report, c Check[T]) T {
	r.Warnings = append(r.Warnings, c.Warnings...)
	r.Errors = append(r.Errors, c.Errors...)
	return c.Value
}

// Finish closes the run summary. A nil error marks the run successful.
func (r *Report) Finish(end time.Time, err error) {
	r.Summary.EndTime = end
	r.Summary.ExecutionTimeSeconds = end.Sub(r.Summary.StartTime).Seconds()
	if err != nil {
		r.Summary.Status = StatusFailed
		r.Summary.Error = err.Error()
		return
	}
	r.Summary.Status = StatusSuccess
	r.Summary.Error = ""
}

// BreakdownFor counts populated fields in a source batch.
func BreakdownFor(records []models.SourceRecord) SourceBreakdown {
	b := SourceBreakdown{Records: len(records)}
	for _, r := range records {
		if r.ISBN13 != "" {
			b.WithISBN13++
		}
		if r.ISBN10 != "" {
			b.WithISBN10++
		}
		if r.Rating != nil {
			b.WithRating++
		}
		if r.Price.Valid {
			b.WithPrice++
		}
	}
	return b
}

// Summarize computes the count and percentage views over canonical books.
func Summarize(books []models.CanonicalBook) (*DataQuality, *QualityChecks) {
	var titles, isbns, ratings, prices, gb, years, complete int
	for _, b := range books {
		_, hasTitle := str(b.Title)
		_, hasAuthor := str(b.PrimaryAuthor)
		if hasTitle {
			titles++
		}
		if b.ISBN13 != "" {
			isbns++
		}
		if b.AverageRating != nil {
			ratings++
		}
		if b.Price.Valid {
			prices++
		}
		if b.GoogleBooksID != "" {
			gb++
		}
		if b.PublicationYear != nil {
			years++
		}
		if hasTitle && hasAuthor && b.ISBN13 != "" {
			complete++
		}
	}
	n := len(books)
	dq := &DataQuality{
		PercentValidTitles:     Percent(titles, n),
		PercentValidISBNs:      Percent(isbns, n),
		PercentWithRating:      Percent(ratings, n),
		PercentWithPrice:       Percent(prices, n),
		PercentWithGoogleBooks: Percent(gb, n),
		PercentWithYear:        Percent(years, n),
	}
	qc := &QualityChecks{
		TotalBooks:                n,
		BooksWithCompleteMetadata: complete,
		BooksWithRating:           ratings,
		BooksWithPrice:            prices,
	}
	return dq, qc
}

// PrintSummary writes a human-readable summary of the run.
func (r *Report) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "BOOKS PIPELINE QUALITY SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Run ID: %s\n", r.RunID)
	fmt.Fprintf(w, "Execution Date: %s\n", r.ExecutionDate.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Policy: %s\n", r.Pipeline.Policy)
	fmt.Fprintf(w, "Status: %s (%.2fs)\n", r.Summary.Status, r.Summary.ExecutionTimeSeconds)
	if r.Summary.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", r.Summary.Error)
	}
	fmt.Fprintln(w)

	if len(r.SourceBreakdown) > 0 {
		fmt.Fprintln(w, "SOURCES")
		fmt.Fprintln(w, strings.Repeat("-", 70))
		names := make([]string, 0, len(r.SourceBreakdown))
		for name := range r.SourceBreakdown {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b := r.SourceBreakdown[name]
			fmt.Fprintf(w, "%-12s records=%d isbn13=%d rating=%d price=%d\n", name, b.Records, b.WithISBN13, b.WithRating, b.WithPrice)
		}
		fmt.Fprintln(w)
	}

	if d := r.Deduplication; d != nil {
		fmt.Fprintln(w, "DEDUPLICATION")
		fmt.Fprintln(w, strings.Repeat("-", 70))
		fmt.Fprintf(w, "Input Records: %d\n", d.InputRecords)
		fmt.Fprintf(w, "Canonical Books: %d\n", d.OutputRecords)
		if d.Matching != nil {
			fmt.Fprintf(w, "Matched: %d / %d (%.2f%%)\n", d.Matching.Matched, d.Matching.TotalA, d.Matching.MatchRate)
		}
		fmt.Fprintln(w)
	}

	if q := r.DataQuality; q != nil {
		fmt.Fprintln(w, "DATA QUALITY")
		fmt.Fprintln(w, strings.Repeat("-", 70))
		fmt.Fprintf(w, "Titles:            %6.2f%%\n", q.PercentValidTitles)
		fmt.Fprintf(w, "ISBN-13:           %6.2f%%\n", q.PercentValidISBNs)
		fmt.Fprintf(w, "Rating:            %6.2f%%\n", q.PercentWithRating)
		fmt.Fprintf(w, "Price:             %6.2f%%\n", q.PercentWithPrice)
		fmt.Fprintf(w, "Google Books data: %6.2f%%\n", q.PercentWithGoogleBooks)
		fmt.Fprintf(w, "Year:              %6.2f%%\n", q.PercentWithYear)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Warnings: %d\n", len(r.Warnings))
	for _, msg := range r.Warnings {
		fmt.Fprintf(w, "  ! %s\n", msg)
	}
	fmt.Fprintf(w, "Errors: %d\n", len(r.Errors))
	for _, msg := range r.Errors {
		fmt.Fprintf(w, "  x %s\n", msg)
	}
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

// SaveToJSON writes the report, creating the parent directory if needed.
func (r *Report) SaveToJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report to JSON: %w", err)
	}

	return nil
}

// LoadReport reads a previously saved report.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &r, nil
}
