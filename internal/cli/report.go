package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/uxentio/books-pipeline/internal/pipeline"
	"github.com/uxentio/books-pipeline/internal/quality"
)

// NewReportCmd creates the report command.
func NewReportCmd(env *Env) *cobra.Command {
	var format string
	var history bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the latest quality report or the run history",
		Long: `Print quality_metrics.json from the docs directory.

Formats:
  text   summary as printed after a run
  json   the report document as written
  table  field completeness and record counts

With --history, list past runs from the runs directory instead.`,
		Example: `  # Summary of the last run
  books-pipeline report

  # Completeness per field
  books-pipeline report --format table

  # Every recorded run
  books-pipeline report --history`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if history {
				return executeHistory(w, env.Config.Paths.Runs)
			}
			return executeReport(w, filepath.Join(env.Config.Paths.Docs, pipeline.ReportFile), format)
		},
	}

	flags := cmd.Flags()
	flags.String("docs", "", "Directory with quality_metrics.json")
	flags.String("runs", "", "Directory with run history entries")
	BindKey(flags, "docs", "paths.docs")
	BindKey(flags, "runs", "paths.runs")
	flags.StringVar(&format, "format", "text", "Output format (text, json, table)")
	flags.BoolVar(&history, "history", false, "List past runs")

	return cmd
}

func executeReport(w io.Writer, path, format string) error {
	report, err := quality.LoadReport(path)
	if err != nil {
		return err
	}

	switch format {
	case "text":
		report.PrintSummary(w)
		return nil
	case "json":
		return printJSONReport(w, report)
	case "table":
		printTableReport(w, report)
		return nil
	default:
		return fmt.Errorf("unknown format: %s (use text, json, or table)", format)
	}
}

func printJSONReport(w io.Writer, report *quality.Report) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func printTableReport(w io.Writer, report *quality.Report) {
	fmt.Fprintf(w, "Run %s (%s, %s)\n", report.RunID, report.Pipeline.Policy, report.Summary.Status)

	if len(report.Completeness) > 0 {
		fields := make([]string, 0, len(report.Completeness))
		for field := range report.Completeness {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		rows := make([][]string, 0, len(fields))
		for _, field := range fields {
			rows = append(rows, []string{field, fmt.Sprintf("%.2f%%", report.Completeness[field])})
		}
		fmt.Fprintln(w, renderTable([]string{"field", "completeness"}, rows, []columnAlignment{alignLeft, alignRight}, nil))
	}

	if c := report.RecordCounts; c != nil {
		rows := [][]string{
			{"dim_book", strconv.Itoa(c.DimBookTotal)},
			{"dim_book with isbn", strconv.Itoa(c.DimBookWithISBN)},
			{"dim_book with price", strconv.Itoa(c.DimBookWithPrice)},
			{"dim_book with rating", strconv.Itoa(c.DimBookWithRating)},
			{"source detail", strconv.Itoa(c.SourceDetailTotal)},
			{"source detail goodreads", strconv.Itoa(c.SourceDetailGoodreads)},
			{"source detail googlebooks", strconv.Itoa(c.SourceDetailGoogleBooks)},
		}
		fmt.Fprintln(w, renderTable([]string{"table", "rows"}, rows, []columnAlignment{alignLeft, alignRight}, nil))
	}

	if report.Summary.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", report.Summary.Error)
	}
}

func executeHistory(w io.Writer, dir string) error {
	runs, err := pipeline.LoadRuns(dir)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs recorded in %s\n", dir)
		return nil
	}

	headers := []string{"started", "run", "policy", "status", "books", "details", "match rate", "warnings"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		started := run.Config.Timestamp
		if t, err := run.StartedAt(); err == nil {
			started = t.Format("2006-01-02 15:04:05")
		}
		rows = append(rows, []string{
			started,
			shortRunID(run.RunID),
			run.Config.Policy,
			run.Summary.Status,
			strconv.Itoa(run.Summary.Books),
			strconv.Itoa(run.Summary.SourceDetails),
			fmt.Sprintf("%.2f%%", run.Summary.MatchRate),
			strconv.Itoa(run.Summary.Warnings),
		})
	}
	fmt.Fprintln(w, renderTable(headers, rows, aligns, nil))
	return nil
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
