package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/uxentio/books-pipeline/internal/pipeline"
)

// NewIntegrateCmd creates the integrate command.
func NewIntegrateCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integrate",
		Short: "Integrate landing files into dim_book and the source detail table",
		Long: `Read the Goodreads JSON and Google Books CSV from the landing directory,
normalize and match them, resolve one canonical record per book and write
the standard tables plus a quality report.

The quality report is written even when the run fails, with status "failed".`,
		Example: `  # Integrate with the default pairwise policy
  books-pipeline integrate

  # Union every record that shares an ISBN or title/author key
  books-pipeline integrate --policy group-union

  # Also mirror the tables into SQLite
  books-pipeline integrate --sqlite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := pipeline.OptionsFromConfig(env.Config, env.Version)
			return executeIntegrate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	addPathFlags(cmd)
	addIntegrateFlags(cmd)

	return cmd
}

func addPathFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("landing", "", "Landing directory with the source files")
	flags.String("standard", "", "Output directory for the standard tables")
	flags.String("docs", "", "Output directory for the quality report and schema doc")
	flags.String("runs", "", "Directory for run history entries")
	BindKey(flags, "landing", "paths.landing")
	BindKey(flags, "standard", "paths.standard")
	BindKey(flags, "docs", "paths.docs")
	BindKey(flags, "runs", "paths.runs")
}

func addIntegrateFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("policy", "", "Survivorship policy (pairwise or group-union)")
	flags.Bool("reuse-b", false, "Let one Google Books record match several Goodreads records")
	flags.Bool("derive-isbn13", false, "Derive a missing ISBN-13 from a valid ISBN-10")
	flags.Bool("sqlite", false, "Also write the tables to a SQLite database")
	flags.Bool("schema-doc", true, "Write the schema document next to the report")
	BindKey(flags, "policy", "survivorship.policy")
	BindKey(flags, "reuse-b", "matching.reuse_b")
	BindKey(flags, "derive-isbn13", "survivorship.derive_isbn13")
	BindKey(flags, "sqlite", "output.sqlite")
	BindKey(flags, "schema-doc", "output.schema_doc")
}

func executeIntegrate(ctx context.Context, w io.Writer, opts pipeline.Options) error {
	result, err := pipeline.Run(ctx, opts)
	if result != nil && result.Report != nil {
		result.Report.PrintSummary(w)
		fmt.Fprintf(w, "Quality report: %s\n", result.ReportPath)
	}
	if err != nil {
		return fmt.Errorf("integration failed: %w", err)
	}

	for _, path := range result.Artifacts {
		fmt.Fprintf(w, "Wrote %s\n", path)
	}
	return nil
}
