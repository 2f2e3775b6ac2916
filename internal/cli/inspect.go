package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/uxentio/books-pipeline/internal/standard"
)

// NewInspectCmd creates the inspect command.
func NewInspectCmd(env *Env) *cobra.Command {
	var limit int
	var details bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show rows from the standard tables",
		Long: `Print rows of dim_book, or of book_source_detail with --details, as a table.

Useful for checking which source won each book and which fields came through.`,
		Example: `  # First 20 canonical books
  books-pipeline inspect

  # Every source record with the book it was assigned to
  books-pipeline inspect --details --limit 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeInspect(cmd.OutOrStdout(), env.Config.Paths.Standard, limit, details)
		},
	}

	flags := cmd.Flags()
	flags.String("standard", "", "Directory with the standard tables")
	BindKey(flags, "standard", "paths.standard")
	flags.IntVar(&limit, "limit", 20, "Number of rows to show (0 for all)")
	flags.BoolVar(&details, "details", false, "Show book_source_detail instead of dim_book")

	return cmd
}

func executeInspect(w io.Writer, dir string, limit int, details bool) error {
	if details {
		rows, err := standard.ReadSourceDetails(dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %d rows\n", standard.SourceDetailFile, len(rows))
		fmt.Fprintln(w, renderSourceDetails(head(rows, limit)))
		return nil
	}

	rows, err := standard.ReadBooks(dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %d rows\n", standard.BookFile, len(rows))
	fmt.Fprintln(w, renderBooks(head(rows, limit)))
	return nil
}

func head[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func renderBooks(rows []standard.BookRow) string {
	headers := []string{"book_id", "titulo", "autor_principal", "anio", "isbn13", "rating", "precio", "ganadora"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft}
	widths := []int{12, 40, 24, 0, 0, 0, 0, 0}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		price := formatFloat(r.Precio, 2)
		if price != "" && r.Moneda != nil {
			price += " " + *r.Moneda
		}
		out = append(out, []string{
			r.BookID,
			standard.Deref(r.Titulo),
			standard.Deref(r.AutorPrincipal),
			formatYear(r.AnioPublicacion),
			standard.Deref(r.ISBN13),
			formatFloat(r.RatingPromedio, 2),
			price,
			r.FuenteGanadora,
		})
	}
	return renderTable(headers, out, aligns, widths)
}

func renderSourceDetails(rows []standard.SourceDetailRow) string {
	headers := []string{"source_id", "source", "book_id", "titulo_original", "isbn13", "rating", "precio"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight}
	widths := []int{0, 0, 12, 40, 0, 0, 0}

	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{
			r.SourceID,
			r.SourceName,
			standard.Deref(r.BookID),
			standard.Deref(r.TituloOriginal),
			standard.Deref(r.ISBN13),
			formatFloat(r.Rating, 2),
			formatFloat(r.Precio, 2),
		})
	}
	return renderTable(headers, out, aligns, widths)
}

func formatFloat(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func formatYear(v *int32) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(int(*v))
}
