// Package docs generates the data dictionary for the standard tables.
package docs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/uxentio/books-pipeline/internal/standard"
)

// SchemaFile is the generated data dictionary inside the docs directory.
const SchemaFile = "schema.md"

var descriptions = map[string]string{
	"book_id":                 "Canonical identifier: ISBN13:, ISBN10: or HASH: prefixed",
	"titulo":                  "Surviving title (longer of the two sources)",
	"titulo_normalizado":      "Lower-case, accent-folded match key",
	"autor_principal":         "First listed author",
	"autores":                 "All authors, comma separated",
	"editorial":               "Publisher",
	"anio_publicacion":        "Publication year",
	"fecha_publicacion":       "Publication date, ISO-8601",
	"idioma":                  "Language code, BCP-47",
	"isbn10":                  "ISBN-10",
	"isbn13":                  "ISBN-13",
	"categoria":               "Categories, comma separated",
	"rating_promedio":         "Average Goodreads rating",
	"numero_ratings":          "Number of Goodreads ratings",
	"precio":                  "Retail price",
	"moneda":                  "Currency, ISO-4217",
	"goodreads_url":           "Goodreads book page",
	"google_books_id":         "Google Books volume id",
	"fuente_ganadora":         "Source that contributed most decisive fields",
	"fuente_titulo":           "Source of titulo",
	"fuente_isbn":             "Source of the identifiers",
	"fuente_autor":            "Source of the authors",
	"fuente_rating":           "Source of the rating fields",
	"fuente_precio":           "Source of the price fields",
	"en_goodreads":            "Book was seen on Goodreads",
	"en_google_books":         "Book was seen on Google Books",
	"ts_ultima_actualizacion": "Run timestamp, UTC",
	"source_id":               "GR_<index> or GB_<index>",
	"source_name":             "goodreads or googlebooks",
	"source_file":             "Landing file the record came from",
	"source_index":            "Position in the landing file",
	"titulo_original":         "Title as received",
	"autor_original":          "Author as received",
	"rating":                  "Rating as scraped",
	"ratings_count":           "Ratings count as scraped",
	"url":                     "Book page as scraped",
	"ts_ingesta":              "Ingestion timestamp, UTC",
}

// Column describes one column of a table.
type Column struct {
	Name        string
	Type        string
	Nullable    bool
	Description string
}

// TableDoc describes one output table.
type TableDoc struct {
	Name    string
	File    string
	Grain   string
	Columns []Column
}

var schemaTemplate = template.Must(template.New("schema").Parse(`# Data dictionary

Generated {{.Generated}} by books-pipeline {{.Version}}.
{{range .Tables}}
## {{.Name}}

File: ` + "`{{.File}}`" + `. {{.Grain}}

| Column | Type | Nullable | Description |
|---|---|---|---|
{{range .Columns}}| {{.Name}} | {{.Type}} | {{if .Nullable}}yes{{else}}no{{end}} | {{.Description}} |
{{end}}{{end}}
## Rules

- Identifiers are cleaned and checksum-validated; invalid identifiers are dropped.
- Dates follow ISO-8601, languages BCP-47, currencies ISO-4217.
- book_id is unique in dim_book; a duplicate aborts the run before any table is written.
`))

// Tables returns the documented output tables.
func Tables() []TableDoc {
	return []TableDoc{
		{
			Name:    "dim_book",
			File:    "standard/" + standard.BookFile,
			Grain:   "One row per canonical book.",
			Columns: columnsOf(standard.BookRow{}),
		},
		{
			Name:    "book_source_detail",
			File:    "standard/" + standard.SourceDetailFile,
			Grain:   "One row per landing record with the book_id it resolved to.",
			Columns: columnsOf(standard.SourceDetailRow{}),
		},
	}
}

// Render writes the data dictionary to w.
func Render(w io.Writer, version string, generated time.Time) error {
	return schemaTemplate.Execute(w, struct {
		Version   string
		Generated string
		Tables    []TableDoc
	}{
		Version:   version,
		Generated: generated.UTC().Format(time.RFC3339),
		Tables:    Tables(),
	})
}

// WriteSchema renders the data dictionary into dir.
func WriteSchema(dir, version string, generated time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create docs directory: %w", err)
	}

	path := filepath.Join(dir, SchemaFile)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create schema doc: %w", err)
	}
	defer file.Close()

	if err := Render(file, version, generated); err != nil {
		return "", fmt.Errorf("failed to render schema doc: %w", err)
	}
	return path, nil
}

func columnsOf(row any) []Column {
	schema := parquet.SchemaOf(row)
	fields := schema.Fields()
	cols := make([]Column, 0, len(fields))
	for _, f := range fields {
		cols = append(cols, Column{
			Name:        f.Name(),
			Type:        f.Type().String(),
			Nullable:    f.Optional(),
			Description: descriptions[f.Name()],
		})
	}
	return cols
}
