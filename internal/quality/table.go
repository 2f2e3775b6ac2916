package quality

import (
	"strconv"
	"strings"

	"github.com/uxentio/books-pipeline/internal/models"
)

// Column returns the string form of a cell and whether it holds a value.
type Column func(i int) (string, bool)

// Table is a named, column-oriented view over a batch so checks can be
// written once for sources and canonical output alike.
type Table struct {
	Name    string
	Rows    int
	columns map[string]Column
}

// NewTable creates an empty table with a fixed row count.
func NewTable(name string, rows int) *Table {
	return &Table{Name: name, Rows: rows, columns: make(map[string]Column)}
}

// AddColumn registers a column accessor.
func (t *Table) AddColumn(name string, col Column) *Table {
	t.columns[name] = col
	return t
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

func str(s string) (string, bool) {
	return s, strings.TrimSpace(s) != ""
}

func list(v []string) (string, bool) {
	return strings.Join(v, ","), len(v) > 0
}

func floatPtr(v *float64) (string, bool) {
	if v == nil {
		return "", false
	}
	return strconv.FormatFloat(*v, 'f', -1, 64), true
}

func intPtr(v *int64) (string, bool) {
	if v == nil {
		return "", false
	}
	return strconv.FormatInt(*v, 10), true
}

// BookTable exposes canonical books under their output column names.
func BookTable(books []models.CanonicalBook) *Table {
	t := NewTable("dim_book", len(books))
	t.AddColumn("book_id", func(i int) (string, bool) { return str(books[i].BookID) })
	t.AddColumn("titulo", func(i int) (string, bool) { return str(books[i].Title) })
	t.AddColumn("autor_principal", func(i int) (string, bool) { return str(books[i].PrimaryAuthor) })
	t.AddColumn("autores", func(i int) (string, bool) { return list(books[i].Authors) })
	t.AddColumn("editorial", func(i int) (string, bool) { return str(books[i].Publisher) })
	t.AddColumn("anio_publicacion", func(i int) (string, bool) {
		if books[i].PublicationYear == nil {
			return "", false
		}
		return strconv.Itoa(*books[i].PublicationYear), true
	})
	t.AddColumn("fecha_publicacion", func(i int) (string, bool) { return str(books[i].PublicationDate) })
	t.AddColumn("idioma", func(i int) (string, bool) { return str(books[i].Language) })
	t.AddColumn("isbn10", func(i int) (string, bool) { return str(books[i].ISBN10) })
	t.AddColumn("isbn13", func(i int) (string, bool) { return str(books[i].ISBN13) })
	t.AddColumn("categoria", func(i int) (string, bool) { return list(books[i].Categories) })
	t.AddColumn("rating_promedio", func(i int) (string, bool) { return floatPtr(books[i].AverageRating) })
	t.AddColumn("numero_ratings", func(i int) (string, bool) { return intPtr(books[i].RatingsCount) })
	t.AddColumn("precio", func(i int) (string, bool) {
		if !books[i].Price.Valid {
			return "", false
		}
		return books[i].Price.Decimal.String(), true
	})
	t.AddColumn("moneda", func(i int) (string, bool) { return str(books[i].Currency) })
	t.AddColumn("google_books_id", func(i int) (string, bool) { return str(books[i].GoogleBooksID) })
	return t
}

// SourceTable exposes one source batch under its landing column names, using
// the raw values as received.
func SourceTable(src models.Source, records []models.SourceRecord) *Table {
	t := NewTable(string(src), len(records))
	t.AddColumn("title", func(i int) (string, bool) { return str(records[i].Title) })
	t.AddColumn("isbn13", func(i int) (string, bool) { return str(records[i].RawISBN13) })
	t.AddColumn("isbn10", func(i int) (string, bool) { return str(records[i].RawISBN10) })

	switch src {
	case models.SourceGoodreads:
		t.AddColumn("author", func(i int) (string, bool) { return str(records[i].Author) })
		t.AddColumn("book_url", func(i int) (string, bool) { return str(records[i].BookURL) })
		t.AddColumn("rating", func(i int) (string, bool) { return floatPtr(records[i].Rating) })
	case models.SourceGoogleBooks:
		t.AddColumn("authors", func(i int) (string, bool) { return list(records[i].Authors) })
		t.AddColumn("publisher", func(i int) (string, bool) { return str(records[i].Publisher) })
		t.AddColumn("pub_date", func(i int) (string, bool) { return str(records[i].RawPubDate) })
		t.AddColumn("language", func(i int) (string, bool) { return str(records[i].RawLanguage) })
		t.AddColumn("price_currency", func(i int) (string, bool) { return str(records[i].RawCurrency) })
		t.AddColumn("gb_id", func(i int) (string, bool) { return str(records[i].GoogleBooksID) })
	}
	return t
}
