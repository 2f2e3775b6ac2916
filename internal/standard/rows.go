// Package standard holds the canonical output tables and their on-disk
// renditions.
package standard

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uxentio/books-pipeline/internal/models"
)

// Artifact file names inside the standard directory.
const (
	BookFile         = "dim_book.parquet"
	SourceDetailFile = "book_source_detail.parquet"
	SQLiteFile       = "books.db"
	LockFile         = ".books-pipeline.lock"
)

// BookRow is one dim_book row.
type BookRow struct {
	BookID                string    `parquet:"book_id"`
	Titulo                *string   `parquet:"titulo"`
	TituloNormalizado     *string   `parquet:"titulo_normalizado"`
	AutorPrincipal        *string   `parquet:"autor_principal"`
	Autores               *string   `parquet:"autores"`
	Editorial             *string   `parquet:"editorial"`
	AnioPublicacion       *int32    `parquet:"anio_publicacion"`
	FechaPublicacion      *string   `parquet:"fecha_publicacion"`
	Idioma                *string   `parquet:"idioma"`
	ISBN10                *string   `parquet:"isbn10"`
	ISBN13                *string   `parquet:"isbn13"`
	Categoria             *string   `parquet:"categoria"`
	RatingPromedio        *float64  `parquet:"rating_promedio"`
	NumeroRatings         *int64    `parquet:"numero_ratings"`
	Precio                *float64  `parquet:"precio"`
	Moneda                *string   `parquet:"moneda"`
	GoodreadsURL          *string   `parquet:"goodreads_url"`
	GoogleBooksID         *string   `parquet:"google_books_id"`
	FuenteGanadora        string    `parquet:"fuente_ganadora"`
	FuenteTitulo          *string   `parquet:"fuente_titulo"`
	FuenteISBN            *string   `parquet:"fuente_isbn"`
	FuenteAutor           *string   `parquet:"fuente_autor"`
	FuenteRating          *string   `parquet:"fuente_rating"`
	FuentePrecio          *string   `parquet:"fuente_precio"`
	EnGoodreads           bool      `parquet:"en_goodreads"`
	EnGoogleBooks         bool      `parquet:"en_google_books"`
	TsUltimaActualizacion time.Time `parquet:"ts_ultima_actualizacion,timestamp"`
}

// SourceDetailRow is one book_source_detail row.
type SourceDetailRow struct {
	SourceID         string    `parquet:"source_id"`
	SourceName       string    `parquet:"source_name"`
	SourceFile       string    `parquet:"source_file"`
	SourceIndex      int64     `parquet:"source_index"`
	BookID           *string   `parquet:"book_id"`
	TituloOriginal   *string   `parquet:"titulo_original"`
	AutorOriginal    *string   `parquet:"autor_original"`
	ISBN10           *string   `parquet:"isbn10"`
	ISBN13           *string   `parquet:"isbn13"`
	Rating           *float64  `parquet:"rating"`
	RatingsCount     *int64    `parquet:"ratings_count"`
	URL              *string   `parquet:"url"`
	Editorial        *string   `parquet:"editorial"`
	FechaPublicacion *string   `parquet:"fecha_publicacion"`
	Idioma           *string   `parquet:"idioma"`
	Precio           *float64  `parquet:"precio"`
	Moneda           *string   `parquet:"moneda"`
	GoogleBooksID    *string   `parquet:"google_books_id"`
	TsIngesta        time.Time `parquet:"ts_ingesta,timestamp"`
}

// NewBookRow flattens a canonical book into its output row.
func NewBookRow(b models.CanonicalBook) BookRow {
	row := BookRow{
		BookID:                b.BookID,
		Titulo:                optString(b.Title),
		TituloNormalizado:     optString(b.NormalizedTitle),
		AutorPrincipal:        optString(b.PrimaryAuthor),
		Autores:               optString(strings.Join(b.Authors, ", ")),
		Editorial:             optString(b.Publisher),
		FechaPublicacion:      optString(b.PublicationDate),
		Idioma:                optString(b.Language),
		ISBN10:                optString(b.ISBN10),
		ISBN13:                optString(b.ISBN13),
		Categoria:             optString(strings.Join(b.Categories, ", ")),
		RatingPromedio:        b.AverageRating,
		NumeroRatings:         b.RatingsCount,
		Precio:                optDecimal(b.Price),
		Moneda:                optString(b.Currency),
		GoodreadsURL:          optString(b.GoodreadsURL),
		GoogleBooksID:         optString(b.GoogleBooksID),
		FuenteGanadora:        string(b.WinningSource),
		FuenteTitulo:          optString(string(b.TitleSource)),
		FuenteISBN:            optString(string(b.ISBNSource)),
		FuenteAutor:           optString(string(b.AuthorSource)),
		FuenteRating:          optString(string(b.RatingSource)),
		FuentePrecio:          optString(string(b.PriceSource)),
		EnGoodreads:           b.HasGoodreads,
		EnGoogleBooks:         b.HasGoogleBooks,
		TsUltimaActualizacion: b.UpdatedAt.UTC(),
	}
	if b.PublicationYear != nil {
		y := int32(*b.PublicationYear)
		row.AnioPublicacion = &y
	}
	return row
}

// NewSourceDetailRow flattens a lineage record.
func NewSourceDetailRow(d models.SourceDetail) SourceDetailRow {
	return SourceDetailRow{
		SourceID:         d.SourceID,
		SourceName:       string(d.SourceName),
		SourceFile:       d.SourceFile,
		SourceIndex:      int64(d.SourceIndex),
		BookID:           optString(d.BookID),
		TituloOriginal:   optString(d.Title),
		AutorOriginal:    optString(d.Author),
		ISBN10:           optString(d.ISBN10),
		ISBN13:           optString(d.ISBN13),
		Rating:           d.Rating,
		RatingsCount:     d.RatingsCount,
		URL:              optString(d.BookURL),
		Editorial:        optString(d.Publisher),
		FechaPublicacion: optString(d.PubDate),
		Idioma:           optString(d.Language),
		Precio:           optDecimal(d.Price),
		Moneda:           optString(d.Currency),
		GoogleBooksID:    optString(d.GoogleBooksID),
		TsIngesta:        d.IngestedAt.UTC(),
	}
}

// BookRows converts every canonical book.
func BookRows(books []models.CanonicalBook) []BookRow {
	rows := make([]BookRow, len(books))
	for i, b := range books {
		rows[i] = NewBookRow(b)
	}
	return rows
}

// SourceDetailRows converts every lineage record.
func SourceDetailRows(details []models.SourceDetail) []SourceDetailRow {
	rows := make([]SourceDetailRow, len(details))
	for i, d := range details {
		rows[i] = NewSourceDetailRow(d)
	}
	return rows
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optDecimal(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}
