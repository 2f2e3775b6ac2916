package standard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

const bookSchema = `CREATE TABLE dim_book (
	book_id TEXT PRIMARY KEY,
	titulo TEXT,
	titulo_normalizado TEXT,
	autor_principal TEXT,
	autores TEXT,
	editorial TEXT,
	anio_publicacion INTEGER,
	fecha_publicacion TEXT,
	idioma TEXT,
	isbn10 TEXT,
	isbn13 TEXT,
	categoria TEXT,
	rating_promedio REAL,
	numero_ratings INTEGER,
	precio REAL,
	moneda TEXT,
	goodreads_url TEXT,
	google_books_id TEXT,
	fuente_ganadora TEXT NOT NULL,
	fuente_titulo TEXT,
	fuente_isbn TEXT,
	fuente_autor TEXT,
	fuente_rating TEXT,
	fuente_precio TEXT,
	en_goodreads INTEGER NOT NULL,
	en_google_books INTEGER NOT NULL,
	ts_ultima_actualizacion TEXT NOT NULL
)`

const detailSchema = `CREATE TABLE book_source_detail (
	source_id TEXT PRIMARY KEY,
	source_name TEXT NOT NULL,
	source_file TEXT NOT NULL,
	source_index INTEGER NOT NULL,
	book_id TEXT REFERENCES dim_book(book_id),
	titulo_original TEXT,
	autor_original TEXT,
	isbn10 TEXT,
	isbn13 TEXT,
	rating REAL,
	ratings_count INTEGER,
	url TEXT,
	editorial TEXT,
	fecha_publicacion TEXT,
	idioma TEXT,
	precio REAL,
	moneda TEXT,
	google_books_id TEXT,
	ts_ingesta TEXT NOT NULL
)`

// WriteSQLite mirrors both tables into a fresh SQLite database at path.
// Any existing database is replaced.
func WriteSQLite(ctx context.Context, path string, books []BookRow, details []SourceDetailRow) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove previous database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("apply pragma: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{bookSchema, detailSchema} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	for _, b := range books {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO dim_book VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.BookID, b.Titulo, b.TituloNormalizado, b.AutorPrincipal, b.Autores, b.Editorial,
			b.AnioPublicacion, b.FechaPublicacion, b.Idioma, b.ISBN10, b.ISBN13, b.Categoria,
			b.RatingPromedio, b.NumeroRatings, b.Precio, b.Moneda, b.GoodreadsURL, b.GoogleBooksID,
			b.FuenteGanadora, b.FuenteTitulo, b.FuenteISBN, b.FuenteAutor, b.FuenteRating, b.FuentePrecio,
			b.EnGoodreads, b.EnGoogleBooks, b.TsUltimaActualizacion.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert book %s: %w", b.BookID, err)
		}
	}

	for _, d := range details {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO book_source_detail VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.SourceID, d.SourceName, d.SourceFile, d.SourceIndex, d.BookID, d.TituloOriginal,
			d.AutorOriginal, d.ISBN10, d.ISBN13, d.Rating, d.RatingsCount, d.URL, d.Editorial,
			d.FechaPublicacion, d.Idioma, d.Precio, d.Moneda, d.GoogleBooksID,
			d.TsIngesta.Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert source detail %s: %w", d.SourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	slog.Debug("Wrote sqlite database", "path", path, "books", len(books), "source_details", len(details))
	return nil
}

// CountRows returns the number of rows in table. Only the two known tables
// are accepted.
func CountRows(ctx context.Context, path, table string) (int, error) {
	if table != "dim_book" && table != "book_source_detail" {
		return 0, fmt.Errorf("unknown table %q", table)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}
