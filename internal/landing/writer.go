package landing

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteGoodreads writes the scrape document as indented JSON.
func WriteGoodreads(path string, doc *GoodreadsDocument) error {
	if doc.Books == nil {
		doc.Books = []GoodreadsBook{}
	}
	doc.Metadata.TotalBooksScraped = len(doc.Books)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create landing directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create goodreads file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode goodreads JSON: %w", err)
	}
	return nil
}

// WriteGoogleBooks writes enrichment rows as CSV with the fixed header.
func WriteGoogleBooks(path string, rows []GoogleBooksRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create landing directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create google books file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(GoogleBooksColumns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row.Values()); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
