package landing

import (
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrMissingInput is returned when a landing file does not exist.
var ErrMissingInput = errors.New("landing input missing")

//go:embed goodreads.schema.json
var goodreadsSchema string

// FieldError is a single schema violation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SchemaError reports a landing file that does not match its declared shape.
type SchemaError struct {
	File   string
	Errors []FieldError
}

func (e *SchemaError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("schema validation failed for %s", e.File)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("schema validation failed for %s: %s", e.File, strings.Join(parts, "; "))
}

// Loader reads the two landing files from a directory.
type Loader struct {
	dir string
}

// NewLoader creates a loader rooted at the landing directory.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// GoodreadsPath returns the path of the Goodreads landing file.
func (l *Loader) GoodreadsPath() string {
	return filepath.Join(l.dir, GoodreadsFile)
}

// GoogleBooksPath returns the path of the Google Books landing file.
func (l *Loader) GoogleBooksPath() string {
	return filepath.Join(l.dir, GoogleBooksFile)
}

// LoadGoodreads reads and validates the Goodreads JSON document.
func (l *Loader) LoadGoodreads() (*GoodreadsDocument, error) {
	path := l.GoodreadsPath()
	slog.Debug("Opening Goodreads landing file", "path", path)

	data, err := readInput(path)
	if err != nil {
		return nil, err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(goodreadsSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		// Malformed JSON surfaces here before any schema check.
		return nil, &SchemaError{File: GoodreadsFile, Errors: []FieldError{{Field: "(root)", Message: err.Error()}}}
	}
	if !result.Valid() {
		se := &SchemaError{File: GoodreadsFile}
		for _, desc := range result.Errors() {
			se.Errors = append(se.Errors, FieldError{Field: desc.Field(), Message: desc.Description()})
		}
		return nil, se
	}

	// field values are checked per book during decoding; only the document
	// shape above is fatal
	var raw struct {
		Metadata json.RawMessage `json:"metadata"`
		Books    []GoodreadsBook `json:"books"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse goodreads JSON: %w", err)
	}

	doc := GoodreadsDocument{Books: raw.Books}
	if len(raw.Metadata) > 0 && string(raw.Metadata) != "null" {
		if err := json.Unmarshal(raw.Metadata, &doc.Metadata); err != nil {
			slog.Warn("Ignoring unreadable Goodreads metadata", "path", path, "error", err)
			doc.Metadata = GoodreadsMetadata{}
		}
	}

	slog.Debug("Finished reading Goodreads file", "total_records", len(doc.Books))
	return &doc, nil
}

// LoadGoogleBooks reads the Google Books CSV. Columns are located by header
// name; title is the only column that must be present.
func (l *Loader) LoadGoogleBooks() ([]GoogleBooksRow, error) {
	path := l.GoogleBooksPath()
	slog.Debug("Opening Google Books landing file", "path", path)

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, fmt.Errorf("failed to open google books file: %w", err)
	}
	defer file.Close()

	rows, err := ReadGoogleBooks(file)
	if err != nil {
		return nil, err
	}

	slog.Debug("Finished reading Google Books file", "total_records", len(rows))
	return rows, nil
}

// ReadGoogleBooks parses Google Books CSV content from r.
func ReadGoogleBooks(r io.Reader) ([]GoogleBooksRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{File: GoogleBooksFile, Errors: []FieldError{{Field: "(header)", Message: "file is empty"}}}
		}
		return nil, fmt.Errorf("failed to read google books header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	if _, ok := index["title"]; !ok {
		return nil, &SchemaError{File: GoogleBooksFile, Errors: []FieldError{{Field: "title", Message: "required column is missing"}}}
	}

	var rows []GoogleBooksRow
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read google books CSV at line %d: %w", line, err)
		}

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		rows = append(rows, GoogleBooksRow{
			ID:            get("gb_id"),
			Title:         get("title"),
			Subtitle:      get("subtitle"),
			Authors:       get("authors"),
			Publisher:     get("publisher"),
			PubDate:       get("pub_date"),
			Language:      get("language"),
			Categories:    get("categories"),
			ISBN13:        get("isbn13"),
			ISBN10:        get("isbn10"),
			PriceAmount:   get("price_amount"),
			PriceCurrency: get("price_currency"),
		})
	}

	return rows, nil
}

func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
