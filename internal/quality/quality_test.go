package quality

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uxentio/books-pipeline/internal/models"
)

// booksWithTitles returns n books, the first `titled` of which carry a title.
func booksWithTitles(n, titled int) []models.CanonicalBook {
	books := make([]models.CanonicalBook, n)
	for i := range books {
		books[i].BookID = fmt.Sprintf("HASH:%012d", i)
		if i < titled {
			books[i].Title = fmt.Sprintf("Book %d", i)
		}
	}
	return books
}

func TestCompletenessThreshold(t *testing.T) {
	tests := []struct {
		name     string
		titled   int
		wantWarn bool
	}{
		{name: "85 percent warns", titled: 85, wantWarn: true},
		{name: "89 percent warns", titled: 89, wantWarn: true},
		{name: "90 percent passes", titled: 90, wantWarn: false},
		{name: "full passes", titled: 100, wantWarn: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Completeness(BookTable(booksWithTitles(100, tt.titled)), []string{"titulo"}, DefaultCompletenessThreshold)
			assert.Equal(t, float64(tt.titled), c.Value["titulo"])
			assert.Empty(t, c.Errors)
			if tt.wantWarn {
				require.Len(t, c.Warnings, 1)
				assert.Contains(t, c.Warnings[0], "titulo")
			} else {
				assert.Empty(t, c.Warnings)
			}
		})
	}
}

func TestCompletenessMissingField(t *testing.T) {
	c := Completeness(BookTable(booksWithTitles(3, 3)), []string{"titulo", "isbn_13"}, DefaultCompletenessThreshold)
	require.Len(t, c.Errors, 1)
	assert.Contains(t, c.Errors[0], "isbn_13")
	assert.Equal(t, 0.0, c.Value["isbn_13"])
}

func TestFormatChecks(t *testing.T) {
	books := []models.CanonicalBook{
		{BookID: "a", PublicationDate: "2008-08-01", Language: "en", Currency: "USD"},
		{BookID: "b", PublicationDate: "08/01/2008", Language: "en-US", Currency: "usd"},
		{BookID: "c", PublicationDate: "2008", Language: "English", Currency: "XYZ"},
		{BookID: "d"},
	}
	table := BookTable(books)

	dates := Format(table, "fecha_publicacion", "ISO-8601", ISODate)
	assert.Equal(t, 66.67, dates.Value)
	assert.Len(t, dates.Warnings, 1)

	langs := Format(table, "idioma", "BCP-47", BCP47)
	assert.Equal(t, 66.67, langs.Value)

	currencies := Format(table, "moneda", "ISO-4217", ISO4217)
	assert.Equal(t, 66.67, currencies.Value)

	empty := Format(BookTable(nil), "moneda", "ISO-4217", ISO4217)
	assert.Equal(t, 0.0, empty.Value)
	assert.Empty(t, empty.Warnings)
}

func TestDuplicates(t *testing.T) {
	books := []models.CanonicalBook{{BookID: "ISBN13:1"}, {BookID: "ISBN13:1"}, {BookID: "ISBN13:2"}}
	c := Duplicates(BookTable(books), "book_id")
	assert.Equal(t, 2, c.Value)
	assert.Len(t, c.Warnings, 1)

	c = Duplicates(BookTable(books[1:]), "book_id")
	assert.Equal(t, 0, c.Value)
	assert.Empty(t, c.Warnings)
}

func TestIdentifierValidity(t *testing.T) {
	records := []models.SourceRecord{
		{RawISBN13: "978-0-13-468599-1", RawISBN10: "0134685997"},
		{RawISBN13: "9780134685992", RawISBN10: "0134685998"},
		{},
	}
	c := IdentifierValidity(SourceTable(models.SourceGoogleBooks, records))
	assert.Equal(t, 50.0, c.Value["isbn13_valid_pct"])
	assert.Equal(t, 50.0, c.Value["isbn10_valid_pct"])
}

func TestAssertInvariantsDuplicateID(t *testing.T) {
	books := []models.CanonicalBook{
		{BookID: "ISBN13:9780134685991", Title: "Clean Code"},
		{BookID: "ISBN13:9780134685991", Title: "Clean Code: A Handbook"},
	}
	c, err := AssertInvariants(books, DefaultCompletenessThreshold)
	require.Error(t, err)

	var inv *InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "book_id_unique", inv.Invariant)
	assert.Equal(t, 1, c.Value.DuplicateBookIDs)
	assert.Len(t, c.Errors, 1)
}

func TestAssertInvariantsTitleCompleteness(t *testing.T) {
	_, err := AssertInvariants(booksWithTitles(10, 8), DefaultCompletenessThreshold)
	var inv *InvariantError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "title_completeness", inv.Invariant)
	assert.Equal(t, 80.0, inv.Measured)

	c, err := AssertInvariants(booksWithTitles(10, 9), DefaultCompletenessThreshold)
	require.NoError(t, err)
	assert.Equal(t, 90.0, c.Value.TitleCompleteness)
}

func TestAssertInvariantsYearWarning(t *testing.T) {
	year := 3021
	books := booksWithTitles(2, 2)
	books[0].PublicationYear = &year

	c, err := AssertInvariants(books, DefaultCompletenessThreshold)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Value.OutOfRangeYears)
	assert.Len(t, c.Warnings, 1)
}

func TestReportAbsorbAndFinish(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := NewReport("run-1", start, PipelineInfo{Policy: "pairwise"})
	assert.Equal(t, StatusFailed, r.Summary.Status)

	v := Absorb(r, Check[int]{Value: 3, Warnings: []string{"w"}, Errors: []string{"e"}})
	assert.Equal(t, 3, v)
	assert.Equal(t, []string{"w"}, r.Warnings)
	assert.Equal(t, []string{"e"}, r.Errors)

	r.Finish(start.Add(1500*time.Millisecond), nil)
	assert.Equal(t, StatusSuccess, r.Summary.Status)
	assert.Equal(t, 1.5, r.Summary.ExecutionTimeSeconds)

	r.Finish(start.Add(2*time.Second), errors.New("boom"))
	assert.Equal(t, StatusFailed, r.Summary.Status)
	assert.Equal(t, "boom", r.Summary.Error)
}

func TestReportSaveAndLoad(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := NewReport("run-2", start, PipelineInfo{Policy: "group-union"})
	r.DataQuality, r.QualityChecks = Summarize([]models.CanonicalBook{
		{BookID: "a", Title: "Dune", PrimaryAuthor: "Frank Herbert", ISBN13: "9780441172719",
			Price: decimal.NewNullDecimal(decimal.NewFromInt(10))},
		{BookID: "b", Title: "Emma"},
	})
	r.Finish(start.Add(time.Second), nil)

	path := filepath.Join(t.TempDir(), "docs", "quality_metrics.json")
	require.NoError(t, r.SaveToJSON(path))

	loaded, err := LoadReport(path)
	require.NoError(t, err)
	assert.Equal(t, "run-2", loaded.RunID)
	assert.Equal(t, StatusSuccess, loaded.Summary.Status)
	assert.Equal(t, 50.0, loaded.DataQuality.PercentValidISBNs)
	assert.Equal(t, 1, loaded.QualityChecks.BooksWithCompleteMetadata)

	var sb strings.Builder
	loaded.PrintSummary(&sb)
	assert.Contains(t, sb.String(), "run-2")
	assert.Contains(t, sb.String(), "success")
}
