package landing

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uxentio/books-pipeline/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadGoodreads(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, GoodreadsFile, `{
  "metadata": {"scraper": "books-pipeline", "search_term": "data science", "total_books_scraped": 2},
  "books": [
    {"title": "Clean Code", "author": "Robert C. Martin", "rating": 4.4, "ratings_count": 23000,
     "book_url": "https://www.goodreads.com/book/show/3735293", "isbn10": null, "isbn13": "9780132350884"},
    {"title": null, "author": null, "rating": null, "ratings_count": null, "book_url": null, "isbn10": null, "isbn13": null}
  ]
}`)

	doc, err := NewLoader(dir).LoadGoodreads()
	require.NoError(t, err)
	require.Len(t, doc.Books, 2)
	assert.Equal(t, "data science", doc.Metadata.SearchTerm)
	assert.Equal(t, "Clean Code", doc.Books[0].Title)
	require.NotNil(t, doc.Books[0].Rating)
	assert.Equal(t, 4.4, *doc.Books[0].Rating)
	assert.Equal(t, int64(23000), *doc.Books[0].RatingsCount)
	assert.Empty(t, doc.Books[1].Title)
	assert.Nil(t, doc.Books[1].Rating)
}

func TestLoadGoodreadsErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{name: "missing books", content: `{"metadata": {}}`, field: "books"},
		{name: "missing title", content: `{"books": [{"author": "X"}]}`, field: "title"},
		{name: "books not a list", content: `{"books": {"title": "X"}}`, field: "books"},
		{name: "malformed", content: `{"books": [`, field: "(root)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, GoodreadsFile, tt.content)

			_, err := NewLoader(dir).LoadGoodreads()
			var se *SchemaError
			require.True(t, errors.As(err, &se), "expected SchemaError, got %v", err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadGoodreadsDropsBadFieldValues(t *testing.T) {
	tests := []struct {
		name  string
		book  string
		field string
		check func(t *testing.T, b GoodreadsBook)
	}{
		{
			name:  "rating above scale",
			book:  `{"title": "X", "rating": 7}`,
			field: "rating",
			check: func(t *testing.T, b GoodreadsBook) { assert.Nil(t, b.Rating) },
		},
		{
			name:  "rating as text",
			book:  `{"title": "X", "rating": "4.4"}`,
			field: "rating",
			check: func(t *testing.T, b GoodreadsBook) { assert.Nil(t, b.Rating) },
		},
		{
			name:  "negative ratings count",
			book:  `{"title": "X", "ratings_count": -1}`,
			field: "ratings_count",
			check: func(t *testing.T, b GoodreadsBook) { assert.Nil(t, b.RatingsCount) },
		},
		{
			name:  "fractional ratings count",
			book:  `{"title": "X", "ratings_count": 12.5}`,
			field: "ratings_count",
			check: func(t *testing.T, b GoodreadsBook) { assert.Nil(t, b.RatingsCount) },
		},
		{
			name:  "numeric isbn13",
			book:  `{"title": "X", "isbn13": 9780132350884}`,
			field: "isbn13",
			check: func(t *testing.T, b GoodreadsBook) { assert.Empty(t, b.ISBN13) },
		},
		{
			name:  "author as list",
			book:  `{"title": "X", "author": ["A", "B"]}`,
			field: "author",
			check: func(t *testing.T, b GoodreadsBook) { assert.Empty(t, b.Author) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, GoodreadsFile, `{"metadata": {"scrape_date": "yesterday"}, "books": [`+tt.book+`]}`)

			doc, err := NewLoader(dir).LoadGoodreads()
			require.NoError(t, err)
			require.Len(t, doc.Books, 1)
			assert.Equal(t, "X", doc.Books[0].Title)
			tt.check(t, doc.Books[0])

			failures := ParseFailures{}
			records := GoodreadsRecords(doc.Books, time.Now(), failures)
			require.Len(t, records, 1)
			assert.Equal(t, ParseFailures{tt.field: 1}, failures)
		})
	}
}

func TestMissingInput(t *testing.T) {
	l := NewLoader(t.TempDir())

	_, err := l.LoadGoodreads()
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = l.LoadGoogleBooks()
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestReadGoogleBooks(t *testing.T) {
	content := "gb_id,title,authors,pub_date,price_amount,price_currency\n" +
		"abc123,Clean Code,\"Robert C. Martin, Dean Wampler\",2008-08-01,31.99,USD\n" +
		"def456,Emma,,,,\n"

	rows, err := ReadGoogleBooks(strings.NewReader(content))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "abc123", rows[0].ID)
	assert.Equal(t, "Robert C. Martin, Dean Wampler", rows[0].Authors)
	assert.Equal(t, "31.99", rows[0].PriceAmount)
	assert.Empty(t, rows[0].Publisher, "absent column reads as empty")
	assert.Empty(t, rows[1].PriceCurrency)
}

func TestReadGoogleBooksMissingTitleColumn(t *testing.T) {
	_, err := ReadGoogleBooks(strings.NewReader("gb_id,authors\nabc,X\n"))
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "title", se.Errors[0].Field)

	_, err = ReadGoogleBooks(strings.NewReader(""))
	require.True(t, errors.As(err, &se))
}

func TestWriteAndReloadLanding(t *testing.T) {
	dir := t.TempDir()
	rating := 4.1
	doc := &GoodreadsDocument{
		Metadata: GoodreadsMetadata{Scraper: "books-pipeline", SearchTerm: "go"},
		Books:    []GoodreadsBook{{Title: "The Go Programming Language", Rating: &rating}},
	}
	l := NewLoader(dir)
	require.NoError(t, WriteGoodreads(l.GoodreadsPath(), doc))
	require.NoError(t, WriteGoogleBooks(l.GoogleBooksPath(), []GoogleBooksRow{
		{ID: "x1", Title: "The Go Programming Language", Authors: "Alan Donovan, Brian Kernighan"},
	}))

	loaded, err := l.LoadGoodreads()
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Metadata.TotalBooksScraped)
	assert.Equal(t, "The Go Programming Language", loaded.Books[0].Title)

	rows, err := l.LoadGoogleBooks()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alan Donovan, Brian Kernighan", rows[0].Authors)
}

func TestGoodreadsRecords(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	failures := ParseFailures{}
	records := GoodreadsRecords([]GoodreadsBook{
		{Title: "Clean Code: A Handbook", Author: "Robert C. Martin", ISBN13: "978-0-13-235088-4", ISBN10: "0132350882"},
		{Title: "Broken", ISBN13: "9780132350885"},
	}, ts, failures)

	require.Len(t, records, 2)
	assert.Equal(t, models.SourceGoodreads, records[0].Source)
	assert.Equal(t, "clean code", records[0].NormalizedTitle)
	assert.Equal(t, "9780132350884", records[0].ISBN13)
	assert.Equal(t, "0132350882", records[0].ISBN10)
	assert.Equal(t, ts, records[0].IngestedAt)
	assert.Empty(t, records[1].ISBN13)
	assert.Equal(t, "9780132350885", records[1].RawISBN13)
	assert.Equal(t, 1, records[1].Index)
	assert.Equal(t, ParseFailures{"isbn13": 1}, failures)
}

func TestGoogleBooksRecords(t *testing.T) {
	failures := ParseFailures{}
	records := GoogleBooksRecords([]GoogleBooksRow{
		{ID: "a", Title: "Clean Code", Authors: "Robert C. Martin, Dean Wampler", PubDate: "2008",
			Language: "EN", Categories: "Computers, Software", PriceAmount: "31.99", PriceCurrency: "usd"},
		{ID: "b", Title: "Odd", PubDate: "sometime", PriceAmount: "cheap", PriceCurrency: "XYZ"},
	}, time.Now(), failures)

	require.Len(t, records, 2)
	r := records[0]
	assert.Equal(t, []string{"Robert C. Martin", "Dean Wampler"}, r.Authors)
	assert.Equal(t, "2008-01-01", r.PublicationDate)
	assert.Equal(t, "en", r.Language)
	assert.Equal(t, "USD", r.Currency)
	assert.Equal(t, []string{"Computers", "Software"}, r.Categories)
	require.True(t, r.Price.Valid)
	assert.Equal(t, "31.99", r.Price.Decimal.String())

	assert.Empty(t, records[1].PublicationDate)
	assert.False(t, records[1].Price.Valid)
	assert.Empty(t, records[1].Currency)
	assert.Equal(t, ParseFailures{"date": 1, "price": 1, "currency": 1}, failures)
}
