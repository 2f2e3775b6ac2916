package landing

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/uxentio/books-pipeline/internal/normalize"
)

// File names inside the landing directory.
const (
	GoodreadsFile   = "goodreads_books.json"
	GoogleBooksFile = "googlebooks_books.csv"
)

// GoogleBooksColumns is the CSV header, in order.
var GoogleBooksColumns = []string{
	"gb_id", "title", "subtitle", "authors", "publisher", "pub_date",
	"language", "categories", "isbn13", "isbn10", "price_amount", "price_currency",
}

// GoodreadsBook is one scraped book as stored in the landing JSON.
type GoodreadsBook struct {
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	Rating       *float64 `json:"rating"`
	RatingsCount *int64   `json:"ratings_count"`
	BookURL      string   `json:"book_url"`
	ISBN10       string   `json:"isbn10"`
	ISBN13       string   `json:"isbn13"`

	// issues holds field values dropped while decoding.
	issues []*normalize.ParseError
}

// MaxRating is the top of the Goodreads rating scale.
const MaxRating = 5.0

// UnmarshalJSON decodes a book field by field. A value of the wrong type or
// out of range becomes null and is remembered for GoodreadsRecords to count;
// only malformed JSON is an error.
func (b *GoodreadsBook) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*b = GoodreadsBook{}
	b.Title = b.text(raw, "title")
	b.Author = b.text(raw, "author")
	b.BookURL = b.text(raw, "book_url")
	b.ISBN10 = b.text(raw, "isbn10")
	b.ISBN13 = b.text(raw, "isbn13")
	b.Rating = b.rating(raw["rating"])
	b.RatingsCount = b.ratingsCount(raw["ratings_count"])
	return nil
}

func (b *GoodreadsBook) reject(field string, value json.RawMessage, reason string) {
	b.issues = append(b.issues, &normalize.ParseError{Field: field, Input: string(value), Reason: reason})
}

func isNull(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || string(v) == "null"
}

func (b *GoodreadsBook) text(raw map[string]json.RawMessage, field string) string {
	v := raw[field]
	if isNull(v) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		b.reject(field, v, "expected a string")
		return ""
	}
	return s
}

func (b *GoodreadsBook) rating(v json.RawMessage) *float64 {
	if isNull(v) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		b.reject("rating", v, "expected a number")
		return nil
	}
	if f < 0 || f > MaxRating {
		b.reject("rating", v, "outside the 0-5 scale")
		return nil
	}
	return &f
}

func (b *GoodreadsBook) ratingsCount(v json.RawMessage) *int64 {
	if isNull(v) {
		return nil
	}
	var n int64
	if err := json.Unmarshal(v, &n); err != nil {
		b.reject("ratings_count", v, "expected a whole number")
		return nil
	}
	if n < 0 {
		b.reject("ratings_count", v, "negative")
		return nil
	}
	return &n
}

// GoodreadsMetadata documents how a scrape was performed.
type GoodreadsMetadata struct {
	Scraper           string            `json:"scraper"`
	SearchTerm        string            `json:"search_term"`
	SearchURLs        []string          `json:"search_urls"`
	UserAgent         string            `json:"user_agent"`
	ScrapeDate        time.Time         `json:"scrape_date"`
	SelectorsUsed     map[string]string `json:"selectors_used,omitempty"`
	TotalBooksScraped int               `json:"total_books_scraped"`
}

// GoodreadsDocument is the full landing JSON document.
type GoodreadsDocument struct {
	Metadata GoodreadsMetadata `json:"metadata"`
	Books    []GoodreadsBook   `json:"books"`
}

// GoogleBooksRow is one CSV row. Empty strings stand for missing values.
type GoogleBooksRow struct {
	ID            string
	Title         string
	Subtitle      string
	Authors       string
	Publisher     string
	PubDate       string
	Language      string
	Categories    string
	ISBN13        string
	ISBN10        string
	PriceAmount   string
	PriceCurrency string
}

// Values returns the row in GoogleBooksColumns order.
func (r GoogleBooksRow) Values() []string {
	return []string{
		r.ID, r.Title, r.Subtitle, r.Authors, r.Publisher, r.PubDate,
		r.Language, r.Categories, r.ISBN13, r.ISBN10, r.PriceAmount, r.PriceCurrency,
	}
}
