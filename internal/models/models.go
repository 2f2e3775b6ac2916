package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies which upstream a record came from.
type Source string

const (
	// SourceGoodreads is the scraped catalog (source A).
	SourceGoodreads Source = "goodreads"
	// SourceGoogleBooks is the bibliographic API (source B).
	SourceGoogleBooks Source = "googlebooks"
)

// MatchBasis explains how a pair was formed.
type MatchBasis string

const (
	BasisExactTitleKey MatchBasis = "exact-title-key"
	BasisUnmatched     MatchBasis = "unmatched"
)

// Confidence of a pairing.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceNone Confidence = "none"
)

// SourceRecord is one book as seen by a single source after normalization.
// Identifiers are cleaned and checksum-validated; the raw values are kept for lineage.
type SourceRecord struct {
	Source Source
	Index  int
	File   string

	Title           string
	Subtitle        string
	NormalizedTitle string
	Author          string   // goodreads: single author string
	Authors         []string // googlebooks: comma-split author list

	ISBN10    string
	ISBN13    string
	RawISBN10 string
	RawISBN13 string

	Rating       *float64
	RatingsCount *int64
	BookURL      string

	GoogleBooksID   string
	Publisher       string
	RawPubDate      string
	PublicationDate string // YYYY-MM-DD or empty
	RawLanguage     string
	Language        string
	Categories      []string
	Price           decimal.NullDecimal
	RawCurrency     string
	Currency        string

	IngestedAt time.Time
}

// PrimaryAuthor returns the first author this record lists, whichever shape it carries.
func (r *SourceRecord) PrimaryAuthor() string {
	if len(r.Authors) > 0 {
		return r.Authors[0]
	}
	return r.Author
}

// MatchPair links at most one record from each source.
type MatchPair struct {
	A          *SourceRecord
	B          *SourceRecord
	Basis      MatchBasis
	Confidence Confidence
}

// RecordRef points at a source record by batch and position.
type RecordRef struct {
	Source Source
	Index  int
}

// CanonicalBook is the resolved, single version of a book.
type CanonicalBook struct {
	BookID          string
	Title           string
	NormalizedTitle string
	PrimaryAuthor   string
	Authors         []string
	Publisher       string
	PublicationYear *int
	PublicationDate string
	Language        string
	Categories      []string
	AverageRating   *float64
	RatingsCount    *int64
	Price           decimal.NullDecimal
	Currency        string
	ISBN10          string
	ISBN13          string
	GoodreadsURL    string
	GoogleBooksID   string

	WinningSource Source
	TitleSource   Source
	ISBNSource    Source
	AuthorSource  Source
	RatingSource  Source
	PriceSource   Source

	HasGoodreads   bool
	HasGoogleBooks bool

	// UpdatedAt is stamped by the run that emits the book, never during resolution.
	UpdatedAt time.Time
}

// Resolution is a canonical book plus the source records it was built from.
type Resolution struct {
	Book    CanonicalBook
	Members []RecordRef
}

// SourceDetail is the lineage row for one input record.
type SourceDetail struct {
	SourceID      string
	SourceName    Source
	SourceFile    string
	SourceIndex   int
	BookID        string
	Title         string
	Author        string
	ISBN10        string
	ISBN13        string
	Rating        *float64
	RatingsCount  *int64
	BookURL       string
	Publisher     string
	PubDate       string
	Language      string
	Price         decimal.NullDecimal
	Currency      string
	GoogleBooksID string
	IngestedAt    time.Time
}
