package landing

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/uxentio/books-pipeline/internal/models"
	"github.com/uxentio/books-pipeline/internal/normalize"
)

// ParseFailures counts absorbed normalization errors by field.
type ParseFailures map[string]int

// absorb counts err against its field. Nil errors are ignored.
func (p ParseFailures) absorb(err error) {
	if err == nil {
		return
	}
	var pe *normalize.ParseError
	if errors.As(err, &pe) {
		p[pe.Field]++
		slog.Debug("Normalization failure", "field", pe.Field, "input", pe.Input, "reason", pe.Reason)
		return
	}
	p["unknown"]++
}

// Merge adds the counts of other into p.
func (p ParseFailures) Merge(other ParseFailures) {
	for k, v := range other {
		p[k] += v
	}
}

// GoodreadsRecords converts scraped books into source records. Ratings are
// kept as scraped; identifiers are cleaned and checksum-validated. Values
// dropped while decoding the landing file are counted here.
func GoodreadsRecords(books []GoodreadsBook, ingestedAt time.Time, failures ParseFailures) []models.SourceRecord {
	records := make([]models.SourceRecord, 0, len(books))
	for i, b := range books {
		r := models.SourceRecord{
			Source:          models.SourceGoodreads,
			Index:           i,
			File:            GoodreadsFile,
			Title:           strings.TrimSpace(b.Title),
			NormalizedTitle: normalize.Title(b.Title),
			Author:          strings.TrimSpace(b.Author),
			RawISBN10:       b.ISBN10,
			RawISBN13:       b.ISBN13,
			Rating:          b.Rating,
			RatingsCount:    b.RatingsCount,
			BookURL:         strings.TrimSpace(b.BookURL),
			IngestedAt:      ingestedAt,
		}

		for _, issue := range b.issues {
			failures.absorb(issue)
		}

		var err error
		r.ISBN13, err = normalize.ISBN13(b.ISBN13)
		failures.absorb(err)
		r.ISBN10, err = normalize.ISBN10(b.ISBN10)
		failures.absorb(err)

		records = append(records, r)
	}
	return records
}

// GoogleBooksRecords converts API rows into source records, normalizing
// dates, languages, currencies, prices and identifiers.
func GoogleBooksRecords(rows []GoogleBooksRow, ingestedAt time.Time, failures ParseFailures) []models.SourceRecord {
	records := make([]models.SourceRecord, 0, len(rows))
	for i, row := range rows {
		r := models.SourceRecord{
			Source:          models.SourceGoogleBooks,
			Index:           i,
			File:            GoogleBooksFile,
			Title:           row.Title,
			Subtitle:        row.Subtitle,
			NormalizedTitle: normalize.Title(row.Title),
			Authors:         normalize.SplitList(row.Authors),
			RawISBN10:       row.ISBN10,
			RawISBN13:       row.ISBN13,
			GoogleBooksID:   row.ID,
			Publisher:       row.Publisher,
			RawPubDate:      row.PubDate,
			RawLanguage:     row.Language,
			Language:        normalize.Language(row.Language),
			Categories:      normalize.SplitList(row.Categories),
			RawCurrency:     row.PriceCurrency,
			IngestedAt:      ingestedAt,
		}

		var err error
		r.ISBN13, err = normalize.ISBN13(row.ISBN13)
		failures.absorb(err)
		r.ISBN10, err = normalize.ISBN10(row.ISBN10)
		failures.absorb(err)
		r.Price, err = normalize.Price(row.PriceAmount)
		failures.absorb(err)

		if row.PubDate != "" {
			r.PublicationDate, err = normalize.Date(row.PubDate)
			failures.absorb(err)
		}
		if row.PriceCurrency != "" {
			r.Currency, err = normalize.Currency(row.PriceCurrency)
			failures.absorb(err)
		}

		records = append(records, r)
	}
	return records
}
