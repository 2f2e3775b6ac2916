package standard

import (
	"fmt"
	"strings"

	"github.com/uxentio/books-pipeline/internal/models"
)

// SourceDetails builds one lineage row per input record, A batch first. The
// book_id comes from the first resolution listing the record as a member;
// records no resolution claims keep an empty book_id.
func SourceDetails(a, b []models.SourceRecord, resolutions []models.Resolution) []models.SourceDetail {
	owner := make(map[models.RecordRef]string)
	for _, res := range resolutions {
		for _, ref := range res.Members {
			if _, taken := owner[ref]; !taken {
				owner[ref] = res.Book.BookID
			}
		}
	}

	details := make([]models.SourceDetail, 0, len(a)+len(b))
	for _, batch := range [][]models.SourceRecord{a, b} {
		for _, r := range batch {
			details = append(details, detailFor(r, owner[models.RecordRef{Source: r.Source, Index: r.Index}]))
		}
	}
	return details
}

func detailFor(r models.SourceRecord, bookID string) models.SourceDetail {
	d := models.SourceDetail{
		SourceID:    sourceID(r.Source, r.Index),
		SourceName:  r.Source,
		SourceFile:  r.File,
		SourceIndex: r.Index,
		BookID:      bookID,
		Title:       r.Title,
		ISBN10:      r.RawISBN10,
		ISBN13:      r.RawISBN13,
		IngestedAt:  r.IngestedAt,
	}

	switch r.Source {
	case models.SourceGoodreads:
		d.Author = r.Author
		d.Rating = r.Rating
		d.RatingsCount = r.RatingsCount
		d.BookURL = r.BookURL
	case models.SourceGoogleBooks:
		d.Author = strings.Join(r.Authors, ", ")
		d.Publisher = r.Publisher
		d.PubDate = r.RawPubDate
		d.Language = r.RawLanguage
		d.Price = r.Price
		d.Currency = r.RawCurrency
		d.GoogleBooksID = r.GoogleBooksID
	}
	return d
}

func sourceID(src models.Source, index int) string {
	prefix := "GR"
	if src == models.SourceGoogleBooks {
		prefix = "GB"
	}
	return fmt.Sprintf("%s_%d", prefix, index)
}
