package survivorship

import (
	"unicode/utf8"

	"github.com/uxentio/books-pipeline/internal/isbn"
	"github.com/uxentio/books-pipeline/internal/matching"
	"github.com/uxentio/books-pipeline/internal/models"
	"github.com/uxentio/books-pipeline/internal/normalize"
)

// Pairwise runs the matcher and resolves each pair field by field.
type Pairwise struct {
	opts Options
}

func (p *Pairwise) Name() string { return PolicyPairwise }

func (p *Pairwise) Integrate(a, b []models.SourceRecord) (*Outcome, error) {
	pairs := matching.Match(a, b, p.opts.Matching)

	out := &Outcome{
		Pairs:        pairs,
		Resolutions:  make([]models.Resolution, 0, len(pairs)),
		InputRecords: len(a) + len(b),
	}
	for _, pair := range pairs {
		res := models.Resolution{Book: p.ResolvePair(pair)}
		if pair.A != nil {
			res.Members = append(res.Members, models.RecordRef{Source: pair.A.Source, Index: pair.A.Index})
		}
		if pair.B != nil {
			res.Members = append(res.Members, models.RecordRef{Source: pair.B.Source, Index: pair.B.Index})
		}
		out.Resolutions = append(out.Resolutions, res)
	}
	return out, nil
}

// ResolvePair applies the field-precedence table to one pair:
//
//	isbn13, isbn10          googlebooks, else goodreads (independently)
//	title                   the longer one, ties to goodreads
//	authors                 googlebooks list, else goodreads author
//	rating, ratings count   goodreads
//	publisher .. currency   googlebooks
func (p *Pairwise) ResolvePair(pair models.MatchPair) models.CanonicalBook {
	a, b := pair.A, pair.B
	var book models.CanonicalBook

	switch {
	case b != nil && b.ISBN13 != "":
		book.ISBN13, book.ISBNSource = b.ISBN13, models.SourceGoogleBooks
	case a != nil && a.ISBN13 != "":
		book.ISBN13, book.ISBNSource = a.ISBN13, models.SourceGoodreads
	}

	var isbn10Source models.Source
	switch {
	case b != nil && b.ISBN10 != "":
		book.ISBN10, isbn10Source = b.ISBN10, models.SourceGoogleBooks
	case a != nil && a.ISBN10 != "":
		book.ISBN10, isbn10Source = a.ISBN10, models.SourceGoodreads
	}

	if p.opts.DeriveISBN13 && book.ISBN13 == "" && book.ISBN10 != "" {
		if derived, ok := isbn.Convert10To13(book.ISBN10); ok {
			book.ISBN13, book.ISBNSource = derived, isbn10Source
		}
	}
	if book.ISBNSource == "" && book.ISBN10 != "" {
		book.ISBNSource = isbn10Source
	}

	switch {
	case a == nil:
		book.Title, book.TitleSource = b.Title, models.SourceGoogleBooks
	case b != nil && utf8.RuneCountInString(b.Title) > utf8.RuneCountInString(a.Title):
		book.Title, book.TitleSource = b.Title, models.SourceGoogleBooks
	default:
		book.Title, book.TitleSource = a.Title, models.SourceGoodreads
	}
	book.NormalizedTitle = normalize.Title(book.Title)

	switch {
	case b != nil && len(b.Authors) > 0:
		book.Authors = append([]string(nil), b.Authors...)
		book.PrimaryAuthor, book.AuthorSource = b.Authors[0], models.SourceGoogleBooks
	case a != nil:
		book.PrimaryAuthor, book.AuthorSource = a.Author, models.SourceGoodreads
		if a.Author != "" {
			book.Authors = []string{a.Author}
		}
	}

	if a != nil {
		book.HasGoodreads = true
		book.AverageRating = a.Rating
		book.RatingsCount = a.RatingsCount
		book.GoodreadsURL = a.BookURL
		if a.Rating != nil {
			book.RatingSource = models.SourceGoodreads
		}
	}

	if b != nil {
		book.HasGoogleBooks = true
		book.Publisher = b.Publisher
		book.PublicationDate = b.PublicationDate
		if y, ok := normalize.Year(b.PublicationDate); ok {
			book.PublicationYear = &y
		}
		book.Language = b.Language
		book.Categories = append([]string(nil), b.Categories...)
		book.Price = b.Price
		book.Currency = b.Currency
		book.GoogleBooksID = b.GoogleBooksID
		if b.Price.Valid {
			book.PriceSource = models.SourceGoogleBooks
		}
	}

	book.BookID = BookID(book.ISBN13, book.ISBN10, book.Title, book.PrimaryAuthor, book.Publisher)
	book.WinningSource = winningSource(a, b)

	return book
}

// winningSource counts the decisive fields each side brings itself; ties
// go to googlebooks. A pair with only one side is won by that side.
func winningSource(a, b *models.SourceRecord) models.Source {
	switch {
	case a == nil:
		return models.SourceGoogleBooks
	case b == nil:
		return models.SourceGoodreads
	}

	var scoreA, scoreB int
	if a.Rating != nil {
		scoreA++
	}
	if a.Author != "" {
		scoreA++
	}
	if b.ISBN13 != "" {
		scoreB++
	}
	if b.Publisher != "" {
		scoreB++
	}
	if b.Price.Valid {
		scoreB++
	}

	if scoreA > scoreB {
		return models.SourceGoodreads
	}
	return models.SourceGoogleBooks
}
