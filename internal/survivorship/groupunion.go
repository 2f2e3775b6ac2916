package survivorship

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/uxentio/books-pipeline/internal/isbn"
	"github.com/uxentio/books-pipeline/internal/models"
	"github.com/uxentio/books-pipeline/internal/normalize"
)

// sourcePriority ranks sources when picking a group's base row.
var sourcePriority = map[models.Source]int{
	models.SourceGoogleBooks: 2,
	models.SourceGoodreads:   1,
}

// GroupUnion pools both batches, groups them on a dedup key and resolves
// each group around its highest-priority member.
type GroupUnion struct {
	opts Options
}

func (g *GroupUnion) Name() string { return PolicyGroupUnion }

func (g *GroupUnion) Integrate(a, b []models.SourceRecord) (*Outcome, error) {
	all := make([]*models.SourceRecord, 0, len(a)+len(b))
	for i := range a {
		all = append(all, &a[i])
	}
	for i := range b {
		all = append(all, &b[i])
	}

	groups := make(map[string][]*models.SourceRecord)
	for _, r := range all {
		key := DedupKey(r)
		groups[key] = append(groups[key], r)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := &Outcome{
		Resolutions:  make([]models.Resolution, 0, len(keys)),
		InputRecords: len(all),
	}
	for _, k := range keys {
		members := groups[k]
		if len(members) > 1 {
			out.MergedGroups++
		}
		res := models.Resolution{Book: g.ResolveGroup(members)}
		for _, m := range members {
			res.Members = append(res.Members, models.RecordRef{Source: m.Source, Index: m.Index})
		}
		out.Resolutions = append(out.Resolutions, res)
	}
	return out, nil
}

// DedupKey groups records on their 13-digit identifier, falling back to a
// hash of full title (sub-title included), normalized author and publisher.
func DedupKey(r *models.SourceRecord) string {
	if r.ISBN13 != "" {
		return "isbn13:" + r.ISBN13
	}
	title := r.Title
	if r.Subtitle != "" && !strings.Contains(title, ":") {
		title += ": " + r.Subtitle
	}
	parts := normalize.FullTitle(title) + "|" + normalize.Author(r.PrimaryAuthor()) + "|" + r.Publisher
	return "hash:" + shortHash(strings.ToLower(parts))
}

// ResolveGroup builds one canonical book from records sharing a dedup key.
func (g *GroupUnion) ResolveGroup(members []*models.SourceRecord) models.CanonicalBook {
	ordered := append([]*models.SourceRecord(nil), members...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return sourcePriority[ordered[i].Source] > sourcePriority[ordered[j].Source]
	})
	base := ordered[0]

	book := models.CanonicalBook{
		ISBN13:          base.ISBN13,
		ISBN10:          base.ISBN10,
		Publisher:       base.Publisher,
		PublicationDate: base.PublicationDate,
		Language:        base.Language,
		Price:           base.Price,
		Currency:        base.Currency,
		GoogleBooksID:   base.GoogleBooksID,
		PrimaryAuthor:   base.PrimaryAuthor(),
		AuthorSource:    base.Source,
		WinningSource:   base.Source,
	}
	if book.ISBN13 != "" || book.ISBN10 != "" {
		book.ISBNSource = base.Source
	}
	if book.Price.Valid {
		book.PriceSource = base.Source
	}

	if g.opts.DeriveISBN13 && book.ISBN13 == "" && book.ISBN10 != "" {
		if derived, ok := isbn.Convert10To13(book.ISBN10); ok {
			book.ISBN13 = derived
		}
	}

	longest := -1
	var authors, categories []string
	for _, m := range ordered {
		if n := utf8.RuneCountInString(m.Title); n > longest {
			longest = n
			book.Title, book.TitleSource = m.Title, m.Source
		}
		if len(m.Authors) > 0 {
			authors = append(authors, m.Authors...)
		} else if m.Author != "" {
			authors = append(authors, m.Author)
		}
		categories = append(categories, m.Categories...)

		switch m.Source {
		case models.SourceGoodreads:
			if !book.HasGoodreads {
				book.HasGoodreads = true
				book.GoodreadsURL = m.BookURL
				book.AverageRating = m.Rating
				book.RatingsCount = m.RatingsCount
				if m.Rating != nil {
					book.RatingSource = models.SourceGoodreads
				}
			}
		case models.SourceGoogleBooks:
			book.HasGoogleBooks = true
		}
	}
	book.NormalizedTitle = normalize.Title(book.Title)
	book.Authors = sortedUnion(authors)
	book.Categories = sortedUnion(categories)

	if y, ok := normalize.Year(book.PublicationDate); ok {
		book.PublicationYear = &y
	}

	book.BookID = BookID(book.ISBN13, book.ISBN10, book.Title, book.PrimaryAuthor, book.Publisher)
	return book
}

func sortedUnion(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
