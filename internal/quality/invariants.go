package quality

import (
	"fmt"

	"github.com/uxentio/books-pipeline/internal/models"
)

// InvariantError is a blocking quality failure. No canonical artifact may be
// written once one is raised.
type InvariantError struct {
	Invariant string
	Measured  float64
	Required  float64
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("quality invariant %q violated: %s", e.Invariant, e.Detail)
}

// InvariantSummary carries the values the blocking assertions measured.
type InvariantSummary struct {
	TitleCompleteness float64 `json:"title_completeness"`
	DuplicateBookIDs  int     `json:"duplicate_book_ids"`
	OutOfRangeYears   int     `json:"out_of_range_years"`
}

const (
	minPlausibleYear = 1450
	maxPlausibleYear = 2100
)

// AssertInvariants enforces title completeness and book_id uniqueness.
// Implausible publication years only warn.
func AssertInvariants(books []models.CanonicalBook, minTitleCompleteness float64) (Check[InvariantSummary], error) {
	var c Check[InvariantSummary]
	if len(books) == 0 {
		c.Warnings = append(c.Warnings, "dim_book: no canonical books produced")
		return c, nil
	}

	titled := 0
	seen := make(map[string]bool, len(books))
	for _, b := range books {
		if _, ok := str(b.Title); ok {
			titled++
		}
		if seen[b.BookID] {
			c.Value.DuplicateBookIDs++
		}
		seen[b.BookID] = true
		if y := b.PublicationYear; y != nil && (*y < minPlausibleYear || *y > maxPlausibleYear) {
			c.Value.OutOfRangeYears++
		}
	}

	raw := float64(titled) / float64(len(books)) * 100
	c.Value.TitleCompleteness = Percent(titled, len(books))

	if c.Value.OutOfRangeYears > 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("dim_book: %d publication years outside %d-%d", c.Value.OutOfRangeYears, minPlausibleYear, maxPlausibleYear))
	}

	if raw < minTitleCompleteness {
		err := &InvariantError{
			Invariant: "title_completeness",
			Measured:  c.Value.TitleCompleteness,
			Required:  minTitleCompleteness,
			Detail:    fmt.Sprintf("title completeness %.1f%% below minimum %.0f%%", raw, minTitleCompleteness),
		}
		c.Errors = append(c.Errors, err.Error())
		return c, err
	}

	if c.Value.DuplicateBookIDs > 0 {
		err := &InvariantError{
			Invariant: "book_id_unique",
			Measured:  float64(c.Value.DuplicateBookIDs),
			Required:  0,
			Detail:    fmt.Sprintf("found %d duplicate book_id values in dim_book", c.Value.DuplicateBookIDs),
		}
		c.Errors = append(c.Errors, err.Error())
		return c, err
	}

	return c, nil
}
