package quality

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/uxentio/books-pipeline/internal/isbn"
	"github.com/uxentio/books-pipeline/internal/normalize"
)

// DefaultCompletenessThreshold is the percentage below which a field warns.
const DefaultCompletenessThreshold = 90.0

// Check is the outcome of one quality check. Checks never share state; the
// caller folds Warnings and Errors into a Report with Absorb.
type Check[T any] struct {
	Value    T
	Warnings []string
	Errors   []string
}

// Validator decides whether a present value is well-formed.
type Validator func(string) bool

var (
	bcp47Pattern   = regexp.MustCompile(`^[a-z]{2,3}(-[A-Z]{2})?$`)
	isoDateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05", time.RFC3339, "2006-01", "2006"}
)

// ISODate accepts ISO-8601 calendar dates with optional time.
func ISODate(s string) bool {
	for _, layout := range isoDateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// BCP47 accepts a primary language subtag with an optional region.
func BCP47(s string) bool { return bcp47Pattern.MatchString(s) }

// ISO4217 accepts codes from the currency allow-list.
func ISO4217(s string) bool { return normalize.Currencies[strings.ToUpper(s)] }

// Completeness reports the percentage of non-empty values per required field.
// A field below threshold warns; a field missing from the table is an error.
func Completeness(t *Table, required []string, threshold float64) Check[map[string]float64] {
	c := Check[map[string]float64]{Value: make(map[string]float64, len(required))}
	for _, field := range required {
		col, ok := t.Column(field)
		if !ok {
			c.Errors = append(c.Errors, fmt.Sprintf("%s: required field missing: %s", t.Name, field))
			c.Value[field] = 0
			continue
		}
		present := 0
		for i := 0; i < t.Rows; i++ {
			if _, ok := col(i); ok {
				present++
			}
		}
		c.Value[field] = Percent(present, t.Rows)
		if t.Rows == 0 {
			continue
		}
		if raw := float64(present) / float64(t.Rows) * 100; raw < threshold {
			c.Warnings = append(c.Warnings, fmt.Sprintf("%s: field %s only %.1f%% complete", t.Name, field, raw))
		}
	}
	return c
}

// Format reports the percentage of present values that pass the validator.
// A field with no values scores zero and does not warn.
func Format(t *Table, field, label string, valid Validator) Check[float64] {
	var c Check[float64]
	col, ok := t.Column(field)
	if !ok {
		return c
	}
	total, good := 0, 0
	for i := 0; i < t.Rows; i++ {
		v, ok := col(i)
		if !ok {
			continue
		}
		total++
		if valid(v) {
			good++
		}
	}
	if total == 0 {
		return c
	}
	c.Value = Percent(good, total)
	if c.Value < 100 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s: %.1f%% of %s values valid %s", t.Name, c.Value, field, label))
	}
	return c
}

// Duplicates counts rows whose key occurs more than once (every occurrence counts).
func Duplicates(t *Table, keyFields ...string) Check[int] {
	var c Check[int]
	cols := make([]Column, 0, len(keyFields))
	for _, f := range keyFields {
		col, ok := t.Column(f)
		if !ok {
			return c
		}
		cols = append(cols, col)
	}

	counts := make(map[string]int, t.Rows)
	keys := make([]string, t.Rows)
	for i := 0; i < t.Rows; i++ {
		parts := make([]string, len(cols))
		for j, col := range cols {
			parts[j], _ = col(i)
		}
		keys[i] = strings.Join(parts, "\x1f")
		counts[keys[i]]++
	}
	for _, k := range keys {
		if counts[k] > 1 {
			c.Value++
		}
	}
	if c.Value > 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s: found %d duplicate records on %s", t.Name, c.Value, strings.Join(keyFields, ",")))
	}
	return c
}

// IdentifierValidity reports the share of present isbn13 and isbn10 values
// that pass their checksum.
func IdentifierValidity(t *Table) Check[map[string]float64] {
	c := Check[map[string]float64]{Value: make(map[string]float64, 2)}
	if _, ok := t.Column("isbn13"); ok {
		c.Value["isbn13_valid_pct"] = validShare(t, "isbn13", func(s string) bool { return isbn.Valid13(isbn.Clean(s)) })
	}
	if _, ok := t.Column("isbn10"); ok {
		c.Value["isbn10_valid_pct"] = validShare(t, "isbn10", func(s string) bool { return isbn.Valid10(isbn.Clean(s)) })
	}
	return c
}

func validShare(t *Table, field string, valid Validator) float64 {
	col, _ := t.Column(field)
	total, good := 0, 0
	for i := 0; i < t.Rows; i++ {
		v, ok := col(i)
		if !ok {
			continue
		}
		total++
		if valid(v) {
			good++
		}
	}
	return Percent(good, total)
}

// Percent returns n/total as a percentage rounded to two decimals; zero when total is zero.
func Percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*10000) / 100
}
