// Package normalize turns raw source strings into canonical field values.
//
// Every function here is total: malformed input yields an empty value and,
// for the functions that return an error, a *ParseError describing why.
// Callers decide whether to count or log the failure; nothing panics.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"github.com/uxentio/books-pipeline/internal/isbn"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ParseError records a value that could not be normalized.
type ParseError struct {
	Field  string
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot normalize %s %q: %s", e.Field, e.Input, e.Reason)
}

var (
	stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	yearOnly      = regexp.MustCompile(`^\d{4}$`)
	yearMonth     = regexp.MustCompile(`^\d{4}-\d{2}$`)
	yearPattern   = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	languageCodes = map[string]string{
		"en": "en", "es": "es", "fr": "fr", "de": "de", "it": "it",
		"pt": "pt", "zh": "zh", "ja": "ja", "ko": "ko", "ru": "ru",
	}

	// Currencies is the ISO-4217 allow-list accepted for prices.
	Currencies = map[string]bool{
		"EUR": true, "USD": true, "GBP": true, "JPY": true, "CNY": true, "INR": true,
		"CAD": true, "AUD": true, "CHF": true, "MXN": true, "BRL": true, "ARS": true,
	}

	dateLayouts = []string{
		time.RFC3339,
		"2006/01/02",
		"2006.01.02",
		"2006-1-2",
		"2006-1",
		"01/02/2006",
		"1/2/2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
		"January 2006",
		"Jan 2006",
		"20060102",
	}
)

// Title builds the matching key for a title: lower-cased, sub-title after the
// first colon dropped, accents folded, everything but a-z and spaces removed,
// whitespace collapsed.
func Title(raw string) string {
	if i := strings.Index(raw, ":"); i >= 0 {
		raw = raw[:i]
	}
	return titleKey(raw)
}

// FullTitle is Title with the sub-title kept, so that volumes of one series
// stay apart.
func FullTitle(raw string) string {
	return titleKey(raw)
}

func titleKey(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	s := foldAccents(strings.ToLower(raw))

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == ':':
			b.WriteRune(' ')
		}
	}
	return collapse(b.String())
}

// Author reduces an author string to the first listed author, lower-cased,
// with punctuation stripped.
func Author(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	s := strings.ToLower(raw)
	if i := strings.Index(s, ","); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, ";"); i >= 0 {
		s = s[:i]
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return collapse(b.String())
}

// Date converts a publication date to YYYY-MM-DD. Partial dates are padded
// to the first day of the year or month.
func Date(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &ParseError{Field: "date", Input: raw, Reason: "empty"}
	}

	switch {
	case isoDatePrefix.MatchString(s):
		return calendarDate(raw, s[:10])
	case yearOnly.MatchString(s):
		return calendarDate(raw, s+"-01-01")
	case yearMonth.MatchString(s):
		return calendarDate(raw, s+"-01")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}

	return "", &ParseError{Field: "date", Input: raw, Reason: "unrecognized date format"}
}

// calendarDate rejects shapes like 2008-13-45 that look ISO but name no real day.
func calendarDate(raw, candidate string) (string, error) {
	if _, err := time.Parse("2006-01-02", candidate); err != nil {
		return "", &ParseError{Field: "date", Input: raw, Reason: "not a calendar date"}
	}
	return candidate, nil
}

// Language maps a language tag to its two-letter code when it is one of the
// common languages; anything else passes through lower-cased.
func Language(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	prefix := s
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	if code, ok := languageCodes[prefix]; ok {
		return code
	}
	return s
}

// Currency upper-cases a currency code and checks it against the allow-list.
func Currency(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return "", &ParseError{Field: "currency", Input: raw, Reason: "empty"}
	}
	if !Currencies[s] {
		return "", &ParseError{Field: "currency", Input: raw, Reason: "not an accepted ISO-4217 code"}
	}
	return s, nil
}

// Year extracts the first four-digit 19xx or 20xx year from a date-like string.
func Year(dateLike string) (int, bool) {
	m := yearPattern.FindString(dateLike)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

// Price parses a decimal amount. Empty input is a null price, not an error.
func Price(raw string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, &ParseError{Field: "price", Input: raw, Reason: "not a decimal number"}
	}
	return decimal.NewNullDecimal(d), nil
}

// ISBN13 cleans an identifier and keeps it only when the checksum holds.
// Empty input is absent rather than invalid.
func ISBN13(raw string) (string, error) {
	cleaned := isbn.Clean(raw)
	if cleaned == "" {
		return "", nil
	}
	if !isbn.Valid13(cleaned) {
		return "", &ParseError{Field: "isbn13", Input: raw, Reason: "checksum or length mismatch"}
	}
	return cleaned, nil
}

// ISBN10 is the ten-character counterpart of ISBN13.
func ISBN10(raw string) (string, error) {
	cleaned := isbn.Clean(raw)
	if cleaned == "" {
		return "", nil
	}
	if !isbn.Valid10(cleaned) {
		return "", &ParseError{Field: "isbn10", Input: raw, Reason: "checksum or length mismatch"}
	}
	return cleaned, nil
}

// SplitList splits a comma-separated list, trimming entries and dropping empties.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func foldAccents(s string) string {
	result, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return result
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
