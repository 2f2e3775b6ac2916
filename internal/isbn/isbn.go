// Package isbn cleans, validates and converts ISBN-10 and ISBN-13 identifiers.
package isbn

import (
	"regexp"
	"strings"
)

var candidatePattern = regexp.MustCompile(`(?:97[89][-\s]?)?(?:\d[-\s]?){9}[\dXx]`)

// Clean keeps only digits and the X check character, upper-cased.
// Hyphens, spaces and any other decoration are dropped.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteRune('X')
		}
	}
	return b.String()
}

// Valid13 reports whether s is a 13-digit identifier with a correct check digit.
func Valid13(s string) bool {
	if len(s) != 13 {
		return false
	}
	for i := 0; i < 13; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return checkDigit13(s[:12]) == s[12]
}

// Valid10 reports whether s is a 10-character identifier whose weighted sum
// (weights 10..2, last character X=10) is divisible by 11.
func Valid10(s string) bool {
	if len(s) != 10 {
		return false
	}
	sum := 0
	for i := 0; i < 9; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		sum += int(s[i]-'0') * (10 - i)
	}
	switch last := s[9]; {
	case last == 'X':
		sum += 10
	case last >= '0' && last <= '9':
		sum += int(last - '0')
	default:
		return false
	}
	return sum%11 == 0
}

// Convert10To13 prefixes the first nine digits with 978 and recomputes the
// check digit. It fails unless the input is exactly ten characters after cleaning.
func Convert10To13(s string) (string, bool) {
	cleaned := Clean(s)
	if len(cleaned) != 10 {
		return "", false
	}
	body := "978" + cleaned[:9]
	for i := 3; i < 12; i++ {
		if body[i] < '0' || body[i] > '9' {
			return "", false
		}
	}
	return body + string(checkDigit13(body)), true
}

// Extract scans free text for the first valid 978/979 identifier, falling back
// to the first valid ISBN-10. When only an ISBN-10 is found, its converted
// 13-digit form is returned alongside it.
func Extract(text string) (isbn13, isbn10 string) {
	if text == "" {
		return "", ""
	}
	matches := candidatePattern.FindAllString(text, -1)

	for _, m := range matches {
		cleaned := Clean(m)
		if len(cleaned) == 13 && Valid13(cleaned) && (strings.HasPrefix(cleaned, "978") || strings.HasPrefix(cleaned, "979")) {
			return cleaned, ""
		}
	}

	for _, m := range matches {
		cleaned := Clean(m)
		if len(cleaned) == 10 && Valid10(cleaned) {
			converted, _ := Convert10To13(cleaned)
			return converted, cleaned
		}
	}

	return "", ""
}

// checkDigit13 computes the check digit for a 12-digit body using weights 1,3.
func checkDigit13(body string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(body[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10)
}
