// Package survivorship resolves matched source records into canonical books.
//
// Two policies share one interface: Pairwise resolves each matcher pair with
// a fixed field-precedence table, GroupUnion groups every record on a dedup
// key and unions multi-valued fields. Neither reads the clock; timestamps are
// applied by the caller that emits the books.
package survivorship

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/uxentio/books-pipeline/internal/matching"
	"github.com/uxentio/books-pipeline/internal/models"
)

const (
	PolicyPairwise   = "pairwise"
	PolicyGroupUnion = "group-union"
)

// Policy integrates the two source batches into canonical resolutions.
type Policy interface {
	Name() string
	Integrate(a, b []models.SourceRecord) (*Outcome, error)
}

// Outcome is what a policy hands back to the pipeline.
type Outcome struct {
	Resolutions []models.Resolution
	// Pairs is set by policies that run the matcher.
	Pairs []models.MatchPair
	// Groups counts dedup groups with more than one member (group-union only).
	MergedGroups int
	// InputRecords is the number of records considered before resolution.
	InputRecords int
}

// Options tune both policies.
type Options struct {
	Matching matching.Options
	// DeriveISBN13 fills a missing 13-digit identifier from a surviving
	// ISBN-10 before the canonical ID is assigned.
	DeriveISBN13 bool
}

// New returns the policy registered under name.
func New(name string, opts Options) (Policy, error) {
	switch name {
	case PolicyPairwise, "":
		return &Pairwise{opts: opts}, nil
	case PolicyGroupUnion:
		return &GroupUnion{opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown survivorship policy: %s (supported: %s, %s)", name, PolicyPairwise, PolicyGroupUnion)
	}
}

// BookID assigns the canonical identifier: ISBN13, else ISBN10, else a
// 12-hex-character MD5 prefix of title|author|publisher.
func BookID(isbn13, isbn10, title, author, publisher string) string {
	switch {
	case isbn13 != "":
		return "ISBN13:" + isbn13
	case isbn10 != "":
		return "ISBN10:" + isbn10
	default:
		return "HASH:" + shortHash(title+"|"+author+"|"+publisher)
	}
}

func shortHash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
