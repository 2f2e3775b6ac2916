// Package matching pairs goodreads records with googlebooks records on an
// exact normalized-title key.
package matching

import (
	"math"

	"github.com/uxentio/books-pipeline/internal/models"
)

// Options controls matcher behaviour.
type Options struct {
	// ReuseB keeps a googlebooks record in the candidate pool after it has been
	// paired, so several goodreads records may share it. By default a record
	// pairs at most once.
	ReuseB bool
}

// Stats summarizes a matching run.
type Stats struct {
	TotalA     int     `json:"total_goodreads" yaml:"total_goodreads"`
	TotalB     int     `json:"total_googlebooks" yaml:"total_googlebooks"`
	Matched    int     `json:"matched" yaml:"matched"`
	Unmatched  int     `json:"unmatched" yaml:"unmatched"`
	UnmatchedB int     `json:"unmatched_googlebooks" yaml:"unmatched_googlebooks"`
	ReusedB    int     `json:"reused_googlebooks" yaml:"reused_googlebooks"`
	MatchRate  float64 `json:"match_rate" yaml:"match_rate"`
}

// Match walks goodreads records in order and pairs each with the first
// googlebooks record carrying the same non-empty title key. Goodreads records
// without a partner become A-only pairs; googlebooks records never selected
// are appended as B-only pairs in their original order.
func Match(a, b []models.SourceRecord, opts Options) []models.MatchPair {
	pairs := make([]models.MatchPair, 0, len(a)+len(b))

	index := make(map[string][]int, len(b))
	for i := range b {
		key := b[i].NormalizedTitle
		if key == "" {
			continue
		}
		index[key] = append(index[key], i)
	}

	used := make([]bool, len(b))
	for i := range a {
		rec := &a[i]
		j := pick(index, rec.NormalizedTitle, used, !opts.ReuseB)
		if j < 0 {
			pairs = append(pairs, models.MatchPair{
				A:          rec,
				Basis:      models.BasisUnmatched,
				Confidence: models.ConfidenceNone,
			})
			continue
		}
		used[j] = true
		pairs = append(pairs, models.MatchPair{
			A:          rec,
			B:          &b[j],
			Basis:      models.BasisExactTitleKey,
			Confidence: models.ConfidenceHigh,
		})
	}

	for j := range b {
		if used[j] {
			continue
		}
		pairs = append(pairs, models.MatchPair{
			B:          &b[j],
			Basis:      models.BasisUnmatched,
			Confidence: models.ConfidenceNone,
		})
	}

	return pairs
}

func pick(index map[string][]int, key string, used []bool, exclusive bool) int {
	if key == "" {
		return -1
	}
	for _, j := range index[key] {
		if exclusive && used[j] {
			continue
		}
		return j
	}
	return -1
}

// ComputeStats derives match metrics from the pairs Match produced.
func ComputeStats(pairs []models.MatchPair) Stats {
	var s Stats
	seenB := make(map[*models.SourceRecord]int)

	for _, p := range pairs {
		if p.A != nil {
			s.TotalA++
			if p.B != nil {
				s.Matched++
			} else {
				s.Unmatched++
			}
		}
		if p.B != nil {
			seenB[p.B]++
			if p.A == nil {
				s.UnmatchedB++
			}
		}
	}

	s.TotalB = len(seenB)
	for _, n := range seenB {
		if n > 1 {
			s.ReusedB++
		}
	}
	if s.TotalA > 0 {
		s.MatchRate = math.Round(float64(s.Matched)/float64(s.TotalA)*10000) / 100
	}
	return s
}
