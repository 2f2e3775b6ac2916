package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uxentio/books-pipeline/internal/models"
	"github.com/uxentio/books-pipeline/internal/normalize"
)

func record(src models.Source, idx int, title string) models.SourceRecord {
	return models.SourceRecord{
		Source:          src,
		Index:           idx,
		Title:           title,
		NormalizedTitle: normalize.Title(title),
	}
}

func TestMatchExactTitleKey(t *testing.T) {
	a := []models.SourceRecord{record(models.SourceGoodreads, 0, "Clean Code")}
	b := []models.SourceRecord{record(models.SourceGoogleBooks, 0, "Clean Code: A Handbook")}

	pairs := Match(a, b, Options{})
	require.Len(t, pairs, 1)
	assert.Equal(t, models.BasisExactTitleKey, pairs[0].Basis)
	assert.Equal(t, models.ConfidenceHigh, pairs[0].Confidence)
	assert.Same(t, &b[0], pairs[0].B)

	again := Match(a, b, Options{})
	assert.Equal(t, pairs, again)
}

func TestMatchFirstCandidateWins(t *testing.T) {
	a := []models.SourceRecord{record(models.SourceGoodreads, 0, "Dune")}
	b := []models.SourceRecord{
		record(models.SourceGoogleBooks, 0, "Dune: Deluxe Edition"),
		record(models.SourceGoogleBooks, 1, "Dune"),
	}

	pairs := Match(a, b, Options{})
	require.Len(t, pairs, 2)
	assert.Equal(t, 0, pairs[0].B.Index)
	assert.Nil(t, pairs[1].A)
	assert.Equal(t, 1, pairs[1].B.Index)
	assert.Equal(t, models.BasisUnmatched, pairs[1].Basis)
}

func TestMatchIsDeterministic(t *testing.T) {
	a := []models.SourceRecord{
		record(models.SourceGoodreads, 0, "Data Science for Business"),
		record(models.SourceGoodreads, 1, "Clean Code"),
	}
	b := []models.SourceRecord{
		record(models.SourceGoogleBooks, 0, "Clean Code: A Handbook"),
		record(models.SourceGoogleBooks, 1, "Unrelated Book"),
	}

	tests := []struct {
		name string
		opts Options
	}{
		{name: "exclusive", opts: Options{}},
		{name: "reuse", opts: Options{ReuseB: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs := Match(a, b, tt.opts)
			require.Len(t, pairs, 3)

			assert.Equal(t, 0, pairs[0].A.Index)
			assert.Nil(t, pairs[0].B)
			assert.Equal(t, models.BasisUnmatched, pairs[0].Basis)

			assert.Equal(t, 1, pairs[1].A.Index)
			require.NotNil(t, pairs[1].B)
			assert.Equal(t, 0, pairs[1].B.Index)
			assert.Equal(t, models.BasisExactTitleKey, pairs[1].Basis)

			assert.Nil(t, pairs[2].A)
			assert.Equal(t, 1, pairs[2].B.Index)

			for i := 0; i < 5; i++ {
				assert.Equal(t, pairs, Match(a, b, tt.opts))
			}
			assert.Equal(t, Stats{TotalA: 2, TotalB: 2, Matched: 1, Unmatched: 1, UnmatchedB: 1, MatchRate: 50}, ComputeStats(pairs))
		})
	}
}

func TestMatchUnmatched(t *testing.T) {
	a := []models.SourceRecord{
		record(models.SourceGoodreads, 0, "Refactoring"),
		record(models.SourceGoodreads, 1, "???"),
	}
	b := []models.SourceRecord{
		record(models.SourceGoogleBooks, 0, "Working Effectively with Legacy Code"),
		record(models.SourceGoogleBooks, 1, "!!!"),
	}

	pairs := Match(a, b, Options{})
	require.Len(t, pairs, 4)
	for _, p := range pairs {
		assert.Equal(t, models.BasisUnmatched, p.Basis)
		assert.Equal(t, models.ConfidenceNone, p.Confidence)
	}
	assert.Nil(t, pairs[1].B, "empty keys never match")
}

func TestMatchReuseVersusExclusive(t *testing.T) {
	a := []models.SourceRecord{
		record(models.SourceGoodreads, 0, "Dune"),
		record(models.SourceGoodreads, 1, "Dune: Messiah omnibus"),
	}
	b := []models.SourceRecord{record(models.SourceGoogleBooks, 0, "Dune")}

	shared := Match(a, b, Options{ReuseB: true})
	require.Len(t, shared, 2)
	assert.Same(t, shared[0].B, shared[1].B)

	stats := ComputeStats(shared)
	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 1, stats.ReusedB)
	assert.Equal(t, 100.0, stats.MatchRate)

	exclusive := Match(a, b, Options{})
	require.Len(t, exclusive, 2)
	assert.NotNil(t, exclusive[0].B)
	assert.Nil(t, exclusive[1].B)
	assert.Equal(t, models.BasisUnmatched, exclusive[1].Basis)
}

func TestComputeStats(t *testing.T) {
	a := []models.SourceRecord{
		record(models.SourceGoodreads, 0, "Dune"),
		record(models.SourceGoodreads, 1, "Emma"),
		record(models.SourceGoodreads, 2, "Ulysses"),
	}
	b := []models.SourceRecord{
		record(models.SourceGoogleBooks, 0, "Dune"),
		record(models.SourceGoogleBooks, 1, "Beloved"),
	}

	stats := ComputeStats(Match(a, b, Options{}))
	assert.Equal(t, 3, stats.TotalA)
	assert.Equal(t, 2, stats.TotalB)
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 2, stats.Unmatched)
	assert.Equal(t, 1, stats.UnmatchedB)
	assert.Equal(t, 33.33, stats.MatchRate)
}
