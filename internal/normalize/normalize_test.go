package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "drops subtitle", input: "Clean Code: A Handbook of Agile Software Craftsmanship", expected: "clean code"},
		{name: "plain title", input: "Clean Code", expected: "clean code"},
		{name: "punctuation and digits", input: "1984 (Signet Classics)!", expected: "signet classics"},
		{name: "collapses whitespace", input: "  The   Pragmatic\tProgrammer ", expected: "the pragmatic programmer"},
		{name: "folds accents", input: "Cien años de soledad", expected: "cien anos de soledad"},
		{name: "empty", input: "", expected: ""},
		{name: "only symbols", input: "!!!", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Title(tt.input))
		})
	}
}

func TestFullTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "keeps subtitle", input: "Clean Code: A Handbook", expected: "clean code a handbook"},
		{name: "second colon", input: "Dune: Book 2: Messiah", expected: "dune book messiah"},
		{name: "plain title", input: "Clean Code", expected: "clean code"},
		{name: "empty", input: " ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FullTitle(tt.input))
		})
	}
}

func TestTitleIdempotent(t *testing.T) {
	for _, in := range []string{"Clean Code: A Handbook", "Désert  Solitaire", "The C++ Programming Language"} {
		once := Title(in)
		assert.Equal(t, once, Title(once), in)
	}
}

func TestAuthor(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "first of comma list", input: "Robert C. Martin, Dean Wampler", expected: "robert c martin"},
		{name: "first of semicolon list", input: "Gabriel García Márquez; Edith Grossman", expected: "gabriel garcía márquez"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Author(tt.input))
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "full iso", input: "2008-08-01", expected: "2008-08-01"},
		{name: "iso with time", input: "2008-08-01T10:00:00Z", expected: "2008-08-01"},
		{name: "year only", input: "2008", expected: "2008-01-01"},
		{name: "year month", input: "2008-08", expected: "2008-08-01"},
		{name: "long form", input: "August 1, 2008", expected: "2008-08-01"},
		{name: "slashes", input: "2008/08/01", expected: "2008-08-01"},
		{name: "unpadded", input: "2008-5-3", expected: "2008-05-03"},
		{name: "unpadded month", input: "2008-5", expected: "2008-05-01"},
		{name: "leap day", input: "2008-02-29", expected: "2008-02-29"},
		{name: "month out of range", input: "2008-13-45", wantErr: true},
		{name: "year month out of range", input: "2008-99", wantErr: true},
		{name: "no such day", input: "2007-02-29", wantErr: true},
		{name: "garbage", input: "sometime last spring", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Date(tt.input)
			if tt.wantErr {
				var perr *ParseError
				require.Error(t, err)
				assert.True(t, errors.As(err, &perr))
				assert.Equal(t, "date", perr.Field)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "EN", expected: "en"},
		{input: "en-US", expected: "en"},
		{input: "es", expected: "es"},
		{input: "nl", expected: "nl"},
		{input: "  ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Language(tt.input))
		})
	}
}

func TestCurrency(t *testing.T) {
	got, err := Currency("usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", got)

	got, err = Currency("XYZ")
	assert.Error(t, err)
	assert.Empty(t, got)

	_, err = Currency("")
	assert.Error(t, err)
}

func TestYear(t *testing.T) {
	y, ok := Year("2008-08-01")
	assert.True(t, ok)
	assert.Equal(t, 2008, y)

	y, ok = Year("circa 1999")
	assert.True(t, ok)
	assert.Equal(t, 1999, y)

	_, ok = Year("1850")
	assert.False(t, ok)

	_, ok = Year("")
	assert.False(t, ok)
}

func TestPrice(t *testing.T) {
	p, err := Price("31.99")
	require.NoError(t, err)
	assert.True(t, p.Valid)
	assert.Equal(t, "31.99", p.Decimal.String())

	p, err = Price("")
	require.NoError(t, err)
	assert.False(t, p.Valid)

	p, err = Price("free")
	assert.Error(t, err)
	assert.False(t, p.Valid)
}

func TestISBNNormalization(t *testing.T) {
	got, err := ISBN13("978-0-13-468599-1")
	require.NoError(t, err)
	assert.Equal(t, "9780134685991", got)

	got, err = ISBN13("9780134685992")
	assert.Error(t, err)
	assert.Empty(t, got)

	got, err = ISBN10("0-8044-2957-x")
	require.NoError(t, err)
	assert.Equal(t, "080442957X", got)

	got, err = ISBN10("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"Robert C. Martin", "Dean Wampler"}, SplitList("Robert C. Martin, Dean Wampler,"))
	assert.Nil(t, SplitList("   "))
}
