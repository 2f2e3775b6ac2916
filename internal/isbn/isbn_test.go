package isbn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "hyphenated isbn13", input: "978-0-13-468599-1", expected: "9780134685991"},
		{name: "lowercase x", input: "0-8044-2957-x", expected: "080442957X"},
		{name: "spaces and prefix", input: "ISBN 0 13 468599 7", expected: "0134685997"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input))
		})
	}
}

func TestValid13(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "valid", input: "9780134685991", valid: true},
		{name: "valid 979", input: "9791032305690", valid: true},
		{name: "bad check digit", input: "9780134685992", valid: false},
		{name: "too short", input: "978013468599", valid: false},
		{name: "non digit", input: "978013468599X", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Valid13(tt.input))
		})
	}
}

func TestValid13RejectsEveryWrongCheckDigit(t *testing.T) {
	for _, valid := range []string{"9780132350884", "9780134685991", "9791032305690"} {
		body, check := valid[:12], valid[12]
		require.True(t, Valid13(valid), valid)

		for d := byte('0'); d <= '9'; d++ {
			if d == check {
				continue
			}
			mutated := body + string(d)
			t.Run(mutated, func(t *testing.T) {
				assert.False(t, Valid13(mutated))
			})
		}
	}
}

func TestValid10(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "valid", input: "0134685997", valid: true},
		{name: "valid with X", input: "080442957X", valid: true},
		{name: "bad check digit", input: "0134685998", valid: false},
		{name: "X not last", input: "01346X5997", valid: false},
		{name: "wrong length", input: "013468599", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Valid10(tt.input))
		})
	}
}

func TestConvert10To13(t *testing.T) {
	got, ok := Convert10To13("0-13-468599-7")
	assert.True(t, ok)
	assert.Equal(t, "9780134685991", got)

	got, ok = Convert10To13("080442957X")
	assert.True(t, ok)
	assert.Equal(t, "9780804429573", got)

	_, ok = Convert10To13("12345")
	assert.False(t, ok)
}

func TestConvertedAlwaysValid(t *testing.T) {
	for _, in := range []string{"0134685997", "080442957X", "0306406152", "0451526538"} {
		if !Valid10(in) {
			t.Fatalf("fixture %s is not a valid ISBN-10", in)
		}
		out, ok := Convert10To13(in)
		assert.True(t, ok, in)
		assert.True(t, Valid13(out), "converted %s -> %s", in, out)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want13 string
		want10 string
	}{
		{name: "isbn13 in prose", text: "Paperback, ISBN: 978-0-13-468599-1 (2018)", want13: "9780134685991"},
		{name: "isbn10 only", text: "ISBN 0-13-468599-7", want13: "9780134685991", want10: "0134685997"},
		{name: "invalid numbers ignored", text: "call 555 123 4567 89", want13: "", want10: ""},
		{name: "empty", text: "", want13: "", want10: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got13, got10 := Extract(tt.text)
			assert.Equal(t, tt.want13, got13)
			assert.Equal(t, tt.want10, got10)
		})
	}
}
