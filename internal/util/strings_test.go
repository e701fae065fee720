package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter than limit", "abc", 5, "abc"},
		{"ascii cut", "abcdef", 4, "abcd"},
		{"cut inside two-byte rune", "aé", 2, "a"},
		{"cut after two-byte rune", "aéb", 3, "aé"},
		{"cut inside four-byte rune", "x😀", 3, "x"},
		{"zero limit", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateUTF8(tt.in, tt.n))
		})
	}
}

func TestTruncateUTF8_AlwaysValid(t *testing.T) {
	s := strings.Repeat("é", 300)
	for n := range 20 {
		got := TruncateUTF8(s, 481+n)
		assert.True(t, utf8.ValidString(got), "limit %d", 481+n)
		assert.LessOrEqual(t, len(got), 481+n)
	}
}
