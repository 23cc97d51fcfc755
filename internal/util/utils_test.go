package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLineAndColumn(t *testing.T) {
	src := "ab\ncdé\nf"
	tests := []struct {
		pos, line, col int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{8, 3, 1},
	}
	for _, tt := range tests {
		line, col := GetLineAndColumn(src, tt.pos)
		assert.Equal(t, tt.line, line, "pos %d", tt.pos)
		assert.Equal(t, tt.col, col, "pos %d", tt.pos)
	}
}

func TestGetContextLines(t *testing.T) {
	src := "one\ntwo\nthree\nfour"
	got := GetContextLines(src, 3, 3)
	want := "       1 | one\n" +
		"       2 | two\n" +
		"  >    3 | three\n" +
		"             ^ unexpected here"
	assert.Equal(t, want, got)
}

func TestGetContextLinesColumnPastEnd(t *testing.T) {
	got := GetContextLines("ab", 1, 10)
	assert.Equal(t, "  >    1 | ab\n             ^ unexpected here", got)
}
