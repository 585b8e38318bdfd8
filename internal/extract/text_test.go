package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sized(x, y, w float64, s string) glyph {
	return glyph{x: x, y: y, w: w, size: 10, s: s}
}

func TestAssembleLines_Empty(t *testing.T) {
	assert.Nil(t, assembleLines(nil))
}

func TestAssembleLines_OrdersTopToBottomLeftToRight(t *testing.T) {
	gs := []glyph{
		sized(15, 100, 5, "d"),
		sized(10, 100, 5, "c"),
		sized(10, 120, 5, "a"),
		sized(15, 120.5, 5, "b"),
	}
	assert.Equal(t, []string{"ab", "cd"}, assembleLines(gs))
}

func TestJoinGlyphs_InsertsSpaceForWideGaps(t *testing.T) {
	line := []glyph{
		sized(0, 0, 5, "a"),
		sized(5, 0, 5, "b"),
		sized(30, 0, 5, "c"),
	}
	assert.Equal(t, "ab c", joinGlyphs(line))
}

func TestJoinGlyphs_KeepsLiteralSpaces(t *testing.T) {
	line := []glyph{
		sized(0, 0, 5, "a"),
		sized(5, 0, 5, " "),
		sized(10, 0, 5, " "),
		sized(15, 0, 5, "b"),
	}
	assert.Equal(t, "a  b", joinGlyphs(line))
}

func TestJoinGlyphs_ZeroWidthKeepsStreamOrder(t *testing.T) {
	gs := append(word(10, 0, "Hello"), word(60, 0, "World")...)
	assert.Equal(t, []string{"Hello World"}, assembleLines(gs))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "Café", cleanText("  Cafe\u0301 "))
	assert.Equal(t, "a\nb", cleanText("a\nb\n"))
	assert.Empty(t, cleanText(" \t "))
}
