package extract

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

// glyph is one decoded character placed on the page. y is the baseline.
type glyph struct {
	x, y, w, size float64
	s             string
}

func (g glyph) center() (float64, float64) {
	return g.x + g.w/2, g.y + g.size*0.3
}

func (g glyph) blank() bool {
	return strings.TrimSpace(g.s) == ""
}

// assembleLines groups glyphs into text lines ordered top to bottom, each
// read left to right. Glyphs sharing a position keep their stream order.
func assembleLines(gs []glyph) []string {
	if len(gs) == 0 {
		return nil
	}
	sorted := make([]glyph, len(gs))
	copy(sorted, gs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].y > sorted[j].y })

	var lines [][]glyph
	var lineY float64
	for _, g := range sorted {
		tol := math.Max(1, g.size*0.5)
		if len(lines) == 0 || lineY-g.y > tol {
			lines = append(lines, []glyph{g})
			lineY = g.y
			continue
		}
		lines[len(lines)-1] = append(lines[len(lines)-1], g)
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].x < line[j].x })
		out = append(out, joinGlyphs(line))
	}
	return out
}

// joinGlyphs concatenates a line, inserting a single space where two
// visible glyphs are separated by a gap wider than a fraction of the font
// size. Literal spaces from the content stream are kept as is.
func joinGlyphs(line []glyph) string {
	var b strings.Builder
	for i, g := range line {
		if i > 0 {
			prev := line[i-1]
			if !prev.blank() && !g.blank() && g.x-(prev.x+prev.w) > wordGap(g) {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.s)
	}
	return b.String()
}

func wordGap(g glyph) float64 {
	if g.size <= 0 {
		return 1
	}
	return g.size * 0.2
}

// textRows is the fallback for pages without tables: each non-blank line
// becomes a single-cell row.
func textRows(gs []glyph) []models.Row {
	var rows []models.Row
	for _, l := range assembleLines(gs) {
		if t := cleanText(l); t != "" {
			rows = append(rows, models.Row{t})
		}
	}
	return rows
}

// cleanText trims s and composes it to NFC, so a base letter followed by a
// combining accent compares equal to the precomposed character.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
