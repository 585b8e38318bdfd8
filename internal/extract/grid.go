package extract

import (
	"math"
	"sort"
	"strings"

	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

const (
	// Rectangles no thicker than this are treated as ruling lines.
	ruleThickness = 2.0
	// Edges closer than this are considered touching or collinear.
	snapTolerance = 3.0
)

type rect struct {
	x0, y0, x1, y1 float64
}

func normRect(ax, ay, bx, by float64) rect {
	return rect{math.Min(ax, bx), math.Min(ay, by), math.Max(ax, bx), math.Max(ay, by)}
}

// edge is a ruling line. pos is y for horizontal edges and x for vertical
// ones; from/to span the other axis.
type edge struct {
	horizontal bool
	pos        float64
	from, to   float64
}

func edgesFromRects(rs []rect) []edge {
	var out []edge
	for _, r := range rs {
		w, h := r.x1-r.x0, r.y1-r.y0
		switch {
		case w <= 0 && h <= 0:
			continue
		case h <= ruleThickness && w > h:
			out = append(out, edge{horizontal: true, pos: (r.y0 + r.y1) / 2, from: r.x0, to: r.x1})
		case w <= ruleThickness && h > w:
			out = append(out, edge{pos: (r.x0 + r.x1) / 2, from: r.y0, to: r.y1})
		default:
			out = append(out,
				edge{horizontal: true, pos: r.y0, from: r.x0, to: r.x1},
				edge{horizontal: true, pos: r.y1, from: r.x0, to: r.x1},
				edge{pos: r.x0, from: r.y0, to: r.y1},
				edge{pos: r.x1, from: r.y0, to: r.y1},
			)
		}
	}
	return out
}

func touches(a, b edge) bool {
	if a.horizontal == b.horizontal {
		return math.Abs(a.pos-b.pos) <= snapTolerance &&
			a.from <= b.to+snapTolerance && b.from <= a.to+snapTolerance
	}
	h, v := a, b
	if !h.horizontal {
		h, v = b, a
	}
	return v.pos >= h.from-snapTolerance && v.pos <= h.to+snapTolerance &&
		h.pos >= v.from-snapTolerance && h.pos <= v.to+snapTolerance
}

// table is a lattice of cell boundaries: xs ascending, ys descending (top
// of the page first).
type table struct {
	xs []float64
	ys []float64
}

func (t table) cols() int { return len(t.xs) - 1 }
func (t table) rows() int { return len(t.ys) - 1 }

// detectTables groups connected ruling edges into grids. Only grids with at
// least two cells count as tables. Tables are ordered top to bottom, then
// left to right.
func detectTables(rs []rect) []table {
	edges := edgesFromRects(rs)
	if len(edges) == 0 {
		return nil
	}

	parent := make([]int, len(edges))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for i := range edges {
		for j := i + 1; j < len(edges); j++ {
			if touches(edges[i], edges[j]) {
				parent[find(i)] = find(j)
			}
		}
	}

	groups := map[int][]edge{}
	var roots []int
	for i, e := range edges {
		r := find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], e)
	}

	var tables []table
	for _, r := range roots {
		var xs, ys []float64
		for _, e := range groups[r] {
			if e.horizontal {
				ys = append(ys, e.pos)
			} else {
				xs = append(xs, e.pos)
			}
		}
		xs = snap(xs)
		ys = snap(ys)
		if len(xs) < 2 || len(ys) < 2 {
			continue
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(ys)))
		t := table{xs: xs, ys: ys}
		if t.cols()*t.rows() < 2 {
			continue
		}
		tables = append(tables, t)
	}

	sort.SliceStable(tables, func(i, j int) bool {
		if math.Abs(tables[i].ys[0]-tables[j].ys[0]) > snapTolerance {
			return tables[i].ys[0] > tables[j].ys[0]
		}
		return tables[i].xs[0] < tables[j].xs[0]
	})
	return tables
}

// snap sorts vals ascending and merges values within snapTolerance of the
// start of their cluster into the cluster mean.
func snap(vals []float64) []float64 {
	if len(vals) == 0 {
		return nil
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	var out []float64
	start, sum, n := sorted[0], 0.0, 0
	for _, v := range sorted {
		if v-start > snapTolerance {
			out = append(out, sum/float64(n))
			start, sum, n = v, 0, 0
		}
		sum += v
		n++
	}
	return append(out, sum/float64(n))
}

// cellAt returns the row and column containing (x, y), or -1s.
func (t table) cellAt(x, y float64) (int, int) {
	col := -1
	for c := 0; c < t.cols(); c++ {
		if x >= t.xs[c] && x < t.xs[c+1] {
			col = c
			break
		}
	}
	row := -1
	for r := 0; r < t.rows(); r++ {
		if y <= t.ys[r] && y > t.ys[r+1] {
			row = r
			break
		}
	}
	if row < 0 || col < 0 {
		return -1, -1
	}
	return row, col
}

// extractRows assigns glyphs to cells by their centre point and returns
// every row of the table, blank ones included. ok is false when no cell
// holds any text.
func (t table) extractRows(gs []glyph) (rows []models.Row, ok bool) {
	cells := make([][][]glyph, t.rows())
	for r := range cells {
		cells[r] = make([][]glyph, t.cols())
	}
	for _, g := range gs {
		cx, cy := g.center()
		r, c := t.cellAt(cx, cy)
		if r < 0 {
			continue
		}
		cells[r][c] = append(cells[r][c], g)
	}

	rows = make([]models.Row, 0, t.rows())
	for r := range cells {
		row := make(models.Row, t.cols())
		for c, cg := range cells[r] {
			lines := assembleLines(cg)
			for i := range lines {
				lines[i] = strings.TrimSpace(lines[i])
			}
			row[c] = cleanText(strings.Join(lines, "\n"))
			if row[c] != "" {
				ok = true
			}
		}
		rows = append(rows, row)
	}
	return rows, ok
}

// pageRows turns one page's glyphs and rules into rows: its tables when any
// of them holds text, otherwise its text lines. Tables with no text at all
// are layout boxes and are skipped.
func pageRows(gs []glyph, rs []rect) []models.Row {
	var rows []models.Row
	for _, t := range detectTables(rs) {
		if tr, ok := t.extractRows(gs); ok {
			rows = append(rows, tr...)
		}
	}
	if len(rows) == 0 {
		return textRows(gs)
	}
	return rows
}
