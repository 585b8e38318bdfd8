// Package pdftest writes small, valid PDF documents for tests: positioned
// WinAnsi text in a standard font, and stroked rectangles or line segments
// for ruled tables, optionally under a page transform.
package pdftest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Text is a string drawn with its baseline origin at (X, Y).
type Text struct {
	X, Y, Size float64
	S          string
}

// Rect is a stroked rectangle with lower-left corner (X, Y).
type Rect struct {
	X, Y, W, H float64
}

// Rule is a stroked segment from (X0, Y0) to (X1, Y1), drawn with m/l/S.
type Rule struct {
	X0, Y0, X1, Y1 float64
}

// Page is the content of one page. When Transform is set the whole content
// is drawn under `q a b c d e f cm ... Q`.
type Page struct {
	Texts     []Text
	Rects     []Rect
	Rules     []Rule
	Transform *[6]float64
}

// Add appends another page's content to p. p's transform is kept.
func (p Page) Add(o Page) Page {
	p.Texts = append(p.Texts, o.Texts...)
	p.Rects = append(p.Rects, o.Rects...)
	p.Rules = append(p.Rules, o.Rules...)
	return p
}

// Scaled returns p drawn under a uniform scale about the origin.
func (p Page) Scaled(s float64) Page {
	p.Transform = &[6]float64{s, 0, 0, s, 0, 0}
	return p
}

// Table draws a ruled grid whose top-left corner is at (x, top). Every cell
// is a cellW x cellH box; each cell value is drawn inside its box.
func Table(x, top, cellW, cellH float64, cells [][]string) Page {
	var p Page
	for r, row := range cells {
		for c, v := range row {
			x0 := x + float64(c)*cellW
			y0 := top - float64(r+1)*cellH
			p.Rects = append(p.Rects, Rect{X: x0, Y: y0, W: cellW, H: cellH})
			if v != "" {
				p.Texts = append(p.Texts, Text{X: x0 + 2, Y: y0 + 5, Size: 10, S: v})
			}
		}
	}
	return p
}

// RuledTable is Table drawn the way most generators do it: one horizontal
// segment per row boundary and one vertical segment per column boundary.
func RuledTable(x, top, cellW, cellH float64, cells [][]string) Page {
	var p Page
	cols := 0
	for _, row := range cells {
		cols = max(cols, len(row))
	}
	right, bottom := x+float64(cols)*cellW, top-float64(len(cells))*cellH
	for r := 0; r <= len(cells); r++ {
		y := top - float64(r)*cellH
		p.Rules = append(p.Rules, Rule{X0: x, Y0: y, X1: right, Y1: y})
	}
	for c := 0; c <= cols; c++ {
		xc := x + float64(c)*cellW
		p.Rules = append(p.Rules, Rule{X0: xc, Y0: top, X1: xc, Y1: bottom})
	}
	for r, row := range cells {
		for c, v := range row {
			if v != "" {
				p.Texts = append(p.Texts, Text{X: x + float64(c)*cellW + 2, Y: top - float64(r+1)*cellH + 5, Size: 10, S: v})
			}
		}
	}
	return p
}

// Lines draws one string per line, top to bottom, starting at (x, top).
func Lines(x, top float64, lines ...string) Page {
	var p Page
	for i, l := range lines {
		p.Texts = append(p.Texts, Text{X: x, Y: top - float64(i)*14, Size: 10, S: l})
	}
	return p
}

// Build serialises pages into a PDF with a correct cross-reference table.
func Build(pages ...Page) []byte {
	var objs []string
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))

	widths := strings.TrimSpace(strings.Repeat("500 ", 224))
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 255 /Widths ["+widths+"] >>")

	for i, p := range pages {
		content := pageContent(p)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func pageContent(p Page) string {
	var b strings.Builder
	if m := p.Transform; m != nil {
		fmt.Fprintf(&b, "q\n%s %s %s %s %s %s cm\n", num(m[0]), num(m[1]), num(m[2]), num(m[3]), num(m[4]), num(m[5]))
	}
	if len(p.Rects) > 0 || len(p.Rules) > 0 {
		b.WriteString("0.5 w\n")
	}
	for _, r := range p.Rects {
		fmt.Fprintf(&b, "%s %s %s %s re\nS\n", num(r.X), num(r.Y), num(r.W), num(r.H))
	}
	for _, r := range p.Rules {
		fmt.Fprintf(&b, "%s %s m\n%s %s l\nS\n", num(r.X0), num(r.Y0), num(r.X1), num(r.Y1))
	}
	for _, t := range p.Texts {
		fmt.Fprintf(&b, "BT\n/F1 %s Tf\n%s %s Td\n(%s) Tj\nET\n", num(t.Size), num(t.X), num(t.Y), escape(t.S))
	}
	if p.Transform != nil {
		b.WriteString("Q\n")
	}
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// escape encodes s as a WinAnsi literal string body. Runes outside Latin-1
// become '?'.
func escape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '(' || r == ')' || r == '\\':
			b.WriteByte('\\')
			b.WriteByte(byte(r))
		case r < 256:
			b.WriteByte(byte(r))
		default:
			b.WriteByte('?')
		}
	}
	return b.String()
}
