package extract

import (
	"math"

	"github.com/ledongthuc/pdf"
)

// affine is a PDF transformation matrix [a b c d e f] mapping (x, y) to
// (a*x + c*y + e, b*x + d*y + f).
type affine [6]float64

var identity = affine{1, 0, 0, 1, 0, 0}

// then returns the transform that applies m first and n second.
func (m affine) then(n affine) affine {
	return affine{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m affine) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

type point struct{ x, y float64 }

// pathBuilder accumulates the current path in page space.
type pathBuilder struct {
	ctm     affine
	stack   []affine
	cur     point
	start   point
	hasCur  bool
	pending []rect
	out     []rect
}

func (b *pathBuilder) moveTo(x, y float64) {
	b.cur = point{x, y}
	b.start = b.cur
	b.hasCur = true
}

func (b *pathBuilder) lineTo(x, y float64) {
	if b.hasCur {
		b.segment(b.cur, point{x, y})
	}
	b.cur = point{x, y}
	b.hasCur = true
}

// segment records an axis-aligned segment given in user space. Diagonal
// segments and specks cannot be table rules and are skipped.
func (b *pathBuilder) segment(p, q point) {
	x0, y0 := b.ctm.apply(p.x, p.y)
	x1, y1 := b.ctm.apply(q.x, q.y)
	dx, dy := math.Abs(x1-x0), math.Abs(y1-y0)
	if (dx > ruleThickness) == (dy > ruleThickness) {
		return
	}
	b.pending = append(b.pending, normRect(x0, y0, x1, y1))
}

// rectangle records an `re` operand. Under a rotating or skewing transform
// the box is not axis-aligned and its sides are recorded as segments.
func (b *pathBuilder) rectangle(x, y, w, h float64) {
	if (b.ctm[1] == 0 && b.ctm[2] == 0) || (b.ctm[0] == 0 && b.ctm[3] == 0) {
		x0, y0 := b.ctm.apply(x, y)
		x1, y1 := b.ctm.apply(x+w, y+h)
		b.pending = append(b.pending, normRect(x0, y0, x1, y1))
	} else {
		corners := []point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
		for i := range corners {
			b.segment(corners[i], corners[(i+1)%len(corners)])
		}
	}
	b.moveTo(x, y)
}

func (b *pathBuilder) closePath() {
	if b.hasCur {
		b.segment(b.cur, b.start)
		b.cur = b.start
	}
}

// endPath finishes the current path; painted paths contribute rules.
func (b *pathBuilder) endPath(painted bool) {
	if painted {
		b.out = append(b.out, b.pending...)
	}
	b.pending = b.pending[:0]
	b.hasCur = false
}

func (b *pathBuilder) exec(op string, args []pdf.Value) {
	num := func(i int) float64 { return args[i].Float64() }
	switch op {
	case "q":
		b.stack = append(b.stack, b.ctm)
	case "Q":
		if n := len(b.stack); n > 0 {
			b.ctm = b.stack[n-1]
			b.stack = b.stack[:n-1]
		}
	case "cm":
		if len(args) == 6 {
			b.ctm = affine{num(0), num(1), num(2), num(3), num(4), num(5)}.then(b.ctm)
		}
	case "m":
		if len(args) == 2 {
			b.moveTo(num(0), num(1))
		}
	case "l":
		if len(args) == 2 {
			b.lineTo(num(0), num(1))
		}
	case "c":
		if len(args) == 6 {
			b.cur = point{num(4), num(5)}
		}
	case "v", "y":
		if len(args) == 4 {
			b.cur = point{num(2), num(3)}
		}
	case "re":
		if len(args) == 4 {
			b.rectangle(num(0), num(1), num(2), num(3))
		}
	case "h":
		b.closePath()
	case "s", "b", "b*":
		b.closePath()
		b.endPath(true)
	case "S", "f", "F", "f*", "B", "B*":
		b.endPath(true)
	case "n":
		b.endPath(false)
	}
}

// pageRules returns the painted, axis-aligned path geometry of a page in
// page space: every `re` box and every horizontal or vertical segment built
// with m/l/h, mapped through the current transformation matrix. Clipping
// paths ended with `n` are ignored. Form XObjects are not descended into.
func pageRules(page pdf.Page) []rect {
	contents := page.V.Key("Contents")
	if contents.Kind() == pdf.Null {
		return nil
	}
	b := &pathBuilder{ctm: identity}
	pdf.Interpret(contents, func(stk *pdf.Stack, op string) {
		n := stk.Len()
		args := make([]pdf.Value, n)
		for i := n - 1; i >= 0; i-- {
			args[i] = stk.Pop()
		}
		b.exec(op, args)
	})
	return b.out
}
