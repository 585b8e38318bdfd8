package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffine_ThenAppliesLeftFirst(t *testing.T) {
	scale := affine{2, 0, 0, 2, 0, 0}
	shift := affine{1, 0, 0, 1, 10, 20}
	x, y := scale.then(shift).apply(1, 1)
	assert.Equal(t, 12.0, x)
	assert.Equal(t, 22.0, y)
	x, y = shift.then(scale).apply(1, 1)
	assert.Equal(t, 22.0, x)
	assert.Equal(t, 42.0, y)
}

func TestPathBuilder_Segments(t *testing.T) {
	b := &pathBuilder{ctm: identity}
	b.moveTo(0, 100)
	b.lineTo(200, 100)
	b.lineTo(200, 0)
	b.lineTo(0, 100) // diagonal
	b.endPath(true)
	assert.Equal(t, []rect{{0, 100, 200, 100}, {200, 0, 200, 100}}, b.out)
}

func TestPathBuilder_ClipPathIgnored(t *testing.T) {
	b := &pathBuilder{ctm: identity}
	b.rectangle(0, 0, 612, 792)
	b.endPath(false)
	b.moveTo(0, 50)
	b.lineTo(100, 50)
	b.endPath(true)
	assert.Equal(t, []rect{{0, 50, 100, 50}}, b.out)
}

func TestPathBuilder_ClosePath(t *testing.T) {
	b := &pathBuilder{ctm: identity}
	b.moveTo(0, 0)
	b.lineTo(50, 0)
	b.lineTo(50, 30)
	b.lineTo(0, 30)
	b.closePath()
	b.endPath(true)
	require.Len(t, b.out, 4)
	assert.Equal(t, rect{0, 0, 0, 30}, b.out[3])
}

func TestPathBuilder_TransformApplied(t *testing.T) {
	b := &pathBuilder{ctm: affine{0.5, 0, 0, 0.5, 10, 0}}
	b.rectangle(0, 0, 100, 40)
	b.moveTo(0, 40)
	b.lineTo(100, 40)
	b.endPath(true)
	assert.Equal(t, []rect{{10, 0, 60, 20}, {10, 20, 60, 20}}, b.out)
}

func TestPathBuilder_RotatedRectangleBecomesSegments(t *testing.T) {
	b := &pathBuilder{ctm: affine{0, 1, -1, 0, 0, 0}}
	b.rectangle(0, 0, 100, 40)
	b.endPath(true)
	assert.Equal(t, []rect{{-40, 0, 0, 100}}, b.out)

	b = &pathBuilder{ctm: affine{1, 0, 1, 1, 0, 0}}
	b.rectangle(0, 0, 100, 40)
	b.endPath(true)
	assert.Equal(t, []rect{{0, 0, 100, 0}, {40, 40, 140, 40}}, b.out)
}

func TestDetectTables_FromSegments(t *testing.T) {
	b := &pathBuilder{ctm: identity}
	for _, y := range []float64{700, 680, 660} {
		b.moveTo(50, y)
		b.lineTo(250, y)
	}
	for _, x := range []float64{50, 150, 250} {
		b.moveTo(x, 700)
		b.lineTo(x, 660)
	}
	b.endPath(true)
	tables := detectTables(b.out)
	require.Len(t, tables, 1)
	assert.Equal(t, 2, tables[0].rows())
	assert.Equal(t, 2, tables[0].cols())
}
