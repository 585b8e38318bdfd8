package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

func TestFirestoreRowEncoding(t *testing.T) {
	rows := []models.Row{{"a", "", "c"}, nil, {"Ñandú"}}

	encoded := encodeRows(rows)
	assert.Equal(t, []string{}, encoded[1].Cells, "nil rows must encode as an empty array")
	assert.Equal(t, []string{"a", "", "c"}, encoded[0].Cells)

	decoded := decodeRows(encoded)
	assert.Len(t, decoded, 3)
	assert.Equal(t, models.Row{"Ñandú"}, decoded[2])
	assert.Empty(t, decoded[1])
}

func TestChunkRows(t *testing.T) {
	assert.Empty(t, chunkRows(nil, 100))

	rows := []models.Row{{"aaaa"}, {"bbbb"}, {"cccc"}, {strings.Repeat("x", 500)}, {"dddd"}}
	chunks := chunkRows(rows, 60)
	require.Len(t, chunks, 4)
	assert.Equal(t, rows[0:2], chunks[0])
	assert.Equal(t, rows[2:3], chunks[1])
	assert.Equal(t, rows[3:4], chunks[2], "an oversized row is a chunk of its own")
	assert.Equal(t, rows[4:5], chunks[3])

	var joined []models.Row
	for _, c := range chunks {
		joined = append(joined, c...)
	}
	assert.Equal(t, rows, joined)
}

func TestChunkRows_LargeExtractionStaysUnderBudget(t *testing.T) {
	rows := make([]models.Row, 20000)
	for i := range rows {
		rows[i] = models.Row{strings.Repeat("a", 200), strings.Repeat("b", 200)}
	}
	chunks := chunkRows(rows, chunkBudget)
	assert.Greater(t, len(chunks), 1)
	assert.Equal(t, "000003", chunkID(3))
	for _, c := range chunks {
		size := 0
		for _, r := range c {
			size += 16 + len(r[0]) + 2 + len(r[1]) + 2
		}
		assert.LessOrEqual(t, size, chunkBudget)
	}
}
