package extract

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfxlsx/internal/models"
	"github.com/Lllllllleong/pdfxlsx/internal/pdftest"
)

func newTestExtractor() *Extractor {
	return New(Config{PageWorkers: 2, MaxConcurrent: 2}, nil)
}

func grid(rows, cols int) [][]string {
	cells := make([][]string, rows)
	for r := range cells {
		cells[r] = make([]string, cols)
		for c := range cells[r] {
			cells[r][c] = fmt.Sprintf("r%dc%d", r+1, c+1)
		}
	}
	return cells
}

func TestExtract_TableThenTextAcrossPages(t *testing.T) {
	doc := pdftest.Build(
		pdftest.Table(50, 700, 100, 18, grid(3, 4)),
		pdftest.Lines(72, 720, "First line of text", "Second   line"),
	)

	res, err := newTestExtractor().Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, 2, res.PageCount)
	require.Len(t, res.Rows, 5)
	assert.Equal(t, models.Row{"r1c1", "r1c2", "r1c3", "r1c4"}, res.Rows[0])
	assert.Equal(t, models.Row{"r3c1", "r3c2", "r3c3", "r3c4"}, res.Rows[2])
	assert.Equal(t, models.Row{"First line of text"}, res.Rows[3])
	assert.Equal(t, models.Row{"Second   line"}, res.Rows[4])
}

func TestExtract_AccentedCells(t *testing.T) {
	doc := pdftest.Build(pdftest.Table(50, 700, 120, 18, [][]string{
		{"Café", "Año"},
		{"Crème brûlée", "Ñandú"},
	}))

	res, err := newTestExtractor().Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []models.Row{{"Café", "Año"}, {"Crème brûlée", "Ñandú"}}, res.Rows)
}

func TestExtract_PageOrderPreservedWithManyPages(t *testing.T) {
	var pages []pdftest.Page
	for i := 1; i <= 7; i++ {
		pages = append(pages, pdftest.Lines(72, 720, fmt.Sprintf("page %d", i)))
	}
	res, err := newTestExtractor().Extract(context.Background(), pdftest.Build(pages...))
	require.NoError(t, err)
	require.Len(t, res.Rows, 7)
	for i, row := range res.Rows {
		assert.Equal(t, models.Row{fmt.Sprintf("page %d", i+1)}, row)
	}
}

func TestExtract_BlankPageContributesNothing(t *testing.T) {
	doc := pdftest.Build(pdftest.Page{}, pdftest.Lines(72, 720, "only text"))
	res, err := newTestExtractor().Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 2, res.PageCount)
	assert.Equal(t, []models.Row{{"only text"}}, res.Rows)
}

func TestExtract_EmptyDocument(t *testing.T) {
	_, err := newTestExtractor().Extract(context.Background(), pdftest.Build(pdftest.Page{}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrEmptyDocument))
}

func TestExtract_Unparsable(t *testing.T) {
	for name, data := range map[string][]byte{
		"garbage": []byte("this is not a pdf"),
		"empty":   nil,
		"header":  []byte("%PDF-1.4\n%%EOF\n"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := newTestExtractor().Extract(context.Background(), data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrUnparsablePDF), "got %v", err)
		})
	}
}

func TestExtract_ExpiredContextIsTimeout(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := newTestExtractor().Extract(ctx, pdftest.Build(pdftest.Lines(72, 720, "x")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExtractionTimeout))
}

func TestExtract_CancelledContextIsNotTimeout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestExtractor().Extract(ctx, pdftest.Build(pdftest.Lines(72, 720, "x")))
	require.Error(t, err)
	assert.False(t, errors.Is(err, models.ErrExtractionTimeout))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExtract_LineDrawnTable(t *testing.T) {
	doc := pdftest.Build(pdftest.RuledTable(50, 700, 100, 20, [][]string{
		{"A1", "B1"},
		{"A2", "B2"},
	}))

	res, err := newTestExtractor().Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []models.Row{{"A1", "B1"}, {"A2", "B2"}}, res.Rows)
}

func TestExtract_TableUnderPageTransform(t *testing.T) {
	cells := [][]string{{"A1", "B1"}, {"A2", "B2"}}
	for name, page := range map[string]pdftest.Page{
		"boxes": pdftest.Table(100, 1400, 200, 40, cells).Scaled(0.5),
		"rules": pdftest.RuledTable(100, 1400, 200, 40, cells).Scaled(0.5),
	} {
		t.Run(name, func(t *testing.T) {
			res, err := newTestExtractor().Extract(context.Background(), pdftest.Build(page))
			require.NoError(t, err)
			assert.Equal(t, []models.Row{{"A1", "B1"}, {"A2", "B2"}}, res.Rows)
		})
	}
}

func TestExtract_BlankRowInsideTableIsKept(t *testing.T) {
	cells := [][]string{{"Name", "Qty"}, {"", ""}, {"Apple", "3"}}
	for name, page := range map[string]pdftest.Page{
		"boxes": pdftest.Table(50, 700, 100, 20, cells),
		"rules": pdftest.RuledTable(50, 700, 100, 20, cells),
	} {
		t.Run(name, func(t *testing.T) {
			res, err := newTestExtractor().Extract(context.Background(), pdftest.Build(page))
			require.NoError(t, err)
			assert.Equal(t, []models.Row{{"Name", "Qty"}, {"", ""}, {"Apple", "3"}}, res.Rows)
		})
	}
}
