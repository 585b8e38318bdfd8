package spreadsheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Lllllllleong/pdfxlsx/internal/models"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestSynthesize_RoundTrip(t *testing.T) {
	rows := []models.Row{
		{"Producto", "Código", "Precio"},
		{"Café", "007", "1.50"},
		{"Crème brûlée", "0012345678901234567", "2,75"},
		{"Nota al pie"},
	}

	data, err := New().Synthesize(rows)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	for i := range rows {
		assert.Equal(t, []string(rows[i]), got[i], "row %d", i+1)
	}
}

func TestSynthesize_ShortRowsAndGapsRenderEmpty(t *testing.T) {
	rows := []models.Row{
		{"a", "", "c"},
		{"d"},
	}
	data, err := New().Synthesize(rows)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	v, err := f.GetCellValue(SheetName, "B1")
	require.NoError(t, err)
	assert.Equal(t, "", v)
	v, err = f.GetCellValue(SheetName, "C2")
	require.NoError(t, err)
	assert.Equal(t, "", v)
	v, err = f.GetCellValue(SheetName, "C1")
	require.NoError(t, err)
	assert.Equal(t, "c", v)
}

func TestSynthesize_NumbersStayText(t *testing.T) {
	data, err := New().Synthesize([]models.Row{{"00123"}})
	require.NoError(t, err)

	f := openWorkbook(t, data)
	typ, err := f.GetCellType(SheetName, "A1")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeNumber, typ)
	v, err := f.GetCellValue(SheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "00123", v)
}

func TestSynthesize_ColumnWidths(t *testing.T) {
	rows := []models.Row{
		{"abc", strings.Repeat("x", 200)},
		{"abcdef"},
	}
	data, err := New().Synthesize(rows)
	require.NoError(t, err)

	f := openWorkbook(t, data)
	w, err := f.GetColWidth(SheetName, "A")
	require.NoError(t, err)
	assert.Equal(t, 8.0, w)
	w, err = f.GetColWidth(SheetName, "B")
	require.NoError(t, err)
	assert.Equal(t, 50.0, w)
}

func TestSynthesize_Deterministic(t *testing.T) {
	rows := []models.Row{{"a", "b"}, {"c"}}
	first, err := New().Synthesize(rows)
	require.NoError(t, err)
	second, err := New().Synthesize(rows)
	require.NoError(t, err)

	a, err := openWorkbook(t, first).GetRows(SheetName)
	require.NoError(t, err)
	b, err := openWorkbook(t, second).GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSynthesize_NoRows(t *testing.T) {
	data, err := New().Synthesize(nil)
	require.NoError(t, err)
	got, err := openWorkbook(t, data).GetRows(SheetName)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestColumnWidths(t *testing.T) {
	assert.Equal(t, []float64{6, 0}, ColumnWidths([]models.Row{{"ñañá", ""}}))
	assert.Empty(t, ColumnWidths(nil))
}
