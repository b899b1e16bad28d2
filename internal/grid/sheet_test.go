package grid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sheetengine/internal/geom"
)

func TestSetCellValueAndBlankRemoves(t *testing.T) {
	s := NewSheet(geom.SheetID{}, "Sheet1")
	pos := geom.Pos{X: 1, Y: 1}

	prev := s.SetCellValue(pos, Text("hello"))
	require.True(t, prev.IsBlank())
	require.Equal(t, "hello", s.CellValue(pos).Text)

	prev = s.SetCellValue(pos, Blank)
	require.Equal(t, "hello", prev.Text)
	require.True(t, s.CellValue(pos).IsBlank())

	// Blank is never stored: the backing column map
	// must be empty again, not merely reading as blank.
	require.Len(t, s.columns, 0)
}

func TestDisplayValueOverlaysDataTable(t *testing.T) {
	s := NewSheet(geom.SheetID{}, "Sheet1")
	anchor := geom.Pos{X: 1, Y: 1}
	dt := &DataTable{
		Value: ArrayValue([][]CellValue{{NumberFromInt(1), NumberFromInt(2), NumberFromInt(3)}}),
	}
	s.SetDataTable(anchor, dt)

	require.Equal(t, "1", s.DisplayValue(geom.Pos{X: 1, Y: 1}).String())
	require.Equal(t, "2", s.DisplayValue(geom.Pos{X: 2, Y: 1}).String())
	require.Equal(t, "3", s.DisplayValue(geom.Pos{X: 3, Y: 1}).String())
	require.True(t, s.DisplayValue(geom.Pos{X: 4, Y: 1}).IsBlank())
}

func TestChartOutputOnlyTopLeftShowsValue(t *testing.T) {
	s := NewSheet(geom.SheetID{}, "Sheet1")
	anchor := geom.Pos{X: 2, Y: 2}
	dt := &DataTable{
		Value:       SingleValue(Text("<svg/>")),
		ChartWidth:  200,
		ChartHeight: 100,
	}
	s.SetDataTable(anchor, dt)

	require.Equal(t, "<svg/>", s.DisplayValue(anchor).HTML+s.DisplayValue(anchor).Text)
	require.True(t, s.DisplayValue(geom.Pos{X: 3, Y: 2}).IsBlank())
}

func TestRecalculateBoundsCoversCellsAndTables(t *testing.T) {
	s := NewSheet(geom.SheetID{}, "Sheet1")
	s.SetCellValue(geom.Pos{X: 5, Y: 5}, Text("x"))
	s.SetDataTable(geom.Pos{X: 10, Y: 1}, &DataTable{Value: SingleValue(NumberFromInt(1))})

	b := s.Bounds()
	require.Equal(t, int64(5), b.Min.X)
	require.Equal(t, int64(10), b.Max.X)
}

func TestValidateTableNameRejectsDuplicatesAndBadChars(t *testing.T) {
	require.NoError(t, ValidateTableName("Table1", nil))
	require.Error(t, ValidateTableName("1Table", nil))
	require.Error(t, ValidateTableName("Table One", nil))
	require.Error(t, ValidateTableName("table1", []string{"Table1"}))
}
