package operations

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sheetengine/internal/contiguous2d"
	"sheetengine/internal/geom"
	"sheetengine/internal/grid"
)

func newTestWorkbook() (*grid.Workbook, geom.SheetID) {
	wb := grid.NewWorkbook()
	id := geom.SheetID{1}
	wb.AddSheet(grid.NewSheet(id, "Sheet1"), 0)
	return wb, id
}

// applyOne is a test helper for variants that always yield exactly one
// reverse operation, so call sites below don't repeat the reverses[0] dance.
func applyOne(t *testing.T, wb *grid.Workbook, op Operation) Operation {
	t.Helper()
	reverses, err := Apply(wb, op)
	require.NoError(t, err)
	require.Len(t, reverses, 1)
	return reverses[0]
}

func TestApplySetCellValuesAndReverseRestores(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.SetCellValue(geom.Pos{X: 1, Y: 1}, grid.Text("before"))

	op := Operation{
		Kind:     KindSetCellValues,
		SheetPos: geom.SheetPos{Sheet: id, Pos: geom.Pos{X: 1, Y: 1}},
		Values:   [][]grid.CellValue{{grid.Text("after")}},
	}
	reverse := applyOne(t, wb, op)
	require.Equal(t, "after", s.CellValue(geom.Pos{X: 1, Y: 1}).Text)

	applyOne(t, wb, reverse)
	require.Equal(t, "before", s.CellValue(geom.Pos{X: 1, Y: 1}).Text)
}

func TestApplyInsertColumnShiftsValueAndReverseUndoes(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.SetCellValue(geom.Pos{X: 3, Y: 3}, grid.Text("C3"))

	op := Operation{Kind: KindInsertColumn, SheetPos: geom.SheetPos{Sheet: id}, Column: 2}
	reverse := applyOne(t, wb, op)
	require.Equal(t, KindDeleteColumn, reverse.Kind)
	require.Equal(t, "C3", s.CellValue(geom.Pos{X: 4, Y: 3}).Text)
	require.True(t, s.CellValue(geom.Pos{X: 3, Y: 3}).IsBlank())

	applyReverseChain(t, wb, []Operation{reverse})
	require.Equal(t, "C3", s.CellValue(geom.Pos{X: 3, Y: 3}).Text)
}

// applyReverseChain replays a compound reverse exactly the way the
// Transaction Controller's Undo does: back to front over the flat log.
func applyReverseChain(t *testing.T, wb *grid.Workbook, reverse []Operation) {
	t.Helper()
	for i := len(reverse) - 1; i >= 0; i-- {
		_, err := Apply(wb, reverse[i])
		require.NoError(t, err)
	}
}

func TestApplyDeleteRowRemovesAndReverseRestoresContent(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.SetCellValue(geom.Pos{X: 1, Y: 5}, grid.Text("row5"))
	s.SetCellValue(geom.Pos{X: 1, Y: 6}, grid.Text("row6"))

	op := Operation{Kind: KindDeleteRow, SheetPos: geom.SheetPos{Sheet: id}, Row: 5}
	reverse, err := Apply(wb, op)
	require.NoError(t, err)
	require.Equal(t, "row6", s.CellValue(geom.Pos{X: 1, Y: 5}).Text)
	require.Equal(t, KindInsertRow, reverse[len(reverse)-1].Kind)

	applyReverseChain(t, wb, reverse)
	require.Equal(t, "row5", s.CellValue(geom.Pos{X: 1, Y: 5}).Text)
	require.Equal(t, "row6", s.CellValue(geom.Pos{X: 1, Y: 6}).Text)
}

func TestApplyDeleteRowReverseRestoresFormatsAndBorders(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.SetCellValue(geom.Pos{X: 2, Y: 5}, grid.Text("v"))
	rowRect := geom.Rect{Min: geom.Pos{X: 1, Y: 5}, Max: geom.Pos{X: 3, Y: 5}}
	s.Formats.SetRect(rowRect, grid.Format{Bold: true})
	s.Borders.SetRect(rowRect, grid.Border{Style: "thin"})

	op := Operation{Kind: KindDeleteRow, SheetPos: geom.SheetPos{Sheet: id}, Row: 5}
	reverse, err := Apply(wb, op)
	require.NoError(t, err)
	require.False(t, s.Formats.Get(geom.Pos{X: 2, Y: 5}).Bold)

	applyReverseChain(t, wb, reverse)
	require.Equal(t, "v", s.CellValue(geom.Pos{X: 2, Y: 5}).Text)
	require.True(t, s.Formats.Get(geom.Pos{X: 2, Y: 5}).Bold)
	require.Equal(t, "thin", s.Borders.Get(geom.Pos{X: 2, Y: 5}).Style)
}

func TestApplyInsertColumnWithCopyFormatsInheritsFromLeftNeighbor(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.Formats.SetRect(geom.Rect{Min: geom.Pos{X: 2, Y: 1}, Max: geom.Pos{X: 2, Y: 5}}, grid.Format{Bold: true})

	op := Operation{Kind: KindInsertColumn, SheetPos: geom.SheetPos{Sheet: id}, Column: 3, CopyFormats: true}
	reverse := applyOne(t, wb, op)
	require.True(t, s.Formats.Get(geom.Pos{X: 3, Y: 2}).Bold)
	require.Equal(t, KindDeleteColumn, reverse.Kind)

	applyOne(t, wb, reverse)
	require.False(t, s.Formats.Get(geom.Pos{X: 3, Y: 2}).Bold)
}

func TestApplyInsertRowWithoutCopyFormatsLeavesNewRowBlank(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.Formats.SetRect(geom.Rect{Min: geom.Pos{X: 1, Y: 2}, Max: geom.Pos{X: 5, Y: 2}}, grid.Format{Italic: true})

	op := Operation{Kind: KindInsertRow, SheetPos: geom.SheetPos{Sheet: id}, Row: 3}
	applyOne(t, wb, op)
	require.False(t, s.Formats.Get(geom.Pos{X: 1, Y: 3}).Italic)
}

func TestApplyDeleteColumnReverseRestoresContent(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.SetCellValue(geom.Pos{X: 5, Y: 1}, grid.Text("col5"))
	s.SetCellValue(geom.Pos{X: 5, Y: 2}, grid.Text("col5b"))
	s.Formats.SetRect(geom.Rect{Min: geom.Pos{X: 5, Y: 1}, Max: geom.Pos{X: 5, Y: 2}}, grid.Format{Italic: true})

	op := Operation{Kind: KindDeleteColumn, SheetPos: geom.SheetPos{Sheet: id}, Column: 5}
	reverse, err := Apply(wb, op)
	require.NoError(t, err)
	require.True(t, s.CellValue(geom.Pos{X: 5, Y: 1}).IsBlank())

	applyReverseChain(t, wb, reverse)
	require.Equal(t, "col5", s.CellValue(geom.Pos{X: 5, Y: 1}).Text)
	require.Equal(t, "col5b", s.CellValue(geom.Pos{X: 5, Y: 2}).Text)
	require.True(t, s.Formats.Get(geom.Pos{X: 5, Y: 1}).Italic)
}

func TestApplyDeleteRowOnBlankRowYieldsNoValueReverse(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.SetCellValue(geom.Pos{X: 1, Y: 1}, grid.Text("anchor"))

	op := Operation{Kind: KindDeleteRow, SheetPos: geom.SheetPos{Sheet: id}, Row: 50}
	reverse, err := Apply(wb, op)
	require.NoError(t, err)
	require.Len(t, reverse, 1)
	require.Equal(t, KindInsertRow, reverse[0].Kind)
}

func TestApplySetCellFormatsA1RoundTrips(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	rect := geom.NewRect(geom.Pos{X: 1, Y: 1}, geom.Pos{X: 2, Y: 2})
	s.Formats.SetRect(rect, grid.Format{Bold: true})

	newFormats := contiguous2d.New(grid.Format{})
	newFormats.SetRect(rect, grid.Format{Italic: true})

	op := Operation{Kind: KindSetCellFormatsA1, SheetRect: geom.SheetRect{Sheet: id, Rect: rect}, Formats: newFormats}
	reverse := applyOne(t, wb, op)
	require.True(t, s.Formats.Get(geom.Pos{X: 1, Y: 1}).Italic)

	applyOne(t, wb, reverse)
	require.True(t, s.Formats.Get(geom.Pos{X: 1, Y: 1}).Bold)
}

func TestApplySetCellFormatsA1SplitsOversizedRect(t *testing.T) {
	wb, id := newTestWorkbook()
	rect := geom.Rect{Min: geom.Pos{X: 1, Y: 1}, Max: geom.Pos{X: 2, Y: 1 + MaxOperationSizeColRow}}
	formats := contiguous2d.New(grid.Format{})
	formats.SetRect(rect, grid.Format{Bold: true})

	op := Operation{Kind: KindSetCellFormatsA1, SheetRect: geom.SheetRect{Sheet: id, Rect: rect}, Formats: formats}
	reverses, err := Apply(wb, op)
	require.NoError(t, err)
	require.Greater(t, len(reverses), 1)
}

func TestApplyAddAndDeleteDataTableReverse(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	dt := &grid.DataTable{Name: "Result", Value: grid.SingleValue(grid.NumberFromInt(7))}

	op := Operation{Kind: KindAddDataTable, SheetPos: geom.SheetPos{Sheet: id, Pos: geom.Pos{X: 1, Y: 1}}, DataTable: dt}
	reverse := applyOne(t, wb, op)
	require.Equal(t, KindDeleteDataTable, reverse.Kind)
	got, ok := s.DataTableAt(geom.Pos{X: 1, Y: 1})
	require.True(t, ok)
	require.Equal(t, "Result", got.Name)

	applyOne(t, wb, reverse)
	_, ok = s.DataTableAt(geom.Pos{X: 1, Y: 1})
	require.False(t, ok)
}

func TestApplyAddSheetAndDeleteSheetReverse(t *testing.T) {
	wb, _ := newTestWorkbook()
	newID := geom.SheetID{2}
	op := Operation{Kind: KindAddSheet, Sheet: grid.NewSheet(newID, "Second"), SheetIndex: 1}
	reverse := applyOne(t, wb, op)
	require.Equal(t, KindDeleteSheet, reverse.Kind)
	_, ok := wb.Sheet(newID)
	require.True(t, ok)

	applyOne(t, wb, reverse)
	_, ok = wb.Sheet(newID)
	require.False(t, ok)
}

func TestApplyDuplicateSheetClonesContentAndReverseRemoves(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.SetCellValue(geom.Pos{X: 1, Y: 1}, grid.Text("original"))

	newID := geom.SheetID{2}
	op := Operation{Kind: KindDuplicateSheet, SourceSheet: id, Sheet: &grid.Sheet{ID: newID}, SheetName: "Copy", SheetIndex: 1}
	reverse := applyOne(t, wb, op)
	require.Equal(t, KindDeleteSheet, reverse.Kind)

	clone, ok := wb.Sheet(newID)
	require.True(t, ok)
	require.Equal(t, "original", clone.CellValue(geom.Pos{X: 1, Y: 1}).Text)

	applyOne(t, wb, reverse)
	_, ok = wb.Sheet(newID)
	require.False(t, ok)
}

func TestApplyReorderSheetMovesIndexAndReverseRestoresIt(t *testing.T) {
	wb, id := newTestWorkbook()
	second := geom.SheetID{2}
	wb.AddSheet(grid.NewSheet(second, "Second"), 1)

	op := Operation{Kind: KindReorderSheet, Sheet: &grid.Sheet{ID: id}, SheetIndex: 1}
	reverse := applyOne(t, wb, op)
	require.Equal(t, KindReorderSheet, reverse.Kind)
	require.Equal(t, 0, reverse.SheetIndex)

	applyOne(t, wb, reverse)
}

func TestApplySetChartCellSizeReverse(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	dt := &grid.DataTable{Value: grid.SingleValue(grid.Blank), ChartWidth: 100, ChartHeight: 50}
	s.SetDataTable(geom.Pos{X: 1, Y: 1}, dt)

	op := Operation{Kind: KindSetChartCellSize, SheetPos: geom.SheetPos{Sheet: id, Pos: geom.Pos{X: 1, Y: 1}}, Width: 200, Height: 150}
	reverse := applyOne(t, wb, op)
	require.Equal(t, 200, dt.ChartWidth)

	applyOne(t, wb, reverse)
	require.Equal(t, 100, dt.ChartWidth)
	require.Equal(t, 50, dt.ChartHeight)
}

func TestApplySetAndRemoveValidation(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	rect := geom.NewRect(geom.Pos{X: 1, Y: 1}, geom.Pos{X: 1, Y: 10})
	rule := grid.ValidationRule{ID: "v1", Range: rect, Kind: grid.ValidationList, Values: []string{"a", "b"}}

	op := Operation{Kind: KindSetValidation, SheetRect: geom.SheetRect{Sheet: id, Rect: rect}, Validation: rule}
	reverse := applyOne(t, wb, op)
	require.Equal(t, KindRemoveValidation, reverse.Kind)
	require.Len(t, s.Validations, 1)

	applyOne(t, wb, reverse)
	require.Len(t, s.Validations, 0)
}

func TestApplySortDataTableSetsDisplayBufferAndReverseRestoresIt(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	dt := &grid.DataTable{Name: "T", Value: grid.ArrayValue([][]grid.CellValue{{grid.NumberFromInt(3)}, {grid.NumberFromInt(1)}})}
	anchor := geom.Pos{X: 1, Y: 1}
	s.SetDataTable(anchor, dt)

	op := Operation{Kind: KindSortDataTable, SheetPos: geom.SheetPos{Sheet: id, Pos: anchor}, SortOrder: []int{1, 0}}
	reverse := applyOne(t, wb, op)
	require.Equal(t, []int{1, 0}, dt.DisplayBuffer)
	require.Nil(t, reverse.SortOrder)

	applyOne(t, wb, reverse)
	require.Nil(t, dt.DisplayBuffer)
}

func TestApplyDataTableFirstRowAsHeaderToggleAndReverse(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	dt := &grid.DataTable{Name: "T", Value: grid.ArrayValue([][]grid.CellValue{{grid.Text("h")}, {grid.Text("v")}})}
	anchor := geom.Pos{X: 1, Y: 1}
	s.SetDataTable(anchor, dt)

	op := Operation{Kind: KindDataTableFirstRowAsHeader, SheetPos: geom.SheetPos{Sheet: id, Pos: anchor}, HeaderIsFirstRow: true}
	reverse := applyOne(t, wb, op)
	require.True(t, dt.HeaderIsFirstRow)
	require.False(t, reverse.HeaderIsFirstRow)

	applyOne(t, wb, reverse)
	require.False(t, dt.HeaderIsFirstRow)
}

func TestApplyFlattenDataTableAndReverseRestoresTable(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	dt := &grid.DataTable{Kind: grid.KindCodeRun, Name: "T", Value: grid.ArrayValue([][]grid.CellValue{{grid.NumberFromInt(1), grid.NumberFromInt(2)}})}
	anchor := geom.SheetPos{Sheet: id, Pos: geom.Pos{X: 1, Y: 1}}
	s.SetDataTable(anchor.Pos, dt)

	flattenOp := Operation{Kind: KindFlattenDataTable, SheetPos: anchor}
	reverse, err := Apply(wb, flattenOp)
	require.NoError(t, err)
	_, hasTable := s.DataTableAt(anchor.Pos)
	require.False(t, hasTable)
	require.Equal(t, int64(1), s.CellValue(geom.Pos{X: 1, Y: 1}).Number.IntPart())

	applyReverseChain(t, wb, reverse)
	_, hasTable = s.DataTableAt(anchor.Pos)
	require.True(t, hasTable)
	require.True(t, s.CellValue(geom.Pos{X: 1, Y: 1}).IsBlank())
}

func TestApplyGridToDataTableWrapsRangeAndReverseRestoresCells(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.SetCellValue(geom.Pos{X: 1, Y: 1}, grid.Text("a"))
	s.SetCellValue(geom.Pos{X: 2, Y: 1}, grid.Text("b"))

	rect := geom.Rect{Min: geom.Pos{X: 1, Y: 1}, Max: geom.Pos{X: 2, Y: 1}}
	op := Operation{Kind: KindGridToDataTable, SheetRect: geom.SheetRect{Sheet: id, Rect: rect}, DataTable: &grid.DataTable{Name: "Wrapped"}}
	reverse, err := Apply(wb, op)
	require.NoError(t, err)
	dt, ok := s.DataTableAt(rect.Min)
	require.True(t, ok)
	require.Equal(t, "Wrapped", dt.Name)

	applyReverseChain(t, wb, reverse)
	_, ok = s.DataTableAt(rect.Min)
	require.False(t, ok)
	require.Equal(t, "a", s.CellValue(geom.Pos{X: 1, Y: 1}).Text)
	require.Equal(t, "b", s.CellValue(geom.Pos{X: 2, Y: 1}).Text)
}

func TestApplyInsertAndDeleteDataTableColumnsReverse(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	dt := &grid.DataTable{Name: "T", Value: grid.ArrayValue([][]grid.CellValue{{grid.NumberFromInt(1), grid.NumberFromInt(2)}})}
	anchor := geom.Pos{X: 1, Y: 1}
	s.SetDataTable(anchor, dt)

	insertOp := Operation{Kind: KindInsertDataTableColumns, SheetPos: geom.SheetPos{Sheet: id, Pos: anchor}, Column: 1, Width: 1}
	reverse := applyOne(t, wb, insertOp)
	require.Equal(t, 3, dt.Value.Width)
	require.Equal(t, KindDeleteDataTableColumns, reverse.Kind)

	applyOne(t, wb, reverse)
	require.Equal(t, 2, dt.Value.Width)
	require.Equal(t, int64(2), dt.Value.Array[0][1].Number.IntPart())
}

func TestApplyInsertAndDeleteDataTableRowsReverse(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	dt := &grid.DataTable{Name: "T", Value: grid.ArrayValue([][]grid.CellValue{{grid.NumberFromInt(1)}, {grid.NumberFromInt(2)}})}
	anchor := geom.Pos{X: 1, Y: 1}
	s.SetDataTable(anchor, dt)

	deleteOp := Operation{Kind: KindDeleteDataTableRows, SheetPos: geom.SheetPos{Sheet: id, Pos: anchor}, Row: 0, Height: 1}
	reverse := applyOne(t, wb, deleteOp)
	require.Equal(t, 1, dt.Value.Height)
	require.Equal(t, KindInsertDataTableRows, reverse.Kind)

	applyOne(t, wb, reverse)
	require.Equal(t, 2, dt.Value.Height)
	require.Equal(t, int64(1), dt.Value.Array[0][0].Number.IntPart())
}

func TestApplyMoveColumnsRelocatesContentAndReverseUndoes(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.SetCellValue(geom.Pos{X: 1, Y: 1}, grid.Text("a"))
	s.SetCellValue(geom.Pos{X: 2, Y: 1}, grid.Text("b"))
	s.SetCellValue(geom.Pos{X: 3, Y: 1}, grid.Text("c"))

	op := Operation{Kind: KindMoveColumns, SheetPos: geom.SheetPos{Sheet: id}, Column: 1, TargetColumn: 4, Width: 1}
	reverse := applyOne(t, wb, op)
	require.Equal(t, "b", s.CellValue(geom.Pos{X: 1, Y: 1}).Text)
	require.Equal(t, "a", s.CellValue(geom.Pos{X: 3, Y: 1}).Text)

	applyOne(t, wb, reverse)
	require.Equal(t, "a", s.CellValue(geom.Pos{X: 1, Y: 1}).Text)
	require.Equal(t, "b", s.CellValue(geom.Pos{X: 2, Y: 1}).Text)
	require.Equal(t, "c", s.CellValue(geom.Pos{X: 3, Y: 1}).Text)
}

func TestApplyMoveRowsRelocatesContentAndReverseUndoes(t *testing.T) {
	wb, id := newTestWorkbook()
	s, _ := wb.Sheet(id)
	s.SetCellValue(geom.Pos{X: 1, Y: 1}, grid.Text("a"))
	s.SetCellValue(geom.Pos{X: 1, Y: 2}, grid.Text("b"))
	s.SetCellValue(geom.Pos{X: 1, Y: 3}, grid.Text("c"))

	op := Operation{Kind: KindMoveRows, SheetPos: geom.SheetPos{Sheet: id}, Row: 1, TargetRow: 4, Height: 1}
	reverse := applyOne(t, wb, op)
	require.Equal(t, "b", s.CellValue(geom.Pos{X: 1, Y: 1}).Text)
	require.Equal(t, "a", s.CellValue(geom.Pos{X: 1, Y: 3}).Text)

	applyOne(t, wb, reverse)
	require.Equal(t, "a", s.CellValue(geom.Pos{X: 1, Y: 1}).Text)
	require.Equal(t, "b", s.CellValue(geom.Pos{X: 1, Y: 2}).Text)
	require.Equal(t, "c", s.CellValue(geom.Pos{X: 1, Y: 3}).Text)
}

func TestApplyUnknownSheetReturnsError(t *testing.T) {
	wb, _ := newTestWorkbook()
	op := Operation{Kind: KindSetCellValues, SheetPos: geom.SheetPos{Sheet: geom.SheetID{9}}, Values: [][]grid.CellValue{{grid.Text("x")}}}
	_, err := Apply(wb, op)
	require.Error(t, err)
}
