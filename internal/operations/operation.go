// Package operations implements the engine's closed tagged union of
// primitive mutations: each operation knows how to apply itself to a
// grid.Workbook and emit its own inverse. The flat-struct variant layout
// (one Kind tag plus every payload field any variant might use) reuses a
// single struct shape across many operation kinds rather than an
// interface per kind, trading a larger struct for one dispatch switch.
package operations

import (
	"sheetengine/internal/contiguous2d"
	"sheetengine/internal/geom"
	"sheetengine/internal/grid"
)

// Kind tags an Operation's active variant.
type Kind int

const (
	KindSetCellValues Kind = iota
	KindSetCellFormatsA1
	KindSetBordersA1
	KindSetCodeRun
	KindComputeCode
	KindSetChartCellSize
	KindSetChartSize // deprecated; round-tripped losslessly, rejected on new input
	KindAddDataTable
	KindDeleteDataTable
	KindInsertColumn
	KindDeleteColumn
	KindInsertRow
	KindDeleteRow
	KindResizeColumn
	KindResizeRow
	KindAddSheet
	KindDeleteSheet
	KindSetSheetName
	KindSetSheetColor
	KindSetValidation
	KindRemoveValidation
	KindSetCursorA1
	KindSortDataTable
	KindFlattenDataTable
	KindGridToDataTable
	KindDataTableFirstRowAsHeader
	KindInsertDataTableColumns
	KindDeleteDataTableColumns
	KindInsertDataTableRows
	KindDeleteDataTableRows
	KindMoveColumns
	KindMoveRows
	KindDuplicateSheet
	KindReorderSheet
)

func (k Kind) String() string {
	names := map[Kind]string{
		KindSetCellValues: "SetCellValues", KindSetCellFormatsA1: "SetCellFormatsA1",
		KindSetBordersA1: "SetBordersA1", KindSetCodeRun: "SetCodeRun",
		KindComputeCode: "ComputeCode", KindSetChartCellSize: "SetChartCellSize",
		KindSetChartSize: "SetChartSize", KindAddDataTable: "AddDataTable",
		KindDeleteDataTable: "DeleteDataTable", KindInsertColumn: "InsertColumn",
		KindDeleteColumn: "DeleteColumn", KindInsertRow: "InsertRow",
		KindDeleteRow: "DeleteRow", KindResizeColumn: "ResizeColumn",
		KindResizeRow: "ResizeRow", KindAddSheet: "AddSheet",
		KindDeleteSheet: "DeleteSheet", KindSetSheetName: "SetSheetName",
		KindSetSheetColor: "SetSheetColor", KindSetValidation: "SetValidation",
		KindRemoveValidation: "RemoveValidation", KindSetCursorA1: "SetCursorA1",
		KindSortDataTable: "SortDataTable", KindFlattenDataTable: "FlattenDataTable",
		KindGridToDataTable: "GridToDataTable", KindDataTableFirstRowAsHeader: "DataTableFirstRowAsHeader",
		KindInsertDataTableColumns: "InsertDataTableColumns", KindDeleteDataTableColumns: "DeleteDataTableColumns",
		KindInsertDataTableRows: "InsertDataTableRows", KindDeleteDataTableRows: "DeleteDataTableRows",
		KindMoveColumns: "MoveColumns", KindMoveRows: "MoveRows",
		KindDuplicateSheet: "DuplicateSheet", KindReorderSheet: "ReorderSheet",
	}
	if n, ok := names[k]; ok {
		return n
	}
	return "Unknown"
}

// Operation is the flat payload shared by every variant; only the fields
// relevant to Kind are meaningful.
type Operation struct {
	Kind Kind

	SheetPos  geom.SheetPos
	SheetRect geom.SheetRect

	Values [][]grid.CellValue // SetCellValues: rows of values, anchored at SheetPos

	Formats *contiguous2d.Contiguous2D[grid.Format] // SetCellFormatsA1
	Borders *contiguous2d.Contiguous2D[grid.Border] // SetBordersA1

	CodeRun  *grid.CodeRun // SetCodeRun
	CodeLang grid.CodeCellLanguage
	CodeText string

	DataTable *grid.DataTable // AddDataTable / DeleteDataTable's restored value

	Column, Row int64
	CopyFormats bool // InsertColumn/InsertRow: inherit formatting from the preceding column/row

	// TargetColumn / TargetRow: MoveColumns/MoveRows destination index;
	// Column/Row and Width/Height carry the moved band's source index and
	// span, matching InsertColumn/DeleteColumn's (sheet, index) shape.
	TargetColumn, TargetRow int64

	Width, Height int64 // SetChartCellSize / SetChartSize (legacy); also Insert/DeleteDataTableColumns/Rows and MoveColumns/MoveRows span

	Sheet       *grid.Sheet // AddSheet payload / DeleteSheet's restored sheet / DuplicateSheet's clone
	SheetIndex  int
	SheetName   string
	SheetColor  string
	SourceSheet geom.SheetID // DuplicateSheet: sheet being cloned

	Validation   grid.ValidationRule
	ValidationID string

	SortOrder        []int // SortDataTable: DisplayBuffer permutation (display row -> source row)
	HeaderIsFirstRow bool  // DataTableFirstRowAsHeader

	CursorSelection string // opaque A1 selection text; SetCursorA1 never mutates state
}

// IsLegacyChartSize marks an Operation decoded from a pre-existing reverse
// log as the deprecated variant rather than the current SetChartCellSize.
// Applying a SetChartSize emits a reverse that keeps the SetChartSize kind,
// so the deprecated shape round-trips losslessly through undo and redo.
func (op Operation) IsLegacyChartSize() bool { return op.Kind == KindSetChartSize }
