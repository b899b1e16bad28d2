package grid

import (
	"regexp"
	"strings"

	"sheetengine/internal/geom"
	"sheetengine/internal/sheeterr"
)

// DataTableKind distinguishes a code-cell run output from an imported
// table's output.
type DataTableKind byte

const (
	KindCodeRun DataTableKind = iota
	KindImportTable
)

// CodeRun is the CodeRun variant of DataTable.kind: the materialized result
// of executing a code cell.
type CodeRun struct {
	Language     CodeCellLanguage
	StdOut       string
	StdErr       string
	Error        *sheeterr.Error
	CellsAccessed []geom.SheetRect
	LastModified  int64 // unix nanos, supplied by the caller (no wall-clock reads in this package)
}

// ImportInfo is the Import variant of DataTable.kind.
type ImportInfo struct {
	FileID   string
	FileName string
}

// ColumnHeader describes one column of a DataTable's output.
type ColumnHeader struct {
	Name       string
	Display    bool
	ValueIndex int
}

// TableValue is either a single CellValue or a 2-D array of them.
type TableValue struct {
	Single    *CellValue
	Array     [][]CellValue // Array[row][col]
	Width     int
	Height    int
}

func SingleValue(v CellValue) TableValue {
	return TableValue{Single: &v, Width: 1, Height: 1}
}

func ArrayValue(rows [][]CellValue) TableValue {
	h := len(rows)
	w := 0
	if h > 0 {
		w = len(rows[0])
	}
	return TableValue{Array: rows, Width: w, Height: h}
}

// At returns the value at the local (col, row) offset within the table's
// value region (0-indexed), honoring Single vs Array.
func (tv TableValue) At(col, row int) CellValue {
	if tv.Single != nil {
		if col == 0 && row == 0 {
			return *tv.Single
		}
		return Blank
	}
	if row < 0 || row >= len(tv.Array) {
		return Blank
	}
	cols := tv.Array[row]
	if col < 0 || col >= len(cols) {
		return Blank
	}
	return cols[col]
}

// DataTable is the materialized output of a code cell or import, owned
// exclusively by the Sheet at a single Pos.
type DataTable struct {
	Kind DataTableKind
	Run  CodeRun
	Imp  ImportInfo

	Name  string
	Value TableValue

	ColumnHeaders    []ColumnHeader
	DisplayBuffer    []int // display row -> source row; nil means identity
	HeaderIsFirstRow bool

	ShowUI      bool
	ShowName    bool
	ShowColumns bool

	ChartWidth, ChartHeight int // pixel size for HTML/Image outputs; 0 means "not a chart"

	SpillError bool
	HasError   bool
}

// IsChart reports whether this table's output is an HTML/Image blob that
// occupies a fixed pixel footprint rather than a cell grid.
func (dt *DataTable) IsChart() bool { return dt.ChartWidth > 0 && dt.ChartHeight > 0 }

// uiRows returns how many extra header rows precede the value region.
func (dt *DataTable) uiRows() int64 {
	var n int64
	if dt.ShowName {
		n++
	}
	if dt.ShowColumns {
		n++
	}
	return n
}

// OutputRect returns the rectangle this table occupies when anchored at
// p: p to p + (width-1, height-1+extra header rows). When SpillError is
// set the visible rectangle shrinks to the 1x1 anchor.
func (dt *DataTable) OutputRect(p geom.Pos) geom.Rect {
	if dt.SpillError {
		return geom.RectAt(p)
	}
	w, h := int64(dt.Value.Width), int64(dt.Value.Height)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return geom.RectFromSize(p, w, h+dt.uiRows())
}

// sourceRow maps a display row index to its source row through the
// DisplayBuffer permutation, if any.
func (dt *DataTable) sourceRow(displayRow int) int {
	if dt.DisplayBuffer == nil {
		return displayRow
	}
	if displayRow < 0 || displayRow >= len(dt.DisplayBuffer) {
		return displayRow
	}
	return dt.DisplayBuffer[displayRow]
}

// ValueAt resolves the display value at a local offset (0-indexed from the
// table's top-left, including UI rows), honoring HeaderIsFirstRow, hidden
// columns, and the display buffer.
func (dt *DataTable) ValueAt(localCol, localRow int) CellValue {
	ui := int(dt.uiRows())
	if localRow < ui {
		if dt.ShowName && localRow == 0 {
			return Blank // name row is rendered by the host chrome, not a cell value
		}
		if dt.ShowColumns {
			return dt.columnHeaderValue(localCol)
		}
		return Blank
	}
	if dt.IsChart() {
		if localCol == 0 && localRow == ui {
			return dt.Value.At(0, 0)
		}
		return Blank
	}

	valueRow := localRow - ui
	srcRow := dt.sourceRow(valueRow)
	if dt.HeaderIsFirstRow {
		srcRow++ // row 0 is consumed as the header; data starts at row 1
	}
	col := dt.visibleColumnToSource(localCol)
	if col < 0 {
		return Blank
	}
	return dt.Value.At(col, srcRow)
}

func (dt *DataTable) columnHeaderValue(localCol int) CellValue {
	visible := dt.visibleHeaders()
	if localCol < 0 || localCol >= len(visible) {
		return Blank
	}
	return Text(visible[localCol].Name)
}

// visibleHeaders filters out hidden headers, preserving order.
func (dt *DataTable) visibleHeaders() []ColumnHeader {
	if dt.ColumnHeaders == nil {
		return nil
	}
	out := make([]ColumnHeader, 0, len(dt.ColumnHeaders))
	for _, h := range dt.ColumnHeaders {
		if h.Display {
			out = append(out, h)
		}
	}
	return out
}

// visibleColumnToSource maps a visible column index back to the source
// column (ValueIndex), accounting for hidden headers. With no visible
// headers, localCol is returned unchanged (positional indexing); otherwise
// it returns -1 when localCol is outside the visible headers.
func (dt *DataTable) visibleColumnToSource(localCol int) int {
	visible := dt.visibleHeaders()
	if len(visible) == 0 {
		return localCol
	}
	if localCol < 0 || localCol >= len(visible) {
		return -1
	}
	return visible[localCol].ValueIndex
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateTableName enforces the data table identifier rules: ASCII
// letters, digits and underscore, must start with a letter or underscore,
// and must be unique case-insensitively among existing names.
func ValidateTableName(name string, existing []string) error {
	if name == "" {
		return sheeterr.NewParseError("table name must not be empty")
	}
	if !identifierPattern.MatchString(name) {
		return sheeterr.NewParseError("table name %q is not a valid identifier", name)
	}
	lower := strings.ToLower(name)
	for _, e := range existing {
		if strings.ToLower(e) == lower {
			return sheeterr.NewParseError("table name %q already in use", name)
		}
	}
	return nil
}
