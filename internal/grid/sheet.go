package grid

import (
	"sheetengine/internal/contiguous2d"
	"sheetengine/internal/geom"
	"sheetengine/internal/offsets"
)

// Format is a placeholder cell-format payload; the real engine's format set
// (bold/italic/fill/number-format/...) is UI-adjacent policy this core does
// not define, but the Contiguous2D slot it lives in is exercised end to end
// with this minimal stand-in.
type Format struct {
	Bold, Italic bool
	FillColor    string
}

// Border is the payload stored in Sheet.Borders.
type Border struct {
	Style string
	Color string
}

// ValidationRuleKind is the minimal data-validation rule catalog: a cell
// can be constrained to a value list, a checkbox, or a text-length range;
// a cell covered by no rule is unvalidated.
type ValidationRuleKind byte

const (
	ValidationList ValidationRuleKind = iota
	ValidationCheckbox
	ValidationTextLength
)

type ValidationRule struct {
	ID     string
	Range  geom.Rect
	Kind   ValidationRuleKind
	Values []string // for ValidationList
	Min    int       // for ValidationTextLength
	Max    int
}

// Sheet owns one spreadsheet tab's cell storage, data tables, formats,
// borders, column/row sizing, and validations.
type Sheet struct {
	ID    geom.SheetID
	Name  string
	Color string
	Order int

	columns    map[int64]map[int64]CellValue
	dataTables map[geom.Pos]*DataTable
	// tableOrder records insertion order of dataTables, needed by the
	// spill detector's "checked in insertion order" rule.
	tableOrder []geom.Pos

	Formats *contiguous2d.Contiguous2D[Format]
	Borders *contiguous2d.Contiguous2D[Border]
	Offsets *offsets.SheetOffsets

	Validations []ValidationRule

	bounds      geom.Rect
	boundsValid bool
}

func NewSheet(id geom.SheetID, name string) *Sheet {
	return &Sheet{
		ID:         id,
		Name:       name,
		columns:    make(map[int64]map[int64]CellValue),
		dataTables: make(map[geom.Pos]*DataTable),
		Formats:    contiguous2d.New(Format{}),
		Borders:    contiguous2d.New(Border{}),
		Offsets:    offsets.New(),
	}
}

// SetCellValue updates the column store and returns the previous value. A
// Blank value removes the entry.
// Emits no operation itself; the Transaction Controller wraps the call.
func (s *Sheet) SetCellValue(pos geom.Pos, value CellValue) CellValue {
	prev := s.CellValue(pos)
	if value.IsBlank() {
		if col, ok := s.columns[pos.X]; ok {
			delete(col, pos.Y)
			if len(col) == 0 {
				delete(s.columns, pos.X)
			}
		}
	} else {
		col, ok := s.columns[pos.X]
		if !ok {
			col = make(map[int64]CellValue)
			s.columns[pos.X] = col
		}
		col[pos.Y] = value
	}
	s.boundsValid = false
	return prev
}

// CellValue returns the raw stored value at pos (no DataTable overlay).
func (s *Sheet) CellValue(pos geom.Pos) CellValue {
	if col, ok := s.columns[pos.X]; ok {
		if v, ok := col[pos.Y]; ok {
			return v
		}
	}
	return Blank
}

// DataTableAt returns the DataTable anchored exactly at pos, if any.
func (s *Sheet) DataTableAt(pos geom.Pos) (*DataTable, bool) {
	dt, ok := s.dataTables[pos]
	return dt, ok
}

// SetDataTable inserts or removes the DataTable at pos, returning the
// previous one (nil if none).
func (s *Sheet) SetDataTable(pos geom.Pos, dt *DataTable) *DataTable {
	prev := s.dataTables[pos]
	if dt == nil {
		delete(s.dataTables, pos)
		s.removeFromOrder(pos)
	} else {
		if prev == nil {
			s.tableOrder = append(s.tableOrder, pos)
		}
		s.dataTables[pos] = dt
	}
	s.boundsValid = false
	return prev
}

func (s *Sheet) removeFromOrder(pos geom.Pos) {
	for i, p := range s.tableOrder {
		if p == pos {
			s.tableOrder = append(s.tableOrder[:i], s.tableOrder[i+1:]...)
			return
		}
	}
}

// TablesInOrder returns every data-table anchor in insertion order, the
// order the spill detector walks; DataTableAt looks up each table.
func (s *Sheet) TablesInOrder() []geom.Pos {
	return append([]geom.Pos{}, s.tableOrder...)
}

// tableOwning returns the DataTable (and its anchor) whose output rectangle
// contains pos, if any.
func (s *Sheet) tableOwning(pos geom.Pos) (geom.Pos, *DataTable, bool) {
	for _, anchor := range s.tableOrder {
		dt := s.dataTables[anchor]
		if dt.OutputRect(anchor).Contains(pos) {
			return anchor, dt, true
		}
	}
	return geom.Pos{}, nil, false
}

// DisplayValue is the canonical read path: DataTable overlays
// take priority over the raw grid cell, with chart outputs only showing a
// value at their top-left.
func (s *Sheet) DisplayValue(pos geom.Pos) CellValue {
	if anchor, dt, ok := s.tableOwning(pos); ok {
		local := geom.Pos{X: pos.X - anchor.X, Y: pos.Y - anchor.Y}
		if dt.IsChart() && local != (geom.Pos{}) {
			return Blank
		}
		return dt.ValueAt(int(local.X), int(local.Y))
	}
	return s.CellValue(pos)
}

// RecalculateBounds rebuilds the cached content bounding rectangle by
// scanning columns and data tables. Bounds calls it only when the cache is
// stale.
func (s *Sheet) RecalculateBounds() geom.Rect {
	first := true
	var b geom.Rect
	grow := func(r geom.Rect) {
		if first {
			b = r
			first = false
			return
		}
		if r.Min.X < b.Min.X {
			b.Min.X = r.Min.X
		}
		if r.Min.Y < b.Min.Y {
			b.Min.Y = r.Min.Y
		}
		if r.Max.X > b.Max.X {
			b.Max.X = r.Max.X
		}
		if r.Max.Y > b.Max.Y {
			b.Max.Y = r.Max.Y
		}
	}
	for x, col := range s.columns {
		for y := range col {
			grow(geom.RectAt(geom.Pos{X: x, Y: y}))
		}
	}
	for anchor, dt := range s.dataTables {
		grow(dt.OutputRect(anchor))
	}
	s.bounds = b
	s.boundsValid = true
	return b
}

// Bounds returns the cached bounds, recomputing lazily if stale.
func (s *Sheet) Bounds() geom.Rect {
	if !s.boundsValid {
		return s.RecalculateBounds()
	}
	return s.bounds
}

// InsertColumn shifts every stored cell, data table anchor, format/border
// run, and column-width override at or after col right by one. Returns
// nothing to undo directly; the caller records the reverse as a
// DeleteColumn at the same index.
func (s *Sheet) InsertColumn(col int64) {
	newColumns := make(map[int64]map[int64]CellValue, len(s.columns))
	for x, c := range s.columns {
		if x >= col {
			x++
		}
		newColumns[x] = c
	}
	s.columns = newColumns

	newTables := make(map[geom.Pos]*DataTable, len(s.dataTables))
	for i, p := range s.tableOrder {
		dt := s.dataTables[p]
		if p.X >= col {
			p.X++
		}
		newTables[p] = dt
		s.tableOrder[i] = p
	}
	s.dataTables = newTables

	s.Formats.InsertColumn(col)
	s.Borders.InsertColumn(col)
	s.Offsets.InsertColumn(col)
	s.boundsValid = false
}

// DeleteColumn removes col, shifting every stored cell, data table anchor,
// format/border run, and column-width override after it left by one.
func (s *Sheet) DeleteColumn(col int64) {
	newColumns := make(map[int64]map[int64]CellValue, len(s.columns))
	for x, c := range s.columns {
		if x == col {
			continue
		}
		if x > col {
			x--
		}
		newColumns[x] = c
	}
	s.columns = newColumns

	newTables := make(map[geom.Pos]*DataTable, len(s.dataTables))
	newOrder := s.tableOrder[:0:0]
	for _, p := range s.tableOrder {
		dt := s.dataTables[p]
		if p.X == col {
			continue
		}
		if p.X > col {
			p.X--
		}
		newTables[p] = dt
		newOrder = append(newOrder, p)
	}
	s.dataTables = newTables
	s.tableOrder = newOrder

	s.Formats.DeleteColumn(col)
	s.Borders.DeleteColumn(col)
	s.Offsets.DeleteColumn(col)
	s.boundsValid = false
}

// InsertRow is the row analogue of InsertColumn.
func (s *Sheet) InsertRow(row int64) {
	for _, col := range s.columns {
		newCol := make(map[int64]CellValue, len(col))
		for y, v := range col {
			if y >= row {
				y++
			}
			newCol[y] = v
		}
		for y := range col {
			delete(col, y)
		}
		for y, v := range newCol {
			col[y] = v
		}
	}

	newTables := make(map[geom.Pos]*DataTable, len(s.dataTables))
	for i, p := range s.tableOrder {
		dt := s.dataTables[p]
		if p.Y >= row {
			p.Y++
			s.tableOrder[i] = p
		}
		newTables[p] = dt
	}
	s.dataTables = newTables

	s.Formats.InsertRow(row)
	s.Borders.InsertRow(row)
	s.Offsets.InsertRow(row)
	s.boundsValid = false
}

// DeleteRow is the row analogue of DeleteColumn.
func (s *Sheet) DeleteRow(row int64) {
	for x, col := range s.columns {
		newCol := make(map[int64]CellValue, len(col))
		for y, v := range col {
			if y == row {
				continue
			}
			if y > row {
				y--
			}
			newCol[y] = v
		}
		if len(newCol) == 0 {
			delete(s.columns, x)
		} else {
			s.columns[x] = newCol
		}
	}

	newTables := make(map[geom.Pos]*DataTable, len(s.dataTables))
	newOrder := s.tableOrder[:0:0]
	for _, p := range s.tableOrder {
		dt := s.dataTables[p]
		if p.Y == row {
			continue
		}
		if p.Y > row {
			p.Y--
		}
		newTables[p] = dt
		newOrder = append(newOrder, p)
	}
	s.dataTables = newTables
	s.tableOrder = newOrder

	s.Formats.DeleteRow(row)
	s.Borders.DeleteRow(row)
	s.Offsets.DeleteRow(row)
	s.boundsValid = false
}

// Clone deep-copies the sheet's cell content, data tables, formats,
// borders, and validations under a new identity, for DuplicateSheet.
// Column widths and row heights are not cloned: SheetOffsets keeps its
// override list private with no exposed copy, so a duplicated sheet starts
// with default sizing rather than inheriting the source's.
func (s *Sheet) Clone(newID geom.SheetID, newName string) *Sheet {
	out := NewSheet(newID, newName)
	out.Color = s.Color

	for x, col := range s.columns {
		newCol := make(map[int64]CellValue, len(col))
		for y, v := range col {
			newCol[y] = v
		}
		out.columns[x] = newCol
	}

	for _, p := range s.tableOrder {
		dt := *s.dataTables[p]
		if dt.Value.Array != nil {
			rows := make([][]CellValue, len(dt.Value.Array))
			for i, r := range dt.Value.Array {
				rows[i] = append([]CellValue(nil), r...)
			}
			dt.Value.Array = rows
		}
		dt.ColumnHeaders = append([]ColumnHeader(nil), dt.ColumnHeaders...)
		dt.DisplayBuffer = append([]int(nil), dt.DisplayBuffer...)
		out.dataTables[p] = &dt
		out.tableOrder = append(out.tableOrder, p)
	}

	for _, rv := range s.Formats.ToRects() {
		out.Formats.SetRect(rv.Rect, rv.Value)
	}
	for _, rv := range s.Borders.ToRects() {
		out.Borders.SetRect(rv.Rect, rv.Value)
	}

	out.Validations = append([]ValidationRule{}, s.Validations...)
	out.boundsValid = false
	return out
}

// LastNonBlankRow scans row by row from row y down to the sheet's last
// content row, checking columns x through x+w-1, and returns the last row
// with any non-blank display value (y-1 if none), used by a
// GetCells request that leaves height unspecified.
func (s *Sheet) LastNonBlankRow(x, y, w int64) int64 {
	last := y - 1
	b := s.Bounds()
	scanTo := b.Max.Y
	if scanTo < y {
		return last
	}
	for row := y; row <= scanTo; row++ {
		rowHasContent := false
		for col := x; col < x+w; col++ {
			if !s.DisplayValue(geom.Pos{X: col, Y: row}).IsBlank() {
				rowHasContent = true
				break
			}
		}
		if rowHasContent {
			last = row
		}
	}
	return last
}
