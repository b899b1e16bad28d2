// Package a1 implements A1-style cell reference parsing, printing,
// intersection, and insert/delete shifting, including
// table-scoped references resolved against a live TableMap.
package a1

import (
	"sheetengine/internal/geom"
)

// CellRefCoord is one coordinate (a column or a row) of a parsed reference.
// IsAbsolute records whether the source text carried a `$` prefix; Coord is
// always the concrete 1-indexed coordinate (geom.Unbounded for an open
// end). Distinguishing Relative/Absolute only by a flag on a concrete
// coordinate, rather than storing relative offsets as deltas from a
// formula's home cell, is a deliberate simplification: this engine does
// not implement formula fill-copy (which is what makes the delta
// representation pay for itself upstream), so the flag only needs to
// survive print round-trips and insert/delete shifting, both of which
// operate on concrete coordinates either way.
type CellRefCoord struct {
	Coord      int64
	IsAbsolute bool
}

func Absolute(coord int64) CellRefCoord { return CellRefCoord{Coord: coord, IsAbsolute: true} }
func Relative(coord int64) CellRefCoord { return CellRefCoord{Coord: coord, IsAbsolute: false} }

// shiftInsert and shiftDelete adjust the coordinate for an insertion or a
// deletion at index at: shiftInsert saturates at geom.Unbounded and
// shiftDelete never goes below 1.
func (c CellRefCoord) shiftInsert(at int64) CellRefCoord {
	if c.Coord >= at {
		c.Coord = satIncCoord(c.Coord)
	}
	return c
}

func (c CellRefCoord) shiftDelete(at int64) CellRefCoord {
	if c.Coord > at {
		c.Coord--
		if c.Coord < 1 {
			c.Coord = 1
		}
	}
	return c
}

func satIncCoord(x int64) int64 {
	if x >= geom.Unbounded {
		return geom.Unbounded
	}
	return x + 1
}

// CellCoordPair is a (column, row) pair of CellRefCoords.
type CellCoordPair struct {
	Col, Row CellRefCoord
}

// RefRangeBounds is a start/end pair of coordinate pairs describing a plain
// cell, a finite rectangle, an entire row/rows, an entire column/columns,
// or the whole sheet.
type RefRangeBounds struct {
	Start, End CellCoordPair
}

// SingleCell returns a RefRangeBounds covering exactly one cell.
func SingleCell(col, row CellRefCoord) RefRangeBounds {
	return RefRangeBounds{Start: CellCoordPair{Col: col, Row: row}, End: CellCoordPair{Col: col, Row: row}}
}

// IsSingleCell reports whether start == end.
func (b RefRangeBounds) IsSingleCell() bool {
	return b.Start.Col.Coord == b.End.Col.Coord && b.Start.Row.Coord == b.End.Row.Coord
}

// IsAllCells reports whether this bounds spans the entire sheet.
func (b RefRangeBounds) IsAllCells() bool {
	return b.Start.Col.Coord == 1 && b.Start.Row.Coord == 1 &&
		b.End.Col.Coord == geom.Unbounded && b.End.Row.Coord == geom.Unbounded
}

// IsFullColumns reports whether this bounds spans every row (one or more
// whole columns).
func (b RefRangeBounds) IsFullColumns() bool {
	return b.Start.Row.Coord == 1 && b.End.Row.Coord == geom.Unbounded && b.End.Col.Coord != geom.Unbounded
}

// IsFullRows reports whether this bounds spans every column (one or more
// whole rows).
func (b RefRangeBounds) IsFullRows() bool {
	return b.Start.Col.Coord == 1 && b.End.Col.Coord == geom.Unbounded && b.End.Row.Coord != geom.Unbounded
}

// ToRect converts bounds to a geom.Rect, clamping unbounded ends to
// geom.Unbounded (callers that need a finite working rectangle should
// intersect with the sheet's bounds first).
func (b RefRangeBounds) ToRect() geom.Rect {
	return geom.Rect{
		Min: geom.Pos{X: b.Start.Col.Coord, Y: b.Start.Row.Coord},
		Max: geom.Pos{X: b.End.Col.Coord, Y: b.End.Row.Coord},
	}
}

// TableColumnFilter selects a subset of a table's columns; nil means "all
// columns".
type TableColumnFilter struct {
	Columns        []string
	IncludeHeaders bool
}

// CellRefRange is either a plain Sheet range or a Table-scoped reference.
type CellRefRange struct {
	IsTable bool

	// Sheet variant
	Range RefRangeBounds

	// Table variant
	TableName    string
	ColumnFilter *TableColumnFilter
	// RowFilterAll is true for "all data rows"; specific row subsets are
	// not modeled, beyond the common case.
	RowFilterAll bool
}

func SheetRange(b RefRangeBounds) CellRefRange {
	return CellRefRange{Range: b}
}

func TableRange(name string, cols *TableColumnFilter) CellRefRange {
	return CellRefRange{IsTable: true, TableName: name, ColumnFilter: cols, RowFilterAll: true}
}

// TableMap resolves a table-scoped reference to a concrete rectangle on a
// concrete sheet, consulted at resolution time rather than mutated by
// row/column insertion (open question: table ranges are not
// shifted here).
type TableMap interface {
	// Lookup returns the sheet and output rectangle of the named table,
	// optionally narrowed to the given column filter.
	Lookup(name string, cols *TableColumnFilter) (geom.SheetID, geom.Rect, bool)
}

// SheetNameIdMap resolves sheet names to ids case-insensitively, for
// parsing `SheetName!...` prefixes.
type SheetNameIdMap interface {
	SheetIDByName(name string) (geom.SheetID, bool)
	SheetNameByID(id geom.SheetID) (string, bool)
}

// A1Selection is an ordered list of ranges plus a cursor. Every range adds
// cells to the selection; there is no subtracting ("exclude cells") range,
// so range order does not change which cells MightContain reports.
type A1Selection struct {
	Sheet  geom.SheetID
	Ranges []CellRefRange
	Cursor geom.Pos
}
