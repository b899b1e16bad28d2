// Package offsets implements per-sheet column widths and row heights.
// Overrides are kept in a sorted slice rather than a balanced tree, since
// the set of explicitly resized rows/columns is typically small: a single
// width/height lookup is a binary search over it, while pixel positions are
// a linear pass over the overrides and pixel->cell conversion
// (ColumnFromX/RowFromY) steps through indices one at a time from 1, so its
// cost grows with the index returned rather than being O(log N).
// Insert/delete shift the slice, which is linear in the number of
// *overrides*, not in the sheet's extent.
package offsets

import "sort"

const (
	DefaultColumnWidth = 100.0
	DefaultRowHeight   = 21.0
)

type override struct {
	index int64
	size  float64
}

// Axis holds one dimension (columns or rows) of a SheetOffsets.
type axis struct {
	def       float64
	overrides []override // sorted by index
}

func newAxis(def float64) *axis { return &axis{def: def} }

func (a *axis) find(index int64) int {
	return sort.Search(len(a.overrides), func(i int) bool { return a.overrides[i].index >= index })
}

func (a *axis) size(index int64) float64 {
	i := a.find(index)
	if i < len(a.overrides) && a.overrides[i].index == index {
		return a.overrides[i].size
	}
	return a.def
}

func (a *axis) set(index int64, size float64) (prev float64, changed bool) {
	i := a.find(index)
	prev = a.def
	if i < len(a.overrides) && a.overrides[i].index == index {
		prev = a.overrides[i].size
	}
	if size == a.def {
		if i < len(a.overrides) && a.overrides[i].index == index {
			a.overrides = append(a.overrides[:i], a.overrides[i+1:]...)
		}
		return prev, prev != size
	}
	if i < len(a.overrides) && a.overrides[i].index == index {
		a.overrides[i].size = size
	} else {
		a.overrides = append(a.overrides, override{})
		copy(a.overrides[i+1:], a.overrides[i:])
		a.overrides[i] = override{index: index, size: size}
	}
	return prev, prev != size
}

// position returns the pixel offset of the start of index, i.e. the sum of
// sizes of every index strictly before it.
func (a *axis) position(index int64) float64 {
	pos := 0.0
	for _, ov := range a.overrides {
		if ov.index >= index {
			break
		}
		pos += ov.size - a.def
	}
	pos += a.def * float64(index-1)
	return pos
}

// indexFromCoord returns the index whose span contains coord, and the pixel
// position where that index begins.
func (a *axis) indexFromCoord(coord float64) (int64, float64) {
	if coord <= 0 {
		return 1, 0
	}
	// Walk overrides in order, accumulating position, same approach as
	// position() but stopping once coord falls inside the current span.
	pos := 0.0
	idx := int64(1)
	oi := 0
	for coord >= pos+a.sizeAt(idx, &oi) {
		pos += a.sizeAt(idx, &oi)
		idx++
	}
	return idx, pos
}

// sizeAt returns the size of idx, advancing the override cursor oi as idx
// increases (idx is always walked in increasing order by callers).
func (a *axis) sizeAt(idx int64, oi *int) float64 {
	for *oi < len(a.overrides) && a.overrides[*oi].index < idx {
		*oi++
	}
	if *oi < len(a.overrides) && a.overrides[*oi].index == idx {
		return a.overrides[*oi].size
	}
	return a.def
}

func (a *axis) deleteIndex(index int64) (removed float64, hadOverride bool) {
	i := a.find(index)
	removed = a.def
	if i < len(a.overrides) && a.overrides[i].index == index {
		removed = a.overrides[i].size
		hadOverride = true
		a.overrides = append(a.overrides[:i], a.overrides[i+1:]...)
		i = a.find(index) // recompute after removal for the shift below
	}
	for j := i; j < len(a.overrides); j++ {
		a.overrides[j].index--
	}
	return removed, hadOverride
}

func (a *axis) insertIndex(index int64) {
	i := a.find(index)
	for j := i; j < len(a.overrides); j++ {
		a.overrides[j].index++
	}
}

// SheetOffsets tracks column widths and row heights for one sheet.
type SheetOffsets struct {
	cols *axis
	rows *axis
}

func New() *SheetOffsets {
	return &SheetOffsets{cols: newAxis(DefaultColumnWidth), rows: newAxis(DefaultRowHeight)}
}

func (s *SheetOffsets) ColumnWidth(col int64) float64 { return s.cols.size(col) }
func (s *SheetOffsets) RowHeight(row int64) float64   { return s.rows.size(row) }

// SetColumnWidth sets col's width, returning the previous width so the
// caller can build a reverse operation.
func (s *SheetOffsets) SetColumnWidth(col int64, width float64) float64 {
	prev, _ := s.cols.set(col, width)
	return prev
}

// SetRowHeight is the row analogue of SetColumnWidth.
func (s *SheetOffsets) SetRowHeight(row int64, height float64) float64 {
	prev, _ := s.rows.set(row, height)
	return prev
}

// ColumnPosition returns the pixel x-coordinate where col begins.
// Invariant: ColumnPosition(c+1) == ColumnPosition(c) + ColumnWidth(c).
func (s *SheetOffsets) ColumnPosition(col int64) float64 { return s.cols.position(col) }

// RowPosition is the row analogue of ColumnPosition.
func (s *SheetOffsets) RowPosition(row int64) float64 { return s.rows.position(row) }

// ColumnFromX returns the column containing pixel x, and that column's
// starting x-coordinate.
func (s *SheetOffsets) ColumnFromX(x float64) (int64, float64) { return s.cols.indexFromCoord(x) }

// RowFromY is the row analogue of ColumnFromX.
func (s *SheetOffsets) RowFromY(y float64) (int64, float64) { return s.rows.indexFromCoord(y) }

// DeleteColumn removes col, shifting every column after it left by one.
// Returns the removed width for reverse-operation construction.
func (s *SheetOffsets) DeleteColumn(col int64) float64 {
	removed, _ := s.cols.deleteIndex(col)
	return removed
}

// DeleteRow is the row analogue of DeleteColumn.
func (s *SheetOffsets) DeleteRow(row int64) float64 {
	removed, _ := s.rows.deleteIndex(row)
	return removed
}

// InsertColumn shifts every column at or after col right by one, leaving
// the new column at the axis default width.
func (s *SheetOffsets) InsertColumn(col int64) { s.cols.insertIndex(col) }

// InsertRow is the row analogue of InsertColumn.
func (s *SheetOffsets) InsertRow(row int64) { s.rows.insertIndex(row) }
