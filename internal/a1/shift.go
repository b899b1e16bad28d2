package a1

// InsertedColumn shifts r for a column insertion at c. Table
// ranges are left untouched: the containing Table's position is moved
// separately, and Table ranges are never shifted here.
//
// An entire-row reference (start.col=1, end.col=Unbounded) is preserved
// verbatim on the column axis: it already spans every column, and its
// start.col=1 is a "start of sheet" sentinel, not a real absolute column 1
// that should ever move.
func (r CellRefRange) InsertedColumn(c int64) CellRefRange {
	if r.IsTable || r.Range.IsFullRows() || r.Range.IsAllCells() {
		return r
	}
	r.Range.Start.Col = r.Range.Start.Col.shiftInsert(c)
	r.Range.End.Col = r.Range.End.Col.shiftInsert(c)
	return r
}

// RemovedColumn shifts r for a column deletion at c. A coordinate equal to
// c is left untouched here; the caller decides whether to delete the range
// entirely or clamp it. See InsertedColumn for the entire-row
// exemption.
func (r CellRefRange) RemovedColumn(c int64) CellRefRange {
	if r.IsTable || r.Range.IsFullRows() || r.Range.IsAllCells() {
		return r
	}
	r.Range.Start.Col = r.Range.Start.Col.shiftDelete(c)
	r.Range.End.Col = r.Range.End.Col.shiftDelete(c)
	return r
}

// InsertedRow is the row analogue of InsertedColumn: an entire-column
// reference (start.row=1, end.row=Unbounded) is preserved verbatim on the
// row axis.
func (r CellRefRange) InsertedRow(row int64) CellRefRange {
	if r.IsTable || r.Range.IsFullColumns() || r.Range.IsAllCells() {
		return r
	}
	r.Range.Start.Row = r.Range.Start.Row.shiftInsert(row)
	r.Range.End.Row = r.Range.End.Row.shiftInsert(row)
	return r
}

// RemovedRow is the row analogue of RemovedColumn.
func (r CellRefRange) RemovedRow(row int64) CellRefRange {
	if r.IsTable || r.Range.IsFullColumns() || r.Range.IsAllCells() {
		return r
	}
	r.Range.Start.Row = r.Range.Start.Row.shiftDelete(row)
	r.Range.End.Row = r.Range.End.Row.shiftDelete(row)
	return r
}
