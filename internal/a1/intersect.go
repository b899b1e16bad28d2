package a1

import "sheetengine/internal/geom"

// Intersect computes the overlap of two Sheet-variant ranges, preserving
// unbounded extents where both operands agree on them.
func Intersect(a, b RefRangeBounds) (RefRangeBounds, bool) {
	if a.IsAllCells() {
		return b, true
	}
	if b.IsAllCells() {
		return a, true
	}
	if a.IsSingleCell() {
		if rectContains(b, a.Start) {
			return a, true
		}
		return RefRangeBounds{}, false
	}
	if b.IsSingleCell() {
		if rectContains(a, b.Start) {
			return b, true
		}
		return RefRangeBounds{}, false
	}

	minCol := max64(a.Start.Col.Coord, b.Start.Col.Coord)
	maxCol := min64(a.End.Col.Coord, b.End.Col.Coord)
	if minCol > maxCol {
		return RefRangeBounds{}, false
	}
	minRow := max64(a.Start.Row.Coord, b.Start.Row.Coord)
	maxRow := min64(a.End.Row.Coord, b.End.Row.Coord)
	if minRow > maxRow {
		return RefRangeBounds{}, false
	}

	result := RefRangeBounds{
		Start: CellCoordPair{Col: Absolute(minCol), Row: Absolute(minRow)},
		End:   CellCoordPair{Col: Absolute(maxCol), Row: Absolute(maxRow)},
	}

	// Step 4: when both operands are pure column ranges (or both pure row
	// ranges) and the orthogonal axis overlap spans [1, Unbounded],
	// preserve the unbounded extent in the result instead of clamping it
	// to whichever operand happened to supply a finite bound.
	if a.IsFullColumns() && b.IsFullColumns() && minRow == 1 && maxRow == geom.Unbounded {
		result.End.Row.Coord = geom.Unbounded
	}
	if a.IsFullRows() && b.IsFullRows() && minCol == 1 && maxCol == geom.Unbounded {
		result.End.Col.Coord = geom.Unbounded
	}
	return result, true
}

func rectContains(b RefRangeBounds, p CellCoordPair) bool {
	return p.Col.Coord >= b.Start.Col.Coord && p.Col.Coord <= b.End.Col.Coord &&
		p.Row.Coord >= b.Start.Row.Coord && p.Row.Coord <= b.End.Row.Coord
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
