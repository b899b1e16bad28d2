package a1

import "sheetengine/internal/geom"

// MightContain reports whether pos is covered by any range in the
// selection. Ranges are checked from the latest to the earliest; since no
// range subtracts cells, the result is the same in any order.
func (s A1Selection) MightContain(pos geom.Pos, tables TableMap) bool {
	for i := len(s.Ranges) - 1; i >= 0; i-- {
		if rangeContains(s.Ranges[i], s.Sheet, pos, tables) {
			return true
		}
	}
	return false
}

func rangeContains(r CellRefRange, sheet geom.SheetID, pos geom.Pos, tables TableMap) bool {
	if r.IsTable {
		if tables == nil {
			return false
		}
		tSheet, rect, ok := tables.Lookup(r.TableName, r.ColumnFilter)
		return ok && tSheet == sheet && rect.Contains(pos)
	}
	return r.Range.ToRect().Contains(pos)
}

// Subspaces returns one axis-aligned rectangle per range, in range order.
// Unbounded ends (whole rows, whole columns, the whole sheet) are capped at
// maxExtent. tables resolves Table ranges to concrete rectangles; a Table
// range is skipped when tables is nil or does not know the table. The
// rectangles are not made disjoint: overlapping ranges give overlapping
// rectangles.
func (s A1Selection) Subspaces(tables TableMap, maxExtent geom.Pos) []geom.Rect {
	out := make([]geom.Rect, 0, len(s.Ranges))
	for _, r := range s.Ranges {
		if r.IsTable {
			if tables == nil {
				continue
			}
			_, rect, ok := tables.Lookup(r.TableName, r.ColumnFilter)
			if ok {
				out = append(out, rect)
			}
			continue
		}
		out = append(out, capRect(r.Range.ToRect(), maxExtent))
	}
	return out
}

func capRect(r geom.Rect, maxExtent geom.Pos) geom.Rect {
	if r.Max.X >= geom.Unbounded {
		r.Max.X = maxExtent.X
	}
	if r.Max.Y >= geom.Unbounded {
		r.Max.Y = maxExtent.Y
	}
	return r
}
