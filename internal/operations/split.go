package operations

import "sheetengine/internal/geom"

// MaxOperationSizeColRow bounds the number of cells a single SetCellValues /
// SetCellFormatsA1 / SetBordersA1 operation may cover before it must be
// split, so one undo entry can never hold an unbounded payload.
const MaxOperationSizeColRow = 10_000

// SplitLargeRect partitions rect into row-bands of at most
// MaxOperationSizeColRow cells each, in top-to-bottom order, so a caller
// building SetCellFormatsA1/SetBordersA1 operations over a huge selection
// emits several bounded operations (and bounded reverses) instead of one
// unbounded one.
func SplitLargeRect(rect geom.Rect) []geom.Rect {
	width := rect.Width()
	if width <= 0 {
		return nil
	}
	rowsPerBand := MaxOperationSizeColRow / width
	if rowsPerBand < 1 {
		rowsPerBand = 1
	}
	var out []geom.Rect
	for y := rect.Min.Y; y <= rect.Max.Y; y += rowsPerBand {
		top := y
		bottom := y + rowsPerBand - 1
		if bottom > rect.Max.Y {
			bottom = rect.Max.Y
		}
		out = append(out, geom.Rect{
			Min: geom.Pos{X: rect.Min.X, Y: top},
			Max: geom.Pos{X: rect.Max.X, Y: bottom},
		})
	}
	return out
}

// transposeRect swaps rect's X and Y axes.
func transposeRect(rect geom.Rect) geom.Rect {
	return geom.Rect{
		Min: geom.Pos{X: rect.Min.Y, Y: rect.Min.X},
		Max: geom.Pos{X: rect.Max.Y, Y: rect.Max.X},
	}
}

// transposedBands bands a row-shaped rect (Min.Y == Max.Y) into
// MaxOperationSizeColRow-bounded column spans, by transposing it into a
// column-shaped rect SplitLargeRect can band along Y, then transposing the
// resulting bands back. This reuses SplitLargeRect's row-banding logic for
// the orthogonal case instead of duplicating it.
func transposedBands(rect geom.Rect) []geom.Rect {
	bands := SplitLargeRect(transposeRect(rect))
	out := make([]geom.Rect, len(bands))
	for i, b := range bands {
		out[i] = transposeRect(b)
	}
	return out
}
