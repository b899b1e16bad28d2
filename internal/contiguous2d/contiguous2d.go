// Package contiguous2d implements the grid's spatial run-encoding
// primitive: a total function Pos -> T backed by a set of maximal
// axis-aligned rectangles, so large uniform regions (an entire filled
// column, a sheet-wide default format) cost one record instead of one per
// cell.
//
// This underpins formats (fill color included) and borders. The
// representation generalizes column-oriented run storage from one axis
// to two.
package contiguous2d

import (
	"cmp"

	"golang.org/x/exp/slices"

	"sheetengine/internal/geom"
)

// run is one maximal stored rectangle and its value.
type run[T comparable] struct {
	rect  geom.Rect
	value T
}

// Contiguous2D stores a value per Pos, defaulting to zero value of T outside
// any stored rectangle. Rectangles never overlap; adjacent same-value
// rectangles are coalesced on every mutation.
type Contiguous2D[T comparable] struct {
	def  T
	runs []run[T]
}

// New returns an empty Contiguous2D whose default value is def.
func New[T comparable](def T) *Contiguous2D[T] {
	return &Contiguous2D[T]{def: def}
}

// Get returns the value of the smallest rectangle containing pos, or the
// default.
func (c *Contiguous2D[T]) Get(pos geom.Pos) T {
	// Later-inserted runs win on overlap (SetRect always clears the
	// region first so in practice runs never overlap, but this keeps Get
	// well-defined even under a malformed run list).
	for i := len(c.runs) - 1; i >= 0; i-- {
		if c.runs[i].rect.Contains(pos) {
			return c.runs[i].value
		}
	}
	return c.def
}

// SetRect sets every position in rect to value. Setting the default value
// clears stored entries in rect (tombstone semantics: Blank is never
// stored, matching the invariant Sheet.columns generalizes to any T).
func (c *Contiguous2D[T]) SetRect(rect geom.Rect, value T) {
	c.clearRect(rect)
	if value != c.def {
		c.runs = append(c.runs, run[T]{rect: rect, value: value})
	}
	c.coalesce()
}

// clearRect removes rect from every stored run, splitting runs that
// partially overlap it into up to four remaining pieces.
func (c *Contiguous2D[T]) clearRect(rect geom.Rect) {
	var next []run[T]
	for _, r := range c.runs {
		if !r.rect.Intersects(rect) {
			next = append(next, r)
			continue
		}
		next = append(next, splitAround(r.rect, rect, r.value)...)
	}
	c.runs = next
}

// splitAround returns the pieces of full that remain after removing hole,
// assuming hole does intersect full. Handles unbounded edges by leaving the
// corresponding Max at its original (possibly unbounded) value.
func splitAround[T comparable](full, hole geom.Rect, value T) []run[T] {
	var out []run[T]
	// Left strip
	if hole.Min.X > full.Min.X {
		out = append(out, run[T]{rect: geom.Rect{
			Min: full.Min,
			Max: geom.Pos{X: hole.Min.X - 1, Y: full.Max.Y},
		}, value: value})
	}
	// Right strip
	if full.Max.X > hole.Max.X {
		out = append(out, run[T]{rect: geom.Rect{
			Min: geom.Pos{X: hole.Max.X + 1, Y: full.Min.Y},
			Max: full.Max,
		}, value: value})
	}
	// Top strip (bounded to the hole's x-span so we don't double-count
	// the corners already covered by left/right strips)
	midMinX := maxI64(full.Min.X, hole.Min.X)
	midMaxX := minI64(full.Max.X, hole.Max.X)
	if midMinX > midMaxX {
		return out
	}
	if hole.Min.Y > full.Min.Y {
		out = append(out, run[T]{rect: geom.Rect{
			Min: geom.Pos{X: midMinX, Y: full.Min.Y},
			Max: geom.Pos{X: midMaxX, Y: hole.Min.Y - 1},
		}, value: value})
	}
	// Bottom strip
	if full.Max.Y > hole.Max.Y {
		out = append(out, run[T]{rect: geom.Rect{
			Min: geom.Pos{X: midMinX, Y: hole.Max.Y + 1},
			Max: geom.Pos{X: midMaxX, Y: full.Max.Y},
		}, value: value})
	}
	return out
}

// coalesce merges adjacent runs with equal values into a single rectangle.
// Runs until a fixed point since one merge can expose another.
func (c *Contiguous2D[T]) coalesce() {
	for {
		merged := false
		for i := 0; i < len(c.runs); i++ {
			for j := i + 1; j < len(c.runs); j++ {
				if m, ok := tryMerge(c.runs[i], c.runs[j]); ok {
					c.runs[i] = m
					c.runs = append(c.runs[:j], c.runs[j+1:]...)
					merged = true
					break
				}
			}
			if merged {
				break
			}
		}
		if !merged {
			return
		}
	}
}

func tryMerge[T comparable](a, b run[T]) (run[T], bool) {
	if a.value != b.value {
		return run[T]{}, false
	}
	// Horizontally adjacent, same row-span.
	if a.rect.Min.Y == b.rect.Min.Y && a.rect.Max.Y == b.rect.Max.Y {
		if a.rect.Max.X+1 == b.rect.Min.X {
			return run[T]{rect: geom.Rect{Min: a.rect.Min, Max: b.rect.Max}, value: a.value}, true
		}
		if b.rect.Max.X+1 == a.rect.Min.X {
			return run[T]{rect: geom.Rect{Min: b.rect.Min, Max: a.rect.Max}, value: a.value}, true
		}
	}
	// Vertically adjacent, same column-span.
	if a.rect.Min.X == b.rect.Min.X && a.rect.Max.X == b.rect.Max.X {
		if a.rect.Max.Y+1 == b.rect.Min.Y {
			return run[T]{rect: geom.Rect{Min: a.rect.Min, Max: b.rect.Max}, value: a.value}, true
		}
		if b.rect.Max.Y+1 == a.rect.Min.Y {
			return run[T]{rect: geom.Rect{Min: b.rect.Min, Max: a.rect.Max}, value: a.value}, true
		}
	}
	return run[T]{}, false
}

// RectValue is a single maximal rectangle and its value, as produced by
// ToRects. An unbounded edge is represented with geom.Unbounded.
type RectValue[T comparable] struct {
	Rect  geom.Rect
	Value T
}

// ToRects returns every maximal stored rectangle, in insertion order.
func (c *Contiguous2D[T]) ToRects() []RectValue[T] {
	out := make([]RectValue[T], 0, len(c.runs))
	for _, r := range c.runs {
		out = append(out, RectValue[T]{Rect: r.rect, Value: r.value})
	}
	return out
}

// InsertColumn shifts every rectangle with Max.X >= col right by one;
// rectangles entirely left of col are unchanged. A rectangle straddling col
// grows by one column instead of shifting wholesale.
func (c *Contiguous2D[T]) InsertColumn(col int64) {
	for i := range c.runs {
		r := &c.runs[i]
		switch {
		case r.rect.Min.X >= col:
			r.rect.Min.X = satInc(r.rect.Min.X)
			r.rect.Max.X = satInc(r.rect.Max.X)
		case r.rect.Max.X >= col:
			r.rect.Max.X = satInc(r.rect.Max.X)
		}
	}
	c.coalesce()
}

// InsertRow is the row analogue of InsertColumn.
func (c *Contiguous2D[T]) InsertRow(row int64) {
	for i := range c.runs {
		r := &c.runs[i]
		switch {
		case r.rect.Min.Y >= row:
			r.rect.Min.Y = satInc(r.rect.Min.Y)
			r.rect.Max.Y = satInc(r.rect.Max.Y)
		case r.rect.Max.Y >= row:
			r.rect.Max.Y = satInc(r.rect.Max.Y)
		}
	}
	c.coalesce()
}

// DeleteColumn removes col from every rectangle containing it (shrinking by
// one; dropping the rectangle entirely if it was a single column) and
// shifts rectangles right of col left by one.
func (c *Contiguous2D[T]) DeleteColumn(col int64) {
	var next []run[T]
	for _, r := range c.runs {
		switch {
		case r.rect.Min.X > col:
			r.rect.Min.X--
			r.rect.Max.X--
			next = append(next, r)
		case r.rect.Max.X < col:
			next = append(next, r)
		default:
			// col is within [Min.X, Max.X]; remove one column.
			if r.rect.Min.X == r.rect.Max.X {
				continue // last column of this rect: drop it
			}
			r.rect.Max.X--
			next = append(next, r)
		}
	}
	c.runs = next
	c.coalesce()
}

// DeleteRow is the row analogue of DeleteColumn.
func (c *Contiguous2D[T]) DeleteRow(row int64) {
	var next []run[T]
	for _, r := range c.runs {
		switch {
		case r.rect.Min.Y > row:
			r.rect.Min.Y--
			r.rect.Max.Y--
			next = append(next, r)
		case r.rect.Max.Y < row:
			next = append(next, r)
		default:
			if r.rect.Min.Y == r.rect.Max.Y {
				continue
			}
			r.rect.Max.Y--
			next = append(next, r)
		}
	}
	c.runs = next
	c.coalesce()
}

// CopyRow materializes row as a 1-row-thick Contiguous2D, suitable for
// building reverse-operation payloads.
func (c *Contiguous2D[T]) CopyRow(row int64) *Contiguous2D[T] {
	out := New(c.def)
	for _, r := range c.runs {
		if row < r.rect.Min.Y || row > r.rect.Max.Y {
			continue
		}
		out.SetRect(geom.Rect{
			Min: geom.Pos{X: r.rect.Min.X, Y: row},
			Max: geom.Pos{X: r.rect.Max.X, Y: row},
		}, r.value)
	}
	return out
}

// CopyColumn is the column analogue of CopyRow.
func (c *Contiguous2D[T]) CopyColumn(col int64) *Contiguous2D[T] {
	out := New(c.def)
	for _, r := range c.runs {
		if col < r.rect.Min.X || col > r.rect.Max.X {
			continue
		}
		out.SetRect(geom.Rect{
			Min: geom.Pos{X: col, Y: r.rect.Min.Y},
			Max: geom.Pos{X: col, Y: r.rect.Max.Y},
		}, r.value)
	}
	return out
}

// IsEmpty reports whether no non-default value is stored anywhere.
func (c *Contiguous2D[T]) IsEmpty() bool { return len(c.runs) == 0 }

// sortedRunsByOrigin returns a copy of the runs ordered by origin (row,
// then column); nothing in the repository calls it.
func (c *Contiguous2D[T]) sortedRunsByOrigin() []run[T] {
	out := append([]run[T]{}, c.runs...)
	slices.SortFunc(out, func(a, b run[T]) int {
		if c := cmp.Compare(a.rect.Min.Y, b.rect.Min.Y); c != 0 {
			return c
		}
		return cmp.Compare(a.rect.Min.X, b.rect.Min.X)
	})
	return out
}

func satInc(x int64) int64 {
	if x >= geom.Unbounded {
		return geom.Unbounded
	}
	return x + 1
}

func maxI64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func minI64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
