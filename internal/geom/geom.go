// Package geom defines the positional primitives shared across the engine:
// 1-indexed cell positions, inclusive rectangles, and their sheet-qualified
// counterparts.
package geom

import (
	"encoding/hex"
	"fmt"
)

// Unbounded is the sentinel coordinate used for open-ended rows/columns
// (an entire column, an entire row, or the whole sheet).
const Unbounded = int64(1<<62) - 1

// SheetID is the opaque 128-bit identifier the host assigns each sheet.
type SheetID [16]byte

func (s SheetID) String() string {
	return fmt.Sprintf("%x-%x", s[:8], s[8:])
}

// MarshalText renders SheetID as plain hex, so it can be used as a JSON
// object key (encoding/json only accepts string, integer, or
// TextMarshaler types as map keys) wherever a DirtySheets-style map
// crosses a wire boundary.
func (s SheetID) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(s[:])), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *SheetID) UnmarshalText(text []byte) error {
	decoded, err := hex.Decode(s[:], text)
	if err != nil {
		return fmt.Errorf("geom: invalid SheetID %q: %w", text, err)
	}
	if decoded != len(s) {
		return fmt.Errorf("geom: invalid SheetID length %q", text)
	}
	return nil
}

// Pos is a 1-indexed cell coordinate. A1 is {1, 1}.
type Pos struct {
	X, Y int64
}

func (p Pos) Translate(dx, dy int64) Pos {
	return Pos{X: p.X + dx, Y: p.Y + dy}
}

// Rect is an inclusive rectangle with the invariant Min.X <= Max.X and
// Min.Y <= Max.Y.
type Rect struct {
	Min, Max Pos
}

// NewRect builds a rectangle from two corners, normalizing the order.
func NewRect(a, b Pos) Rect {
	r := Rect{Min: a, Max: b}
	if r.Min.X > r.Max.X {
		r.Min.X, r.Max.X = r.Max.X, r.Min.X
	}
	if r.Min.Y > r.Max.Y {
		r.Min.Y, r.Max.Y = r.Max.Y, r.Min.Y
	}
	return r
}

// RectAt returns a single-cell rectangle at p.
func RectAt(p Pos) Rect { return Rect{Min: p, Max: p} }

// RectFromSize returns the rectangle anchored at p spanning width x height.
func RectFromSize(p Pos, width, height int64) Rect {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return Rect{Min: p, Max: Pos{X: p.X + width - 1, Y: p.Y + height - 1}}
}

func (r Rect) Width() int64  { return r.Max.X - r.Min.X + 1 }
func (r Rect) Height() int64 { return r.Max.Y - r.Min.Y + 1 }

func (r Rect) Contains(p Pos) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

func (r Rect) ContainsRect(o Rect) bool {
	return r.Contains(o.Min) && r.Contains(o.Max)
}

// Intersects reports whether r and o share at least one cell.
func (r Rect) Intersects(o Rect) bool {
	return r.Min.X <= o.Max.X && r.Max.X >= o.Min.X &&
		r.Min.Y <= o.Max.Y && r.Max.Y >= o.Min.Y
}

// Intersection returns the overlap of r and o, if any.
func (r Rect) Intersection(o Rect) (Rect, bool) {
	if !r.Intersects(o) {
		return Rect{}, false
	}
	return Rect{
		Min: Pos{X: max64(r.Min.X, o.Min.X), Y: max64(r.Min.Y, o.Min.Y)},
		Max: Pos{X: min64(r.Max.X, o.Max.X), Y: min64(r.Max.Y, o.Max.Y)},
	}, true
}

func (r Rect) Translate(dx, dy int64) Rect {
	return Rect{Min: r.Min.Translate(dx, dy), Max: r.Max.Translate(dx, dy)}
}

func (r Rect) IsUnboundedX() bool { return r.Max.X >= Unbounded }
func (r Rect) IsUnboundedY() bool { return r.Max.Y >= Unbounded }

// SheetPos is a cell position scoped to a sheet.
type SheetPos struct {
	Sheet SheetID
	Pos   Pos
}

// SheetRect is a rectangle scoped to a sheet.
type SheetRect struct {
	Sheet SheetID
	Rect  Rect
}

func (sr SheetRect) Contains(sp SheetPos) bool {
	return sr.Sheet == sp.Sheet && sr.Rect.Contains(sp.Pos)
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
