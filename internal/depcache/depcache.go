// Package depcache maintains the reverse index from cell ranges to the
// code-cell positions that depend on them, and detects spill collisions.
// The map-of-slices representation generalizes a name -> declaring-site
// symbol table from a single string key to a rectangle-overlap query.
package depcache

import (
	"cmp"

	"golang.org/x/exp/slices"

	"sheetengine/internal/geom"
	"sheetengine/internal/grid"
)

// Cache indexes, per sheet, which code-cell anchors read from which
// rectangles, so a mutation to a rectangle can find every dependent.
type Cache struct {
	// deps maps a sheet to its dependency edges: anchor -> ranges it reads.
	deps map[geom.SheetID]map[geom.Pos][]geom.SheetRect
}

func New() *Cache {
	return &Cache{deps: make(map[geom.SheetID]map[geom.Pos][]geom.SheetRect)}
}

// Update replaces anchor's recorded dependency edges, called after every
// successful code-cell execution with the freshly observed read ranges.
func (c *Cache) Update(sheet geom.SheetID, anchor geom.Pos, accessed []geom.SheetRect) {
	m, ok := c.deps[sheet]
	if !ok {
		m = make(map[geom.Pos][]geom.SheetRect)
		c.deps[sheet] = m
	}
	if len(accessed) == 0 {
		delete(m, anchor)
		return
	}
	m[anchor] = append([]geom.SheetRect{}, accessed...)
}

// Remove drops anchor's dependency edges entirely, called when its code
// cell or DataTable is deleted.
func (c *Cache) Remove(sheet geom.SheetID, anchor geom.Pos) {
	if m, ok := c.deps[sheet]; ok {
		delete(m, anchor)
	}
}

// Dependents returns every code-cell anchor on sheet whose recorded read
// rectangles overlap affected, in a stable (insertion-independent) order:
// sorted by row, then column (y, then x) so re-computation order is
// deterministic across runs
// given the same dependency set.
func (c *Cache) Dependents(sheet geom.SheetID, affected geom.Rect) []geom.Pos {
	m, ok := c.deps[sheet]
	if !ok {
		return nil
	}
	var out []geom.Pos
	for anchor, ranges := range m {
		for _, r := range ranges {
			if r.Sheet != sheet {
				continue
			}
			if r.Rect.Intersects(affected) {
				out = append(out, anchor)
				break
			}
		}
	}
	sortPositions(out)
	return out
}

func sortPositions(ps []geom.Pos) {
	slices.SortFunc(ps, comparePos)
}

func comparePos(a, b geom.Pos) int {
	if c := cmp.Compare(a.Y, b.Y); c != 0 {
		return c
	}
	return cmp.Compare(a.X, b.X)
}

// ComputeRequest names the code-cell position a ComputeCode operation
// should re-execute.
type ComputeRequest struct {
	Sheet geom.SheetID
	Pos   geom.Pos
}

// AddComputeOperations returns a ComputeRequest for each dependent of
// affected that is not skip and not already present in alreadyQueued,
// mutating alreadyQueued to include the newly returned requests so
// repeated calls within one transaction never duplicate an entry already
// enqueued in this transaction.
func (c *Cache) AddComputeOperations(
	sheet geom.SheetID,
	affected geom.Rect,
	skip *geom.Pos,
	alreadyQueued map[geom.Pos]bool,
) []ComputeRequest {
	var out []ComputeRequest
	for _, anchor := range c.Dependents(sheet, affected) {
		if skip != nil && anchor == *skip {
			continue
		}
		if alreadyQueued[anchor] {
			continue
		}
		alreadyQueued[anchor] = true
		out = append(out, ComputeRequest{Sheet: sheet, Pos: anchor})
	}
	return out
}

// EvaluateSpill runs the spill-collision check for a code cell anchored
// at p, whose freshly-applied output rectangle is dt's output rectangle.
// It walks every data-table anchor on the sheet in insertion order
// (Sheet.TablesInOrder); dt is the table being evaluated, already stored on
// the sheet at p. The check stops once it reaches p itself, so a
// later-inserted code cell cannot cause an earlier one to spill.
func EvaluateSpill(s *grid.Sheet, p geom.Pos, dt *grid.DataTable) bool {
	full := dt.OutputRect(p)
	if full == geom.RectAt(p) {
		return false // 1x1 output can never collide with itself
	}
	excludeAnchor := func(pos geom.Pos) bool { return pos == p }

	for x := full.Min.X; x <= full.Max.X; x++ {
		for y := full.Min.Y; y <= full.Max.Y; y++ {
			pos := geom.Pos{X: x, Y: y}
			if excludeAnchor(pos) {
				continue
			}
			if !s.CellValue(pos).IsBlank() {
				return true
			}
		}
	}
	for _, anchor := range s.TablesInOrder() {
		if anchor == p {
			break // later-inserted tables cannot spill an earlier one
		}
		other, ok := s.DataTableAt(anchor)
		if !ok {
			continue
		}
		if full.Intersects(other.OutputRect(anchor)) {
			return true
		}
	}
	return false
}
