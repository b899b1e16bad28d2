package contiguous2d

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sheetengine/internal/geom"
)

func TestSetRectAndGet(t *testing.T) {
	tests := []struct {
		name  string
		setup func(c *Contiguous2D[string])
		check geom.Pos
		want  string
	}{
		{
			name: "inside rect",
			setup: func(c *Contiguous2D[string]) {
				c.SetRect(geom.NewRect(geom.Pos{X: 1, Y: 1}, geom.Pos{X: 3, Y: 3}), "bold")
			},
			check: geom.Pos{X: 2, Y: 2},
			want:  "bold",
		},
		{
			name: "outside rect returns default",
			setup: func(c *Contiguous2D[string]) {
				c.SetRect(geom.NewRect(geom.Pos{X: 1, Y: 1}, geom.Pos{X: 3, Y: 3}), "bold")
			},
			check: geom.Pos{X: 10, Y: 10},
			want:  "",
		},
		{
			name: "later set overrides earlier",
			setup: func(c *Contiguous2D[string]) {
				c.SetRect(geom.NewRect(geom.Pos{X: 1, Y: 1}, geom.Pos{X: 5, Y: 5}), "bold")
				c.SetRect(geom.NewRect(geom.Pos{X: 2, Y: 2}, geom.Pos{X: 2, Y: 2}), "italic")
			},
			check: geom.Pos{X: 2, Y: 2},
			want:  "italic",
		},
		{
			name: "clearing with default erases",
			setup: func(c *Contiguous2D[string]) {
				c.SetRect(geom.NewRect(geom.Pos{X: 1, Y: 1}, geom.Pos{X: 3, Y: 3}), "bold")
				c.SetRect(geom.NewRect(geom.Pos{X: 1, Y: 1}, geom.Pos{X: 3, Y: 3}), "")
			},
			check: geom.Pos{X: 2, Y: 2},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("")
			tt.setup(c)
			require.Equal(t, tt.want, c.Get(tt.check))
		})
	}
}

func TestCoalesceAdjacentRects(t *testing.T) {
	c := New("")
	c.SetRect(geom.NewRect(geom.Pos{X: 1, Y: 1}, geom.Pos{X: 1, Y: 3}), "x")
	c.SetRect(geom.NewRect(geom.Pos{X: 2, Y: 1}, geom.Pos{X: 2, Y: 3}), "x")
	require.Len(t, c.ToRects(), 1, "adjacent equal-value rects should coalesce")
}

func TestInsertColumnShiftsRight(t *testing.T) {
	c := New("")
	c.SetRect(geom.NewRect(geom.Pos{X: 3, Y: 1}, geom.Pos{X: 3, Y: 1}), "x")
	c.InsertColumn(2)
	require.Equal(t, "x", c.Get(geom.Pos{X: 4, Y: 1}))
	require.Equal(t, "", c.Get(geom.Pos{X: 3, Y: 1}))
}

func TestInsertColumnLeavesLeftUntouched(t *testing.T) {
	c := New("")
	c.SetRect(geom.NewRect(geom.Pos{X: 1, Y: 1}, geom.Pos{X: 1, Y: 1}), "x")
	c.InsertColumn(5)
	require.Equal(t, "x", c.Get(geom.Pos{X: 1, Y: 1}))
}

func TestDeleteColumnShiftsLeftAndDropsSingleColumnRect(t *testing.T) {
	c := New("")
	c.SetRect(geom.NewRect(geom.Pos{X: 2, Y: 1}, geom.Pos{X: 2, Y: 1}), "x")
	c.SetRect(geom.NewRect(geom.Pos{X: 5, Y: 1}, geom.Pos{X: 5, Y: 1}), "y")
	c.DeleteColumn(2)
	require.Equal(t, "", c.Get(geom.Pos{X: 2, Y: 1}))
	require.Equal(t, "y", c.Get(geom.Pos{X: 4, Y: 1}))
}

func TestUnboundedRectPreservedThroughInsert(t *testing.T) {
	c := New("")
	c.SetRect(geom.Rect{Min: geom.Pos{X: 1, Y: 1}, Max: geom.Pos{X: geom.Unbounded, Y: 1}}, "header")
	c.InsertColumn(3)
	require.Equal(t, "header", c.Get(geom.Pos{X: 1000, Y: 1}))
}

func TestCopyRowMaterializesOneRow(t *testing.T) {
	c := New("")
	c.SetRect(geom.NewRect(geom.Pos{X: 1, Y: 1}, geom.Pos{X: 3, Y: 3}), "x")
	cp := c.CopyRow(2)
	require.Equal(t, "x", cp.Get(geom.Pos{X: 2, Y: 2}))
	require.Equal(t, "", cp.Get(geom.Pos{X: 2, Y: 1}), "copy must not leak other rows")
}

// naiveSim is the brute-force oracle used to check Contiguous2D against a
// cell-by-cell map for read/write coverage equivalence.
type naiveSim struct {
	cells map[geom.Pos]string
}

func TestCoverageAgainstNaiveSimulation(t *testing.T) {
	c := New("")
	sim := &naiveSim{cells: map[geom.Pos]string{}}

	apply := func(rect geom.Rect, value string) {
		c.SetRect(rect, value)
		for x := rect.Min.X; x <= rect.Max.X; x++ {
			for y := rect.Min.Y; y <= rect.Max.Y; y++ {
				if value == "" {
					delete(sim.cells, geom.Pos{X: x, Y: y})
				} else {
					sim.cells[geom.Pos{X: x, Y: y}] = value
				}
			}
		}
	}

	apply(geom.NewRect(geom.Pos{X: 1, Y: 1}, geom.Pos{X: 5, Y: 5}), "a")
	apply(geom.NewRect(geom.Pos{X: 2, Y: 2}, geom.Pos{X: 3, Y: 3}), "b")
	apply(geom.NewRect(geom.Pos{X: 2, Y: 2}, geom.Pos{X: 2, Y: 2}), "")

	for x := int64(0); x <= 6; x++ {
		for y := int64(0); y <= 6; y++ {
			p := geom.Pos{X: x, Y: y}
			require.Equal(t, sim.cells[p], c.Get(p), "mismatch at %v", p)
		}
	}
}
