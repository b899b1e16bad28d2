package depcache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"sheetengine/internal/geom"
	"sheetengine/internal/grid"
)

func TestDependentsFindsOverlappingReaders(t *testing.T) {
	c := New()
	sheet := geom.SheetID{1}
	b1 := geom.Pos{X: 2, Y: 1}
	c.Update(sheet, b1, []geom.SheetRect{{Sheet: sheet, Rect: geom.RectAt(geom.Pos{X: 1, Y: 1})}})

	deps := c.Dependents(sheet, geom.RectAt(geom.Pos{X: 1, Y: 1}))
	require.Equal(t, []geom.Pos{b1}, deps)

	deps = c.Dependents(sheet, geom.RectAt(geom.Pos{X: 5, Y: 5}))
	require.Empty(t, deps)
}

func TestAddComputeOperationsDedupesWithinTransaction(t *testing.T) {
	c := New()
	sheet := geom.SheetID{1}
	b1 := geom.Pos{X: 2, Y: 1}
	c.Update(sheet, b1, []geom.SheetRect{{Sheet: sheet, Rect: geom.RectAt(geom.Pos{X: 1, Y: 1})}})

	queued := map[geom.Pos]bool{}
	first := c.AddComputeOperations(sheet, geom.RectAt(geom.Pos{X: 1, Y: 1}), nil, queued)
	require.Len(t, first, 1)

	second := c.AddComputeOperations(sheet, geom.RectAt(geom.Pos{X: 1, Y: 1}), nil, queued)
	require.Empty(t, second)
}

func TestAddComputeOperationsSkipsSelfReference(t *testing.T) {
	c := New()
	sheet := geom.SheetID{1}
	a1 := geom.Pos{X: 1, Y: 1}
	c.Update(sheet, a1, []geom.SheetRect{{Sheet: sheet, Rect: geom.RectAt(a1)}})

	queued := map[geom.Pos]bool{}
	reqs := c.AddComputeOperations(sheet, geom.RectAt(a1), &a1, queued)
	require.Empty(t, reqs)
}

func TestEvaluateSpillDetectsBlockingCell(t *testing.T) {
	s := grid.NewSheet(geom.SheetID{1}, "Sheet1")
	anchor := geom.Pos{X: 1, Y: 1}
	s.SetCellValue(geom.Pos{X: 1, Y: 2}, grid.Text("blocker"))

	dt := &grid.DataTable{Value: grid.ArrayValue([][]grid.CellValue{{grid.NumberFromInt(1)}, {grid.NumberFromInt(2)}})}
	s.SetDataTable(anchor, dt)

	require.True(t, EvaluateSpill(s, anchor, dt))
}

func TestEvaluateSpillClearWhenUnobstructed(t *testing.T) {
	s := grid.NewSheet(geom.SheetID{1}, "Sheet1")
	anchor := geom.Pos{X: 1, Y: 1}
	dt := &grid.DataTable{Value: grid.ArrayValue([][]grid.CellValue{{grid.NumberFromInt(1)}, {grid.NumberFromInt(2)}})}
	s.SetDataTable(anchor, dt)

	require.False(t, EvaluateSpill(s, anchor, dt))
}

func TestEvaluateSpillLaterTableCannotSpillEarlier(t *testing.T) {
	s := grid.NewSheet(geom.SheetID{1}, "Sheet1")
	early := geom.Pos{X: 1, Y: 1}
	earlyDT := &grid.DataTable{Value: grid.ArrayValue([][]grid.CellValue{{grid.NumberFromInt(1)}, {grid.NumberFromInt(2)}})}
	s.SetDataTable(early, earlyDT)
	require.False(t, EvaluateSpill(s, early, earlyDT))

	later := geom.Pos{X: 1, Y: 2}
	laterDT := &grid.DataTable{Value: grid.SingleValue(grid.NumberFromInt(9))}
	s.SetDataTable(later, laterDT)

	// Re-evaluating the earlier table must still ignore the later one.
	require.False(t, EvaluateSpill(s, early, earlyDT))
}
