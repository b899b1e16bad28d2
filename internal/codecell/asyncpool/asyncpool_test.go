package asyncpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"sheetengine/internal/geom"
)

func TestRunAllReturnsOneResultPerDispatch(t *testing.T) {
	p := New(2)
	sheet := geom.SheetID{1}
	dispatches := []Dispatch{
		{SheetPos: geom.SheetPos{Sheet: sheet, Pos: geom.Pos{X: 1, Y: 1}}, Run: func(ctx context.Context) (interface{}, error) { return 1, nil }},
		{SheetPos: geom.SheetPos{Sheet: sheet, Pos: geom.Pos{X: 2, Y: 1}}, Run: func(ctx context.Context) (interface{}, error) { return 2, nil }},
		{SheetPos: geom.SheetPos{Sheet: sheet, Pos: geom.Pos{X: 3, Y: 1}}, Run: func(ctx context.Context) (interface{}, error) { return nil, errors.New("boom") }},
	}
	results, errs := p.RunAll(context.Background(), dispatches)
	require.Equal(t, 1, results[0])
	require.Equal(t, 2, results[1])
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Error(t, errs[2])
}

func TestRunAllBoundsConcurrency(t *testing.T) {
	p := New(1)
	var inFlight, maxInFlight int32
	sheet := geom.SheetID{1}
	var dispatches []Dispatch
	for i := 0; i < 5; i++ {
		i := i
		dispatches = append(dispatches, Dispatch{
			SheetPos: geom.SheetPos{Sheet: sheet, Pos: geom.Pos{X: int64(i), Y: 1}},
			Run: func(ctx context.Context) (interface{}, error) {
				n := atomic.AddInt32(&inFlight, 1)
				for {
					cur := atomic.LoadInt32(&maxInFlight)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInFlight, cur, n) {
						break
					}
				}
				atomic.AddInt32(&inFlight, -1)
				return nil, nil
			},
		})
	}
	p.RunAll(context.Background(), dispatches)
	require.LessOrEqual(t, int(maxInFlight), 1)
}
