// Package asyncpool bounds concurrent out-of-process code-cell executions
// the embedder dispatches for Python/JavaScript/Connection cells, and
// deduplicates concurrent requests for the same cell. Uses
// golang.org/x/sync/errgroup for the bounded-fan-out part and singleflight
// for the dedup part, in place of a hand-rolled fixed-size goroutine pool
// fed by a task channel.
package asyncpool

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"sheetengine/internal/geom"
)

// Pool runs at most Limit concurrent external-runtime dispatches, and
// collapses concurrent ComputeCode requests for the same SheetPos into one
// in-flight call (per-transaction ComputeCode dedup, generalized
// here across transactions for an embedder pipelining several documents'
// worth of work through one pool).
type Pool struct {
	limit int
	group singleflight.Group
}

// New returns a Pool that admits at most limit concurrent Run calls.
func New(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{limit: limit}
}

// Dispatch describes one pending external-runtime execution.
type Dispatch struct {
	SheetPos geom.SheetPos
	Run      func(ctx context.Context) (interface{}, error)
}

// RunAll executes every dispatch, bounded to p.limit concurrent in flight,
// and returns one result per input dispatch in the same order. A dispatch
// whose Run returns an error leaves that slot's error set; other dispatches
// still run to completion (errgroup.WithContext would cancel siblings on
// first error, which is wrong here: one code cell failing must not abort
// its unrelated siblings).
func (p *Pool) RunAll(ctx context.Context, dispatches []Dispatch) ([]interface{}, []error) {
	results := make([]interface{}, len(dispatches))
	errs := make([]error, len(dispatches))
	sem := make(chan struct{}, p.limit)
	var g errgroup.Group
	for i, d := range dispatches {
		i, d := i, d
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			key := d.SheetPos.Sheet.String() + ":" + posKey(d.SheetPos.Pos)
			v, err, _ := p.group.Do(key, func() (interface{}, error) {
				return d.Run(ctx)
			})
			results[i], errs[i] = v, err
			return nil
		})
	}
	_ = g.Wait() // individual errors are reported per-slot, never aggregated
	return results, errs
}

func posKey(p geom.Pos) string {
	buf := make([]byte, 0, 24)
	buf = appendInt(buf, p.X)
	buf = append(buf, ',')
	buf = appendInt(buf, p.Y)
	return string(buf)
}

func appendInt(buf []byte, v int64) []byte {
	if v < 0 {
		buf = append(buf, '-')
		v = -v
	}
	if v == 0 {
		return append(buf, '0')
	}
	var digits [20]byte
	n := 0
	for v > 0 {
		digits[n] = byte('0' + v%10)
		v /= 10
		n++
	}
	for i := n - 1; i >= 0; i-- {
		buf = append(buf, digits[i])
	}
	return buf
}
