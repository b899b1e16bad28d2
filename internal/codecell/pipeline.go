// Package codecell implements the language-dispatch half of code-cell
// execution: given a Code cell, decide whether it runs synchronously
// (Formula) or suspends the owning transaction on an external runtime
// (Python, JavaScript, Connection), and translate that external runtime's
// get-cells and completion calls into grid mutations. The suspension state
// machine itself (WaitingForAsync, the pending-async-transaction map) is
// owned by package transaction; this package only supplies the
// per-language execution logic that fills that state machine's callbacks.
package codecell

import (
	"sheetengine/internal/codecell/formula"
	"sheetengine/internal/geom"
	"sheetengine/internal/grid"
	"sheetengine/internal/sheeterr"
)

// sheetReader adapts a *grid.Sheet to formula.Reader.
type sheetReader struct{ sheet *grid.Sheet }

func (r sheetReader) DisplayValue(pos geom.Pos) grid.CellValue { return r.sheet.DisplayValue(pos) }

// ExecuteFormula runs a Formula code cell synchronously (the only
// synchronous dispatch arm) and returns the resulting CodeRun plus its
// output value, ready for a SetCodeRun operation.
func ExecuteFormula(sheetID geom.SheetID, sheet *grid.Sheet, code string, lastModified int64) (*grid.CodeRun, grid.TableValue) {
	res, err := formula.Evaluate(code, sheetID, sheetReader{sheet: sheet})
	if err != nil {
		return &grid.CodeRun{
			Language:     grid.LangFormula,
			Error:        sheeterr.NewRunError("%v", err),
			LastModified: lastModified,
		}, grid.SingleValue(grid.ErrorValue(sheeterr.NewRunError("%v", err)))
	}
	return &grid.CodeRun{
		Language:      grid.LangFormula,
		CellsAccessed: res.CellsAccessed,
		LastModified:  lastModified,
	}, res.Value
}

// CellResult is one cell in a GetCells response.
type CellResult struct {
	X, Y     int64
	Value    grid.CellValue
	TypeName string
}

// GetCells answers a read request from a suspended runtime: reads a
// w x h rectangle from (x, y), deriving the height from the sheet's
// content when hasHeight is false, and returns the read rectangle
// alongside the values so the caller can fold it into the transaction's
// accessed-cells set.
func GetCells(sheet *grid.Sheet, x, y, w int64, h int64, hasHeight bool) ([]CellResult, geom.Rect) {
	if !hasHeight {
		last := sheet.LastNonBlankRow(x, y, w)
		if last < y {
			h = 1
		} else {
			h = last - y + 1
		}
	}
	if h < 1 {
		h = 1
	}
	var out []CellResult
	for row := y; row < y+h; row++ {
		for col := x; col < x+w; col++ {
			v := sheet.DisplayValue(geom.Pos{X: col, Y: row})
			out = append(out, CellResult{X: col, Y: row, Value: v, TypeName: v.Kind.String()})
		}
	}
	rect := geom.Rect{Min: geom.Pos{X: x, Y: y}, Max: geom.Pos{X: x + w - 1, Y: y + h - 1}}
	return out, rect
}

// ChartSize is the optional pixel footprint a runtime reports for an
// HTML/Image output.
type ChartSize struct {
	Width, Height int
}

// CompletionResult is an async runtime's completion payload, already
// decoded into this engine's types.
type CompletionResult struct {
	Success       bool
	OutputValue   *grid.CellValue
	OutputArray   [][]grid.CellValue
	StdOut, StdErr string
	Err            error
	ChartPixel     *ChartSize
	CancelCompute  bool
	HasHeaders     bool
}

// BuildCodeRun translates a CompletionResult from an async runtime into a
// CodeRun and output TableValue, the payload a SetCodeRun (and, for charts,
// a SetChartCellSize) operation carries.
func BuildCodeRun(language grid.CodeCellLanguage, result CompletionResult, accessed []geom.SheetRect, lastModified int64) (*grid.CodeRun, grid.TableValue, *ChartSize) {
	run := &grid.CodeRun{
		Language:      language,
		StdOut:        result.StdOut,
		StdErr:        result.StdErr,
		CellsAccessed: accessed,
		LastModified:  lastModified,
	}
	if !result.Success {
		run.Error = sheeterr.NewRunError("%v", result.Err)
		return run, grid.SingleValue(grid.ErrorValue(run.Error)), nil
	}
	if result.OutputArray != nil {
		return run, grid.ArrayValue(result.OutputArray), result.ChartPixel
	}
	if result.OutputValue != nil {
		return run, grid.SingleValue(*result.OutputValue), result.ChartPixel
	}
	return run, grid.SingleValue(grid.Blank), result.ChartPixel
}
