// Package formula's evaluator resolves an AST against a live sheet, used by
// the Formula arm of the code-cell dispatch. Only the
// arithmetic/reference/comparison core plus a handful of functions (SUM,
// AVERAGE, MIN, MAX, IF, CONCAT) are implemented; a full financial/stat
// function library is intentionally out of scope.
package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sheetengine/internal/a1"
	"sheetengine/internal/geom"
	"sheetengine/internal/grid"
)

// Reader is the narrow read surface the evaluator needs from a Sheet.
type Reader interface {
	DisplayValue(pos geom.Pos) grid.CellValue
}

// Result is the evaluated formula output plus the dependency edges the
// evaluation touched, which the caller folds into CodeRun.CellsAccessed.
type Result struct {
	Value         grid.TableValue
	CellsAccessed []geom.SheetRect
}

// Evaluate parses and runs source (without its leading "=") against reader,
// resolving bare A1 references relative to sheet.
func Evaluate(source string, sheet geom.SheetID, reader Reader) (Result, error) {
	ast, err := parseExpression(strings.TrimPrefix(strings.TrimSpace(source), "="))
	if err != nil {
		return Result{}, err
	}
	ev := &evaluator{sheet: sheet, reader: reader}
	val, err := ev.eval(ast)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: cellValueToTable(val), CellsAccessed: ev.accessed}, nil
}

type evalValue struct {
	scalar grid.CellValue
	array  [][]grid.CellValue // non-nil for array-producing expressions ({1,2,3})
}

func scalarOf(v grid.CellValue) evalValue { return evalValue{scalar: v} }

func cellValueToTable(v evalValue) grid.TableValue {
	if v.array != nil {
		return grid.ArrayValue(v.array)
	}
	return grid.SingleValue(v.scalar)
}

type evaluator struct {
	sheet    geom.SheetID
	reader   Reader
	accessed []geom.SheetRect
}

func (e *evaluator) eval(n *node) (evalValue, error) {
	switch n.kind {
	case nodeNumber:
		d, err := decimal.NewFromString(n.str)
		if err != nil {
			return evalValue{}, fmt.Errorf("formula: invalid number %q", n.str)
		}
		return scalarOf(grid.Number(d)), nil
	case nodeString:
		return scalarOf(grid.Text(n.str)), nil
	case nodeRef:
		return e.evalRef(n.str)
	case nodeUnary:
		v, err := e.eval(n.args[0])
		if err != nil {
			return evalValue{}, err
		}
		d, err := asNumber(v.scalar)
		if err != nil {
			return evalValue{}, err
		}
		return scalarOf(grid.Number(d.Neg())), nil
	case nodeBinary:
		return e.evalBinary(n)
	case nodeCall:
		return e.evalCall(n)
	case nodeArray:
		row := make([]grid.CellValue, len(n.args))
		for i, a := range n.args {
			v, err := e.eval(a)
			if err != nil {
				return evalValue{}, err
			}
			row[i] = v.scalar
		}
		// {1,2,3} is a single row spilling horizontally; a vertical spill
		// would use {1;2;3} which this minimal grammar does not parse.
		return evalValue{array: [][]grid.CellValue{row}}, nil
	default:
		return evalValue{}, fmt.Errorf("formula: unhandled node kind %d", n.kind)
	}
}

// evalRef resolves a single-cell or range reference, recording it into
// accessed. A range collapses to its top-left cell for scalar contexts;
// functions that want every cell use evalRange directly.
func (e *evaluator) evalRef(text string) (evalValue, error) {
	rng, _, err := a1.ParseCellRefRange(text, a1.ParseContext{})
	if err != nil {
		return evalValue{}, err
	}
	e.accessed = append(e.accessed, geom.SheetRect{Sheet: e.sheet, Rect: rng.Range.ToRect()})
	pos := rng.Range.Start.Col.Coord
	row := rng.Range.Start.Row.Coord
	return scalarOf(e.reader.DisplayValue(geom.Pos{X: pos, Y: row})), nil
}

func (e *evaluator) evalRange(n *node) ([]grid.CellValue, error) {
	if n.kind != nodeRef {
		v, err := e.eval(n)
		if err != nil {
			return nil, err
		}
		return []grid.CellValue{v.scalar}, nil
	}
	rng, _, err := a1.ParseCellRefRange(n.str, a1.ParseContext{})
	if err != nil {
		return nil, err
	}
	rect := rng.Range.ToRect()
	e.accessed = append(e.accessed, geom.SheetRect{Sheet: e.sheet, Rect: rect})
	var out []grid.CellValue
	for y := rect.Min.Y; y <= rect.Max.Y; y++ {
		for x := rect.Min.X; x <= rect.Max.X; x++ {
			out = append(out, e.reader.DisplayValue(geom.Pos{X: x, Y: y}))
		}
	}
	return out, nil
}

func (e *evaluator) evalBinary(n *node) (evalValue, error) {
	left, err := e.eval(n.args[0])
	if err != nil {
		return evalValue{}, err
	}
	right, err := e.eval(n.args[1])
	if err != nil {
		return evalValue{}, err
	}
	switch n.op {
	case tokAmp:
		return scalarOf(grid.Text(left.scalar.String() + right.scalar.String())), nil
	case tokEq, tokNe, tokLt, tokLe, tokGt, tokGe:
		return e.evalComparison(n.op, left.scalar, right.scalar)
	default:
		ld, err := asNumber(left.scalar)
		if err != nil {
			return evalValue{}, err
		}
		rd, err := asNumber(right.scalar)
		if err != nil {
			return evalValue{}, err
		}
		return scalarOf(grid.Number(applyArith(n.op, ld, rd))), nil
	}
}

func applyArith(op tokenType, a, b decimal.Decimal) decimal.Decimal {
	switch op {
	case tokPlus:
		return a.Add(b)
	case tokMinus:
		return a.Sub(b)
	case tokStar:
		return a.Mul(b)
	case tokSlash:
		return a.Div(b)
	case tokCaret:
		f, _ := a.Float64()
		g, _ := b.Float64()
		return decimal.NewFromFloat(pow(f, g))
	default:
		return decimal.Zero
	}
}

func pow(base, exp float64) float64 {
	result := 1.0
	// exp is expected to be a small non-negative integer in practice; this
	// evaluator does not support fractional exponents.
	n := int(exp)
	for i := 0; i < n; i++ {
		result *= base
	}
	return result
}

func (e *evaluator) evalComparison(op tokenType, a, b grid.CellValue) (evalValue, error) {
	var result bool
	if a.Kind == grid.KindNumber && b.Kind == grid.KindNumber {
		cmp := a.Number.Cmp(b.Number)
		result = compareCmp(op, cmp)
	} else {
		cmp := strings.Compare(a.String(), b.String())
		result = compareCmp(op, cmp)
	}
	return scalarOf(grid.Logical(result)), nil
}

func compareCmp(op tokenType, cmp int) bool {
	switch op {
	case tokEq:
		return cmp == 0
	case tokNe:
		return cmp != 0
	case tokLt:
		return cmp < 0
	case tokLe:
		return cmp <= 0
	case tokGt:
		return cmp > 0
	case tokGe:
		return cmp >= 0
	default:
		return false
	}
}

func asNumber(v grid.CellValue) (decimal.Decimal, error) {
	switch v.Kind {
	case grid.KindNumber:
		return v.Number, nil
	case grid.KindBlank:
		return decimal.Zero, nil
	case grid.KindLogical:
		if v.Logical {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	case grid.KindText:
		d, err := decimal.NewFromString(v.Text)
		if err != nil {
			return decimal.Zero, fmt.Errorf("formula: %q is not a number", v.Text)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("formula: %s is not a number", v.Kind)
	}
}

func (e *evaluator) evalCall(n *node) (evalValue, error) {
	switch strings.ToUpper(n.name) {
	case "SUM", "AVERAGE", "MIN", "MAX":
		var vals []decimal.Decimal
		for _, a := range n.args {
			cells, err := e.evalRange(a)
			if err != nil {
				return evalValue{}, err
			}
			for _, c := range cells {
				if c.IsBlank() {
					continue
				}
				d, err := asNumber(c)
				if err != nil {
					return evalValue{}, err
				}
				vals = append(vals, d)
			}
		}
		return scalarOf(grid.Number(aggregate(strings.ToUpper(n.name), vals))), nil
	case "IF":
		if len(n.args) != 3 {
			return evalValue{}, fmt.Errorf("formula: IF requires 3 arguments")
		}
		cond, err := e.eval(n.args[0])
		if err != nil {
			return evalValue{}, err
		}
		if isTruthy(cond.scalar) {
			return e.eval(n.args[1])
		}
		return e.eval(n.args[2])
	case "CONCAT":
		var sb strings.Builder
		for _, a := range n.args {
			v, err := e.eval(a)
			if err != nil {
				return evalValue{}, err
			}
			sb.WriteString(v.scalar.String())
		}
		return scalarOf(grid.Text(sb.String())), nil
	default:
		return evalValue{}, fmt.Errorf("formula: unknown function %q", n.name)
	}
}

func isTruthy(v grid.CellValue) bool {
	switch v.Kind {
	case grid.KindLogical:
		return v.Logical
	case grid.KindNumber:
		return !v.Number.IsZero()
	case grid.KindBlank:
		return false
	default:
		return v.String() != ""
	}
}

func aggregate(fn string, vals []decimal.Decimal) decimal.Decimal {
	if len(vals) == 0 {
		return decimal.Zero
	}
	switch fn {
	case "SUM":
		sum := decimal.Zero
		for _, v := range vals {
			sum = sum.Add(v)
		}
		return sum
	case "AVERAGE":
		sum := decimal.Zero
		for _, v := range vals {
			sum = sum.Add(v)
		}
		return sum.Div(decimal.NewFromInt(int64(len(vals))))
	case "MIN":
		m := vals[0]
		for _, v := range vals[1:] {
			if v.LessThan(m) {
				m = v
			}
		}
		return m
	case "MAX":
		m := vals[0]
		for _, v := range vals[1:] {
			if v.GreaterThan(m) {
				m = v
			}
		}
		return m
	default:
		return decimal.Zero
	}
}
