package a1

import (
	"strings"

	"sheetengine/internal/geom"
	"sheetengine/internal/sheeterr"
)

// ParseContext supplies the sheet/table resolution a parse needs.
type ParseContext struct {
	CurrentSheet geom.SheetID
	Sheets       SheetNameIdMap
	Tables       TableMap
}

// ParseSelection parses a comma-separated list of ranges into an
// A1Selection, resolving sheet-qualified and table-qualified forms against
// ctx.
func ParseSelection(s string, cursor geom.Pos, ctx ParseContext) (A1Selection, error) {
	sel := A1Selection{Sheet: ctx.CurrentSheet, Cursor: cursor}
	parts := splitTopLevelCommas(s)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		rng, sheetID, err := ParseCellRefRange(part, ctx)
		if err != nil {
			return A1Selection{}, err
		}
		if sheetID != (geom.SheetID{}) {
			sel.Sheet = sheetID
		}
		sel.Ranges = append(sel.Ranges, rng)
	}
	if len(sel.Ranges) == 0 {
		return A1Selection{}, sheeterr.NewParseError("empty selection")
	}
	return sel, nil
}

func splitTopLevelCommas(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// ParseCellRefRange parses a single range (no commas), returning the range
// and, if a sheet prefix was present, its resolved id.
func ParseCellRefRange(s string, ctx ParseContext) (CellRefRange, geom.SheetID, error) {
	sc := newScanner(s)
	var sheetID geom.SheetID
	if name, ok := sc.scanSheetPrefix(); ok {
		if ctx.Sheets == nil {
			return CellRefRange{}, geom.SheetID{}, sheeterr.NewParseError("sheet-qualified reference %q with no SheetNameIdMap", s)
		}
		id, found := ctx.Sheets.SheetIDByName(name)
		if !found {
			return CellRefRange{}, geom.SheetID{}, sheeterr.NewParseError("unknown sheet %q", name)
		}
		sheetID = id
	}

	if sc.match('*') {
		if !sc.eof() {
			return CellRefRange{}, geom.SheetID{}, sheeterr.NewParseError("unexpected trailing characters in %q", s)
		}
		return SheetRange(RefRangeBounds{
			Start: CellCoordPair{Col: Absolute(1), Row: Absolute(1)},
			End:   CellCoordPair{Col: Absolute(geom.Unbounded), Row: Absolute(geom.Unbounded)},
		}), sheetID, nil
	}

	if rng, ok, err := tryParseTableRange(sc); ok || err != nil {
		return rng, sheetID, err
	}

	first, hasCol1, hasRow1, err := sc.scanCellRefCoordPair()
	if err != nil {
		return CellRefRange{}, geom.SheetID{}, err
	}
	bounds := boundsFromSingle(first, hasCol1, hasRow1)

	if sc.match(':') {
		second, hasCol2, hasRow2, err := sc.scanCellRefCoordPair()
		if err != nil {
			return CellRefRange{}, geom.SheetID{}, err
		}
		bounds = mergeRangeEndpoints(first, hasCol1, hasRow1, second, hasCol2, hasRow2)
	}

	if !sc.eof() {
		return CellRefRange{}, geom.SheetID{}, sheeterr.NewParseError("unexpected trailing characters in %q", s)
	}
	return SheetRange(bounds), sheetID, nil
}

// boundsFromSingle builds a RefRangeBounds for a single parsed coordinate
// pair, expanding an open column (no row) to the whole column and an open
// row (no column) to the whole row.
func boundsFromSingle(p CellCoordPair, hasCol, hasRow bool) RefRangeBounds {
	switch {
	case hasCol && hasRow:
		return SingleCell(p.Col, p.Row)
	case hasCol && !hasRow:
		return RefRangeBounds{
			Start: CellCoordPair{Col: p.Col, Row: Absolute(1)},
			End:   CellCoordPair{Col: p.Col, Row: Absolute(geom.Unbounded)},
		}
	default: // row only
		return RefRangeBounds{
			Start: CellCoordPair{Col: Absolute(1), Row: p.Row},
			End:   CellCoordPair{Col: Absolute(geom.Unbounded), Row: p.Row},
		}
	}
}

func mergeRangeEndpoints(a CellCoordPair, hasColA, hasRowA bool, b CellCoordPair, hasColB, hasRowB bool) RefRangeBounds {
	startCol, endCol := a.Col, b.Col
	if !hasColA {
		startCol = Absolute(1)
	}
	if !hasColB {
		endCol = Absolute(geom.Unbounded)
	}
	startRow, endRow := a.Row, b.Row
	if !hasRowA {
		startRow = Absolute(1)
	}
	if !hasRowB {
		endRow = Absolute(geom.Unbounded)
	}
	if startCol.Coord > endCol.Coord {
		startCol, endCol = endCol, startCol
	}
	if startRow.Coord > endRow.Coord {
		startRow, endRow = endRow, startRow
	}
	return RefRangeBounds{Start: CellCoordPair{Col: startCol, Row: startRow}, End: CellCoordPair{Col: endCol, Row: endRow}}
}

// tryParseTableRange attempts the `TableName[ColumnName]` /
// `TableName[ColA, ColB]` form. The bracketed list is required (a bare
// `TableName` is not table syntax here), and every bracketed entry,
// `#ALL` included, is taken as a column name. ok is false (with err nil)
// when the input isn't table syntax, so the caller falls back to a plain
// cell range.
func tryParseTableRange(sc *scanner) (CellRefRange, bool, error) {
	start := sc.pos
	var sb strings.Builder
	for !sc.eof() && sc.peek() != '[' && sc.peek() != ':' {
		r := sc.peek()
		if !isIdentRune(r) {
			break
		}
		sb.WriteRune(sc.advance())
	}
	name := sb.String()
	// Table syntax requires the bracketed column filter to disambiguate
	// from a bare column-letter reference (e.g. "Sales" would otherwise
	// be ambiguous with an entire-column reference to column "SALES").
	if name == "" || !startsWithLetterOrUnderscore(name) || sc.peek() != '[' {
		sc.pos = start
		return CellRefRange{}, false, nil
	}
	sc.advance() // '['
	var cols []string
	for {
		var colName strings.Builder
		for !sc.eof() && sc.peek() != ']' && sc.peek() != ',' {
			colName.WriteRune(sc.advance())
		}
		cols = append(cols, strings.TrimSpace(colName.String()))
		if sc.match(',') {
			continue
		}
		break
	}
	if !sc.match(']') {
		return CellRefRange{}, false, sheeterr.NewParseError("unterminated table column filter")
	}
	return TableRange(name, &TableColumnFilter{Columns: cols, IncludeHeaders: false}), true, nil
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func startsWithLetterOrUnderscore(s string) bool {
	r := []rune(s)[0]
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
