package a1

import (
	"strconv"
	"strings"
)

// String renders a RefRangeBounds back to A1 text: parse(print(r)) == r
// for canonical r.
func (b RefRangeBounds) String() string {
	if b.IsAllCells() {
		return "*"
	}
	if b.IsFullColumns() {
		return printCoordPairColumnOnly(b.Start.Col) + ":" + printCoordPairColumnOnly(b.End.Col)
	}
	if b.IsFullRows() {
		return printCoordPairRowOnly(b.Start.Row) + ":" + printCoordPairRowOnly(b.End.Row)
	}
	if b.IsSingleCell() {
		return printCell(b.Start)
	}
	return printCell(b.Start) + ":" + printCell(b.End)
}

func printCell(p CellCoordPair) string {
	return printCoord(p.Col, true) + printCoord(p.Row, false)
}

func printCoord(c CellRefCoord, isCol bool) string {
	prefix := ""
	if c.IsAbsolute {
		prefix = "$"
	}
	if isCol {
		return prefix + ColumnIndexToLetters(c.Coord)
	}
	return prefix + strconv.FormatInt(c.Coord, 10)
}

func printCoordPairColumnOnly(c CellRefCoord) string {
	prefix := ""
	if c.IsAbsolute {
		prefix = "$"
	}
	return prefix + ColumnIndexToLetters(c.Coord)
}

func printCoordPairRowOnly(c CellRefCoord) string {
	prefix := ""
	if c.IsAbsolute {
		prefix = "$"
	}
	return prefix + strconv.FormatInt(c.Coord, 10)
}

// String renders a CellRefRange, quoting a sheet name prefix only when
// supplied via PrintWithSheet.
func (r CellRefRange) String() string {
	if r.IsTable {
		if r.ColumnFilter == nil {
			return r.TableName
		}
		return r.TableName + "[" + strings.Join(r.ColumnFilter.Columns, ",") + "]"
	}
	return r.Range.String()
}

// PrintWithSheet renders r prefixed with a quoted-if-needed sheet name.
func PrintWithSheet(r CellRefRange, sheetName string) string {
	prefix := sheetName
	if strings.ContainsAny(sheetName, " '\"") {
		prefix = "'" + strings.ReplaceAll(sheetName, "'", "''") + "'"
	}
	return prefix + "!" + r.String()
}

// String renders the full selection as a comma-joined list of ranges.
func (s A1Selection) String() string {
	parts := make([]string, len(s.Ranges))
	for i, r := range s.Ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}
