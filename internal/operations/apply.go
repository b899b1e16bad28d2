package operations

import (
	"sheetengine/internal/contiguous2d"
	"sheetengine/internal/geom"
	"sheetengine/internal/grid"
	"sheetengine/internal/sheeterr"
)

// Apply mutates wb according to op and returns the reverse operations the
// Transaction Controller pushes onto the undo stack, in the order they must
// be appended to a flat undo log so that reversing the whole log back to
// front replays them in the correct real-world order. Most variants are
// self-inverse enough to need only one reverse operation; row/column
// deletion and any oversized rect-shaped edit return more than one, which is
// why Apply returns a slice rather than a single Operation. Apply never
// touches wall-clock time or randomness; CodeRun.LastModified and similar
// stamps are expected to already be populated on the incoming Operation by
// the caller.
func Apply(wb *grid.Workbook, op Operation) ([]Operation, error) {
	switch op.Kind {
	case KindSetCellValues:
		return one(applySetCellValues(wb, op))
	case KindSetCellFormatsA1:
		return applySetCellFormatsA1(wb, op)
	case KindSetBordersA1:
		return applySetBordersA1(wb, op)
	case KindSetCodeRun:
		return one(applySetCodeRun(wb, op))
	case KindSetChartCellSize, KindSetChartSize:
		return one(applySetChartCellSize(wb, op))
	case KindAddDataTable:
		return one(applyAddDataTable(wb, op))
	case KindDeleteDataTable:
		return one(applyDeleteDataTable(wb, op))
	case KindInsertColumn:
		return one(applyInsertColumn(wb, op))
	case KindDeleteColumn:
		return applyDeleteColumn(wb, op)
	case KindInsertRow:
		return one(applyInsertRow(wb, op))
	case KindDeleteRow:
		return applyDeleteRow(wb, op)
	case KindResizeColumn:
		return one(applyResizeColumn(wb, op))
	case KindResizeRow:
		return one(applyResizeRow(wb, op))
	case KindAddSheet:
		return one(applyAddSheet(wb, op))
	case KindDeleteSheet:
		return one(applyDeleteSheet(wb, op))
	case KindDuplicateSheet:
		return one(applyDuplicateSheet(wb, op))
	case KindReorderSheet:
		return one(applyReorderSheet(wb, op))
	case KindSetSheetName:
		return one(applySetSheetName(wb, op))
	case KindSetSheetColor:
		return one(applySetSheetColor(wb, op))
	case KindSetValidation:
		return one(applySetValidation(wb, op))
	case KindRemoveValidation:
		return one(applyRemoveValidation(wb, op))
	case KindSortDataTable:
		return one(applySortDataTable(wb, op))
	case KindFlattenDataTable:
		return applyFlattenDataTable(wb, op)
	case KindGridToDataTable:
		return applyGridToDataTable(wb, op)
	case KindDataTableFirstRowAsHeader:
		return one(applyDataTableFirstRowAsHeader(wb, op))
	case KindInsertDataTableColumns:
		return one(applyInsertDataTableColumns(wb, op))
	case KindDeleteDataTableColumns:
		return one(applyDeleteDataTableColumns(wb, op))
	case KindInsertDataTableRows:
		return one(applyInsertDataTableRows(wb, op))
	case KindDeleteDataTableRows:
		return one(applyDeleteDataTableRows(wb, op))
	case KindMoveColumns:
		return one(applyMoveColumns(wb, op))
	case KindMoveRows:
		return one(applyMoveRows(wb, op))
	case KindSetCursorA1:
		// Cursor state is presentation-only: no grid mutation,
		// no reverse worth recording beyond echoing the same operation back.
		return []Operation{op}, nil
	default:
		return nil, sheeterr.NewInvariantViolation("operations: unknown kind %v", op.Kind)
	}
}

// one wraps the (Operation, error) shape most apply* functions return into
// Apply's ([]Operation, error) shape: the common case of a single reverse.
func one(op Operation, err error) ([]Operation, error) {
	if err != nil {
		return nil, err
	}
	return []Operation{op}, nil
}

func sheetOrErr(wb *grid.Workbook, id geom.SheetID) (*grid.Sheet, error) {
	s, ok := wb.Sheet(id)
	if !ok {
		return nil, sheeterr.New(sheeterr.InvariantViolation, "operations: unknown sheet").WithSheet(id.String())
	}
	return s, nil
}

func applySetCellValues(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	anchor := op.SheetPos.Pos
	prevValues := make([][]grid.CellValue, len(op.Values))
	for dy, row := range op.Values {
		prevValues[dy] = make([]grid.CellValue, len(row))
		for dx, v := range row {
			pos := geom.Pos{X: anchor.X + int64(dx), Y: anchor.Y + int64(dy)}
			prevValues[dy][dx] = s.SetCellValue(pos, v)
		}
	}
	reverse := Operation{
		Kind:     KindSetCellValues,
		SheetPos: op.SheetPos,
		Values:   prevValues,
	}
	return reverse, nil
}

// boundedBands splits rect into MaxOperationSizeColRow-bounded pieces when
// it is finite and over budget, via SplitLargeRect; a whole-row/whole-column
// selection (an unbounded edge) is returned unsplit, since Contiguous2D
// already stores it in O(runs) regardless of extent and literally banding
// an unbounded rect would never terminate.
func boundedBands(rect geom.Rect) []geom.Rect {
	if rect.IsUnboundedX() || rect.IsUnboundedY() {
		return []geom.Rect{rect}
	}
	if rect.Width()*rect.Height() <= MaxOperationSizeColRow {
		return []geom.Rect{rect}
	}
	return SplitLargeRect(rect)
}

func applySetCellFormatsA1(wb *grid.Workbook, op Operation) ([]Operation, error) {
	s, err := sheetOrErr(wb, op.SheetRect.Sheet)
	if err != nil {
		return nil, err
	}
	bands := boundedBands(op.SheetRect.Rect)
	out := make([]Operation, 0, len(bands))
	for _, band := range bands {
		prev := contiguous2d.New(grid.Format{})
		for _, rv := range s.Formats.ToRects() {
			if r, ok := rv.Rect.Intersection(band); ok {
				prev.SetRect(r, rv.Value)
			}
		}
		for _, rv := range op.Formats.ToRects() {
			if r, ok := rv.Rect.Intersection(band); ok {
				s.Formats.SetRect(r, rv.Value)
			}
		}
		out = append(out, Operation{Kind: KindSetCellFormatsA1, SheetRect: geom.SheetRect{Sheet: op.SheetRect.Sheet, Rect: band}, Formats: prev})
	}
	return out, nil
}

func applySetBordersA1(wb *grid.Workbook, op Operation) ([]Operation, error) {
	s, err := sheetOrErr(wb, op.SheetRect.Sheet)
	if err != nil {
		return nil, err
	}
	bands := boundedBands(op.SheetRect.Rect)
	out := make([]Operation, 0, len(bands))
	for _, band := range bands {
		prev := contiguous2d.New(grid.Border{})
		for _, rv := range s.Borders.ToRects() {
			if r, ok := rv.Rect.Intersection(band); ok {
				prev.SetRect(r, rv.Value)
			}
		}
		for _, rv := range op.Borders.ToRects() {
			if r, ok := rv.Rect.Intersection(band); ok {
				s.Borders.SetRect(r, rv.Value)
			}
		}
		out = append(out, Operation{Kind: KindSetBordersA1, SheetRect: geom.SheetRect{Sheet: op.SheetRect.Sheet, Rect: band}, Borders: prev})
	}
	return out, nil
}

func applySetCodeRun(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	pos := op.SheetPos.Pos
	prevValue := s.SetCellValue(pos, grid.Code(op.CodeLang, op.CodeText))
	return Operation{
		Kind:     KindSetCodeRun,
		SheetPos: op.SheetPos,
		CodeLang: prevValue.Code.Language,
		CodeText: prevValue.Code.Code,
	}, nil
}

func applySetChartCellSize(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	dt, ok := s.DataTableAt(op.SheetPos.Pos)
	if !ok {
		return Operation{}, sheeterr.NewRunError("SetChartCellSize: no data table at anchor")
	}
	prevW, prevH := dt.ChartWidth, dt.ChartHeight
	dt.ChartWidth, dt.ChartHeight = int(op.Width), int(op.Height)
	return Operation{
		Kind:     op.Kind,
		SheetPos: op.SheetPos,
		Width:    int64(prevW),
		Height:   int64(prevH),
	}, nil
}

func applyAddDataTable(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	prev := s.SetDataTable(op.SheetPos.Pos, op.DataTable)
	if prev == nil {
		return Operation{Kind: KindDeleteDataTable, SheetPos: op.SheetPos}, nil
	}
	// A table already occupied the anchor (e.g. a code cell re-running):
	// the reverse must restore it, not merely clear the slot, so undo
	// recovers its exact prior output rather than leaving it blank.
	return Operation{Kind: KindAddDataTable, SheetPos: op.SheetPos, DataTable: prev}, nil
}

func applyDeleteDataTable(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	prev := s.SetDataTable(op.SheetPos.Pos, nil)
	return Operation{Kind: KindAddDataTable, SheetPos: op.SheetPos, DataTable: prev}, nil
}

// applyInsertColumn inserts a blank column at op.Column. When op.CopyFormats
// is set, the new column inherits its formatting from the column to its
// left (the common "insert column, keep formatting" behavior), matching
// once the new slot exists rather than copying the old column-at-op.Column
// before the shift. The reverse is a plain DeleteColumn: deleting the
// column removes any copied-in formatting along with it, so no separate
// format reverse is needed.
func applyInsertColumn(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	s.InsertColumn(op.Column)
	if op.CopyFormats && op.Column > 1 {
		copyColumnFormats(s, op.Column-1, op.Column)
	}
	return Operation{Kind: KindDeleteColumn, SheetPos: op.SheetPos, Column: op.Column}, nil
}

// copyColumnFormats overwrites dst's stored formats and borders with src's.
func copyColumnFormats(s *grid.Sheet, src, dst int64) {
	full := geom.Rect{Min: geom.Pos{X: dst, Y: 1}, Max: geom.Pos{X: dst, Y: geom.Unbounded}}
	s.Formats.SetRect(full, grid.Format{})
	for _, rv := range s.Formats.CopyColumn(src).ToRects() {
		s.Formats.SetRect(geom.Rect{Min: geom.Pos{X: dst, Y: rv.Rect.Min.Y}, Max: geom.Pos{X: dst, Y: rv.Rect.Max.Y}}, rv.Value)
	}
	s.Borders.SetRect(full, grid.Border{})
	for _, rv := range s.Borders.CopyColumn(src).ToRects() {
		s.Borders.SetRect(geom.Rect{Min: geom.Pos{X: dst, Y: rv.Rect.Min.Y}, Max: geom.Pos{X: dst, Y: rv.Rect.Max.Y}}, rv.Value)
	}
}

// copyRowFormats is the row analogue of copyColumnFormats.
func copyRowFormats(s *grid.Sheet, src, dst int64) {
	full := geom.Rect{Min: geom.Pos{X: 1, Y: dst}, Max: geom.Pos{X: geom.Unbounded, Y: dst}}
	s.Formats.SetRect(full, grid.Format{})
	for _, rv := range s.Formats.CopyRow(src).ToRects() {
		s.Formats.SetRect(geom.Rect{Min: geom.Pos{X: rv.Rect.Min.X, Y: dst}, Max: geom.Pos{X: rv.Rect.Max.X, Y: dst}}, rv.Value)
	}
	s.Borders.SetRect(full, grid.Border{})
	for _, rv := range s.Borders.CopyRow(src).ToRects() {
		s.Borders.SetRect(geom.Rect{Min: geom.Pos{X: rv.Rect.Min.X, Y: dst}, Max: geom.Pos{X: rv.Rect.Max.X, Y: dst}}, rv.Value)
	}
}

// applyDeleteColumn deletes op.Column and returns a compound reverse: the
// column's live cell values, formats, and borders are captured before the
// mutation and restored by dedicated operations, with InsertColumn last in
// this slice so it runs *first* once the Transaction Controller's flat undo
// log is reversed end to end (the blank slot must exist again before
// content is written back into it; writing first would land in the wrong,
// still-shifted column).
func applyDeleteColumn(wb *grid.Workbook, op Operation) ([]Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return nil, err
	}
	anchorY, values := captureColumnValues(s, op.Column)
	formats := s.Formats.CopyColumn(op.Column)
	borders := s.Borders.CopyColumn(op.Column)

	s.DeleteColumn(op.Column)

	var reverse []Operation
	if !borders.IsEmpty() {
		reverse = append(reverse, Operation{
			Kind:      KindSetBordersA1,
			SheetRect: geom.SheetRect{Sheet: op.SheetPos.Sheet, Rect: geom.Rect{Min: geom.Pos{X: op.Column, Y: 1}, Max: geom.Pos{X: op.Column, Y: geom.Unbounded}}},
			Borders:   borders,
		})
	}
	if !formats.IsEmpty() {
		reverse = append(reverse, Operation{
			Kind:      KindSetCellFormatsA1,
			SheetRect: geom.SheetRect{Sheet: op.SheetPos.Sheet, Rect: geom.Rect{Min: geom.Pos{X: op.Column, Y: 1}, Max: geom.Pos{X: op.Column, Y: geom.Unbounded}}},
			Formats:   formats,
		})
	}
	if values != nil {
		full := geom.Rect{Min: geom.Pos{X: op.Column, Y: anchorY}, Max: geom.Pos{X: op.Column, Y: anchorY + int64(len(values)) - 1}}
		for _, band := range SplitLargeRect(full) {
			offset := band.Min.Y - anchorY
			count := band.Height()
			rows := make([][]grid.CellValue, count)
			for i := int64(0); i < count; i++ {
				rows[i] = []grid.CellValue{values[offset+i]}
			}
			reverse = append(reverse, Operation{
				Kind:     KindSetCellValues,
				SheetPos: geom.SheetPos{Sheet: op.SheetPos.Sheet, Pos: geom.Pos{X: op.Column, Y: band.Min.Y}},
				Values:   rows,
			})
		}
	}
	reverse = append(reverse, Operation{Kind: KindInsertColumn, SheetPos: op.SheetPos, Column: op.Column})
	return reverse, nil
}

// applyInsertRow is the row analogue of applyInsertColumn, copying
// formatting from the row above when op.CopyFormats is set.
func applyInsertRow(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	s.InsertRow(op.Row)
	if op.CopyFormats && op.Row > 1 {
		copyRowFormats(s, op.Row-1, op.Row)
	}
	return Operation{Kind: KindDeleteRow, SheetPos: op.SheetPos, Row: op.Row}, nil
}

// applyDeleteRow is the row analogue of applyDeleteColumn. A row is wide
// rather than tall, so its captured values are banded along X instead of Y:
// transposedBands flips the row-shaped rect so SplitLargeRect's row-banding
// bounds it by column instead, and flips the resulting bands back.
func applyDeleteRow(wb *grid.Workbook, op Operation) ([]Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return nil, err
	}
	anchorX, values := captureRowValues(s, op.Row)
	formats := s.Formats.CopyRow(op.Row)
	borders := s.Borders.CopyRow(op.Row)

	s.DeleteRow(op.Row)

	var reverse []Operation
	if !borders.IsEmpty() {
		reverse = append(reverse, Operation{
			Kind:      KindSetBordersA1,
			SheetRect: geom.SheetRect{Sheet: op.SheetPos.Sheet, Rect: geom.Rect{Min: geom.Pos{X: 1, Y: op.Row}, Max: geom.Pos{X: geom.Unbounded, Y: op.Row}}},
			Borders:   borders,
		})
	}
	if !formats.IsEmpty() {
		reverse = append(reverse, Operation{
			Kind:      KindSetCellFormatsA1,
			SheetRect: geom.SheetRect{Sheet: op.SheetPos.Sheet, Rect: geom.Rect{Min: geom.Pos{X: 1, Y: op.Row}, Max: geom.Pos{X: geom.Unbounded, Y: op.Row}}},
			Formats:   formats,
		})
	}
	if values != nil {
		full := geom.Rect{Min: geom.Pos{X: anchorX, Y: op.Row}, Max: geom.Pos{X: anchorX + int64(len(values)) - 1, Y: op.Row}}
		for _, band := range transposedBands(full) {
			offset := band.Min.X - anchorX
			count := band.Width()
			row := make([]grid.CellValue, count)
			for i := int64(0); i < count; i++ {
				row[i] = values[offset+i]
			}
			reverse = append(reverse, Operation{
				Kind:     KindSetCellValues,
				SheetPos: geom.SheetPos{Sheet: op.SheetPos.Sheet, Pos: geom.Pos{X: band.Min.X, Y: op.Row}},
				Values:   [][]grid.CellValue{row},
			})
		}
	}
	reverse = append(reverse, Operation{Kind: KindInsertRow, SheetPos: op.SheetPos, Row: op.Row})
	return reverse, nil
}

// captureColumnValues snapshots col's live values across the sheet's
// current content bounds, returning the starting row and the slice, or
// (0, nil) if the sheet has no content (and so nothing to restore) or the
// column is entirely blank within those bounds.
func captureColumnValues(s *grid.Sheet, col int64) (int64, []grid.CellValue) {
	b := s.Bounds()
	if b.Min.Y < 1 {
		return 0, nil
	}
	values := make([]grid.CellValue, 0, b.Max.Y-b.Min.Y+1)
	any := false
	for y := b.Min.Y; y <= b.Max.Y; y++ {
		v := s.CellValue(geom.Pos{X: col, Y: y})
		if !v.IsBlank() {
			any = true
		}
		values = append(values, v)
	}
	if !any {
		return 0, nil
	}
	return b.Min.Y, values
}

// captureRowValues is the row analogue of captureColumnValues.
func captureRowValues(s *grid.Sheet, row int64) (int64, []grid.CellValue) {
	b := s.Bounds()
	if b.Min.X < 1 {
		return 0, nil
	}
	values := make([]grid.CellValue, 0, b.Max.X-b.Min.X+1)
	any := false
	for x := b.Min.X; x <= b.Max.X; x++ {
		v := s.CellValue(geom.Pos{X: x, Y: row})
		if !v.IsBlank() {
			any = true
		}
		values = append(values, v)
	}
	if !any {
		return 0, nil
	}
	return b.Min.X, values
}

func applyResizeColumn(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	prev := s.Offsets.SetColumnWidth(op.Column, float64(op.Width))
	return Operation{
		Kind:     KindResizeColumn,
		SheetPos: op.SheetPos,
		Column:   op.Column,
		Width:    int64(prev),
	}, nil
}

func applyResizeRow(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	prev := s.Offsets.SetRowHeight(op.Row, float64(op.Height))
	return Operation{
		Kind:     KindResizeRow,
		SheetPos: op.SheetPos,
		Row:      op.Row,
		Height:   int64(prev),
	}, nil
}

func applyAddSheet(wb *grid.Workbook, op Operation) (Operation, error) {
	wb.AddSheet(op.Sheet, op.SheetIndex)
	return Operation{Kind: KindDeleteSheet, Sheet: op.Sheet}, nil
}

func applyDeleteSheet(wb *grid.Workbook, op Operation) (Operation, error) {
	s, idx := wb.RemoveSheet(op.Sheet.ID)
	if s == nil {
		return Operation{}, sheeterr.New(sheeterr.InvariantViolation, "operations: DeleteSheet on unknown sheet")
	}
	return Operation{Kind: KindAddSheet, Sheet: s, SheetIndex: idx}, nil
}

// applyDuplicateSheet clones the sheet named by op.Sheet.ID (looked up on
// the Workbook, not the Clone's source, so the review/spec boundary stays
// in grid.Sheet.Clone) and inserts the copy at op.SheetIndex. op.Sheet
// carries the new sheet's desired ID/Name, the same convention AddSheet
// uses.
func applyDuplicateSheet(wb *grid.Workbook, op Operation) (Operation, error) {
	src, err := sheetOrErr(wb, op.SourceSheet)
	if err != nil {
		return Operation{}, err
	}
	clone := src.Clone(op.Sheet.ID, op.SheetName)
	wb.AddSheet(clone, op.SheetIndex)
	return Operation{Kind: KindDeleteSheet, Sheet: clone}, nil
}

// applyReorderSheet moves an existing sheet to a new index; self-inverse
// given the sheet's prior index.
func applyReorderSheet(wb *grid.Workbook, op Operation) (Operation, error) {
	s, prevIndex := wb.RemoveSheet(op.Sheet.ID)
	if s == nil {
		return Operation{}, sheeterr.New(sheeterr.InvariantViolation, "operations: ReorderSheet on unknown sheet")
	}
	wb.AddSheet(s, op.SheetIndex)
	return Operation{Kind: KindReorderSheet, Sheet: &grid.Sheet{ID: s.ID}, SheetIndex: prevIndex}, nil
}

func applySetSheetName(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.Sheet.ID)
	if err != nil {
		return Operation{}, err
	}
	prev := s.Name
	s.Name = op.SheetName
	return Operation{Kind: KindSetSheetName, Sheet: &grid.Sheet{ID: s.ID}, SheetName: prev}, nil
}

func applySetSheetColor(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.Sheet.ID)
	if err != nil {
		return Operation{}, err
	}
	prev := s.Color
	s.Color = op.SheetColor
	return Operation{Kind: KindSetSheetColor, Sheet: &grid.Sheet{ID: s.ID}, SheetColor: prev}, nil
}

func applySetValidation(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetRect.Sheet)
	if err != nil {
		return Operation{}, err
	}
	var prevRule grid.ValidationRule
	hadPrev := false
	kept := s.Validations[:0:0]
	for _, v := range s.Validations {
		if v.ID == op.Validation.ID {
			prevRule = v
			hadPrev = true
			continue
		}
		kept = append(kept, v)
	}
	kept = append(kept, op.Validation)
	s.Validations = kept
	if !hadPrev {
		return Operation{Kind: KindRemoveValidation, SheetRect: op.SheetRect, ValidationID: op.Validation.ID}, nil
	}
	return Operation{Kind: KindSetValidation, SheetRect: op.SheetRect, Validation: prevRule}, nil
}

func applyRemoveValidation(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetRect.Sheet)
	if err != nil {
		return Operation{}, err
	}
	var prevRule grid.ValidationRule
	kept := s.Validations[:0:0]
	for _, v := range s.Validations {
		if v.ID == op.ValidationID {
			prevRule = v
			continue
		}
		kept = append(kept, v)
	}
	s.Validations = kept
	return Operation{Kind: KindSetValidation, SheetRect: op.SheetRect, Validation: prevRule}, nil
}

// applySortDataTable permutes the table's display order by setting
// DisplayBuffer to op.SortOrder (display row -> source row), the one
// operation that actually populates that field.
func applySortDataTable(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	dt, ok := s.DataTableAt(op.SheetPos.Pos)
	if !ok {
		return Operation{}, sheeterr.NewRunError("SortDataTable: no data table at anchor")
	}
	prev := dt.DisplayBuffer
	dt.DisplayBuffer = append([]int(nil), op.SortOrder...)
	return Operation{Kind: KindSortDataTable, SheetPos: op.SheetPos, SortOrder: prev}, nil
}

// applyDataTableFirstRowAsHeader toggles HeaderIsFirstRow, the other field
// ValueAt's resolution logic reads but no prior operation ever set.
func applyDataTableFirstRowAsHeader(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	dt, ok := s.DataTableAt(op.SheetPos.Pos)
	if !ok {
		return Operation{}, sheeterr.NewRunError("DataTableFirstRowAsHeader: no data table at anchor")
	}
	prev := dt.HeaderIsFirstRow
	dt.HeaderIsFirstRow = op.HeaderIsFirstRow
	return Operation{Kind: KindDataTableFirstRowAsHeader, SheetPos: op.SheetPos, HeaderIsFirstRow: prev}, nil
}

// applyFlattenDataTable replaces the table with its plain display values:
// the DataTable is deleted and the visible grid cells are written directly,
// so later structural edits to the region no longer go through the table's
// anchor/overlay machinery. The reverse restores the table and clears the
// written cells.
func applyFlattenDataTable(wb *grid.Workbook, op Operation) ([]Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return nil, err
	}
	dt, ok := s.DataTableAt(op.SheetPos.Pos)
	if !ok {
		return nil, sheeterr.NewRunError("FlattenDataTable: no data table at anchor")
	}
	anchor := op.SheetPos.Pos
	ui := 0
	if dt.ShowName {
		ui++
	}
	if dt.ShowColumns {
		ui++
	}
	rows := make([][]grid.CellValue, dt.Value.Height)
	for y := 0; y < dt.Value.Height; y++ {
		rows[y] = make([]grid.CellValue, dt.Value.Width)
		for x := 0; x < dt.Value.Width; x++ {
			rows[y][x] = dt.ValueAt(x, y+ui)
		}
	}
	s.SetDataTable(anchor, nil)
	writeReverse, err := applySetCellValues(wb, Operation{Kind: KindSetCellValues, SheetPos: op.SheetPos, Values: rows})
	if err != nil {
		return nil, err
	}
	// Desired undo order is [writeReverse, AddDataTable]: clear the
	// flattened cells back to blank, then restore the table's overlay.
	// Storage order is the reverse, so the whole-array flip the
	// Transaction Controller performs on undo replays them correctly.
	return []Operation{{Kind: KindAddDataTable, SheetPos: op.SheetPos, DataTable: dt}, writeReverse}, nil
}

// applyGridToDataTable is FlattenDataTable's inverse direction: it wraps a
// plain grid range into a new DataTable anchored at its top-left, clearing
// the source cells since the table now owns that display.
func applyGridToDataTable(wb *grid.Workbook, op Operation) ([]Operation, error) {
	s, err := sheetOrErr(wb, op.SheetRect.Sheet)
	if err != nil {
		return nil, err
	}
	rect := op.SheetRect.Rect
	w, h := int(rect.Width()), int(rect.Height())
	rows := make([][]grid.CellValue, h)
	for y := 0; y < h; y++ {
		rows[y] = make([]grid.CellValue, w)
		for x := 0; x < w; x++ {
			rows[y][x] = s.CellValue(geom.Pos{X: rect.Min.X + int64(x), Y: rect.Min.Y + int64(y)})
		}
	}
	anchor := geom.SheetPos{Sheet: op.SheetRect.Sheet, Pos: rect.Min}
	clearRows := make([][]grid.CellValue, h)
	for y := range clearRows {
		clearRows[y] = make([]grid.CellValue, w)
	}
	clearReverse, err := applySetCellValues(wb, Operation{Kind: KindSetCellValues, SheetPos: anchor, Values: clearRows})
	if err != nil {
		return nil, err
	}
	dt := &grid.DataTable{
		Kind:  grid.KindCodeRun,
		Name:  op.DataTable.Name,
		Value: grid.ArrayValue(rows),
	}
	s.SetDataTable(rect.Min, dt)
	return []Operation{clearReverse, {Kind: KindDeleteDataTable, SheetPos: anchor}}, nil
}

// applyInsertDataTableColumns widens a table's Array in place at a local
// column offset, shifting ColumnHeaders to match. When op.Values is set (the
// reverse of a column deletion), the new columns take those values;
// otherwise they are blank.
func applyInsertDataTableColumns(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	dt, ok := s.DataTableAt(op.SheetPos.Pos)
	if !ok {
		return Operation{}, sheeterr.NewRunError("InsertDataTableColumns: no data table at anchor")
	}
	at := int(op.Column)
	count := int(op.Width)
	rows := dt.Value.Array
	for y := range rows {
		inserted := make([]grid.CellValue, count)
		if y < len(op.Values) {
			copy(inserted, op.Values[y])
		}
		row := append([]grid.CellValue{}, rows[y][:at]...)
		row = append(row, inserted...)
		row = append(row, rows[y][at:]...)
		rows[y] = row
	}
	dt.Value.Width += count
	for i := range dt.ColumnHeaders {
		if dt.ColumnHeaders[i].ValueIndex >= at {
			dt.ColumnHeaders[i].ValueIndex += count
		}
	}
	return Operation{Kind: KindDeleteDataTableColumns, SheetPos: op.SheetPos, Column: op.Column, Width: op.Width}, nil
}

// applyDeleteDataTableColumns is the inverse direction: it captures the
// removed columns' values so undo can restore them verbatim.
func applyDeleteDataTableColumns(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	dt, ok := s.DataTableAt(op.SheetPos.Pos)
	if !ok {
		return Operation{}, sheeterr.NewRunError("DeleteDataTableColumns: no data table at anchor")
	}
	at := int(op.Column)
	count := int(op.Width)
	rows := dt.Value.Array
	removed := make([][]grid.CellValue, len(rows))
	for y := range rows {
		removed[y] = append([]grid.CellValue{}, rows[y][at:at+count]...)
		row := append([]grid.CellValue{}, rows[y][:at]...)
		row = append(row, rows[y][at+count:]...)
		rows[y] = row
	}
	dt.Value.Width -= count
	for i := range dt.ColumnHeaders {
		if dt.ColumnHeaders[i].ValueIndex >= at+count {
			dt.ColumnHeaders[i].ValueIndex -= count
		}
	}
	return Operation{
		Kind:     KindInsertDataTableColumns,
		SheetPos: op.SheetPos,
		Column:   op.Column,
		Width:    op.Width,
		Values:   removed,
	}, nil
}

// applyInsertDataTableRows is the row analogue of applyInsertDataTableColumns.
func applyInsertDataTableRows(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	dt, ok := s.DataTableAt(op.SheetPos.Pos)
	if !ok {
		return Operation{}, sheeterr.NewRunError("InsertDataTableRows: no data table at anchor")
	}
	at := int(op.Row)
	count := int(op.Height)
	newRows := make([][]grid.CellValue, count)
	for i := range newRows {
		newRows[i] = make([]grid.CellValue, dt.Value.Width)
		if i < len(op.Values) {
			copy(newRows[i], op.Values[i])
		}
	}
	rows := append([][]grid.CellValue{}, dt.Value.Array[:at]...)
	rows = append(rows, newRows...)
	rows = append(rows, dt.Value.Array[at:]...)
	dt.Value.Array = rows
	dt.Value.Height += count
	return Operation{Kind: KindDeleteDataTableRows, SheetPos: op.SheetPos, Row: op.Row, Height: op.Height}, nil
}

// applyDeleteDataTableRows is the row analogue of applyDeleteDataTableColumns.
func applyDeleteDataTableRows(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	dt, ok := s.DataTableAt(op.SheetPos.Pos)
	if !ok {
		return Operation{}, sheeterr.NewRunError("DeleteDataTableRows: no data table at anchor")
	}
	at := int(op.Row)
	count := int(op.Height)
	removed := append([][]grid.CellValue{}, dt.Value.Array[at:at+count]...)
	rows := append([][]grid.CellValue{}, dt.Value.Array[:at]...)
	rows = append(rows, dt.Value.Array[at+count:]...)
	dt.Value.Array = rows
	dt.Value.Height -= count
	return Operation{
		Kind:     KindInsertDataTableRows,
		SheetPos: op.SheetPos,
		Row:      op.Row,
		Height:   op.Height,
		Values:   removed,
	}, nil
}

// applyMoveColumns relocates op.Width columns starting at op.Column to
// before op.TargetColumn, one column at a time via the existing
// delete/capture/insert/restore primitives so the move reuses DeleteColumn's
// and InsertColumn's shifting behavior instead of a parallel bulk mover.
func applyMoveColumns(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	count := op.Width
	src := op.Column
	dst := op.TargetColumn
	if dst > src {
		dst -= count // removing the source band first shifts the target left
	}
	type capturedColumn struct {
		values  []grid.CellValue
		anchorY int64
		formats *contiguous2d.Contiguous2D[grid.Format]
		borders *contiguous2d.Contiguous2D[grid.Border]
	}
	captured := make([]capturedColumn, count)
	for i := int64(0); i < count; i++ {
		col := src // deleting at a fixed index shifts later columns left into it
		anchorY, values := captureColumnValues(s, col)
		captured[i] = capturedColumn{
			values:  values,
			anchorY: anchorY,
			formats: s.Formats.CopyColumn(col),
			borders: s.Borders.CopyColumn(col),
		}
		s.DeleteColumn(col)
	}
	for i := int64(0); i < count; i++ {
		s.InsertColumn(dst + i)
	}
	for i, c := range captured {
		col := dst + int64(i)
		if !c.borders.IsEmpty() {
			s.Borders.SetRect(geom.Rect{Min: geom.Pos{X: col, Y: 1}, Max: geom.Pos{X: col, Y: geom.Unbounded}}, grid.Border{})
			for _, rv := range c.borders.ToRects() {
				s.Borders.SetRect(geom.Rect{Min: geom.Pos{X: col, Y: rv.Rect.Min.Y}, Max: geom.Pos{X: col, Y: rv.Rect.Max.Y}}, rv.Value)
			}
		}
		if !c.formats.IsEmpty() {
			for _, rv := range c.formats.ToRects() {
				s.Formats.SetRect(geom.Rect{Min: geom.Pos{X: col, Y: rv.Rect.Min.Y}, Max: geom.Pos{X: col, Y: rv.Rect.Max.Y}}, rv.Value)
			}
		}
		if c.values != nil {
			for y, v := range c.values {
				s.SetCellValue(geom.Pos{X: col, Y: c.anchorY + int64(y)}, v)
			}
		}
	}
	return Operation{Kind: KindMoveColumns, SheetPos: op.SheetPos, Column: dst, TargetColumn: src, Width: count}, nil
}

// applyMoveRows is the row analogue of applyMoveColumns.
func applyMoveRows(wb *grid.Workbook, op Operation) (Operation, error) {
	s, err := sheetOrErr(wb, op.SheetPos.Sheet)
	if err != nil {
		return Operation{}, err
	}
	count := op.Height
	src := op.Row
	dst := op.TargetRow
	if dst > src {
		dst -= count
	}
	type capturedRow struct {
		values  []grid.CellValue
		anchorX int64
		formats *contiguous2d.Contiguous2D[grid.Format]
		borders *contiguous2d.Contiguous2D[grid.Border]
	}
	captured := make([]capturedRow, count)
	for i := int64(0); i < count; i++ {
		row := src
		anchorX, values := captureRowValues(s, row)
		captured[i] = capturedRow{
			values:  values,
			anchorX: anchorX,
			formats: s.Formats.CopyRow(row),
			borders: s.Borders.CopyRow(row),
		}
		s.DeleteRow(row)
	}
	for i := int64(0); i < count; i++ {
		s.InsertRow(dst + i)
	}
	for i, c := range captured {
		row := dst + int64(i)
		if !c.borders.IsEmpty() {
			for _, rv := range c.borders.ToRects() {
				s.Borders.SetRect(geom.Rect{Min: geom.Pos{X: rv.Rect.Min.X, Y: row}, Max: geom.Pos{X: rv.Rect.Max.X, Y: row}}, rv.Value)
			}
		}
		if !c.formats.IsEmpty() {
			for _, rv := range c.formats.ToRects() {
				s.Formats.SetRect(geom.Rect{Min: geom.Pos{X: rv.Rect.Min.X, Y: row}, Max: geom.Pos{X: rv.Rect.Max.X, Y: row}}, rv.Value)
			}
		}
		if c.values != nil {
			for x, v := range c.values {
				s.SetCellValue(geom.Pos{X: c.anchorX + int64(x), Y: row}, v)
			}
		}
	}
	return Operation{Kind: KindMoveRows, SheetPos: op.SheetPos, Row: dst, TargetRow: src, Height: count}, nil
}
