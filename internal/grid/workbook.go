package grid

import (
	"strings"

	"sheetengine/internal/geom"
)

// Workbook owns every Sheet in a document plus their display order.
type Workbook struct {
	sheets map[geom.SheetID]*Sheet
	order  []geom.SheetID
}

func NewWorkbook() *Workbook {
	return &Workbook{sheets: make(map[geom.SheetID]*Sheet)}
}

func (w *Workbook) Sheet(id geom.SheetID) (*Sheet, bool) {
	s, ok := w.sheets[id]
	return s, ok
}

func (w *Workbook) MustSheet(id geom.SheetID) *Sheet {
	s, ok := w.sheets[id]
	if !ok {
		panic("sheetengine: unknown sheet id")
	}
	return s
}

func (w *Workbook) AddSheet(s *Sheet, atIndex int) {
	w.sheets[s.ID] = s
	if atIndex < 0 || atIndex > len(w.order) {
		atIndex = len(w.order)
	}
	w.order = append(w.order, geom.SheetID{})
	copy(w.order[atIndex+1:], w.order[atIndex:])
	w.order[atIndex] = s.ID
}

// RemoveSheet deletes id, returning the sheet and the index it occupied so
// a reverse AddSheet can restore its position.
func (w *Workbook) RemoveSheet(id geom.SheetID) (*Sheet, int) {
	s, ok := w.sheets[id]
	if !ok {
		return nil, -1
	}
	idx := -1
	for i, sid := range w.order {
		if sid == id {
			idx = i
			break
		}
	}
	if idx >= 0 {
		w.order = append(w.order[:idx], w.order[idx+1:]...)
	}
	delete(w.sheets, id)
	return s, idx
}

func (w *Workbook) Order() []geom.SheetID { return append([]geom.SheetID{}, w.order...) }

func (w *Workbook) SheetIDByName(name string) (geom.SheetID, bool) {
	for id, s := range w.sheets {
		if strings.EqualFold(s.Name, name) {
			return id, true
		}
	}
	return geom.SheetID{}, false
}

func (w *Workbook) SheetNameByID(id geom.SheetID) (string, bool) {
	if s, ok := w.sheets[id]; ok {
		return s.Name, true
	}
	return "", false
}
