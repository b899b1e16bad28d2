// Package grid implements the core data model: typed cell values, the
// per-sheet column store, and data tables. The CellValue tagged union
// uses a byte-sized Kind plus one struct per variant's payload rather
// than a NaN-boxed value representation, trading a few extra bytes per
// cell for readability the in-memory engine at this scale doesn't need
// to give up.
package grid

import (
	"fmt"

	"github.com/shopspring/decimal"

	"sheetengine/internal/sheeterr"
)

// Kind tags a CellValue's active variant.
type Kind byte

const (
	KindBlank Kind = iota
	KindText
	KindNumber
	KindLogical
	KindDate
	KindTime
	KindDateTime
	KindDuration
	KindError
	KindHTML
	KindImage
	KindCode
	KindImport
)

func (k Kind) String() string {
	names := [...]string{"Blank", "Text", "Number", "Logical", "Date", "Time",
		"DateTime", "Duration", "Error", "HTML", "Image", "Code", "Import"}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// CodeCellLanguage is the finite tagged variant for the language a Code
// cell's source is written in.
type CodeCellLanguage string

const (
	LangFormula    CodeCellLanguage = "Formula"
	LangPython     CodeCellLanguage = "Python"
	LangJavaScript CodeCellLanguage = "JavaScript"
	LangConnection CodeCellLanguage = "Connection"
)

// IsAsync reports whether this language suspends the transaction on an
// external runtime.
func (l CodeCellLanguage) IsAsync() bool {
	return l == LangPython || l == LangJavaScript || l == LangConnection
}

// CodeCellValue is the payload of a Code cell: source text plus language.
type CodeCellValue struct {
	Language CodeCellLanguage
	Code     string
}

// ImportRef is the payload of an Import cell: a reference to an externally
// imported file, resolved by the (out-of-scope) file-import codecs.
type ImportRef struct {
	FileID   string
	FileName string
}

// ImageValue is the payload of an Image cell.
type ImageValue struct {
	Bytes []byte
	MIME  string
}

// CellValue is the tagged-union value a single grid cell can hold. Only
// one of the payload fields is meaningful, selected by Kind; a struct
// fits this better than a Go interface would, since CellValue must remain
// a plain comparable-ish value type usable as a map value.
type CellValue struct {
	Kind     Kind
	Text     string
	Number   decimal.Decimal
	Logical  bool
	DateTime int64 // unix nanos; interpretation depends on Kind (Date/Time/DateTime/Duration)
	Err      *sheeterr.Error
	HTML     string
	Image    ImageValue
	Code     CodeCellValue
	Import   ImportRef
}

// Blank is the canonical blank value. Blank is never stored in a Sheet's
// column map; its presence in code is only as a return value or an
// explicit clear.
var Blank = CellValue{Kind: KindBlank}

func Text(s string) CellValue { return CellValue{Kind: KindText, Text: s} }

func Number(d decimal.Decimal) CellValue { return CellValue{Kind: KindNumber, Number: d} }

func NumberFromInt(i int64) CellValue { return Number(decimal.NewFromInt(i)) }

func Logical(b bool) CellValue { return CellValue{Kind: KindLogical, Logical: b} }

func ErrorValue(err *sheeterr.Error) CellValue { return CellValue{Kind: KindError, Err: err} }

func Code(lang CodeCellLanguage, source string) CellValue {
	return CellValue{Kind: KindCode, Code: CodeCellValue{Language: lang, Code: source}}
}

func (v CellValue) IsBlank() bool { return v.Kind == KindBlank }

// String renders the display text of a value the way a renderer would,
// independent of any DataTable overlay (see Sheet.DisplayValue for the
// overlay-aware read path).
func (v CellValue) String() string {
	switch v.Kind {
	case KindBlank:
		return ""
	case KindText:
		return v.Text
	case KindNumber:
		return v.Number.String()
	case KindLogical:
		if v.Logical {
			return "TRUE"
		}
		return "FALSE"
	case KindError:
		if v.Err != nil {
			return v.Err.Error()
		}
		return "#ERROR"
	case KindHTML:
		return v.HTML
	case KindCode:
		return v.Code.Code
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}
