// Command sheetctl is a small interactive driver over the transaction
// controller, exposing load/set/undo/redo/dump as a textual REPL. It is a
// manual-exploration demo harness, not a product surface: a flat map of
// short command aliases resolved before a switch on the command name.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"sheetengine/internal/a1"
	"sheetengine/internal/geom"
	"sheetengine/internal/grid"
	"sheetengine/internal/operations"
	"sheetengine/internal/transaction"
)

var commandAliases = map[string]string{
	"s": "set",
	"u": "undo",
	"r": "redo",
	"d": "dump",
	"q": "quit",
}

type session struct {
	ctrl  *transaction.Controller
	sheet geom.SheetID
}

func newSession() *session {
	wb := grid.NewWorkbook()
	id := geom.SheetID{1}
	wb.AddSheet(grid.NewSheet(id, "Sheet1"), -1)
	return &session{ctrl: transaction.New(transaction.Config{}, wb), sheet: id}
}

func main() {
	s := newSession()
	scanner := bufio.NewScanner(os.Stdin)
	color := isatty.IsTerminal(os.Stdout.Fd())

	for {
		fmt.Fprint(os.Stdout, prompt(color))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd := fields[0]
		if alias, ok := commandAliases[cmd]; ok {
			cmd = alias
		}

		switch cmd {
		case "load":
			s = newSession()
			fmt.Println("loaded a fresh workbook with one sheet")
		case "set":
			s.handleSet(fields[1:])
		case "undo":
			s.handleUndo()
		case "redo":
			s.handleRedo()
		case "dump":
			s.handleDump()
		case "quit", "exit":
			return
		case "help", "--help", "-h":
			showUsage()
		default:
			fmt.Printf("sheetctl: unknown command %q (try: load, set, undo, redo, dump, quit)\n", cmd)
		}
	}
}

func prompt(color bool) string {
	if !color {
		return "sheetctl> "
	}
	return "\x1b[36msheetctl>\x1b[0m "
}

func showUsage() {
	fmt.Println(`usage:
  load             start a fresh single-sheet workbook
  set <A1> <val>   set a cell to a number or text value
  undo             undo the last transaction
  redo             redo the last undone transaction
  dump             print non-blank cells and undo/redo depth
  quit             exit`)
}

func (s *session) handleSet(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: set <A1> <value>")
		return
	}
	pos, err := parseA1(args[0])
	if err != nil {
		fmt.Printf("sheetctl: %v\n", err)
		return
	}
	value := strings.Join(args[1:], " ")
	cell := cellValueFromInput(value)

	op := operations.Operation{
		Kind:     operations.KindSetCellValues,
		SheetPos: geom.SheetPos{Sheet: s.sheet, Pos: pos},
		Values:   [][]grid.CellValue{{cell}},
	}
	summary, err := s.ctrl.StartTransaction([]operations.Operation{op}, "", transaction.TypeUser)
	if err != nil {
		fmt.Printf("sheetctl: %v\n", err)
		return
	}
	fmt.Printf("ok (dirty sheets: %d)\n", len(summary.DirtySheets))
}

func cellValueFromInput(value string) grid.CellValue {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return grid.NumberFromInt(n)
	}
	return grid.Text(value)
}

func parseA1(ref string) (geom.Pos, error) {
	ref = strings.ToUpper(ref)
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(ref) {
		return geom.Pos{}, fmt.Errorf("invalid cell reference %q", ref)
	}
	col, err := a1.ColumnLettersToIndex(ref[:i])
	if err != nil {
		return geom.Pos{}, err
	}
	row, err := strconv.ParseInt(ref[i:], 10, 64)
	if err != nil || row < 1 {
		return geom.Pos{}, fmt.Errorf("invalid row in %q", ref)
	}
	return geom.Pos{X: col, Y: row}, nil
}

func (s *session) handleUndo() {
	summary, err := s.ctrl.Undo("")
	if err != nil {
		fmt.Printf("sheetctl: %v\n", err)
		return
	}
	fmt.Printf("undone (undo depth now %s)\n", humanize.Comma(int64(s.ctrl.UndoStackLen())))
	_ = summary
}

func (s *session) handleRedo() {
	summary, err := s.ctrl.Redo("")
	if err != nil {
		fmt.Printf("sheetctl: %v\n", err)
		return
	}
	fmt.Printf("redone (redo depth now %s)\n", humanize.Comma(int64(s.ctrl.RedoStackLen())))
	_ = summary
}

func (s *session) handleDump() {
	sheet, ok := s.ctrl.Workbook().Sheet(s.sheet)
	if !ok {
		fmt.Println("sheetctl: no active sheet")
		return
	}
	bounds := sheet.Bounds()
	count := 0
	for y := bounds.Min.Y; y <= bounds.Max.Y; y++ {
		for x := bounds.Min.X; x <= bounds.Max.X; x++ {
			v := sheet.DisplayValue(geom.Pos{X: x, Y: y})
			if v.IsBlank() {
				continue
			}
			count++
			fmt.Printf("  %s%d = %s\n", a1ColumnLetters(x), y, v.String())
		}
	}
	fmt.Printf("%s non-blank cell(s); undo depth %d, redo depth %d\n",
		humanize.Comma(int64(count)), s.ctrl.UndoStackLen(), s.ctrl.RedoStackLen())
}

func a1ColumnLetters(col int64) string {
	var sb []byte
	for col > 0 {
		col--
		sb = append([]byte{byte('A' + col%26)}, sb...)
		col /= 26
	}
	return string(sb)
}
