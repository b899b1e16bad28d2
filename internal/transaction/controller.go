// Package transaction implements the Transaction Controller: draining an
// operation queue against a grid.Workbook, pairing every operation with
// its reverse, managing undo/redo stacks, suspending on async code-cell
// execution, and reconciling multiplayer transactions by rollback-and-
// replay. The drain loop is a fetch-execute loop over a flat operation
// queue with a single suspend exit point, configured through a
// constructor-supplied Config rather than package-level globals.
package transaction

import (
	"context"

	"github.com/google/uuid"

	"sheetengine/internal/codecell"
	"sheetengine/internal/codecell/asyncpool"
	"sheetengine/internal/depcache"
	"sheetengine/internal/geom"
	"sheetengine/internal/grid"
	"sheetengine/internal/operations"
	"sheetengine/internal/sheeterr"
	"sheetengine/internal/slog"
)

// Type enumerates the possible origins of a transaction.
type Type int

const (
	TypeUser Type = iota
	TypeUndo
	TypeRedo
	TypeMultiplayer
	TypeRollback
	TypeServer
)

// Config carries every tunable the controller needs, supplied at
// construction instead of read from package globals.
type Config struct {
	MaxOperationSizeColRow int
	Logger                 slog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxOperationSizeColRow <= 0 {
		c.MaxOperationSizeColRow = operations.MaxOperationSizeColRow
	}
	if c.Logger == nil {
		c.Logger = slog.Nop
	}
	return c
}

// Transaction is one unit of applied operations with its paired forward and
// reverse logs.
type Transaction struct {
	ID        string
	Type      Type
	Forward   []operations.Operation
	Reverse   []operations.Operation
	Timestamp int64
	Cursor    string
}

// pendingAsync is one suspended ComputeCode execution, keyed by the
// transaction ID minted for its external runtime dispatch. snapshot is the
// owning transaction's in-flight state at the moment it suspended, so
// CalculationComplete can hand it straight back to the drain loop once
// resolved.
type pendingAsync struct {
	sheetPos      geom.SheetPos
	language      grid.CodeCellLanguage
	cellsAccessed []geom.SheetRect
	snapshot      *inFlight
}

// Controller owns one document's workbook and transaction state machine.
type Controller struct {
	cfg Config
	wb  *grid.Workbook
	dep *depcache.Cache

	undoStack []Transaction
	redoStack []Transaction

	lastSequenceNum    int64
	unsavedTransactions []unsavedEntry

	waitingForAsync *geom.SheetPos
	asyncTxns       map[string]*pendingAsync

	// current accumulates the in-flight transaction's state across drain
	// loop re-entries (including across an async suspension).
	current *inFlight
}

type unsavedEntry struct {
	id      string
	forward []operations.Operation
	reverse []operations.Operation
}

// ServerTransaction is the wire-decoded payload a multiplayer transport
// hands the controller when it receives a sequenced transaction from the
// server: a transaction ID, its sequence number, and the operations to
// apply.
type ServerTransaction struct {
	TransactionID string
	SequenceNum   int64
	Operations    []operations.Operation
	Cursor        string
}

// ReconcileOutcome reports which branch of the multiplayer reconciliation
// algorithm fired, so a transport layer can decide whether to request a
// replay from the server.
type ReconcileOutcome struct {
	NeedsReplay bool
	Applied     bool
	Summary     Summary
}

type inFlight struct {
	id        string
	txType    Type
	cursor    string
	queue     []operations.Operation
	forward   []operations.Operation
	reverse   []operations.Operation
	queuedSet map[geom.Pos]bool
	dirty     map[geom.SheetID]bool
}

func New(cfg Config, wb *grid.Workbook) *Controller {
	return &Controller{
		cfg:       cfg.withDefaults(),
		wb:        wb,
		dep:       depcache.New(),
		asyncTxns: make(map[string]*pendingAsync),
	}
}

// Summary describes what a caller-facing host binding should invalidate
// after a transaction runs to completion or suspends.
type Summary struct {
	Complete        bool
	WaitingForAsync bool
	TransactionID   string
	DirtySheets     map[geom.SheetID]bool
}

// StartTransaction resets per-transaction state (preserving the undo/redo
// stacks and the unsaved-transaction queue) and drains ops. A user
// transaction containing the deprecated SetChartSize operation is rejected
// before anything is applied; other transaction types replay it as is.
func (c *Controller) StartTransaction(ops []operations.Operation, cursor string, txType Type) (Summary, error) {
	id := ""
	if txType == TypeUser {
		for _, op := range ops {
			if op.IsLegacyChartSize() {
				return Summary{}, sheeterr.NewRunError("transaction: SetChartSize is not accepted on new input; use SetChartCellSize")
			}
		}
		id = uuid.NewString()
	}
	c.current = &inFlight{id: id, txType: txType, cursor: cursor, queue: ops, queuedSet: map[geom.Pos]bool{}, dirty: map[geom.SheetID]bool{}}
	return c.drain()
}

// drain pops and executes operations one at a time, suspending as soon as
// execution sets waitingForAsync and otherwise looping until the queue is
// empty.
func (c *Controller) drain() (Summary, error) {
	f := c.current
	for len(f.queue) > 0 {
		op := f.queue[0]
		f.queue = f.queue[1:]

		reverses, err := c.execute(op, f, f.dirty)
		if err != nil {
			c.rollbackPartial(f)
			return Summary{}, err
		}
		f.forward = append(f.forward, op)
		f.reverse = append(f.reverse, reverses...)

		if c.waitingForAsync != nil {
			return Summary{WaitingForAsync: true, TransactionID: f.id, DirtySheets: f.dirty}, nil
		}
	}
	c.finalize(f)
	return Summary{Complete: true, TransactionID: f.id, DirtySheets: f.dirty}, nil
}

// rollbackPartial undoes whatever this transaction already applied, in
// reverse order, when a later operation fails its preconditions: the
// entire transaction aborts and any partial mutations are rolled back by
// applying the accumulated reverse operations.
func (c *Controller) rollbackPartial(f *inFlight) {
	for i := len(f.reverse) - 1; i >= 0; i-- {
		_, _ = operations.Apply(c.wb, f.reverse[i])
	}
	c.current = nil
}

// execute applies op. Operations that change what a cell *reads as*
// enqueue ComputeCode for their dependents; a SetCodeRun
// instead enqueues a single ComputeCode for itself, since changing a code
// cell's source doesn't change any value until it is re-evaluated.
// KindComputeCode is dispatched separately by language.
func (c *Controller) execute(op operations.Operation, f *inFlight, dirty map[geom.SheetID]bool) ([]operations.Operation, error) {
	if op.Kind == operations.KindComputeCode {
		return c.executeComputeCode(op, f, dirty)
	}

	reverses, err := operations.Apply(c.wb, op)
	if err != nil {
		return nil, err
	}

	if op.Kind == operations.KindSetCodeRun {
		c.enqueueCompute(f, op.SheetPos.Sheet, op.SheetPos.Pos)
		dirty[op.SheetPos.Sheet] = true
		return reverses, nil
	}

	affectedSheet, affectedRect, ok := affectedRegion(op)
	if ok {
		dirty[affectedSheet] = true
		for _, req := range c.dep.AddComputeOperations(affectedSheet, affectedRect, nil, f.queuedSet) {
			c.enqueueCompute(f, req.Sheet, req.Pos)
		}
	}
	return reverses, nil
}

func (c *Controller) enqueueCompute(f *inFlight, sheet geom.SheetID, pos geom.Pos) {
	if f.queuedSet[pos] {
		return
	}
	f.queuedSet[pos] = true
	f.queue = append(f.queue, operations.Operation{Kind: operations.KindComputeCode, SheetPos: geom.SheetPos{Sheet: sheet, Pos: pos}})
}

// affectedRegion reports the sheet/rectangle a raw value mutation touched,
// for dependency propagation. Code-cell and data-table operations are
// handled by their own call sites, not here; operations with no grid
// footprint (Cursor, sheet metadata) return ok=false.
func affectedRegion(op operations.Operation) (geom.SheetID, geom.Rect, bool) {
	switch op.Kind {
	case operations.KindSetCellValues:
		h := len(op.Values)
		w := 0
		if h > 0 {
			w = len(op.Values[0])
		}
		if h == 0 || w == 0 {
			return geom.SheetID{}, geom.Rect{}, false
		}
		return op.SheetPos.Sheet, geom.RectFromSize(op.SheetPos.Pos, int64(w), int64(h)), true
	case operations.KindInsertColumn, operations.KindDeleteColumn, operations.KindInsertRow, operations.KindDeleteRow:
		return op.SheetPos.Sheet, geom.Rect{Min: geom.Pos{X: 1, Y: 1}, Max: geom.Pos{X: geom.Unbounded, Y: geom.Unbounded}}, true
	default:
		return geom.SheetID{}, geom.Rect{}, false
	}
}

// executeComputeCode dispatches a code cell by language: Formula runs
// synchronously and loops back into the drain loop; Python, JavaScript,
// and Connection suspend it.
func (c *Controller) executeComputeCode(op operations.Operation, f *inFlight, dirty map[geom.SheetID]bool) ([]operations.Operation, error) {
	sheet, ok := c.wb.Sheet(op.SheetPos.Sheet)
	if !ok {
		return nil, sheeterr.NewInvariantViolation("transaction: ComputeCode on unknown sheet")
	}
	cell := sheet.CellValue(op.SheetPos.Pos)
	if cell.Kind != grid.KindCode {
		return nil, sheeterr.NewRunError("transaction: ComputeCode target is not a code cell")
	}
	lang := cell.Code.Language

	if lang == grid.LangFormula {
		run, value := codecell.ExecuteFormula(op.SheetPos.Sheet, sheet, cell.Code.Code, 0)
		reverse, err := c.applyCodeResult(op.SheetPos, run, value, dirty)
		if err != nil {
			return nil, err
		}
		c.enqueueDependentsOf(op.SheetPos, f)
		return []operations.Operation{reverse}, nil
	}

	txnID := uuid.NewString()
	c.asyncTxns[txnID] = &pendingAsync{sheetPos: op.SheetPos, language: lang, snapshot: f}
	c.waitingForAsync = &op.SheetPos
	// f.queue already holds whatever ops were still pending after this
	// ComputeCode (drain popped it before calling execute); leave it
	// untouched so CalculationComplete can resume straight from it.
	return []operations.Operation{{Kind: operations.KindComputeCode, SheetPos: op.SheetPos}}, nil
}

// enqueueDependentsOf finds every code-cell anchor whose recorded reads
// overlap anchor's current output rectangle and enqueues a ComputeCode for
// each that isn't anchor itself and isn't already queued this transaction.
func (c *Controller) enqueueDependentsOf(anchor geom.SheetPos, f *inFlight) {
	sheet, ok := c.wb.Sheet(anchor.Sheet)
	if !ok {
		return
	}
	dt, ok := sheet.DataTableAt(anchor.Pos)
	rect := geom.RectAt(anchor.Pos)
	if ok {
		rect = dt.OutputRect(anchor.Pos)
	}
	skip := anchor.Pos
	for _, req := range c.dep.AddComputeOperations(anchor.Sheet, rect, &skip, f.queuedSet) {
		c.enqueueCompute(f, req.Sheet, req.Pos)
	}
}

func (c *Controller) applyCodeResult(pos geom.SheetPos, run *grid.CodeRun, value grid.TableValue, dirty map[geom.SheetID]bool) (operations.Operation, error) {
	sheet, ok := c.wb.Sheet(pos.Sheet)
	if !ok {
		return operations.Operation{}, sheeterr.NewInvariantViolation("transaction: code result on unknown sheet")
	}
	dt := &grid.DataTable{Kind: grid.KindCodeRun, Run: *run, Value: value}
	reverses, applyErr := operations.Apply(c.wb, operations.Operation{Kind: operations.KindAddDataTable, SheetPos: pos, DataTable: dt})
	if applyErr != nil {
		return operations.Operation{}, applyErr
	}
	// AddDataTable always yields exactly one reverse operation.
	reverse := reverses[0]

	if run.Error == nil {
		dt.SpillError = depcache.EvaluateSpill(sheet, pos.Pos, dt)
	}
	c.dep.Update(pos.Sheet, pos.Pos, run.CellsAccessed)
	dirty[pos.Sheet] = true

	return reverse, nil
}

// GetCells serves a read request from a still-suspended async code cell,
// recording the read rectangle against the pending transaction so the
// completed run's dependency set includes everything it looked at.
func (c *Controller) GetCells(transactionID string, x, y, w int64, h int64, hasHeight bool) ([]codecell.CellResult, error) {
	pending, ok := c.asyncTxns[transactionID]
	if !ok {
		return nil, sheeterr.NewTransactionNotFound("transaction: unknown async transaction %q", transactionID)
	}
	sheet, ok := c.wb.Sheet(pending.sheetPos.Sheet)
	if !ok {
		return nil, sheeterr.NewInvariantViolation("transaction: pending transaction references unknown sheet")
	}
	cells, rect := codecell.GetCells(sheet, x, y, w, h, hasHeight)
	pending.cellsAccessed = append(pending.cellsAccessed, geom.SheetRect{Sheet: pending.sheetPos.Sheet, Rect: rect})
	return cells, nil
}

// CalculationComplete resumes a suspended transaction: applies the async
// runtime's result, clears WaitingForAsync, and re-enters the drain loop
// with whatever operations were still queued when the ComputeCode
// suspended.
func (c *Controller) CalculationComplete(transactionID string, result codecell.CompletionResult) (Summary, error) {
	pending, ok := c.asyncTxns[transactionID]
	if !ok {
		return Summary{}, sheeterr.NewTransactionNotFound("transaction: unknown async transaction %q", transactionID)
	}
	delete(c.asyncTxns, transactionID)
	c.waitingForAsync = nil

	f := pending.snapshot
	run, value, chart := codecell.BuildCodeRun(pending.language, result, pending.cellsAccessed, 0)
	reverse, err := c.applyCodeResult(pending.sheetPos, run, value, f.dirty)
	if err != nil {
		return Summary{}, err
	}
	f.forward = append(f.forward, operations.Operation{Kind: operations.KindComputeCode, SheetPos: pending.sheetPos})
	f.reverse = append(f.reverse, reverse)

	if chart != nil {
		chartOp := operations.Operation{Kind: operations.KindSetChartCellSize, SheetPos: pending.sheetPos, Width: int64(chart.Width), Height: int64(chart.Height)}
		chartReverses, err := operations.Apply(c.wb, chartOp)
		if err != nil {
			return Summary{}, err
		}
		f.forward = append(f.forward, chartOp)
		f.reverse = append(f.reverse, chartReverses...)
	}

	c.enqueueDependentsOf(pending.sheetPos, f)

	if result.CancelCompute {
		f.queue = nil
	}

	c.current = f
	return c.drain()
}

// ResolvePending drives every currently-suspended async code-cell execution
// to completion through pool, bounding how many an embedder runs
// concurrently and deduplicating any that target the same cell. resolve is
// the caller-supplied bridge to the actual Python/JavaScript/Connection
// runtime; this method only knows how to turn its result back into a
// CalculationComplete call, matching how a single runtime callback already
// resumes the drain loop. Returns one error per pending transaction that
// failed to resolve or failed to apply, in no particular order; a pending
// transaction resolved successfully contributes no entry.
func (c *Controller) ResolvePending(ctx context.Context, pool *asyncpool.Pool, resolve func(ctx context.Context, sheetPos geom.SheetPos, language grid.CodeCellLanguage) (codecell.CompletionResult, error)) []error {
	txnIDs := make([]string, 0, len(c.asyncTxns))
	dispatches := make([]asyncpool.Dispatch, 0, len(c.asyncTxns))
	for id, pending := range c.asyncTxns {
		id, pending := id, pending
		txnIDs = append(txnIDs, id)
		dispatches = append(dispatches, asyncpool.Dispatch{
			SheetPos: pending.sheetPos,
			Run: func(ctx context.Context) (interface{}, error) {
				return resolve(ctx, pending.sheetPos, pending.language)
			},
		})
	}

	results, runErrs := pool.RunAll(ctx, dispatches)

	var errs []error
	for i, id := range txnIDs {
		if runErrs[i] != nil {
			errs = append(errs, runErrs[i])
			continue
		}
		result, ok := results[i].(codecell.CompletionResult)
		if !ok {
			errs = append(errs, sheeterr.NewInvariantViolation("transaction: ResolvePending got unexpected result type for %q", id))
			continue
		}
		if _, err := c.CalculationComplete(id, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// finalize dispatches by TransactionType on completion.
func (c *Controller) finalize(f *inFlight) {
	tx := Transaction{ID: f.id, Forward: f.forward, Reverse: f.reverse, Cursor: f.cursor, Type: f.txType}
	switch f.txType {
	case TypeUser:
		c.undoStack = append(c.undoStack, tx)
		c.redoStack = nil
		c.unsavedTransactions = append(c.unsavedTransactions, unsavedEntry{id: tx.ID, forward: tx.Forward, reverse: tx.Reverse})
	case TypeUndo:
		c.redoStack = append(c.redoStack, tx)
		c.unsavedTransactions = append(c.unsavedTransactions, unsavedEntry{id: tx.ID, forward: tx.Forward, reverse: tx.Reverse})
	case TypeRedo:
		c.undoStack = append(c.undoStack, tx)
		c.unsavedTransactions = append(c.unsavedTransactions, unsavedEntry{id: tx.ID, forward: tx.Forward, reverse: tx.Reverse})
	case TypeMultiplayer, TypeRollback, TypeServer:
		// no stack changes
	}
	c.current = nil
}

// UndoStackLen / RedoStackLen expose stack depth for host bindings and
// tests.
func (c *Controller) UndoStackLen() int { return len(c.undoStack) }
func (c *Controller) RedoStackLen() int { return len(c.redoStack) }

// reversed returns ops in last-to-first order: a transaction's reverse log
// is recorded in the same order its forward operations executed, so
// undoing it must replay that log back to front to invert multi-op
// transactions correctly (matches rollbackPartial's own ordering).
func reversed(ops []operations.Operation) []operations.Operation {
	out := make([]operations.Operation, len(ops))
	for i, op := range ops {
		out[len(ops)-1-i] = op
	}
	return out
}

// Undo pops the top undo transaction and replays its reverse operations,
// back to front, as a TypeUndo transaction.
func (c *Controller) Undo(cursor string) (Summary, error) {
	if len(c.undoStack) == 0 {
		return Summary{Complete: true}, nil
	}
	top := c.undoStack[len(c.undoStack)-1]
	c.undoStack = c.undoStack[:len(c.undoStack)-1]
	return c.StartTransaction(reversed(top.Reverse), cursor, TypeUndo)
}

// Redo pops the top redo transaction (itself a recorded Undo) and, just
// like Undo, replays its reverse log back to front, which hands back the
// original pre-undo operation sequence rather than the undo's own forward
// log.
func (c *Controller) Redo(cursor string) (Summary, error) {
	if len(c.redoStack) == 0 {
		return Summary{Complete: true}, nil
	}
	top := c.redoStack[len(c.redoStack)-1]
	c.redoStack = c.redoStack[:len(c.redoStack)-1]
	return c.StartTransaction(reversed(top.Reverse), cursor, TypeRedo)
}

// ReceiveMultiplayerTransaction implements the reconciliation algorithm:
// out-of-order sequence numbers ask the transport to replay; a
// transaction that is our own pending ack advances lastSequenceNum; a
// peer's transaction rolls back any unsaved local edits, applies the
// peer's operations, then reapplies the local edits on top, so the end
// state matches what the server would compute given peer-then-local
// ordering.
func (c *Controller) ReceiveMultiplayerTransaction(st ServerTransaction) (ReconcileOutcome, error) {
	if st.SequenceNum != c.lastSequenceNum+1 {
		return ReconcileOutcome{NeedsReplay: true}, nil
	}

	if idx := c.unsavedIndex(st.TransactionID); idx >= 0 {
		if idx == 0 {
			c.unsavedTransactions = c.unsavedTransactions[1:]
			c.lastSequenceNum = st.SequenceNum
			return ReconcileOutcome{Applied: false}, nil
		}
		// Our own transaction acked out of order relative to our local
		// queue: this logs at debug level and also requests a replay, an
		// intentionally redundant pair of responses rather than picking just
		// one.
		c.cfg.Logger.Log(slog.LevelDebug, "transaction: received out-of-order ack for unsaved transaction %q", st.TransactionID)
		return ReconcileOutcome{NeedsReplay: true}, nil
	}

	c.lastSequenceNum = st.SequenceNum

	if len(c.unsavedTransactions) == 0 {
		summary, err := c.StartTransaction(st.Operations, st.Cursor, TypeMultiplayer)
		return ReconcileOutcome{Applied: true, Summary: summary}, err
	}

	for i := len(c.unsavedTransactions) - 1; i >= 0; i-- {
		if _, err := c.StartTransaction(reversed(c.unsavedTransactions[i].reverse), st.Cursor, TypeRollback); err != nil {
			return ReconcileOutcome{}, err
		}
	}
	if _, err := c.StartTransaction(st.Operations, st.Cursor, TypeRollback); err != nil {
		return ReconcileOutcome{}, err
	}
	var summary Summary
	var err error
	for _, u := range c.unsavedTransactions {
		summary, err = c.StartTransaction(append([]operations.Operation{}, u.forward...), st.Cursor, TypeRollback)
		if err != nil {
			return ReconcileOutcome{}, err
		}
	}
	return ReconcileOutcome{Applied: true, Summary: summary}, nil
}

func (c *Controller) unsavedIndex(id string) int {
	for i, u := range c.unsavedTransactions {
		if u.id == id {
			return i
		}
	}
	return -1
}

// Workbook exposes the underlying grid for read-only queries.
func (c *Controller) Workbook() *grid.Workbook { return c.wb }

// WaitingForAsync reports whether the controller is suspended.
func (c *Controller) WaitingForAsync() bool { return c.waitingForAsync != nil }
