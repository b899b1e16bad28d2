// Package wsbridge frames transaction traffic over a websocket connection.
// It is a thin adapter, not a protocol: message shapes here are this
// repository's own, not a wire format any particular client speaks. Kept
// outside internal/ so the transaction controller never imports a
// transport concern. A Conn wraps a *websocket.Conn, runs a background
// reader goroutine feeding a buffered channel, and exposes explicit
// Send/Receive/Close methods rather than the raw connection.
package wsbridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sheetengine/internal/operations"
	"sheetengine/internal/transaction"
)

// FrameKind tags the envelope's payload.
type FrameKind string

const (
	FrameOperations  FrameKind = "operations"
	FrameSummary     FrameKind = "summary"
	FrameServerTxn   FrameKind = "server_transaction"
	FrameNeedsReplay FrameKind = "needs_replay"
)

// Frame is the envelope every message on the bridge carries, discriminated
// by Kind; only the field matching Kind is meaningful.
//
// JSON round-tripping is exact for the operation kinds a demo client needs
// (cell values, code cells, structural row/column edits, cursor). Kinds
// carrying a *grid.Sheet or a *contiguous2d.Contiguous2D payload
// (AddSheet/DeleteSheet, SetCellFormatsA1, SetBordersA1) encode only their
// exported fields, since those types keep their backing storage
// unexported; a production wire format would give those types their own
// MarshalJSON.
type Frame struct {
	Kind FrameKind `json:"kind"`

	Operations []operations.Operation         `json:"operations,omitempty"`
	Cursor     string                         `json:"cursor,omitempty"`
	Summary    *transaction.Summary           `json:"summary,omitempty"`
	ServerTxn  *transaction.ServerTransaction `json:"server_transaction,omitempty"`
}

// Conn wraps a single websocket connection, framing Frame values as JSON
// text messages.
type Conn struct {
	ws *websocket.Conn

	mu     sync.Mutex
	closed bool

	incoming chan Frame
	readErr  chan error
}

// Dial opens a client connection to a bridge server.
func Dial(url string) (*Conn, error) {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsbridge: dial: %w", err)
	}
	return newConn(ws), nil
}

func newConn(ws *websocket.Conn) *Conn {
	c := &Conn{ws: ws, incoming: make(chan Frame, 32), readErr: make(chan error, 1)}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	defer close(c.incoming)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.readErr <- err
			return
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		c.incoming <- f
	}
}

// Send writes a frame as a single JSON text message.
func (c *Conn) Send(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("wsbridge: connection closed")
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("wsbridge: encode frame: %w", err)
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// SendOperations frames a local operation batch for the server.
func (c *Conn) SendOperations(ops []operations.Operation, cursor string) error {
	return c.Send(Frame{Kind: FrameOperations, Operations: ops, Cursor: cursor})
}

// SendSummary frames a transaction summary for a connected client.
func (c *Conn) SendSummary(s transaction.Summary) error {
	return c.Send(Frame{Kind: FrameSummary, Summary: &s})
}

// SendServerTransaction frames an acked/peer transaction for a client to
// reconcile.
func (c *Conn) SendServerTransaction(st transaction.ServerTransaction) error {
	return c.Send(Frame{Kind: FrameServerTxn, ServerTxn: &st})
}

// Receive blocks for the next inbound frame, or returns the error that
// ended the read loop once the channel drains.
func (c *Conn) Receive() (Frame, error) {
	f, ok := <-c.incoming
	if ok {
		return f, nil
	}
	select {
	case err := <-c.readErr:
		return Frame{}, err
	default:
		return Frame{}, fmt.Errorf("wsbridge: connection closed")
	}
}

// Close sends a normal-closure control frame and closes the socket.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}
