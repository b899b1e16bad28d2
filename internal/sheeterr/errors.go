// Package sheeterr is the engine's single structured error type: one
// Kind-tagged struct per subsystem instead of a new sentinel per call
// site, with optional chained context.
package sheeterr

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Kind distinguishes the error families named in the engine's error model.
type Kind string

const (
	ParseError          Kind = "ParseError"
	RunError            Kind = "RunError"
	SpillError          Kind = "SpillError"
	ImportError         Kind = "ImportError"
	TransactionNotFound Kind = "TransactionNotFound"
	InvariantViolation  Kind = "InvariantViolation"
)

// Strict controls whether NewInvariantViolation panics immediately (the
// development behavior) or returns the error for the caller to propagate.
// Embedders that prefer returned errors over panics set this to false.
var Strict = true

// Error is the engine's structured error value.
type Error struct {
	Kind    Kind
	Message string
	Sheet   string // optional sheet name/id for context
	Pos     string // optional "x,y" style context
	cause   error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Sheet != "" {
		fmt.Fprintf(&sb, " (sheet=%s", e.Sheet)
		if e.Pos != "" {
			fmt.Fprintf(&sb, " pos=%s", e.Pos)
		}
		sb.WriteString(")")
	}
	if e.cause != nil {
		fmt.Fprintf(&sb, ": %v", e.cause)
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.cause }

// WithSheet attaches sheet context and returns the receiver for chaining.
func (e *Error) WithSheet(sheet string) *Error {
	e.Sheet = sheet
	return e
}

// WithPos attaches positional context and returns the receiver for chaining.
func (e *Error) WithPos(pos string) *Error {
	e.Pos = pos
	return e
}

// WithCause wraps a lower-level error, capturing a stack via pkg/errors,
// and returns the receiver for chaining.
func (e *Error) WithCause(cause error) *Error {
	if cause != nil {
		e.cause = pkgerrors.WithStack(cause)
	}
	return e
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NewParseError(format string, args ...interface{}) *Error {
	return New(ParseError, format, args...)
}

func NewRunError(format string, args ...interface{}) *Error {
	return New(RunError, format, args...)
}

func NewSpillError(format string, args ...interface{}) *Error {
	return New(SpillError, format, args...)
}

func NewImportError(format string, args ...interface{}) *Error {
	return New(ImportError, format, args...)
}

func NewTransactionNotFound(format string, args ...interface{}) *Error {
	return New(TransactionNotFound, format, args...)
}

// NewInvariantViolation panics immediately when Strict is true (development
// default); otherwise it returns the error for the caller to propagate.
func NewInvariantViolation(format string, args ...interface{}) *Error {
	e := New(InvariantViolation, format, args...)
	if Strict {
		panic(e)
	}
	return e
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	se, ok := err.(*Error)
	return ok && se.Kind == kind
}
