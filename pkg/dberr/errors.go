package dberr

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Kind classifies an error by the layer that produced it and the
// appropriate handling strategy. Lower layers return rich kinds; the
// top-level query entry point composes them and surfaces a single
// structured error to the caller.
type Kind string

const (
	// Io covers filesystem open/read/write failures.
	Io Kind = "IO"

	// Format means the database file header is invalid: wrong magic,
	// bad page size, or a file too short to hold the header.
	Format Kind = "FORMAT"

	// Corrupt means bytes inside a page could not be interpreted: an
	// invalid page type byte, a bad cell pointer, a truncated varint,
	// or a reserved serial-type code.
	Corrupt Kind = "CORRUPT"

	// Unsupported marks valid SQLite constructs this engine does not
	// handle: overflow cells, index b-trees, multi-level writes,
	// non-UTF-8 text encodings.
	Unsupported Kind = "UNSUPPORTED"

	// Parse covers lexer and parser failures as well as AST lowering
	// rejections.
	Parse Kind = "PARSE"

	// UnknownTable and UnknownColumn are name-resolution failures.
	UnknownTable  Kind = "UNKNOWN_TABLE"
	UnknownColumn Kind = "UNKNOWN_COLUMN"

	// TypeMismatch is a STRICT violation or arithmetic on incompatible
	// types.
	TypeMismatch Kind = "TYPE_MISMATCH"

	// NoRoom means an append would exceed the free space of a leaf page.
	NoRoom Kind = "NO_ROOM"

	// Busy means a page lease conflicted with an outstanding one: a
	// write lease while any other lease is held, or a read lease while a
	// write lease is held.
	Busy Kind = "BUSY"

	// Closed means an operation was attempted on a closed iterator,
	// scanner or pager.
	Closed Kind = "CLOSED"

	// Internal marks violated internal invariants. User input must
	// never produce this kind.
	Internal Kind = "INTERNAL"
)

// Category groups kinds for handling purposes.
type Category int

const (
	// CategoryUser represents errors caused by invalid user input:
	// syntax errors, unknown names, type mismatches.
	CategoryUser Category = iota

	// CategoryTransient represents errors that might succeed on retry,
	// such as a Busy write lease.
	CategoryTransient

	// CategorySystem represents errors requiring operator attention:
	// missing files, permission problems.
	CategorySystem

	// CategoryData represents data corruption or format problems in
	// the database file itself.
	CategoryData
)

// categoryOf maps each kind to its handling category.
func categoryOf(kind Kind) Category {
	switch kind {
	case Parse, UnknownTable, UnknownColumn, TypeMismatch, Closed:
		return CategoryUser
	case Busy, NoRoom:
		return CategoryTransient
	case Format, Corrupt, Unsupported:
		return CategoryData
	default:
		return CategorySystem
	}
}

// DBError is a structured database error with layered context.
type DBError struct {
	// Kind is the error's classification code.
	Kind Kind

	// Category classifies the error for handling strategy.
	Category Category

	// Message is a human-readable description of what went wrong.
	Message string

	// Detail provides context about the specific instance, e.g.
	// `table "users" has no column "age"`.
	Detail string

	// Operation identifies the operation in flight when the error
	// occurred, e.g. "ReadPage", "Scan", "Insert".
	Operation string

	// Component identifies where the error originated, e.g. "pager",
	// "btree", "record".
	Component string

	// Cause is the wrapped lower-layer error, if any.
	Cause error

	// Stack is the call stack captured at creation, for debugging.
	Stack []uintptr
}

// New creates a DBError of the given kind.
func New(kind Kind, message string) *DBError {
	return &DBError{
		Kind:     kind,
		Category: categoryOf(kind),
		Message:  message,
		Stack:    captureStack(),
	}
}

// Newf creates a DBError with a formatted message.
func Newf(kind Kind, format string, args ...any) *DBError {
	return New(kind, fmt.Sprintf(format, args...))
}

// WithDetail attaches instance-specific detail and returns the error.
func (e *DBError) WithDetail(format string, args ...any) *DBError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// At records the operation and component context and returns the error.
func (e *DBError) At(operation, component string) *DBError {
	if e.Operation == "" {
		e.Operation = operation
	}
	if e.Component == "" {
		e.Component = component
	}
	return e
}

// Wrap wraps a lower-layer error with a kind and context. If err is
// already a DBError its kind is preserved and only missing context is
// filled in, so the innermost classification wins.
func Wrap(err error, kind Kind, operation, component string) *DBError {
	if err == nil {
		return nil
	}

	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.At(operation, component)
	}

	return &DBError{
		Kind:      kind,
		Category:  categoryOf(kind),
		Message:   err.Error(),
		Operation: operation,
		Component: component,
		Cause:     err,
		Stack:     captureStack(),
	}
}

// Is reports whether err is a DBError of the given kind anywhere in
// its chain.
func Is(err error, kind Kind) bool {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or Internal if err is not a DBError.
func KindOf(err error) Kind {
	var dbErr *DBError
	if errors.As(err, &dbErr) {
		return dbErr.Kind
	}
	return Internal
}

// captureStack captures the call stack, skipping the frames of this
// package so the trace starts at the error origin.
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[0:n]
}

// Error implements the error interface.
//
// Format: [KIND] Message: Detail (operation: Op, component: Comp) caused by: cause
func (e *DBError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)

	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}

	if e.Operation != "" {
		fmt.Fprintf(&b, " (operation: %s", e.Operation)
		if e.Component != "" {
			fmt.Fprintf(&b, ", component: %s", e.Component)
		}
		b.WriteString(")")
	}

	if e.Cause != nil {
		fmt.Fprintf(&b, " caused by: %v", e.Cause)
	}

	return b.String()
}

// Unwrap returns the wrapped cause, enabling errors.Is / errors.As
// traversal.
func (e *DBError) Unwrap() error {
	return e.Cause
}

// FormatStack returns a human-readable stack trace for debugging.
func (e *DBError) FormatStack() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(e.Stack)

	b.WriteString("Stack trace:\n")
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "  %s\n    %s:%d\n", f.Function, f.File, f.Line)
		if !more {
			break
		}
	}

	return b.String()
}
