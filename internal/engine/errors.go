package engine

import "fmt"

// ErrorKind classifies user-facing evaluation failures.
type ErrorKind int

const (
	// ErrSyntax covers malformed formula text and malformed cell ids.
	// The table is never mutated on a syntax failure.
	ErrSyntax ErrorKind = iota
	// ErrCircularRef covers direct self-references and any cycle found
	// among direct references or during dependent propagation. The table
	// is rolled back to its pre-call state.
	ErrCircularRef
)

func (k ErrorKind) String() string {
	switch k {
	case ErrSyntax:
		return "SYNTAX"
	case ErrCircularRef:
		return "CIRCULAR_REF"
	}
	return "UNKNOWN"
}

// Error is a typed evaluation failure tied to a cell.
type Error struct {
	Kind ErrorKind
	Cell string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: cell %s: %v", e.Kind, e.Cell, e.Err)
	}
	return fmt.Sprintf("%s: cell %s", e.Kind, e.Cell)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func syntaxErr(cell string, err error) *Error {
	return &Error{Kind: ErrSyntax, Cell: cell, Err: err}
}

func circularErr(cell string) *Error {
	return &Error{Kind: ErrCircularRef, Cell: cell}
}
