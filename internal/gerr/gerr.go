// Package gerr defines the error kinds reported by the graph core.
//
// Every Build API and optimization call returns a plain error. Callers that
// need to branch on the failure use errors.Is against the sentinel of the
// kind they care about, or KindOf to extract it:
//
//	if errors.Is(err, gerr.ErrFrozenViolation) {
//	    // topology is fixed, fall back to attribute mutation
//	}
package gerr

import (
	"errors"
	"fmt"
)

// Kind classifies a graph error.
type Kind int

const (
	// Unknown is the kind of errors that did not originate in this package.
	Unknown Kind = iota
	// NotFound means a referenced op, variable or edge is absent.
	NotFound
	// AlreadyExists means a node or edge with the same identity exists.
	AlreadyExists
	// InvalidGraph means a cycle, a dangling reference or a bad lifecycle call.
	InvalidGraph
	// FrozenViolation means a topology mutation was attempted after freeze.
	FrozenViolation
	// FusionConflict means a rewrite would consume a registered output.
	FusionConflict
	// TypeMismatch means an attribute was read with the wrong expected type.
	TypeMismatch
	// SizeMismatch means a scale vector length is inconsistent.
	SizeMismatch
	// IterationLimit means fusion hit its iteration cap before a fixpoint.
	IterationLimit
)

var kindNames = map[Kind]string{
	Unknown:         "unknown",
	NotFound:        "not found",
	AlreadyExists:   "already exists",
	InvalidGraph:    "invalid graph",
	FrozenViolation: "frozen violation",
	FusionConflict:  "fusion conflict",
	TypeMismatch:    "type mismatch",
	SizeMismatch:    "size mismatch",
	IterationLimit:  "iteration limit",
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNotFound        = &Error{Kind: NotFound}
	ErrAlreadyExists   = &Error{Kind: AlreadyExists}
	ErrInvalidGraph    = &Error{Kind: InvalidGraph}
	ErrFrozenViolation = &Error{Kind: FrozenViolation}
	ErrFusionConflict  = &Error{Kind: FusionConflict}
	ErrTypeMismatch    = &Error{Kind: TypeMismatch}
	ErrSizeMismatch    = &Error{Kind: SizeMismatch}
	ErrIterationLimit  = &Error{Kind: IterationLimit}
)

// Error is a classified graph error.
type Error struct {
	Kind Kind   // Failure class
	Op   string // Operation that failed (e.g. "AddOp"), optional
	Msg  string // Human-readable detail
	Err  error  // Wrapped cause, optional
}

// New creates an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WithOp returns a copy of e annotated with the failing operation.
func (e *Error) WithOp(op string) *Error {
	c := *e
	c.Op = op
	return &c
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return Unknown
}

// Annotate sets op on err when it is an *Error, otherwise wraps it as
// InvalidGraph. A nil err stays nil.
func Annotate(op string, err error) error {
	if err == nil {
		return nil
	}
	if ge, ok := err.(*Error); ok {
		if ge.Op != "" {
			return err
		}
		return ge.WithOp(op)
	}
	if KindOf(err) != Unknown {
		return err
	}
	return &Error{Kind: InvalidGraph, Op: op, Err: err}
}
