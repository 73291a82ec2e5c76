// Package gateerr defines the outcome kinds shared by the gate's components.
// Components return *Error values and callers branch on KindOf instead of
// matching concrete error types.
package gateerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by what the controller must do about it
type Kind int

const (
	// KindNone is returned by KindOf for a nil error
	KindNone Kind = iota
	// KindCredentialInvalid requires the user to supply a new credential
	KindCredentialInvalid
	// KindTransient is retried on the next tick
	KindTransient
	// KindPersistenceCorrupt is treated as absent state
	KindPersistenceCorrupt
	// KindFatal triggers the crash fail-safe
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindCredentialInvalid:
		return "credential-invalid"
	case KindTransient:
		return "transient"
	case KindPersistenceCorrupt:
		return "persistence-corrupt"
	case KindFatal:
		return "fatal"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error carries a Kind alongside the operation that failed
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a kind and operation name
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// CredentialInvalid builds a KindCredentialInvalid error from a message
func CredentialInvalid(op, format string, args ...any) *Error {
	return &Error{Kind: KindCredentialInvalid, Op: op, Err: fmt.Errorf(format, args...)}
}

// Transient wraps err as KindTransient
func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// KindOf returns the kind of err. Errors that carry no *Error in their chain
// are unanticipated and therefore KindFatal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindFatal
}

// Is reports whether err has the given kind
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
