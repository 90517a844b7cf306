// Package apperr defines the error kinds shared by services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind classifies a failure for callers.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindValidation Kind = "validation"
	KindTransient  Kind = "transient"
)

// Sentinels for errors.Is checks against any *Error of the same kind.
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrValidation = &Error{Kind: KindValidation}
	ErrTransient  = &Error{Kind: KindTransient}
)

// Error is a classified failure. Op names the operation ("appointments.book").
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Op != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Message returns the human readable part without the op prefix.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func NotFound(op, msg string) error   { return &Error{Kind: KindNotFound, Op: op, Msg: msg} }
func Conflict(op, msg string) error   { return &Error{Kind: KindConflict, Op: op, Msg: msg} }
func Forbidden(op, msg string) error  { return &Error{Kind: KindForbidden, Op: op, Msg: msg} }
func Validation(op, msg string) error { return &Error{Kind: KindValidation, Op: op, Msg: msg} }

// Transient wraps an infrastructure failure.
func Transient(op string, err error) error {
	return &Error{Kind: KindTransient, Op: op, Msg: "temporarily unavailable", Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or KindTransient for
// unclassified errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsUniqueViolation reports whether err is a postgres unique_violation (23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// FromStore classifies a store error: missing rows become NotFound, unique
// violations become Conflict, already classified errors pass through and
// everything else is Transient.
func FromStore(op string, err error, notFoundMsg, conflictMsg string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &Error{Kind: KindNotFound, Op: op, Msg: notFoundMsg, Err: err}
	}
	if IsUniqueViolation(err) {
		return &Error{Kind: KindConflict, Op: op, Msg: conflictMsg, Err: err}
	}
	return Transient(op, err)
}
