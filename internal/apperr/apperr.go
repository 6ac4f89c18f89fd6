package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so callers can react without string matching.
type Kind int

const (
	Internal Kind = iota
	Validation
	Conflict
	NotFound
	Transient
	Unauthorized
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Conflict:
		return "conflict"
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	case Unauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is the structured error returned by the service layer.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func Validationf(op, format string, args ...any) *Error {
	return New(Validation, op, fmt.Sprintf(format, args...))
}

func NotFoundf(op, format string, args ...any) *Error {
	return New(NotFound, op, fmt.Sprintf(format, args...))
}

func Conflictf(op, format string, args ...any) *Error {
	return New(Conflict, op, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user-facing message of the first *Error in the chain.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal Server Error"
}

// HTTPStatus maps an error to the response code handlers should send.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return http.StatusBadRequest
	case Conflict:
		return http.StatusConflict
	case NotFound:
		return http.StatusNotFound
	case Transient:
		return http.StatusServiceUnavailable
	case Unauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
