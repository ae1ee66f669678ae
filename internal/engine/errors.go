package engine

import "fmt"

// Kind discriminates the semantic error categories the boundary contract
// promises, independent of any particular Go error type.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindTransient  Kind = "storage_transient"
	KindFatal      Kind = "storage_fatal"
	KindCancelled  Kind = "cancelled"
	KindTimeout    Kind = "timeout"
)

// Error wraps an underlying error with the semantic Kind the boundary
// contract requires callers to branch on (never retry a ValidationError,
// surface a NotFoundError, etc).
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func validationErr(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Err: fmt.Errorf(format, args...)}
}

func notFoundErr(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Err: fmt.Errorf(format, args...)}
}

func fatalErr(err error) error {
	return &Error{Kind: KindFatal, Err: err}
}
