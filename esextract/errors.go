package esextract

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrIndexNotFound    ErrorKind = "index_not_found"
	ErrQueryExecution   ErrorKind = "query_execution"
	ErrUnsupportedValue ErrorKind = "unsupported_value"
	ErrFilter           ErrorKind = "filter"
	ErrMissingSchema    ErrorKind = "missing_schema"
	ErrCursor           ErrorKind = "cursor"
	ErrSink             ErrorKind = "sink"
	ErrConfig           ErrorKind = "config"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Index   string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Index != "" {
		base = fmt.Sprintf("%s (index=%s)", base, e.Index)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func IndexNotFoundError(index string) *Error {
	return &Error{Kind: ErrIndexNotFound, Message: "index does not exist", Index: index}
}

func QueryExecutionError(index string, cause error) *Error {
	return &Error{Kind: ErrQueryExecution, Message: "search failed", Index: index, Cause: cause}
}

func MissingSchemaError(msg string) *Error {
	return &Error{Kind: ErrMissingSchema, Message: msg}
}

func CursorError(index, msg string) *Error {
	return &Error{Kind: ErrCursor, Message: msg, Index: index}
}

func ConfigError(msg string) *Error {
	return &Error{Kind: ErrConfig, Message: msg}
}

// withIndex fills in the index on a kinded error that lacks one.
func withIndex(err error, index string) error {
	var e *Error
	if errors.As(err, &e) && e.Index == "" {
		e.Index = index
	}
	return err
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
