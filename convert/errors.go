package convert

import (
	"context"
	"errors"
	"fmt"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines conversion error kinds.
type ErrorKind string

const (
	KindInvalidFormat    ErrorKind = "invalid_format"
	KindNotConstructible ErrorKind = "not_constructible"
	KindLoadFailed       ErrorKind = "load_failed"
	KindExportFailed     ErrorKind = "export_failed"
	KindUnknownMimeType  ErrorKind = "unknown_mime_type"
	KindBackendNotFound  ErrorKind = "backend_not_found"
	KindValidation       ErrorKind = "validation"
	KindTimeout          ErrorKind = "timeout"
	KindCanceled         ErrorKind = "canceled"
	KindInternal         ErrorKind = "internal"
)

// ConvertError wraps errors with a kind.
type ConvertError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *ConvertError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *ConvertError) Unwrap() error {
	return e.Err
}

// NewError creates a new conversion error.
func NewError(kind ErrorKind, msg string, err error) *ConvertError {
	return &ConvertError{Kind: kind, Msg: msg, Err: err}
}

func invalidFormat(format Format) *ConvertError {
	return NewError(KindInvalidFormat, fmt.Sprintf("%q is not a valid format", string(format)), nil)
}

func notConstructible(format Format, role string) *ConvertError {
	return NewError(KindNotConstructible, fmt.Sprintf("%q is not a valid %s", string(format), role), nil)
}

// AsGoError maps an error into a go-errors error.
func AsGoError(err error) *errorslib.Error {
	if err == nil {
		return nil
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		return ge
	}

	kind := KindFromError(err)
	msg := err.Error()

	var convErr *ConvertError
	if errors.As(err, &convErr) && convErr.Msg != "" {
		msg = convErr.Msg
	}

	switch kind {
	case KindInvalidFormat, KindNotConstructible, KindUnknownMimeType, KindValidation:
		return errorslib.New(msg, errorslib.CategoryValidation).WithTextCode(string(kind))
	case KindLoadFailed, KindExportFailed, KindTimeout, KindCanceled:
		return errorslib.New(msg, errorslib.CategoryOperation).WithTextCode(string(kind))
	case KindBackendNotFound:
		return errorslib.New(msg, errorslib.CategoryNotFound).WithTextCode(string(kind))
	default:
		return errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("internal")
	}
}

// KindFromError maps an error to its conversion error kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	var convErr *ConvertError
	if errors.As(err, &convErr) {
		return convErr.Kind
	}

	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindFromError(err) == kind
}
