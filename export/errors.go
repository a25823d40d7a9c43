package export

import (
	"context"
	"errors"

	errorslib "github.com/goliatone/go-errors"
)

// ErrorKind defines export error kinds.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindTimeout    ErrorKind = "timeout"
	KindCanceled   ErrorKind = "canceled"
	KindInternal   ErrorKind = "internal"
	KindNotImpl    ErrorKind = "not_implemented"
)

// ExportError wraps errors with a kind.
type ExportError struct {
	Kind ErrorKind
	Code string
	Msg  string
	Err  error
}

func (e *ExportError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewError creates a new export error.
func NewError(kind ErrorKind, msg string, err error) *ExportError {
	return &ExportError{Kind: kind, Msg: msg, Err: err}
}

// WithCode sets a text code that overrides the kind default.
func (e *ExportError) WithCode(code string) *ExportError {
	e.Code = code
	return e
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

	kind := KindInternal
	msg := err.Error()
	code := ""

	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		kind = exportErr.Kind
		code = exportErr.Code
		if exportErr.Msg != "" {
			msg = exportErr.Msg
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		kind = KindCanceled
	}

	var mapped *errorslib.Error
	switch kind {
	case KindValidation:
		mapped = errorslib.New(msg, errorslib.CategoryValidation).WithTextCode("validation")
	case KindNotFound:
		mapped = errorslib.New(msg, errorslib.CategoryNotFound).WithTextCode("not_found")
	case KindConflict:
		mapped = errorslib.New(msg, errorslib.CategoryConflict).WithTextCode("conflict")
	case KindTimeout:
		mapped = errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("timeout")
	case KindCanceled:
		mapped = errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("canceled")
	case KindNotImpl:
		mapped = errorslib.New(msg, errorslib.CategoryOperation).WithTextCode("not_implemented")
	default:
		mapped = errorslib.New(msg, errorslib.CategoryInternal).WithTextCode("internal")
	}
	if code != "" {
		mapped = mapped.WithTextCode(code)
	}
	return mapped
}

// KindFromError maps an error to its export error kind.
func KindFromError(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var exportErr *ExportError
	if errors.As(err, &exportErr) {
		return exportErr.Kind
	}

	var ge *errorslib.Error
	if errors.As(err, &ge) {
		switch ge.Category {
		case errorslib.CategoryValidation, errorslib.CategoryBadInput:
			return KindValidation
		case errorslib.CategoryNotFound:
			return KindNotFound
		case errorslib.CategoryConflict:
			return KindConflict
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}

	return KindInternal
}
