package service

import (
	"errors"
)

// ErrorKind classifies failures for the HTTP layer.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindValidation means the request was missing required input.
	KindValidation
	// KindNotFound means the requested resource was never created.
	KindNotFound
	// KindInternal means storage or encoding failed.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is returned by every HistoryService operation that fails.
// Message is safe to show to clients; Err carries the cause.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Details returns the cause's message, or "" when there is none.
func (e *Error) Details() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func validationError(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

func notFoundError(msg string, err error) error {
	return &Error{Kind: KindNotFound, Message: msg, Err: err}
}

func internalError(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf reports the kind of err; errors not produced by this package are
// KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}
