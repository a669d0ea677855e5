// Package apierr defines the wire-visible error kinds every tool method can
// return.
package apierr

import (
	"errors"
	"fmt"
)

// Kind is one of the fixed, wire-visible error codes.
type Kind string

const (
	InvalidArgument Kind = "invalid_argument"
	NotFound        Kind = "not_found"
	AlreadyClosed   Kind = "already_closed"
	ConnectTimeout  Kind = "connect_timeout"
	ConnectFailed   Kind = "connect_failed"
	AuthFailed      Kind = "auth_failed"
	HostkeyMismatch Kind = "hostkey_mismatch"
	IOError         Kind = "io_error"
	RemoteClosed    Kind = "remote_closed"
	ExecTimeout     Kind = "exec_timeout"
	Unsupported     Kind = "unsupported"
)

// Error is the typed error every core operation returns instead of a bare
// error, so transports can map Kind to their own status/error codes without
// string-sniffing messages.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

// New builds an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured details to an error and returns it.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

func InvalidArgumentf(format string, args ...any) *Error {
	return New(InvalidArgument, format, args...)
}

func NotFoundf(format string, args ...any) *Error {
	return New(NotFound, format, args...)
}

func AlreadyClosedf(format string, args ...any) *Error {
	return New(AlreadyClosed, format, args...)
}

func ConnectTimeoutf(format string, args ...any) *Error {
	return New(ConnectTimeout, format, args...)
}

func ConnectFailedf(format string, args ...any) *Error {
	return New(ConnectFailed, format, args...)
}

func IOErrorf(format string, args ...any) *Error {
	return New(IOError, format, args...)
}

func Unsupportedf(format string, args ...any) *Error {
	return New(Unsupported, format, args...)
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error, defaulting to IOError for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return IOError
}
