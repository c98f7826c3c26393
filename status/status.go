// Package status carries the seventeen call-outcome codes exchanged in the
// grpc-status trailer, plus the StatusError type application code sees
// on the caller side.
package status

import (
	"fmt"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Code is the status code carried in the grpc-status trailer. It reuses
// grpc's numbering (0 OK .. 16 UNAUTHENTICATED) rather than a private
// enum, since the two code spaces are required by spec.md §6 to be
// identical.
type Code = codes.Code

// The recognised status codes (spec.md §6).
const (
	OK                 = codes.OK
	Canceled           = codes.Canceled
	Unknown            = codes.Unknown
	InvalidArgument    = codes.InvalidArgument
	DeadlineExceeded   = codes.DeadlineExceeded
	NotFound           = codes.NotFound
	AlreadyExists      = codes.AlreadyExists
	PermissionDenied   = codes.PermissionDenied
	ResourceExhausted  = codes.ResourceExhausted
	FailedPrecondition = codes.FailedPrecondition
	Aborted            = codes.Aborted
	OutOfRange         = codes.OutOfRange
	Unimplemented      = codes.Unimplemented
	Internal           = codes.Internal
	Unavailable        = codes.Unavailable
	DataLoss           = codes.DataLoss
	Unauthenticated    = codes.Unauthenticated
)

// Error is the error the caller side returns for a non-OK trailer
// (spec.md §7): it wraps the trailer's code and message verbatim. The
// call primitives also return some failures without wrapping them in
// Error: *caller.ProtocolError, codec errors, and transport errors
// from allocating a stream or sending on it.
type Error struct {
	st *grpcstatus.Status
}

// New builds an Error from a code and message.
func New(code Code, message string) *Error {
	return &Error{st: grpcstatus.New(code, message)}
}

// Newf builds an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Code returns the wrapped grpc-status code.
func (e *Error) Code() Code {
	if e == nil {
		return OK
	}
	return e.st.Code()
}

// Message returns the wrapped grpc-message text.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.st.Message()
}

// Status exposes the underlying grpc/status.Status for callers that want
// to use status.FromError-style helpers.
func (e *Error) Status() *grpcstatus.Status {
	if e == nil {
		return nil
	}
	return e.st
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code(), e.Message())
}

// IsOK reports whether the status represents success.
func (e *Error) IsOK() bool {
	return e == nil || e.st.Code() == OK
}

// Common constructors mirroring the call sites the responder dispatch
// engine and call primitives reach for most often.

func ErrInvalidArgument(format string, args ...any) *Error {
	return Newf(InvalidArgument, format, args...)
}

func ErrNotFound(format string, args ...any) *Error {
	return Newf(NotFound, format, args...)
}

func ErrInternal(format string, args ...any) *Error {
	return Newf(Internal, format, args...)
}

func ErrUnimplemented(format string, args ...any) *Error {
	return Newf(Unimplemented, format, args...)
}

func ErrUnavailable(format string, args ...any) *Error {
	return Newf(Unavailable, format, args...)
}

func ErrCanceled(format string, args ...any) *Error {
	return Newf(Canceled, format, args...)
}

func ErrDeadlineExceeded(format string, args ...any) *Error {
	return Newf(DeadlineExceeded, format, args...)
}
