package services

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code returned to API callers.
type Code string

const (
	CodeNotFound                Code = "NOT_FOUND"
	CodeGateDenied              Code = "GATE_DENIED"
	CodeWaiverLinkRequired      Code = "WAIVER_LINK_REQUIRED"
	CodeSyncFailure             Code = "SYNC_FAILURE"
	CodeVerificationFailure     Code = "VERIFICATION_FAILURE"
	CodeImportValidationFailure Code = "IMPORT_VALIDATION_FAILURE"
	CodeInvalidArgument         Code = "INVALID_ARGUMENT"
	CodeAlreadyExists           Code = "ALREADY_EXISTS"
	CodePermissionDenied        Code = "PERMISSION_DENIED"
	CodeUnauthenticated         Code = "UNAUTHENTICATED"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on code so callers can write errors.Is(err, ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WrapError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound                = NewError(CodeNotFound, "not found")
	ErrGateDenied              = NewError(CodeGateDenied, "gate denied")
	ErrWaiverLinkRequired      = NewError(CodeWaiverLinkRequired, "waiver link required")
	ErrSyncFailure             = NewError(CodeSyncFailure, "sync failure")
	ErrVerificationFailure     = NewError(CodeVerificationFailure, "verification failure")
	ErrImportValidationFailure = NewError(CodeImportValidationFailure, "import validation failure")
	ErrInvalidArgument         = NewError(CodeInvalidArgument, "invalid argument")
	ErrAlreadyExists           = NewError(CodeAlreadyExists, "already exists")
	ErrPermissionDenied        = NewError(CodePermissionDenied, "permission denied")
	ErrUnauthenticated         = NewError(CodeUnauthenticated, "unauthenticated")
)

// CodeOf extracts the code of a domain error, or "" for anything else.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func notFound(what, key string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %q not found", what, key), Metadata: map[string]string{"key": key}}
}

func invalid(format string, args ...any) *Error {
	return NewError(CodeInvalidArgument, fmt.Sprintf(format, args...))
}

func asError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
