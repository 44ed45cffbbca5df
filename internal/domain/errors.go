// Package domain provides canonical error types for the gateway.
package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorType represents the category of a gateway error.
type ErrorType string

const (
	// ErrorTypeMalformedCredential indicates the credential payload could not be
	// parsed or lacks a project_id.
	ErrorTypeMalformedCredential ErrorType = "malformed_credential"

	// ErrorTypeConnectionFailed indicates a vendor client could not be built.
	ErrorTypeConnectionFailed ErrorType = "connection_failed"

	// ErrorTypeUnauthenticated indicates no session has been established yet.
	ErrorTypeUnauthenticated ErrorType = "unauthenticated"

	// ErrorTypeSecretNotFound indicates the vault has no such secret or version.
	ErrorTypeSecretNotFound ErrorType = "secret_not_found"

	// ErrorTypeInvalidRequest indicates the caller sent an undecodable payload.
	ErrorTypeInvalidRequest ErrorType = "invalid_request"

	// ErrorTypeVendorFailure indicates an upstream vendor call failed.
	ErrorTypeVendorFailure ErrorType = "vendor_failure"

	// ErrorTypeDeadlineExceeded indicates an upstream vendor call timed out.
	ErrorTypeDeadlineExceeded ErrorType = "deadline_exceeded"
)

// Error is the canonical gateway error. Sentinels below carry only a Type and
// are matched with errors.Is; concrete errors wrap the underlying cause.
type Error struct {
	// Type is the category of error
	Type ErrorType

	// Message is the human-readable error message
	Message string

	// Err is the underlying cause, if any
	Err error
}

// Sentinel errors. Compare with errors.Is.
var (
	ErrMalformedCredential = &Error{Type: ErrorTypeMalformedCredential, Message: "malformed credential"}
	ErrConnectionFailed    = &Error{Type: ErrorTypeConnectionFailed, Message: "connection failed"}
	ErrUnauthenticated     = &Error{Type: ErrorTypeUnauthenticated, Message: "not authenticated"}
	ErrSecretNotFound      = &Error{Type: ErrorTypeSecretNotFound, Message: "secret not found"}
	ErrInvalidRequest      = &Error{Type: ErrorTypeInvalidRequest, Message: "invalid request"}
	ErrVendorFailure       = &Error{Type: ErrorTypeVendorFailure, Message: "vendor call failed"}
	ErrDeadlineExceeded    = &Error{Type: ErrorTypeDeadlineExceeded, Message: "deadline exceeded"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Type, e.Err)
	case e.Message != "":
		return e.Message
	default:
		return string(e.Type)
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a gateway error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// HTTPStatusCode returns the HTTP status code for this error.
func (e *Error) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeMalformedCredential, ErrorTypeConnectionFailed, ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeUnauthenticated:
		return http.StatusUnauthorized
	case ErrorTypeSecretNotFound:
		return http.StatusNotFound
	case ErrorTypeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Wrap creates an error of the given type wrapping cause.
func Wrap(errType ErrorType, message string, cause error) *Error {
	return &Error{Type: errType, Message: message, Err: cause}
}

// VendorError classifies an error returned by an outbound vendor call. Context
// deadline errors (including gRPC DeadlineExceeded statuses) become
// ErrDeadlineExceeded, everything else ErrVendorFailure. Errors that are
// already gateway errors pass through untouched.
func VendorError(message string, err error) error {
	if err == nil {
		return nil
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || status.Code(err) == codes.DeadlineExceeded {
		return Wrap(ErrorTypeDeadlineExceeded, message, err)
	}
	return Wrap(ErrorTypeVendorFailure, message, err)
}

// HTTPStatus returns the HTTP status for any error, defaulting to 500.
func HTTPStatus(err error) int {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.HTTPStatusCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
