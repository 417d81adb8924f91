// Package apperror defines the error taxonomy shared by every layer of the
// service.
//
// TWO KINDS OF FAILURE:
// An *Error is an EXPECTED failure — something a client can cause and must
// be told about: wrong password, duplicate email, missing scope. It carries
// an HTTP status, a machine-readable code (stable, for programmatic
// clients) and a human-readable message.
//
// Everything else — a broken DB connection, a signing failure — is
// UNEXPECTED. Those get wrapped by Unhandled() into a generic 500 whose
// message never exposes the underlying error text. The original error stays
// attached (via Unwrap) so it can be logged server-side.
package apperror

import (
	"fmt"
	"net/http"
)

// Machine-readable error codes returned in the "error" field of the JSON
// envelope. Clients branch on these, never on the message text.
const (
	CodeUserExists         = "user_exists"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidGrant       = "invalid_grant"
	CodeInvalidScope       = "invalid_scope"
	CodeInvalidRequest     = "invalid_request"
	CodeResourceNotFound   = "resource_not_found"
	CodeUnhandled          = "unhandled_error"
)

// Error is a client-facing API error.
//
// Data holds optional structured details that get flattened into the JSON
// error envelope next to status_code/error/message (for example the
// expiredAt timestamp on an expired-token error).
type Error struct {
	Status  int            // HTTP status code
	Code    string         // machine-readable error code
	Message string         // human-readable description
	Data    map[string]any // optional structured details
	Err     error          // wrapped cause, logged but never serialized
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an Error. The argument order (status, code, message) is the
// one canonical constructor shape — keep it consistent everywhere.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// WithData attaches a structured detail field and returns the same error,
// so constructors chain:
//
//	apperror.New(401, CodeInvalidGrant, "Token Expired. Please reauthorize.").
//	    WithData("expiredAt", exp)
func (e *Error) WithData(key string, value any) *Error {
	if e.Data == nil {
		e.Data = make(map[string]any, 1)
	}
	e.Data[key] = value
	return e
}

// Envelope renders the error as the generic JSON error body:
// {status_code, error, message} with any Data fields flattened alongside.
// Both the HTTP error writer and the authorization middleware serialize
// this one shape, so every failure a client sees looks the same.
func (e *Error) Envelope() map[string]any {
	body := map[string]any{
		"status_code": e.Status,
		"error":       e.Code,
		"message":     e.Message,
	}
	for k, v := range e.Data {
		body[k] = v
	}
	return body
}

// Unhandled wraps an unexpected error into a generic 500.
//
// The client sees only "Unhandled error has occured"; the cause is kept on
// Err for server-side logging. If err is already an *Error it is returned
// as-is so expected failures are never double-wrapped.
func Unhandled(err error) *Error {
	if apiErr, ok := err.(*Error); ok {
		return apiErr
	}
	return &Error{
		Status:  http.StatusInternalServerError,
		Code:    CodeUnhandled,
		Message: "Unhandled error has occured",
		Err:     err,
	}
}

// Unhandledf is a convenience for wrapping with context, used where the
// cause alone would be ambiguous in logs.
func Unhandledf(format string, args ...any) *Error {
	return Unhandled(fmt.Errorf(format, args...))
}
