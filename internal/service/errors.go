// Package service holds the business rules of the CRM: validation, role
// checks, change detection and the activity entries each mutation
// produces.  Handlers translate *Error values into HTTP responses.
package service

import (
	"fmt"
	"net/http"
)

// Error is a failure the API reports with a stable machine-readable code.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

func invalid(code, msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Message: msg}
}

func notFound(code, msg string) *Error {
	return &Error{Status: http.StatusNotFound, Code: code, Message: msg}
}

func forbidden(code, msg string) *Error {
	return &Error{Status: http.StatusForbidden, Code: code, Message: msg}
}

// Shared codes.
const (
	CodeInvalidID      = "INVALID_ID"
	CodeNotFound       = "NOT_FOUND"
	CodeForbidden      = "FORBIDDEN"
	CodeFieldForbidden = "FIELD_NOT_ALLOWED"
)

var (
	// ErrInvalidID rejects a missing or malformed ?id= parameter.
	ErrInvalidID = invalid(CodeInvalidID, "Valid ID is required")
	errForbidden = forbidden(CodeForbidden, "You do not have permission to perform this action")
)

func enumError(code, name string, values string) *Error {
	return invalid(code, fmt.Sprintf("Invalid %s. Must be one of: %s", name, values))
}
