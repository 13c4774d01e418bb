package handler

import (
	"net/http"

	"github.com/mcoot/tictactoe-go/internal/api/apierr"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// Re-export error codes
const (
	CodeInvalidRequest   = apierr.CodeInvalidRequest
	CodeNotFound         = apierr.CodeNotFound
	CodeForbidden        = apierr.CodeForbidden
	CodeInvalidOperation = apierr.CodeInvalidOperation
	CodeIllegalMove      = apierr.CodeIllegalMove
	CodeUnauthorized     = apierr.CodeUnauthorized
	CodeInternalError    = apierr.CodeInternalError
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}
