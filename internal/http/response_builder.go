// Package http serves the JSON API.
//
// This file implements the Builder Pattern for constructing JSON responses,
// so every handler reports success and failure in the same envelope.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/export"
	"budget/internal/session"
	"budget/internal/store"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	payload    any
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.payload == nil || b.statusCode == http.StatusNoContent {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// errorBody is the envelope of every failed request.
type errorBody struct {
	Error          string `json:"error"`
	AppliedLocally *bool  `json:"applied_locally,omitempty"`
	Reconciled     *bool  `json:"reconciled,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func UnprocessableEntityError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// MethodNotAllowedError creates a 405 Method Not Allowed error response.
func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").
		Header("Allow", allowedMethods)
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrEmptyText),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyPatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, export.ErrNothingToExport):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotAuthenticated),
		errors.Is(err, auth.ErrInvalidCredential),
		errors.Is(err, auth.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// FromError builds the error response for err. Internal errors are logged and
// reported without detail.
func FromError(r *http.Request, err error) *ResponseBuilder {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		return InternalServerError("internal error")
	}
	return ErrorResponse(status, errorMessage(err))
}

// errorMessage returns the sentinel text of err without the wrapping context,
// so clients see "invalid amount" rather than internal ids.
func errorMessage(err error) string {
	for _, sentinel := range []error{
		core.ErrEmptyText, core.ErrInvalidAmount, core.ErrEmptyPatch,
		store.ErrNotFound, export.ErrNothingToExport,
		core.ErrNotAuthenticated, auth.ErrInvalidCredential, auth.ErrInvalidSession,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// RemoteFailure reports a command whose store call failed. The local outcome
// tells the client whether its view already reflects the command.
func RemoteFailure(res session.Result) *ResponseBuilder {
	applied, reconciled := res.AppliedLocally, res.Reconciled
	return NewResponse().Status(http.StatusBadGateway).JSON(errorBody{
		Error:          "transaction store unavailable",
		AppliedLocally: &applied,
		Reconciled:     &reconciled,
	})
}
