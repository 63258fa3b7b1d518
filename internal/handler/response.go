package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "not_found", "message": "movie not found with id abc123"}
// plus "field" when a single input field is to blame.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/movieku/internal/apperror"
)

// maxBodyBytes caps request bodies. Every payload this API accepts is a
// small JSON object.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending input field, if any
}

// MessageResponse acknowledges an operation that returns no entity.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE writing the body; once Encode
// writes, later header changes are silently ignored.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorKind pairs a sentinel with its HTTP rendering.
type errorKind struct {
	target error
	status int
	code   string
}

// errorKinds is checked in order; the first sentinel found in the chain wins.
var errorKinds = []errorKind{
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{apperror.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{apperror.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},
	{apperror.ErrUpstream, http.StatusBadGateway, "upstream_failure"},
}

// WriteError maps a domain error to the appropriate HTTP status code and
// sends it. This is the only place error kinds become status codes; the
// route guard uses it too.
//
// errors.As walks the chain, so a service error wrapped as
// fmt.Errorf("...: %w", appErr) still renders appErr's message.
//
// Anything that is not an *AppError is a 500 with a generic message. The
// real cause goes to the log with the request id, never to the client.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, k := range errorKinds {
			if errors.Is(appErr, k.target) {
				if k.status >= http.StatusInternalServerError {
					logFailure(r, err)
				}
				WriteJSON(w, k.status, ErrorResponse{
					Error:   k.code,
					Message: appErr.Message,
					Field:   appErr.Field,
				})
				return
			}
		}
	}

	logFailure(r, err)
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "an internal error occurred",
	})
}

func logFailure(r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("requestID", chimiddleware.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	)
}

// decodeJSON reads the request body into dst.
//
// JSON DECODING:
// json.NewDecoder streams the body; http.MaxBytesReader bounds it. Decode
// errors, including an empty body, are validation errors on "body".
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("body", "request body is too large")
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is required")
		default:
			return apperror.ValidationFailed("body", "request body must be valid JSON")
		}
	}
	return nil
}
