// Package http provides HTTP server and handler implementations.
//
// This file implements the builder for JSON responses and the mapping from
// service errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value to encode. A nil body sends no content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"internal_error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

// errorBody is the shape of every error response.
type errorBody struct {
	Message    string         `json:"message"`
	Detail     string         `json:"detail,omitempty"`
	Field      string         `json:"field,omitempty"`
	RecordType string         `json:"recordType,omitempty"`
	Conflict   map[string]any `json:"conflict,omitempty"`
}

// ErrorResponse creates an error response with a machine-readable message.
func ErrorResponse(statusCode int, message, detail string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Message: message, Detail: detail})
}

func BadRequestError(detail string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", detail)
}

func NotFoundError(detail string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", detail)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal_error", "")
}

// ConflictResponse describes the first duplicate of a rolled-back confirm.
func ConflictResponse(c *services.ConflictError) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusConflict).
		Body(errorBody{
			Message:    "duplicate_record",
			RecordType: string(c.RecordKind),
			Conflict:   c.Fields,
		})
}

// ErrorFor maps a service error to its response: validation 422, not found
// 404, conflict or closed job 409, anything else 500.
func ErrorFor(err error) *JSONResponseBuilder {
	var (
		conflict   *services.ConflictError
		validation *core.ValidationError
	)
	switch {
	case errors.As(err, &conflict):
		return ConflictResponse(conflict)
	case errors.Is(err, errMalformedBody):
		return BadRequestError(err.Error())
	case errors.As(err, &validation):
		return NewJSONResponse().
			Status(http.StatusUnprocessableEntity).
			Body(errorBody{Message: "validation_failed", Field: validation.Field, Detail: validation.Err.Error()})
	case errors.Is(err, services.ErrJobNotFound), errors.Is(err, services.ErrCategoryNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, services.ErrJobClosed):
		return ErrorResponse(http.StatusConflict, "job_closed", err.Error())
	default:
		return InternalServerError()
	}
}

// writeError logs server-side failures and writes the mapped response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, log.ComponentHTTP, op, nil)
	}
	resp.Write(w)
}
