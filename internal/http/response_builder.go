// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for constructing JSON responses.
// It provides a fluent API for the status, the X-Invalidate header and the
// body, so every handler answers in the same shape.

package http

import (
	"encoding/json"
	"net/http"
	"strings"
)

// HeaderInvalidate lists the views a successful mutation made stale so
// clients can drop their own caches.
const HeaderInvalidate = "X-Invalidate"

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode  int
	body        any
	raw         []byte
	invalidated []string
	headers     map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Invalidate adds views to the X-Invalidate header. Duplicates are dropped.
func (b *JSONResponseBuilder) Invalidate(views ...string) *JSONResponseBuilder {
	for _, v := range views {
		if v == "" || contains(b.invalidated, v) {
			continue
		}
		b.invalidated = append(b.invalidated, v)
	}
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets a value to be encoded as the JSON body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	b.raw = nil
	return b
}

// Raw sets an already encoded JSON body, as stored in the view cache.
func (b *JSONResponseBuilder) Raw(content []byte) *JSONResponseBuilder {
	b.raw = content
	b.body = nil
	return b
}

// Encode marshals the body without writing it. Handlers use it to cache
// exactly the bytes they send.
func (b *JSONResponseBuilder) Encode() ([]byte, error) {
	if b.raw != nil {
		return b.raw, nil
	}
	out, err := json.Marshal(b.body)
	if err != nil {
		return nil, err
	}
	b.raw = out
	return out, nil
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	body, err := b.Encode()
	if err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if len(b.invalidated) > 0 {
		w.Header().Set(HeaderInvalidate, strings.Join(b.invalidated, ","))
	}

	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// errorBody is the shape of every non-2xx answer.
type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 response naming the offending field.
func UnprocessableEntityError(field, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusUnprocessableEntity).
		Body(errorBody{Error: message, Field: field})
}

// UnavailableError creates a 503 response the client may retry.
func UnavailableError(message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(http.StatusServiceUnavailable).
		Header("Retry-After", "5").
		Body(errorBody{Error: message, Retryable: true})
}

// UnauthorizedError creates a 401 response with a bearer challenge.
func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).
		Header("WWW-Authenticate", `Bearer realm="moneycoach"`)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}
