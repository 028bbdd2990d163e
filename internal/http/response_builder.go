package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"campanha/internal/core"
	"campanha/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
	raw        []byte
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
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

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Raw sends data as is; set Content-Type with Header.
func (b *JSONResponseBuilder) Raw(data []byte) *JSONResponseBuilder {
	b.raw = data
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	payload := b.raw
	if payload == nil && b.body != nil {
		var err error
		payload, err = json.Marshal(b.body)
		if err != nil {
			b.statusCode = http.StatusInternalServerError
			payload = []byte(`{"code":"INTERNAL","message":"failed to encode response"}`)
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(payload) > 0 {
		_, _ = w.Write(payload)
	}
}

// APIError is the body of every error response.
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Column  string         `json:"column,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(APIError{Code: code, Message: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(code, message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, code, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "NOT_FOUND", message)
}

// InternalServerError hides the cause from the client.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "INTERNAL", "internal error")
}

// ErrorFromErr maps an error to its response. Request and dataset errors
// keep their code and status, missing documents are 404 and the rest is 500.
func ErrorFromErr(err error) *JSONResponseBuilder {
	var re *RequestError
	if errors.As(err, &re) {
		return ErrorResponse(re.Status, re.Code, re.Message)
	}
	if de, ok := core.AsDatasetError(err); ok {
		return NewJSONResponse().
			Status(de.StatusCode).
			Body(APIError{
				Code:    string(de.Code),
				Message: de.Message,
				Column:  de.Column,
				Details: de.Details,
			})
	}
	switch {
	case errors.Is(err, services.ErrSnapshotNotFound),
		errors.Is(err, services.ErrMonthNotFound),
		errors.Is(err, services.ErrMetricsNotFound):
		return NotFoundError(err.Error())
	}
	return InternalServerError()
}
