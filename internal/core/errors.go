package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies dataset failures so the HTTP boundary can render a
// specific message.
type ErrorCode string

const (
	CodeEmptyFile             ErrorCode = "EMPTY_FILE"
	CodeHeaderNotFound        ErrorCode = "HEADER_NOT_FOUND"
	CodeMalformedCSV          ErrorCode = "MALFORMED_CSV"
	CodeColumnNotFound        ErrorCode = "COLUMN_NOT_FOUND"
	CodeNoDatedRows           ErrorCode = "NO_DATED_ROWS"
	CodeNoValidRows           ErrorCode = "NO_VALID_ROWS"
	CodeCadastroFieldNotFound ErrorCode = "CADASTRO_FIELD_NOT_FOUND"
	CodeInvalidCadastroDate   ErrorCode = "INVALID_CADASTRO_DATE"
	CodeCadastroOutsideMonth  ErrorCode = "CADASTRO_DATE_OUTSIDE_MONTH"
	CodeTooManyDistinctDays   ErrorCode = "TOO_MANY_DISTINCT_DAYS"
	CodeInvalidPeriod         ErrorCode = "INVALID_PERIOD"
	CodeMonthAlreadyPublished ErrorCode = "MONTH_ALREADY_PUBLISHED"
)

// DatasetError is a typed rejection of an uploaded dataset. It is never
// retried: the file has to be fixed and uploaded again.
type DatasetError struct {
	Code       ErrorCode
	Message    string
	Column     string
	Details    map[string]any
	StatusCode int
	Err        error
}

// NewDatasetError creates a DatasetError with the status code implied by code.
func NewDatasetError(code ErrorCode, msg string) *DatasetError {
	return &DatasetError{
		Code:       code,
		Message:    msg,
		Details:    make(map[string]any),
		StatusCode: codeToStatusCode(code),
	}
}

// Error implements the error interface.
func (e *DatasetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// ErrorCode returns the machine-readable code.
func (e *DatasetError) ErrorCode() string {
	return string(e.Code)
}

func (e *DatasetError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a diagnostic value. Returns the error for chaining.
func (e *DatasetError) WithDetail(key string, value any) *DatasetError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause records the underlying error.
func (e *DatasetError) WithCause(err error) *DatasetError {
	e.Err = err
	return e
}

// ColumnNotFoundError reports a required semantic column that no header
// matched.
type ColumnNotFoundError struct {
	Field string
	Tried []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("required column %q not found in header (accepted names: %s)", e.Field, strings.Join(e.Tried, ", "))
}

// ErrorCode returns COLUMN_NOT_FOUND.
func (e *ColumnNotFoundError) ErrorCode() string {
	return string(CodeColumnNotFound)
}

// DatasetError converts the column error into the generic coded form.
func (e *ColumnNotFoundError) DatasetError() *DatasetError {
	de := NewDatasetError(CodeColumnNotFound, fmt.Sprintf("required column %q not found in the uploaded file", e.Field))
	de.Column = e.Field
	de.Err = e
	return de.WithDetail("accepted", e.Tried)
}

// AsDatasetError extracts a coded dataset error from err, converting
// column errors on the way.
func AsDatasetError(err error) (*DatasetError, bool) {
	var de *DatasetError
	if errors.As(err, &de) {
		return de, true
	}
	var ce *ColumnNotFoundError
	if errors.As(err, &ce) {
		return ce.DatasetError(), true
	}
	return nil, false
}

func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeMonthAlreadyPublished:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}
