package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"campanha/internal/core"
	"campanha/internal/services"
)

var validate = validator.New()

// RequestError is a malformed request that never reached the pipeline.
type RequestError struct {
	Status  int
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	return e.Code + ": " + e.Message
}

// ReadUpload reads the uploaded CSV either from the multipart field "file"
// or from the raw request body. The filename comes from the multipart
// header or the "filename" query parameter.
func ReadUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (services.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readMultipart(r, maxBytes)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return services.Upload{}, uploadReadError(err, maxBytes)
	}
	if len(data) == 0 {
		return services.Upload{}, &RequestError{Status: http.StatusBadRequest, Code: "MISSING_FILE", Message: "send the CSV as the request body or as multipart field \"file\""}
	}
	return services.Upload{Filename: cleanFilename(r.URL.Query().Get("filename")), Data: data}, nil
}

func readMultipart(r *http.Request, maxBytes int64) (services.Upload, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return services.Upload{}, uploadReadError(err, maxBytes)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return services.Upload{}, &RequestError{Status: http.StatusBadRequest, Code: "MISSING_FILE", Message: "multipart field \"file\" is required"}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return services.Upload{}, uploadReadError(err, maxBytes)
	}
	return services.Upload{Filename: cleanFilename(header.Filename), Data: data}, nil
}

func uploadReadError(err error, maxBytes int64) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &RequestError{
			Status:  http.StatusRequestEntityTooLarge,
			Code:    "UPLOAD_TOO_LARGE",
			Message: fmt.Sprintf("uploads are limited to %d bytes", maxBytes),
		}
	}
	return &RequestError{Status: http.StatusBadRequest, Code: "INVALID_UPLOAD", Message: err.Error()}
}

// cleanFilename keeps the base name and drops control characters.
func cleanFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// MonthlyParams are the query parameters of a monthly publish.
type MonthlyParams struct {
	Year      int `validate:"min=2000,max=2100"`
	Month     int `validate:"min=1,max=12"`
	Overwrite bool
}

// ParseMonthlyParams reads year, month and overwrite. A bad period is an
// INVALID_PERIOD dataset error.
func ParseMonthlyParams(query url.Values) (MonthlyParams, error) {
	var p MonthlyParams
	var err error

	yearRaw := strings.TrimSpace(query.Get("year"))
	monthRaw := strings.TrimSpace(query.Get("month"))
	if p.Year, err = strconv.Atoi(yearRaw); err != nil {
		return p, invalidPeriod(yearRaw, monthRaw)
	}
	if p.Month, err = strconv.Atoi(monthRaw); err != nil {
		return p, invalidPeriod(yearRaw, monthRaw)
	}
	if err := validate.Struct(p); err != nil {
		return p, invalidPeriod(yearRaw, monthRaw)
	}

	if v := strings.TrimSpace(query.Get("overwrite")); v != "" {
		if p.Overwrite, err = strconv.ParseBool(v); err != nil {
			return p, &RequestError{Status: http.StatusBadRequest, Code: "INVALID_PARAMETER", Message: "overwrite must be true or false"}
		}
	}
	return p, nil
}

func invalidPeriod(year, month string) error {
	return core.NewDatasetError(core.CodeInvalidPeriod,
		fmt.Sprintf("year and month must name a month between 2000 and 2100, got year=%q month=%q", year, month)).
		WithDetail("year", year).
		WithDetail("month", month)
}
