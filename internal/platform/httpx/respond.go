// Package httpx holds the JSON responders and middleware shared by every module handler.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/georgemunganga/shopdesk-backend/internal/platform/apperr"
	"github.com/georgemunganga/shopdesk-backend/internal/platform/logging"
	"github.com/sirupsen/logrus"
)

// ErrorBody is the error envelope returned by every endpoint.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Respond writes body as JSON with the given status.
func Respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// Error maps err to a status code and writes the envelope. Unclassified errors
// are logged and hidden behind a generic message.
func Error(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	status := apperr.HTTPStatus(err)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logging.FromContext(r.Context(), log).WithError(err).
			WithFields(logrus.Fields{"path": r.URL.Path, "method": r.Method}).
			Error("request failed")
		Respond(w, status, ErrorBody{Error: "internal server error", Code: "INTERNAL"})
		return
	}
	// Wrapped messages carry context useful to the caller.
	Respond(w, status, ErrorBody{Error: err.Error(), Code: appErr.Code})
}

// Decode reads a JSON request body into dst.
func Decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Invalidf("invalid request body: %v", err)
	}
	return nil
}

// Page is a 1-based page request.
type Page struct {
	Number int `json:"page"`
	Size   int `json:"size"`
}

// Offset returns the number of rows to skip.
func (p Page) Offset() int { return (p.Number - 1) * p.Size }

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PageFromQuery reads ?page=&size= with defaults and bounds.
func PageFromQuery(r *http.Request) Page {
	p := Page{Number: 1, Size: defaultPageSize}
	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		p.Number = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("size")); err == nil && n > 0 {
		p.Size = n
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// NewPage normalizes an arbitrary page request.
func NewPage(number, size int) Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return Page{Number: number, Size: size}
}

// PageResult is a page of items plus the total count.
type PageResult[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Size  int `json:"size"`
	Total int `json:"total"`
}
