// Package handlers provides HTTP request handlers.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/lifeos/ctxpack/pkg/api/middleware"
	"github.com/lifeos/ctxpack/pkg/api/response"
	"github.com/lifeos/ctxpack/pkg/assembler"
)

// requestID returns the request ID set by middleware, or "unknown".
func requestID(r *http.Request) string {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		return id
	}
	return "unknown"
}

// fieldError converts an assembler.FieldError into the validation envelope.
func fieldError(err error) (*response.BindError, bool) {
	var fe *assembler.FieldError
	if !errors.As(err, &fe) {
		return nil, false
	}
	if errors.Is(fe, assembler.ErrMissingField) {
		return response.MissingField(fe.Field), true
	}
	return &response.BindError{
		Status:  http.StatusBadRequest,
		Code:    response.ErrCodeValidationFailed,
		Message: fe.Error(),
		Details: map[string]interface{}{fe.Field: "invalid value"},
	}, true
}

// intParam reads a positive integer query parameter, returning def when it
// is absent or malformed.
func intParam(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
