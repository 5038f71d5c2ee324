// Package response provides HTTP response utilities.
package response

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/lifeos/ctxpack/pkg/logger"
)

// encodeFailureBody is sent when a payload cannot be marshalled.
const encodeFailureBody = `{"error":{"code":"INTERNAL_SERVER_ERROR","message":"failed to encode response"}}` + "\n"

// JSON writes a JSON response with the given status code and data. The
// payload is encoded before any header is written, so an encoding failure
// still yields a well-formed 500. Responses carry personal memory and are
// never cacheable.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	h := w.Header()
	h.Set("Cache-Control", "no-store")

	if data == nil {
		w.WriteHeader(statusCode)
		return
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("failed to encode response", "status", statusCode, "error", err)
		h.Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(encodeFailureBody))
		return
	}

	h.Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// Error writes an error response with the given status code and error details.
func Error(w http.ResponseWriter, statusCode int, code, message string, requestID string) {
	ErrorWithDetails(w, statusCode, code, message, nil, requestID)
}

// ErrorWithDetails writes an error response with additional details.
func ErrorWithDetails(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}, requestID string) {
	JSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: requestID,
		},
	})
}
