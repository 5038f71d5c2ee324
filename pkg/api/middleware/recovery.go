package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/lifeos/ctxpack/pkg/api/response"
	"github.com/lifeos/ctxpack/pkg/logger"
)

// Recovery turns a handler panic into a logged 500 error envelope. If the
// handler already started its response, the panic is logged and the rest
// of the response is abandoned. http.ErrAbortHandler is re-raised so the
// server can drop the connection.
func Recovery(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(p)
				}

				requestID := GetRequestID(r.Context())
				log.ErrorContext(r.Context(), "Panic recovered",
					"panic", p,
					"request_id", requestID,
					"method", r.Method,
					"path", r.URL.Path,
					"response_started", sw.written,
					"stack", string(debug.Stack()),
				)
				if sw.written {
					return
				}

				if requestID == "" {
					requestID = "unknown"
				}
				response.Error(sw,
					http.StatusInternalServerError,
					response.ErrCodeInternalServer,
					"Internal server error",
					requestID,
				)
			}()

			next.ServeHTTP(sw, r)
		})
	}
}
