// Package middleware provides HTTP middleware components.
package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lifeos/ctxpack/pkg/logger"
)

// probePaths are polled by orchestrators; successful hits log at debug.
var probePaths = map[string]struct{}{
	"/health": {},
	"/ready":  {},
}

// Logger returns a middleware that logs one line per request. 5xx responses
// log at error level and 4xx at warn.
func Logger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := newStatusWriter(w)

			next.ServeHTTP(wrapped, r)

			ctx := r.Context()
			args := []any{
				"request_id", GetRequestID(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"size", wrapped.size,
				"remote_addr", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			}
			if rctx := chi.RouteContext(ctx); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" && pattern != r.URL.Path {
					args = append(args, "route", pattern)
				}
			}

			_, probe := probePaths[r.URL.Path]
			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				log.ErrorContext(ctx, "HTTP request", args...)
			case wrapped.statusCode >= http.StatusBadRequest:
				log.WarnContext(ctx, "HTTP request", args...)
			case probe:
				log.DebugContext(ctx, "HTTP request", args...)
			default:
				log.InfoContext(ctx, "HTTP request", args...)
			}
		})
	}
}
