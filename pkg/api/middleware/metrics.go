package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// MetricsRecorder defines the interface for recording HTTP metrics.
type MetricsRecorder interface {
	RecordHTTPRequest(ctx context.Context, method, path, status string, duration time.Duration)
	IncActiveConnections()
	DecActiveConnections()
}

// Metrics returns a middleware that records HTTP metrics labelled by route
// pattern.
func Metrics(recorder MetricsRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics endpoint to avoid recursion
			if strings.HasPrefix(r.URL.Path, "/metrics") {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder.IncActiveConnections()
			defer recorder.DecActiveConnections()

			wrapped := newStatusWriter(w)

			defer func() {
				if err := recover(); err != nil {
					recorder.RecordHTTPRequest(r.Context(), r.Method, metricPath(r),
						strconv.Itoa(http.StatusInternalServerError), time.Since(start))
					panic(err)
				}
			}()

			next.ServeHTTP(wrapped, r)

			recorder.RecordHTTPRequest(r.Context(), r.Method, metricPath(r),
				strconv.Itoa(wrapped.statusCode), time.Since(start))
		})
	}
}

// metricPath prefers the matched chi route pattern and falls back to a
// normalized URL path.
func metricPath(r *http.Request) string {
	if pattern := chiPattern(r); pattern != "" {
		return pattern
	}
	return normalizePath(r.URL.Path)
}

// normalizePath replaces UUIDs, ULIDs and numeric IDs with placeholders.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		switch {
		case len(part) == 36 && strings.Count(part, "-") == 4:
			parts[i] = ":id"
		case isULID(part):
			parts[i] = ":id"
		case part != "":
			if _, err := strconv.Atoi(part); err == nil {
				parts[i] = ":id"
			}
		}
	}
	return strings.Join(parts, "/")
}

func isULID(s string) bool {
	if len(s) != 26 {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
