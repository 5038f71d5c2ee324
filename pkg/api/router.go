// Package api provides HTTP API server components.
package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/lifeos/ctxpack/config"
	"github.com/lifeos/ctxpack/pkg/api/handlers"
	"github.com/lifeos/ctxpack/pkg/api/middleware"
	"github.com/lifeos/ctxpack/pkg/logger"
)

// Handlers holds all HTTP handlers. Nil handlers leave their routes
// unregistered.
type Handlers struct {
	// Context handles context assembly and the stateless helpers
	Context *handlers.ContextHandler

	// Collaborator serves the search and summarization contracts
	Collaborator *handlers.CollaboratorHandler

	// Memory handles document management on the local index
	Memory *handlers.MemoryHandler

	// Telemetry serves stored telemetry records
	Telemetry *handlers.TelemetryHandler

	// WebSocket serves the telemetry live tail
	WebSocket *handlers.WebSocketHandler

	// Health handles health check endpoints
	Health *handlers.HealthHandler

	// Metrics is the optional metrics recorder
	Metrics middleware.MetricsRecorder
}

// NewRouter creates a new chi router with middleware and routes.
func NewRouter(cfg *config.Config, log logger.Logger, handlers *Handlers) chi.Router {
	r := chi.NewRouter()

	// Register global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing(middleware.DefaultTracingOptions()))
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))

	// Add metrics middleware if provided
	if handlers.Metrics != nil {
		r.Use(middleware.Metrics(handlers.Metrics))
	}

	if rl := cfg.Server.RateLimit; rl.Enabled && rl.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimit(middleware.NewRateLimiter(rl.RequestsPerSecond, rl.Burst)))
	}

	r.Use(middleware.CORS(&cfg.Server.CORS))
	r.Use(middleware.Timeout(cfg.Server.HTTP.RequestTimeout))

	// Register routes
	RegisterRoutes(r, handlers)

	return r
}

// RegisterRoutes registers all API routes.
func RegisterRoutes(r chi.Router, handlers *Handlers) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		if handlers.Context != nil {
			r.Post("/context", handlers.Context.Prepare)
			r.Post("/intent", handlers.Context.Intent)
			r.Post("/date-hints", handlers.Context.DateHints)
			r.Post("/tool-results", handlers.Context.ToolResult)
		}

		if handlers.Collaborator != nil {
			r.Post("/search", handlers.Collaborator.Search)
			r.Post("/compress", handlers.Collaborator.Compress)
		}

		// Memory routes
		if handlers.Memory != nil {
			r.Route("/memory/{userID}", func(r chi.Router) {
				r.Post("/", handlers.Memory.StoreDocument)
				r.Get("/", handlers.Memory.SearchDocuments)
				r.Delete("/", handlers.Memory.DeleteDocuments)
				r.Post("/batch", handlers.Memory.StoreBatch)
				r.Get("/list", handlers.Memory.ListDocuments)
				r.Get("/stats", handlers.Memory.GetStats)
				r.Delete("/all", handlers.Memory.DeleteUser)
				r.Get("/documents/{id}", handlers.Memory.GetDocument)
			})
		}

		if handlers.Telemetry != nil {
			r.Get("/telemetry", handlers.Telemetry.Recent)
		}
	})

	if handlers.WebSocket != nil {
		r.Get("/ws/telemetry", handlers.WebSocket.ServeHTTP)
	}

	// Health check routes (not versioned)
	if handlers.Health != nil {
		r.Get("/health", handlers.Health.Health)
		r.Get("/ready", handlers.Health.Ready)
		r.Get("/status", handlers.Health.Status)
	}
}
