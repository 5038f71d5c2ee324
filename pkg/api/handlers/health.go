package handlers

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/lifeos/ctxpack/pkg/api/response"
	"github.com/lifeos/ctxpack/pkg/memory"
	"github.com/lifeos/ctxpack/pkg/version"
)

// Backends names the collaborators the service was built with.
type Backends struct {
	Retrieval   string   `json:"retrieval"`
	Compression string   `json:"compression"`
	Sinks       []string `json:"telemetrySinks"`
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	backends Backends
	index    *memory.Index
	started  time.Time
	ready    atomic.Bool
}

// NewHealthHandler creates a new health handler. idx may be nil when the
// local index is not in use.
func NewHealthHandler(backends Backends, idx *memory.Index) *HealthHandler {
	return &HealthHandler{
		backends: backends,
		index:    idx,
		started:  time.Now(),
	}
}

// SetReady marks the service ready once every configured backend is built.
func (h *HealthHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Health handles the /health endpoint (liveness probe).
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Ready handles the /ready endpoint (readiness probe).
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready.Load() {
		response.JSON(w, http.StatusOK, map[string]bool{
			"ready": true,
		})
	} else {
		response.JSON(w, http.StatusServiceUnavailable, map[string]bool{
			"ready": false,
		})
	}
}

type indexStatus struct {
	Documents    int     `json:"documents"`
	CacheHitRate float64 `json:"cacheHitRate"`
	CacheLookups int64   `json:"cacheLookups"`
}

type statusResponse struct {
	Version  map[string]string `json:"version"`
	Ready    bool              `json:"ready"`
	Uptime   string            `json:"uptime"`
	Backends Backends          `json:"backends"`
	Index    *indexStatus      `json:"index,omitempty"`
}

// Status handles the /status endpoint (detailed status).
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := statusResponse{
		Version:  version.Info(),
		Ready:    h.ready.Load(),
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Backends: h.backends,
	}
	if h.index != nil {
		rate, lookups := h.index.CacheHitRate()
		status.Index = &indexStatus{
			Documents:    h.index.Len(),
			CacheHitRate: rate,
			CacheLookups: lookups,
		}
	}
	response.JSON(w, http.StatusOK, status)
}
