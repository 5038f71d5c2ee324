package handlers

import (
	"net/http"

	"github.com/lifeos/ctxpack/pkg/api/response"
	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/telemetry"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// TelemetryHandler serves stored telemetry records.
type TelemetryHandler struct {
	reader telemetry.Reader
	logger logger.Logger
}

// NewTelemetryHandler creates a telemetry handler. A nil reader means no
// configured sink keeps records.
func NewTelemetryHandler(reader telemetry.Reader, log logger.Logger) *TelemetryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &TelemetryHandler{reader: reader, logger: log}
}

// Recent handles GET /api/v1/telemetry?limit=
func (h *TelemetryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		response.Error(w, http.StatusNotFound, response.ErrCodeNotFound, "No telemetry sink with a read path is configured", requestID(r))
		return
	}

	limit := intParam(r, "limit", defaultRecentLimit)
	if limit == 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	records, err := h.reader.Recent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to read telemetry", "error", err)
		response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer, "Failed to read telemetry", requestID(r))
		return
	}
	if records == nil {
		records = []telemetry.Record{}
	}

	response.JSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}
