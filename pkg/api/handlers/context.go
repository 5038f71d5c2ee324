package handlers

import (
	"net/http"

	"github.com/lifeos/ctxpack/pkg/api/response"
	"github.com/lifeos/ctxpack/pkg/intent"
	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/pipeline"
)

// ContextHandler serves context assembly and the stateless helpers around it.
type ContextHandler struct {
	pipeline     *pipeline.Pipeline
	logger       logger.Logger
	maxBodyBytes int64
}

// NewContextHandler creates a new context handler.
func NewContextHandler(p *pipeline.Pipeline, log logger.Logger, maxBodyBytes int64) *ContextHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ContextHandler{
		pipeline:     p,
		logger:       log,
		maxBodyBytes: maxBodyBytes,
	}
}

type contextRequest struct {
	UserID string   `json:"userId"`
	Text   string   `json:"text"`
	Kinds  []string `json:"kinds,omitempty"`
}

type textRequest struct {
	Text string `json:"text"`
}

type toolResultRequest struct {
	Content string `json:"content" validate:"required"`
}

// Prepare handles POST /api/v1/context
func (h *ContextHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if err := response.BindJSON(w, r, &req, h.maxBodyBytes); err != nil {
		response.HandleError(w, err, requestID(r))
		return
	}

	res, err := h.pipeline.Prepare(r.Context(), pipeline.Request{
		UserID: req.UserID,
		Text:   req.Text,
		Kinds:  req.Kinds,
	})
	if err != nil {
		if be, ok := fieldError(err); ok {
			response.HandleError(w, be, requestID(r))
			return
		}
		h.logger.ErrorContext(r.Context(), "Failed to prepare context", "user_id", req.UserID, "error", err)
		response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer, "Failed to prepare context", requestID(r))
		return
	}

	response.JSON(w, http.StatusOK, res)
}

// Intent handles POST /api/v1/intent
func (h *ContextHandler) Intent(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := response.BindJSON(w, r, &req, h.maxBodyBytes); err != nil {
		response.HandleError(w, err, requestID(r))
		return
	}
	response.JSON(w, http.StatusOK, intent.Classify(req.Text))
}

// DateHints handles POST /api/v1/date-hints
func (h *ContextHandler) DateHints(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := response.BindJSON(w, r, &req, h.maxBodyBytes); err != nil {
		response.HandleError(w, err, requestID(r))
		return
	}
	response.JSON(w, http.StatusOK, h.pipeline.Extractor().Extract(req.Text))
}

// ToolResult handles POST /api/v1/tool-results
func (h *ContextHandler) ToolResult(w http.ResponseWriter, r *http.Request) {
	var req toolResultRequest
	if err := response.BindJSON(w, r, &req, h.maxBodyBytes); err != nil {
		response.HandleError(w, err, requestID(r))
		return
	}
	response.JSON(w, http.StatusOK, h.pipeline.Allocator().FitToolResult(req.Content))
}
