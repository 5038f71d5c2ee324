package handlers

import (
	"errors"
	"net/http"

	"github.com/lifeos/ctxpack/pkg/api/response"
	"github.com/lifeos/ctxpack/pkg/compress"
	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/memory"
	"github.com/lifeos/ctxpack/pkg/retrieval"
	"github.com/lifeos/ctxpack/pkg/tokens"
)

// CollaboratorHandler exposes the search and summarization contracts so
// that another instance can use this one as its HTTP backend.
type CollaboratorHandler struct {
	searcher     retrieval.Searcher
	summarizer   compress.Summarizer
	logger       logger.Logger
	maxBodyBytes int64
}

// NewCollaboratorHandler creates a collaborator handler. A nil searcher
// disables /search and a nil summarizer falls back to truncation.
func NewCollaboratorHandler(s retrieval.Searcher, sum compress.Summarizer, log logger.Logger, maxBodyBytes int64) *CollaboratorHandler {
	if log == nil {
		log = logger.Nop()
	}
	if sum == nil {
		sum = compress.NewTruncateSummarizer(tokens.DefaultRatio)
	}
	return &CollaboratorHandler{
		searcher:     s,
		summarizer:   sum,
		logger:       log,
		maxBodyBytes: maxBodyBytes,
	}
}

// Search handles POST /api/v1/search
func (h *CollaboratorHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		response.Error(w, http.StatusServiceUnavailable, response.ErrCodeServiceUnavailable, "Local search is not enabled", requestID(r))
		return
	}

	var req retrieval.Request
	if err := response.BindJSON(w, r, &req, h.maxBodyBytes); err != nil {
		response.HandleError(w, err, requestID(r))
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, err.Error(), requestID(r))
		return
	}

	snippets, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		if errors.Is(err, memory.ErrInvalidQuery) || errors.Is(err, memory.ErrInvalidUserID) {
			response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, err.Error(), requestID(r))
			return
		}
		h.logger.ErrorContext(r.Context(), "Search failed", "user_id", req.UserID, "error", err)
		response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer, "Search failed", requestID(r))
		return
	}
	if snippets == nil {
		snippets = []retrieval.Snippet{}
	}

	response.JSON(w, http.StatusOK, retrieval.Response{Results: snippets})
}

// Compress handles POST /api/v1/compress
func (h *CollaboratorHandler) Compress(w http.ResponseWriter, r *http.Request) {
	var req compress.Request
	if err := response.BindJSON(w, r, &req, h.maxBodyBytes); err != nil {
		response.HandleError(w, err, requestID(r))
		return
	}
	if req.MaxTokensPerItem <= 0 {
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, "maxTokensPerItem must be positive", requestID(r))
		return
	}

	outputs, err := h.summarizer.Summarize(r.Context(), req.Items, req.MaxTokensPerItem)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Summarization failed", "backend", h.summarizer.Name(), "items", len(req.Items), "error", err)
		response.Error(w, http.StatusServiceUnavailable, response.ErrCodeServiceUnavailable, "Summarization failed", requestID(r))
		return
	}
	if outputs == nil {
		outputs = []compress.Output{}
	}

	response.JSON(w, http.StatusOK, compress.Response{Results: outputs})
}
