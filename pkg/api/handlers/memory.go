package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lifeos/ctxpack/pkg/api/response"
	"github.com/lifeos/ctxpack/pkg/datehint"
	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/memory"
	"github.com/lifeos/ctxpack/pkg/metrics"
)

const (
	defaultSearchLimit = 10
	defaultListLimit   = 20
)

// MemoryHandler handles document management endpoints of the local index.
type MemoryHandler struct {
	index        *memory.Index
	logger       logger.Logger
	metrics      *metrics.Manager
	maxBodyBytes int64
}

// NewMemoryHandler creates a new memory handler.
func NewMemoryHandler(idx *memory.Index, log logger.Logger, m *metrics.Manager, maxBodyBytes int64) *MemoryHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &MemoryHandler{
		index:        idx,
		logger:       log,
		metrics:      m,
		maxBodyBytes: maxBodyBytes,
	}
}

// --- Request/Response types ---

type documentRequest struct {
	Kind       string            `json:"kind,omitempty"`
	Title      string            `json:"title,omitempty"`
	Content    string            `json:"content" validate:"required"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt string            `json:"occurredAt,omitempty"`
}

type batchRequest struct {
	Documents []documentRequest `json:"documents" validate:"required,min=1,max=500,dive"`
}

type storeResponse struct {
	ID string `json:"id"`
}

type batchResponse struct {
	IDs []string `json:"ids"`
}

type deleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

type deleteResponse struct {
	Deleted int `json:"deleted"`
}

type listResponse struct {
	Documents []*memory.Document `json:"documents"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// toDocument converts a request into a Document. occurredAt accepts a
// calendar date or an RFC 3339 timestamp.
func (d documentRequest) toDocument(userID string) (memory.Document, error) {
	doc := memory.Document{
		UserID:   userID,
		Kind:     strings.TrimSpace(d.Kind),
		Title:    d.Title,
		Content:  d.Content,
		Metadata: d.Metadata,
	}
	if d.OccurredAt == "" {
		return doc, nil
	}
	if t, err := time.Parse(time.RFC3339, d.OccurredAt); err == nil {
		doc.OccurredAt = t
		return doc, nil
	}
	t, err := datehint.ParseDate(d.OccurredAt)
	if err != nil {
		return doc, errors.New("occurredAt must be a date (2006-01-02) or an RFC 3339 timestamp")
	}
	doc.OccurredAt = t
	return doc, nil
}

func (h *MemoryHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		response.Error(w, http.StatusBadRequest, response.ErrCodeBadRequest, "User ID is required", requestID(r))
		return "", false
	}
	return userID, true
}

func (h *MemoryHandler) observe(op string, err error) {
	h.metrics.RecordIndexOperation(op, err)
	if err == nil {
		h.metrics.SetIndexDocuments(h.index.Len())
	}
}

// StoreDocument handles POST /api/v1/memory/{userID}
func (h *MemoryHandler) StoreDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req documentRequest
	if err := response.BindJSON(w, r, &req, h.maxBodyBytes); err != nil {
		response.HandleError(w, err, requestID(r))
		return
	}
	doc, err := req.toDocument(userID)
	if err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, err.Error(), requestID(r))
		return
	}

	stored, err := h.index.Add(ctx, doc)
	h.observe("add", err)
	if err != nil {
		if errors.Is(err, memory.ErrEmptyContent) {
			response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, "Content is required", requestID(r))
			return
		}
		h.logger.ErrorContext(ctx, "Failed to store document", "user_id", userID, "error", err)
		response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer, "Failed to store document", requestID(r))
		return
	}

	response.JSON(w, http.StatusCreated, storeResponse{ID: stored.ID})
}

// StoreBatch handles POST /api/v1/memory/{userID}/batch
func (h *MemoryHandler) StoreBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req batchRequest
	if err := response.BindJSON(w, r, &req, h.maxBodyBytes); err != nil {
		response.HandleError(w, err, requestID(r))
		return
	}
	docs := make([]memory.Document, 0, len(req.Documents))
	for _, d := range req.Documents {
		doc, err := d.toDocument(userID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, err.Error(), requestID(r))
			return
		}
		docs = append(docs, doc)
	}

	ids, err := h.index.AddBatch(ctx, userID, docs)
	h.observe("add_batch", err)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to store batch", "user_id", userID, "stored", len(ids), "error", err)
		response.ErrorWithDetails(w, http.StatusInternalServerError, response.ErrCodeInternalServer, "Failed to store batch",
			map[string]interface{}{"stored": ids}, requestID(r))
		return
	}

	response.JSON(w, http.StatusCreated, batchResponse{IDs: ids})
}

// SearchDocuments handles GET /api/v1/memory/{userID}?q=&kind=&from=&to=&limit=&mode=
func (h *MemoryHandler) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	params := r.URL.Query()
	text := strings.TrimSpace(params.Get("q"))
	if text == "" {
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, "Query parameter q is required", requestID(r))
		return
	}

	var rng datehint.Range
	var err error
	if rng.Start, err = datehint.ParseDate(params.Get("from")); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, "from must be a date (2006-01-02)", requestID(r))
		return
	}
	if rng.End, err = datehint.ParseDate(params.Get("to")); err != nil {
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, "to must be a date (2006-01-02)", requestID(r))
		return
	}

	mode := params.Get("mode")
	switch mode {
	case "", memory.ModeHybrid, memory.ModeVector, memory.ModeBM25:
	default:
		response.Error(w, http.StatusBadRequest, response.ErrCodeValidationFailed, "mode must be one of hybrid, vector, bm25", requestID(r))
		return
	}

	results, err := h.index.Search(ctx, userID, memory.Query{
		Text:  text,
		Kinds: params["kind"],
		Range: rng,
		Mode:  mode,
		TopK:  intParam(r, "limit", defaultSearchLimit),
	})
	h.observe("search", err)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to search documents", "user_id", userID, "error", err)
		response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer, "Failed to search documents", requestID(r))
		return
	}
	if results == nil {
		results = []memory.Result{}
	}

	response.JSON(w, http.StatusOK, results)
}

// GetDocument handles GET /api/v1/memory/{userID}/documents/{id}
func (h *MemoryHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	doc, err := h.index.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			response.Error(w, http.StatusNotFound, response.ErrCodeNotFound, "Document not found", requestID(r))
			return
		}
		h.logger.ErrorContext(ctx, "Failed to get document", "user_id", userID, "doc_id", id, "error", err)
		response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer, "Failed to get document", requestID(r))
		return
	}
	doc.Vector = nil

	response.JSON(w, http.StatusOK, doc)
}

// ListDocuments handles GET /api/v1/memory/{userID}/list
func (h *MemoryHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	limit := intParam(r, "limit", defaultListLimit)
	if limit == 0 {
		limit = defaultListLimit
	}
	offset := intParam(r, "offset", 0)

	docs, total, err := h.index.List(ctx, userID, limit, offset)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to list documents", "user_id", userID, "error", err)
		response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer, "Failed to list documents", requestID(r))
		return
	}

	response.JSON(w, http.StatusOK, listResponse{
		Documents: docs,
		Total:     total,
		Limit:     limit,
		Offset:    offset,
	})
}

// DeleteDocuments handles DELETE /api/v1/memory/{userID}
func (h *MemoryHandler) DeleteDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req deleteRequest
	if err := response.BindJSON(w, r, &req, h.maxBodyBytes); err != nil {
		response.HandleError(w, err, requestID(r))
		return
	}

	deleted, err := h.index.Delete(ctx, userID, req.IDs)
	h.observe("delete", err)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to delete documents", "user_id", userID, "error", err)
		response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer, "Failed to delete documents", requestID(r))
		return
	}

	response.JSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
}

// DeleteUser handles DELETE /api/v1/memory/{userID}/all
func (h *MemoryHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	deleted, err := h.index.DeleteUser(ctx, userID)
	h.observe("delete_user", err)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to delete user documents", "user_id", userID, "error", err)
		response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer, "Failed to delete user documents", requestID(r))
		return
	}

	h.logger.InfoContext(ctx, "User documents deleted", "user_id", userID, "deleted", deleted)
	response.JSON(w, http.StatusOK, deleteResponse{Deleted: deleted})
}

// GetStats handles GET /api/v1/memory/{userID}/stats
func (h *MemoryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	stats, err := h.index.Stats(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to get memory stats", "user_id", userID, "error", err)
		response.Error(w, http.StatusInternalServerError, response.ErrCodeInternalServer, "Failed to get memory stats", requestID(r))
		return
	}

	response.JSON(w, http.StatusOK, stats)
}
