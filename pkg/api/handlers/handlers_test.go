package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/lifeos/ctxpack/pkg/api/response"
	"github.com/lifeos/ctxpack/pkg/assembler"
	"github.com/lifeos/ctxpack/pkg/datehint"
	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/memory"
	"github.com/lifeos/ctxpack/pkg/pipeline"
	"github.com/lifeos/ctxpack/pkg/retrieval"
	storebadger "github.com/lifeos/ctxpack/pkg/storage/badger"
	"github.com/lifeos/ctxpack/pkg/tokens"
)

var fixedNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestIndex(t *testing.T) *memory.Index {
	t.Helper()
	db, err := storebadger.Open(&storebadger.Config{InMemory: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storebadger.Close(db) })

	emb, err := memory.NewEmbedder(memory.EmbedderChargram, 64)
	require.NoError(t, err)
	return memory.NewIndex(db, emb, memory.DefaultConfig())
}

func newTestPipeline(t *testing.T, idx *memory.Index) *pipeline.Pipeline {
	t.Helper()
	var src assembler.MemorySource
	if idx != nil {
		src = retrieval.NewRetriever(retrieval.NewLocalSearcher(idx, ""), retrieval.WithLogger(logger.Nop()))
	}
	alloc, err := assembler.New(tokens.DefaultBudget(), src, nil, assembler.WithLogger(logger.Nop()))
	require.NoError(t, err)
	ext := &datehint.Extractor{WeekStart: time.Sunday, Now: func() time.Time { return fixedNow }}
	return pipeline.New(alloc, ext, pipeline.WithLogger(logger.Nop()))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var errResp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp), w.Body.String())
	return errResp
}

// memoryRouter mounts the memory routes the way the API router does.
func memoryRouter(h *MemoryHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1/memory/{userID}", func(r chi.Router) {
		r.Post("/", h.StoreDocument)
		r.Get("/", h.SearchDocuments)
		r.Delete("/", h.DeleteDocuments)
		r.Post("/batch", h.StoreBatch)
		r.Get("/list", h.ListDocuments)
		r.Get("/stats", h.GetStats)
		r.Delete("/all", h.DeleteUser)
		r.Get("/documents/{id}", h.GetDocument)
	})
	return r
}

func seedDocuments(t *testing.T, idx *memory.Index) {
	t.Helper()
	docs := []memory.Document{
		{UserID: "alice", Kind: "journal", Title: "Morning", Content: "Went running along the river before work", OccurredAt: time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)},
		{UserID: "alice", Kind: "task", Title: "Dentist", Content: "Book the dentist appointment", OccurredAt: time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)},
		{UserID: "bob", Kind: "journal", Content: "Running club meetup", OccurredAt: time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)},
	}
	for _, d := range docs {
		_, err := idx.Add(context.Background(), d)
		require.NoError(t, err)
	}
}
