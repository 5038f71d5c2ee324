package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/telemetry"
)

type stubReader struct {
	records []telemetry.Record
	err     error
	limit   int
}

func (s *stubReader) Recent(_ context.Context, limit int) ([]telemetry.Record, error) {
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.records) {
		return s.records[:limit], nil
	}
	return s.records, nil
}

func TestTelemetryHandler_Recent(t *testing.T) {
	reader := &stubReader{records: []telemetry.Record{
		{ID: "2", UserID: "alice", TotalTokens: 900, Intent: "recall"},
		{ID: "1", UserID: "bob", TotalTokens: 120, Intent: "action"},
	}}
	h := NewTelemetryHandler(reader, logger.Nop())

	w := serve(http.HandlerFunc(h.Recent), jsonRequest(t, http.MethodGet, "/api/v1/telemetry?limit=1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Records []telemetry.Record `json:"records"`
		Count   int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "2", body.Records[0].ID)

	serve(http.HandlerFunc(h.Recent), jsonRequest(t, http.MethodGet, "/api/v1/telemetry?limit=100000", nil))
	assert.Equal(t, maxRecentLimit, reader.limit)

	serve(http.HandlerFunc(h.Recent), jsonRequest(t, http.MethodGet, "/api/v1/telemetry", nil))
	assert.Equal(t, defaultRecentLimit, reader.limit)
}

func TestTelemetryHandler_Errors(t *testing.T) {
	w := serve(http.HandlerFunc(NewTelemetryHandler(nil, nil).Recent), jsonRequest(t, http.MethodGet, "/api/v1/telemetry", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	h := NewTelemetryHandler(&stubReader{err: errors.New("badger closed")}, logger.Nop())
	w = serve(http.HandlerFunc(h.Recent), jsonRequest(t, http.MethodGet, "/api/v1/telemetry", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
