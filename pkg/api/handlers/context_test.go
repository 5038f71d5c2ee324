package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeos/ctxpack/pkg/api/response"
	"github.com/lifeos/ctxpack/pkg/assembler"
	"github.com/lifeos/ctxpack/pkg/intent"
	"github.com/lifeos/ctxpack/pkg/logger"
	"github.com/lifeos/ctxpack/pkg/pipeline"
)

func TestContextHandler_PrepareRecall(t *testing.T) {
	idx := newTestIndex(t)
	seedDocuments(t, idx)
	h := NewContextHandler(newTestPipeline(t, idx), logger.Nop(), 0)

	w := serve(http.HandlerFunc(h.Prepare), jsonRequest(t, http.MethodPost, "/api/v1/context", map[string]any{
		"userId": "alice",
		"text":   "What did I say about running?",
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, intent.Recall, res.Intent.Intent)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, assembler.RoleSystem, res.Messages[0].Role)
	assert.Contains(t, res.Messages[1].Content, "running along the river")
	assert.NotContains(t, res.Messages[1].Content, "Running club", "other users' documents must not leak")
	assert.Equal(t, assembler.RoleUser, res.Messages[2].Role)
	assert.Greater(t, res.Stats.MemoryItems, 0)
	assert.Greater(t, res.Stats.TotalTokens, 0)
}

func TestContextHandler_PrepareAction(t *testing.T) {
	h := NewContextHandler(newTestPipeline(t, nil), logger.Nop(), 0)

	w := serve(http.HandlerFunc(h.Prepare), jsonRequest(t, http.MethodPost, "/api/v1/context", map[string]any{
		"userId": "alice",
		"text":   "Create a new task",
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var res pipeline.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Messages, 2)
	assert.Equal(t, "Create a new task", res.Messages[1].Content)
}

func TestContextHandler_PrepareValidation(t *testing.T) {
	h := NewContextHandler(newTestPipeline(t, nil), logger.Nop(), 0)

	tests := []struct {
		name     string
		body     any
		wantCode string
		field    string
	}{
		{"missing userId", map[string]any{"text": "hi"}, response.ErrCodeValidationFailed, "userId"},
		{"missing text", map[string]any{"userId": "u1"}, response.ErrCodeValidationFailed, "text"},
		{"malformed body", `{"userId":`, response.ErrCodeBadRequest, ""},
		{"empty body", nil, response.ErrCodeBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(http.HandlerFunc(h.Prepare), jsonRequest(t, http.MethodPost, "/api/v1/context", tt.body))
			require.Equal(t, http.StatusBadRequest, w.Code)
			errResp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, errResp.Error.Code)
			if tt.field != "" {
				assert.Contains(t, errResp.Error.Details, tt.field)
			}
		})
	}
}

func TestContextHandler_BodyTooLarge(t *testing.T) {
	h := NewContextHandler(newTestPipeline(t, nil), logger.Nop(), 64)

	w := serve(http.HandlerFunc(h.Prepare), jsonRequest(t, http.MethodPost, "/api/v1/context", map[string]any{
		"userId": "u1",
		"text":   strings.Repeat("x", 200),
	}))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, response.ErrCodeRequestTooLarge, decodeError(t, w).Error.Code)
}

func TestContextHandler_Intent(t *testing.T) {
	h := NewContextHandler(newTestPipeline(t, nil), logger.Nop(), 0)

	w := serve(http.HandlerFunc(h.Intent), jsonRequest(t, http.MethodPost, "/api/v1/intent", map[string]any{
		"text": "Summarize my week",
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var res intent.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, intent.Recall, res.Intent)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
}

func TestContextHandler_DateHints(t *testing.T) {
	h := NewContextHandler(newTestPipeline(t, nil), logger.Nop(), 0)

	tests := []struct {
		text string
		want string
	}{
		{"what happened yesterday", `{"startDate":"2024-03-13","endDate":"2024-03-13"}`},
		{"show me last week", `{"startDate":"2024-03-03","endDate":"2024-03-09"}`},
		{"nothing temporal here", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			w := serve(http.HandlerFunc(h.DateHints), jsonRequest(t, http.MethodPost, "/api/v1/date-hints", map[string]any{"text": tt.text}))
			require.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestContextHandler_ToolResult(t *testing.T) {
	h := NewContextHandler(newTestPipeline(t, nil), logger.Nop(), 0)

	w := serve(http.HandlerFunc(h.ToolResult), jsonRequest(t, http.MethodPost, "/api/v1/tool-results", map[string]any{
		"content": strings.Repeat("a", 10000),
	}))
	require.Equal(t, http.StatusOK, w.Code)

	var msg assembler.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, assembler.RoleAssistant, msg.Role)
	assert.LessOrEqual(t, msg.Tokens(), 800)
	assert.True(t, strings.HasSuffix(msg.Content, "..."))

	w = serve(http.HandlerFunc(h.ToolResult), jsonRequest(t, http.MethodPost, "/api/v1/tool-results", map[string]any{}))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrCodeValidationFailed, decodeError(t, w).Error.Code)
}
