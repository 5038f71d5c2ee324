package retrieval

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeos/ctxpack/pkg/datehint"
)

func TestRequest_JSON(t *testing.T) {
	start := time.Date(2024, 5, 12, 0, 0, 0, 0, time.Local)
	end := time.Date(2024, 5, 15, 0, 0, 0, 0, time.Local)

	req := Request{
		UserID: "u1",
		Query:  "what did I do this week",
		Kinds:  []string{"journal"},
		Range:  datehint.Range{Start: start, End: end},
		TopK:   12,
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1","query":"what did I do this week","kinds":["journal"],"startDate":"2024-05-12","endDate":"2024-05-15","topK":12}`, string(data))

	var decoded Request
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "u1", decoded.UserID)
	assert.True(t, decoded.Range.Start.Equal(start))
	assert.True(t, decoded.Range.End.Equal(end))
}

func TestRequest_JSONOptionalFilters(t *testing.T) {
	data, err := json.Marshal(Request{UserID: "u1", Query: "q", TopK: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"userId":"u1","query":"q","topK":5}`, string(data))

	var decoded Request
	require.NoError(t, json.Unmarshal([]byte(`{"userId":"u1","query":"q"}`), &decoded))
	assert.True(t, decoded.Range.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"userId":"u1","query":"q","startDate":"May 1"}`), &decoded))
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid", Request{UserID: "u1", Query: "q"}, false},
		{"missing user", Request{Query: "q"}, true},
		{"blank query", Request{UserID: "u1", Query: "  "}, true},
		{"negative topK", Request{UserID: "u1", Query: "q", TopK: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
