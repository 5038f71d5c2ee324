package memory

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder(t *testing.T) {
	tests := []struct {
		name    string
		embName string
		dims    int
		wantID  string
		wantErr bool
	}{
		{"default is chargram", "", 64, "ctxpack-chargram-64-v1", false},
		{"hash", "hash", 32, "ctxpack-hash-32-v1", false},
		{"case insensitive", " Chargram ", 16, "ctxpack-chargram-16-v1", false},
		{"unknown", "bert", 64, "", true},
		{"zero dims", "hash", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := NewEmbedder(tt.embName, tt.dims)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, emb.ModelID())
			assert.Equal(t, tt.dims, emb.Dimension())
		})
	}
}

func TestEmbedders_Normalized(t *testing.T) {
	for _, name := range []string{EmbedderHash, EmbedderChargram} {
		t.Run(name, func(t *testing.T) {
			emb, err := NewEmbedder(name, 64)
			require.NoError(t, err)

			vec := emb.Embed("Quarterly review with the design team")
			require.Len(t, vec, 64)

			var sum float64
			for _, v := range vec {
				sum += float64(v) * float64(v)
			}
			assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)

			assert.Equal(t, vec, emb.Embed("Quarterly review with the design team"), "embedding must be deterministic")

			zero := emb.Embed("   ")
			for _, v := range zero {
				assert.Zero(t, v)
			}
		})
	}
}

func TestChargramEmbedder_Similarity(t *testing.T) {
	emb, err := NewEmbedder(EmbedderChargram, 256)
	require.NoError(t, err)

	base := emb.Embed("dentist appointment")
	typo := emb.Embed("dentist apointment")
	other := emb.Embed("quarterly budget")

	assert.Greater(t, cosineSimilarity(base, typo), cosineSimilarity(base, other))
}
