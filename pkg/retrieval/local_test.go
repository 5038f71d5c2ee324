package retrieval

import (
	"context"
	"testing"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeos/ctxpack/pkg/datehint"
	"github.com/lifeos/ctxpack/pkg/memory"
)

func newLocalIndex(t *testing.T) *memory.Index {
	t.Helper()
	opts := dgbadger.DefaultOptions(t.TempDir())
	opts.Logger = nil
	db, err := dgbadger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	emb, err := memory.NewEmbedder(memory.EmbedderChargram, 128)
	require.NoError(t, err)
	return memory.NewIndex(db, emb, memory.DefaultConfig())
}

func TestLocalSearcher(t *testing.T) {
	idx := newLocalIndex(t)
	ctx := context.Background()
	may := time.Date(2024, 5, 14, 9, 0, 0, 0, time.Local)
	april := time.Date(2024, 4, 2, 9, 0, 0, 0, time.Local)

	for _, d := range []memory.Document{
		{UserID: "u1", Kind: "journal", Title: "Run", Content: "Morning run by the river", OccurredAt: may},
		{UserID: "u1", Kind: "journal", Title: "Old run", Content: "Rainy run", OccurredAt: april},
		{UserID: "u1", Kind: "finance", Title: "Shoes", Content: "Bought running shoes", OccurredAt: may},
	} {
		_, err := idx.Add(ctx, d)
		require.NoError(t, err)
	}

	s := NewLocalSearcher(idx, memory.ModeBM25)
	assert.Equal(t, "local", s.Name())

	snippets, err := s.Search(ctx, Request{
		UserID: "u1",
		Query:  "run",
		Kinds:  []string{"journal"},
		Range: datehint.Range{
			Start: time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local),
			End:   time.Date(2024, 5, 31, 0, 0, 0, 0, time.Local),
		},
		TopK: 12,
	})
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "Run", snippets[0].Title)
	assert.Equal(t, 0, snippets[0].ID)
	assert.Greater(t, snippets[0].Score, 0.0)

	_, err = s.Search(ctx, Request{UserID: "", Query: "run"})
	assert.ErrorIs(t, err, ErrSearchFailed)
}
