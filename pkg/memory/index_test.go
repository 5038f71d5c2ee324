package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeos/ctxpack/pkg/datehint"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	emb, err := NewEmbedder(EmbedderChargram, 128)
	require.NoError(t, err)
	return NewIndex(openTestDB(t), emb, DefaultConfig())
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.Add(12 * time.Hour)
}

func seedIndex(t *testing.T, idx *Index) {
	t.Helper()
	ctx := context.Background()
	docs := []Document{
		{UserID: "u1", Kind: "journal", Title: "Monday", Content: "Went running along the river before work", OccurredAt: day("2024-05-13")},
		{UserID: "u1", Kind: "task", Title: "Dentist", Content: "Book dentist appointment for next month", OccurredAt: day("2024-05-14")},
		{UserID: "u1", Kind: "journal", Title: "April", Content: "Long running session in the park", OccurredAt: day("2024-04-20")},
		{UserID: "u2", Kind: "journal", Content: "Running club meetup", OccurredAt: day("2024-05-13")},
	}
	for _, d := range docs {
		_, err := idx.Add(ctx, d)
		require.NoError(t, err)
	}
}

func TestIndex_AddDefaults(t *testing.T) {
	fixed := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	emb, _ := NewEmbedder(EmbedderHash, 32)
	idx := NewIndex(openTestDB(t), emb, DefaultConfig(), WithClock(func() time.Time { return fixed }))

	doc, err := idx.Add(context.Background(), Document{UserID: "u1", Content: "note"})
	require.NoError(t, err)
	assert.Len(t, doc.ID, 26)
	assert.Equal(t, fixed, doc.CreatedAt)
	assert.Equal(t, fixed, doc.OccurredAt)
	assert.Equal(t, emb.ModelID(), doc.Model)
	assert.Len(t, doc.Vector, 32)

	got, err := idx.Get(context.Background(), "u1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "note", got.Content)
}

func TestIndex_AddValidation(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.Add(ctx, Document{Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidUserID)

	_, err = idx.Add(ctx, Document{UserID: "u1", Content: "  "})
	assert.ErrorIs(t, err, ErrEmptyContent)

	ids, err := idx.AddBatch(ctx, "u1", []Document{{Content: "ok"}, {Content: ""}})
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Len(t, ids, 1)
}

func TestIndex_Search(t *testing.T) {
	idx := newTestIndex(t)
	seedIndex(t, idx)
	ctx := context.Background()

	t.Run("scoped to user", func(t *testing.T) {
		results, err := idx.Search(ctx, "u1", Query{Text: "running", TopK: 10})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		for _, r := range results {
			assert.Equal(t, "u1", r.Document.UserID)
			assert.Nil(t, r.Document.Vector)
		}
	})

	t.Run("kind filter", func(t *testing.T) {
		results, err := idx.Search(ctx, "u1", Query{Text: "dentist running", Kinds: []string{"task"}, Mode: ModeBM25})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Dentist", results[0].Document.Title)
	})

	t.Run("date range", func(t *testing.T) {
		r := datehint.Range{Start: day("2024-05-01"), End: day("2024-05-31")}
		results, err := idx.Search(ctx, "u1", Query{Text: "running", Range: r, Mode: ModeBM25})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "Monday", results[0].Document.Title)
	})

	t.Run("ordered best first", func(t *testing.T) {
		results, err := idx.Search(ctx, "u1", Query{Text: "running river", Mode: ModeBM25})
		require.NoError(t, err)
		for i := 1; i < len(results); i++ {
			assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
		}
	})

	t.Run("errors", func(t *testing.T) {
		_, err := idx.Search(ctx, "", Query{Text: "x"})
		assert.ErrorIs(t, err, ErrInvalidUserID)
		_, err = idx.Search(ctx, "u1", Query{Text: " "})
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})
}

func TestIndex_DeleteAndCount(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	ids, err := idx.AddBatch(ctx, "u1", []Document{{Content: "alpha"}, {Content: "beta"}, {Content: "gamma"}})
	require.NoError(t, err)
	_, err = idx.Add(ctx, Document{UserID: "u2", Content: "alpha"})
	require.NoError(t, err)

	n, err := idx.Delete(ctx, "u1", []string{ids[0], "missing"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := idx.Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = idx.Get(ctx, "u1", ids[0])
	assert.True(t, errors.Is(err, ErrNotFound))

	results, err := idx.Search(ctx, "u1", Query{Text: "alpha", Mode: ModeBM25})
	require.NoError(t, err)
	assert.Empty(t, results)

	n, err = idx.DeleteUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, idx.Len())
}

func TestIndex_ListAndStats(t *testing.T) {
	idx := newTestIndex(t)
	seedIndex(t, idx)
	ctx := context.Background()

	page, total, err := idx.List(ctx, "u1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "Dentist", page[0].Title)

	page, _, err = idx.List(ctx, "u1", 2, 5)
	require.NoError(t, err)
	assert.Empty(t, page)

	stats, err := idx.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDocuments)
	assert.Equal(t, map[string]int{"journal": 2, "task": 1}, stats.Kinds)
	assert.Equal(t, day("2024-04-20"), *stats.Oldest)
	assert.Equal(t, day("2024-05-14"), *stats.Newest)

	empty, err := idx.Stats(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, empty.TotalDocuments)
	assert.Nil(t, empty.Oldest)
}

func TestIndex_LoadReembeds(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	hashEmb, _ := NewEmbedder(EmbedderHash, 32)
	first := NewIndex(db, hashEmb, DefaultConfig())
	_, err := first.Add(ctx, Document{UserID: "u1", Content: "weekly review"})
	require.NoError(t, err)

	gramEmb, _ := NewEmbedder(EmbedderChargram, 64)
	second := NewIndex(db, gramEmb, DefaultConfig())
	n, err := second.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, second.Len())

	docs, _, err := second.List(ctx, "u1", 10, 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	stored, err := second.storage.l2.Get(ctx, "u1", docs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, gramEmb.ModelID(), stored.Model)
	assert.Len(t, stored.Vector, 64)

	results, err := second.Search(ctx, "u1", Query{Text: "weekly review", Mode: ModeVector})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
