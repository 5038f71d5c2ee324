package memory

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/oklog/ulid/v2"
)

// Config tunes the index.
type Config struct {
	VectorWeight float64
	BM25Weight   float64
	K1           float64
	B            float64
	L1CacheSize  int
}

// DefaultConfig returns the standard index tuning.
func DefaultConfig() Config {
	return Config{
		VectorWeight: 0.6,
		BM25Weight:   0.4,
		K1:           1.5,
		B:            0.75,
		L1CacheSize:  1000,
	}
}

// indexLogger is the minimal logger interface used by Index.
type indexLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopIndexLogger struct{}

func (nopIndexLogger) Debug(string, ...any) {}
func (nopIndexLogger) Info(string, ...any)  {}
func (nopIndexLogger) Warn(string, ...any)  {}

// docMeta is what search filters need without touching storage.
type docMeta struct {
	userID     string
	id         string
	kind       string
	occurredAt time.Time
}

// Index is the per-user document index. It is safe for concurrent use.
type Index struct {
	mu sync.RWMutex

	cfg      Config
	storage  *TieredStorage
	embedder Embedder
	vector   *VectorIndex
	bm25     *BM25Index
	hybrid   *HybridRetriever
	meta     map[string]docMeta
	logger   indexLogger
	now      func() time.Time

	entropyMu sync.Mutex
	entropy   *rand.Rand
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the index logger.
func WithLogger(l indexLogger) Option {
	return func(idx *Index) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(idx *Index) {
		if now != nil {
			idx.now = now
		}
	}
}

// NewIndex creates an index over db using embedder for vectors. Call Load
// to index documents that are already stored.
func NewIndex(db *badger.DB, embedder Embedder, cfg Config, opts ...Option) *Index {
	vectorIdx := NewVectorIndex(embedder.Dimension())
	bm25Idx := NewBM25Index(cfg.K1, cfg.B)

	idx := &Index{
		cfg:      cfg,
		storage:  NewTieredStorage(NewL1Cache(cfg.L1CacheSize), NewL2Badger(db)),
		embedder: embedder,
		vector:   vectorIdx,
		bm25:     bm25Idx,
		hybrid:   NewHybridRetriever(vectorIdx, bm25Idx, embedder, cfg.VectorWeight, cfg.BM25Weight),
		meta:     make(map[string]docMeta),
		logger:   nopIndexLogger{},
		now:      time.Now,
		entropy:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

func (idx *Index) newID(t time.Time) string {
	idx.entropyMu.Lock()
	defer idx.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), idx.entropy).String()
}

// Load indexes every stored document. Documents embedded with a different
// model are re-embedded and written back. It returns the number indexed.
func (idx *Index) Load(ctx context.Context) (int, error) {
	var stale []*Document
	count := 0

	err := idx.storage.Scan(ctx, docKeyPrefix, func(doc *Document) error {
		if doc.Model != idx.embedder.ModelID() || len(doc.Vector) != idx.embedder.Dimension() {
			doc.Vector = idx.embedder.Embed(doc.searchText())
			doc.Model = idx.embedder.ModelID()
			stale = append(stale, doc)
		}
		idx.indexDocument(doc)
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("memory: load index: %w", err)
	}

	for _, doc := range stale {
		if err := idx.storage.Put(ctx, doc); err != nil {
			idx.logger.Warn("failed to persist re-embedded document", "user_id", doc.UserID, "doc_id", doc.ID, "error", err)
		}
	}

	idx.logger.Info("memory index loaded",
		"documents", count,
		"reembedded", len(stale),
		"model", idx.embedder.ModelID(),
	)
	return count, nil
}

// Add stores and indexes a document. ID, CreatedAt and OccurredAt are filled
// in when empty. Adding a document with an existing ID replaces it.
func (idx *Index) Add(ctx context.Context, doc Document) (*Document, error) {
	if strings.TrimSpace(doc.UserID) == "" {
		return nil, ErrInvalidUserID
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, ErrEmptyContent
	}

	now := idx.now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.OccurredAt.IsZero() {
		doc.OccurredAt = doc.CreatedAt
	}
	if doc.ID == "" {
		doc.ID = idx.newID(doc.CreatedAt)
	}
	doc.Vector = idx.embedder.Embed(doc.searchText())
	doc.Model = idx.embedder.ModelID()

	stored := cloneDocument(&doc)
	if err := idx.storage.Put(ctx, stored); err != nil {
		return nil, fmt.Errorf("memory: store failed: %w", err)
	}
	idx.indexDocument(stored)
	return cloneDocument(stored), nil
}

// AddBatch adds documents for one user, stopping at the first failure.
func (idx *Index) AddBatch(ctx context.Context, userID string, docs []Document) ([]string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidUserID
	}
	ids := make([]string, 0, len(docs))
	for i, d := range docs {
		d.UserID = userID
		added, err := idx.Add(ctx, d)
		if err != nil {
			return ids, fmt.Errorf("memory: batch add failed at document %d: %w", i, err)
		}
		ids = append(ids, added.ID)
	}
	return ids, nil
}

func (idx *Index) indexDocument(doc *Document) {
	ref := docRef(doc.UserID, doc.ID)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.bm25.Index(ref, doc.searchText())
	if err := idx.vector.Add(ref, doc.Vector); err != nil {
		idx.logger.Warn("failed to index vector", "doc_id", doc.ID, "error", err)
	}
	idx.meta[ref] = docMeta{
		userID:     doc.UserID,
		id:         doc.ID,
		kind:       doc.Kind,
		occurredAt: doc.OccurredAt,
	}
}

func (idx *Index) unindex(ref string) {
	idx.bm25.Remove(ref)
	idx.vector.Remove(ref)
	delete(idx.meta, ref)
}

// Get returns one document.
func (idx *Index) Get(ctx context.Context, userID, id string) (*Document, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return idx.storage.Get(ctx, userID, id)
}

// Search ranks a user's documents against q. Results are best first and
// carry the fused (hybrid) or raw (bm25, vector) score.
func (idx *Index) Search(ctx context.Context, userID string, q Query) ([]Result, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, ErrInvalidQuery
	}

	kinds := make(map[string]struct{}, len(q.Kinds))
	for _, k := range q.Kinds {
		kinds[k] = struct{}{}
	}

	idx.mu.RLock()
	accept := func(ref string) bool {
		m, ok := idx.meta[ref]
		if !ok || m.userID != userID {
			return false
		}
		if len(kinds) > 0 {
			if _, ok := kinds[m.kind]; !ok {
				return false
			}
		}
		return q.Range.IsZero() || q.Range.Contains(m.occurredAt)
	}
	hits, err := idx.hybrid.Retrieve(ctx, q.Text, q.Mode, q.TopK, accept)
	refs := make([]docMeta, len(hits))
	for i, h := range hits {
		refs[i] = idx.meta[h.Ref]
	}
	idx.mu.RUnlock()

	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for i, h := range hits {
		doc, err := idx.storage.Get(ctx, refs[i].userID, refs[i].id)
		if err != nil {
			idx.logger.Warn("indexed document missing from storage", "user_id", userID, "doc_id", refs[i].id, "error", err)
			continue
		}
		doc.Vector = nil
		results = append(results, Result{Document: doc, Score: h.Score})
	}
	return results, nil
}

// Delete removes the given documents and returns how many existed.
func (idx *Index) Delete(ctx context.Context, userID string, ids []string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidUserID
	}

	deleted := 0
	for _, id := range ids {
		ref := docRef(userID, id)
		idx.mu.Lock()
		_, known := idx.meta[ref]
		idx.unindex(ref)
		idx.mu.Unlock()

		if err := idx.storage.Delete(ctx, userID, id); err != nil {
			return deleted, fmt.Errorf("memory: delete %s: %w", id, err)
		}
		if known {
			deleted++
		}
	}
	return deleted, nil
}

// DeleteUser removes all of a user's documents.
func (idx *Index) DeleteUser(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidUserID
	}
	ids, err := idx.storage.DeleteByUser(ctx, userID)

	idx.mu.Lock()
	for _, id := range ids {
		idx.unindex(docRef(userID, id))
	}
	idx.mu.Unlock()

	if err != nil {
		return len(ids), fmt.Errorf("memory: delete user: %w", err)
	}
	return len(ids), nil
}

// List returns a page of a user's documents, newest first, and the total.
func (idx *Index) List(ctx context.Context, userID string, limit, offset int) ([]*Document, int, error) {
	if userID == "" {
		return nil, 0, ErrInvalidUserID
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	all, err := idx.storage.AllByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	if offset >= total {
		return []*Document{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := all[offset:end]
	for _, d := range page {
		d.Vector = nil
	}
	return page, total, nil
}

// Count returns the number of stored documents for a user.
func (idx *Index) Count(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidUserID
	}
	return idx.storage.CountByUser(ctx, userID)
}

// Stats summarizes a user's documents.
func (idx *Index) Stats(ctx context.Context, userID string) (*Stats, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	docs, err := idx.storage.AllByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("memory: stats: %w", err)
	}

	stats := &Stats{TotalDocuments: len(docs)}
	if len(docs) == 0 {
		return stats, nil
	}
	stats.Kinds = make(map[string]int)
	oldest, newest := docs[0].OccurredAt, docs[0].OccurredAt
	for _, d := range docs {
		kind := d.Kind
		if kind == "" {
			kind = "untyped"
		}
		stats.Kinds[kind]++
		if d.OccurredAt.Before(oldest) {
			oldest = d.OccurredAt
		}
		if d.OccurredAt.After(newest) {
			newest = d.OccurredAt
		}
	}
	stats.Oldest, stats.Newest = &oldest, &newest
	return stats, nil
}

// Len returns the number of indexed documents across all users.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.meta)
}

// CacheHitRate reports the L1 cache hit rate and total lookups.
func (idx *Index) CacheHitRate() (float64, int64) {
	return idx.storage.l1.HitRate()
}
