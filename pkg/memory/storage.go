package memory

import (
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// --- L1 LRU Cache ---

// L1Cache is an in-memory LRU cache for hot documents, keyed by doc ref.
type L1Cache struct {
	mu       sync.Mutex
	maxSize  int
	items    map[string]*list.Element
	eviction *list.List
	hits     int64
	misses   int64
}

type l1Item struct {
	key string
	doc *Document
}

// NewL1Cache creates a new L1 LRU cache with the given max size.
func NewL1Cache(maxSize int) *L1Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &L1Cache{
		maxSize:  maxSize,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

// Get returns a copy of the cached document and promotes it.
func (c *L1Cache) Get(key string) (*Document, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		c.hits++
		return cloneDocument(elem.Value.(*l1Item).doc), true
	}
	c.misses++
	return nil, false
}

// Put adds or replaces a document.
func (c *L1Cache) Put(key string, doc *Document) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := cloneDocument(doc)
	if elem, ok := c.items[key]; ok {
		c.eviction.MoveToFront(elem)
		elem.Value.(*l1Item).doc = stored
		return
	}

	if c.eviction.Len() >= c.maxSize {
		if back := c.eviction.Back(); back != nil {
			c.eviction.Remove(back)
			delete(c.items, back.Value.(*l1Item).key)
		}
	}
	c.items[key] = c.eviction.PushFront(&l1Item{key: key, doc: stored})
}

// Delete removes a document from the cache.
func (c *L1Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.eviction.Remove(elem)
		delete(c.items, key)
	}
}

// Len returns the number of cached documents.
func (c *L1Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// HitRate returns the cache hit rate (0.0-1.0) and total lookups.
func (c *L1Cache) HitRate() (rate float64, total int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	total = c.hits + c.misses
	if total == 0 {
		return 0, 0
	}
	return float64(c.hits) / float64(total), total
}

// --- L2 Badger Storage ---

// L2Badger persists documents under doc:{user}:{id}.
type L2Badger struct {
	db *badger.DB
}

// NewL2Badger wraps an open Badger database. The caller owns its lifecycle.
func NewL2Badger(db *badger.DB) *L2Badger {
	return &L2Badger{db: db}
}

// Put writes a document.
func (s *L2Badger) Put(_ context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("memory: marshal document: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(docRef(doc.UserID, doc.ID)), data)
	})
}

// Get reads one document.
func (s *L2Badger) Get(_ context.Context, userID, id string) (*Document, error) {
	var doc Document
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(docRef(userID, id)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Delete removes one document. Deleting a missing document is not an error.
func (s *L2Badger) Delete(_ context.Context, userID, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(docRef(userID, id)))
	})
}

// Scan calls fn for every document under prefix, in key order.
func (s *L2Badger) Scan(_ context.Context, prefix string, fn func(*Document) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var doc Document
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return fmt.Errorf("memory: decode %s: %w", it.Item().Key(), err)
			}
			if err := fn(&doc); err != nil {
				return err
			}
		}
		return nil
	})
}

// AllByUser returns a user's documents, newest OccurredAt first.
func (s *L2Badger) AllByUser(ctx context.Context, userID string) ([]*Document, error) {
	var docs []*Document
	err := s.Scan(ctx, userPrefix(userID), func(d *Document) error {
		docs = append(docs, d)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].OccurredAt.After(docs[j].OccurredAt)
	})
	return docs, nil
}

// CountByUser counts a user's documents without reading values.
func (s *L2Badger) CountByUser(_ context.Context, userID string) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(userPrefix(userID))
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// DeleteByUser removes all of a user's documents and returns their IDs.
func (s *L2Badger) DeleteByUser(_ context.Context, userID string) ([]string, error) {
	prefix := userPrefix(userID)
	var ids []string
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
			ids = append(ids, string(key[len(prefix):]))
		}
		return nil
	})
	return ids, err
}

// --- Tiered Storage Coordinator ---

// TieredStorage coordinates the L1 cache and L2 Badger storage.
type TieredStorage struct {
	l1 *L1Cache
	l2 *L2Badger
}

// NewTieredStorage creates a new tiered storage coordinator.
func NewTieredStorage(l1 *L1Cache, l2 *L2Badger) *TieredStorage {
	return &TieredStorage{l1: l1, l2: l2}
}

// Put writes through to L2, then caches.
func (t *TieredStorage) Put(ctx context.Context, doc *Document) error {
	if err := t.l2.Put(ctx, doc); err != nil {
		return err
	}
	t.l1.Put(docRef(doc.UserID, doc.ID), doc)
	return nil
}

// Get reads from L1, falling back to L2 with promotion.
func (t *TieredStorage) Get(ctx context.Context, userID, id string) (*Document, error) {
	ref := docRef(userID, id)
	if doc, ok := t.l1.Get(ref); ok {
		return doc, nil
	}
	doc, err := t.l2.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	t.l1.Put(ref, doc)
	return doc, nil
}

// Delete removes from both tiers.
func (t *TieredStorage) Delete(ctx context.Context, userID, id string) error {
	t.l1.Delete(docRef(userID, id))
	return t.l2.Delete(ctx, userID, id)
}

// AllByUser delegates to L2.
func (t *TieredStorage) AllByUser(ctx context.Context, userID string) ([]*Document, error) {
	return t.l2.AllByUser(ctx, userID)
}

// CountByUser delegates to L2.
func (t *TieredStorage) CountByUser(ctx context.Context, userID string) (int, error) {
	return t.l2.CountByUser(ctx, userID)
}

// DeleteByUser removes a user's documents from both tiers.
func (t *TieredStorage) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	ids, err := t.l2.DeleteByUser(ctx, userID)
	for _, id := range ids {
		t.l1.Delete(docRef(userID, id))
	}
	return ids, err
}

// Scan delegates to L2.
func (t *TieredStorage) Scan(ctx context.Context, prefix string, fn func(*Document) error) error {
	return t.l2.Scan(ctx, prefix, fn)
}
