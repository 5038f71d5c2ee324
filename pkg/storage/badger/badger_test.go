package badger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	"github.com/lifeos/ctxpack/pkg/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open(&Config{Path: t.TempDir(), ValueLogFileSize: 1 << 20}, nil)
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() { Close(db) })

	return NewStore(db)
}

type record struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

func TestOpen(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		db, err := Open(&Config{InMemory: true}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !db.Opts().InMemory {
			t.Error("expected in-memory database")
		}
		if err := Close(db); err != nil {
			t.Errorf("unexpected close error: %v", err)
		}
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := Open(&Config{}, nil)
		var unavailable *storage.StorageUnavailableError
		if !errors.As(err, &unavailable) {
			t.Fatalf("expected StorageUnavailableError, got %v", err)
		}
	})

	t.Run("nil db close", func(t *testing.T) {
		if err := Close(nil); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})
}

func TestStore_PutGetDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "rec:1", record{ID: "1", Value: 7}, 0); err != nil {
		t.Fatal(err)
	}

	var got record
	if err := s.Get(ctx, "rec:1", &got); err != nil {
		t.Fatal(err)
	}
	if got.Value != 7 {
		t.Errorf("expected 7, got %d", got.Value)
	}

	if err := s.Delete(ctx, "rec:1"); err != nil {
		t.Fatal(err)
	}
	err := s.Get(ctx, "rec:1", &got)
	var notFound *storage.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.ID != "rec:1" {
		t.Errorf("unexpected id %q", notFound.ID)
	}
}

func TestStore_SerializationError(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	err := s.Put(ctx, "bad", map[string]interface{}{"ch": make(chan int)}, 0)
	var serr *storage.SerializationError
	if !errors.As(err, &serr) || serr.Operation != "marshal" {
		t.Fatalf("expected marshal SerializationError, got %v", err)
	}

	if err := s.Put(ctx, "num", 5, 0); err != nil {
		t.Fatal(err)
	}
	var r record
	err = s.Get(ctx, "num", &r)
	if !errors.As(err, &serr) || serr.Operation != "unmarshal" {
		t.Fatalf("expected unmarshal SerializationError, got %v", err)
	}
}

func TestStore_TTL(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "short", record{ID: "x"}, time.Second); err != nil {
		t.Fatal(err)
	}
	var got record
	if err := s.Get(ctx, "short", &got); err != nil {
		t.Fatalf("expected entry before expiry, got %v", err)
	}

	var expiresAt uint64
	_ = s.DB().View(func(txn *dgbadger.Txn) error {
		item, err := txn.Get([]byte("short"))
		if err != nil {
			return err
		}
		expiresAt = item.ExpiresAt()
		return nil
	})
	if expiresAt == 0 {
		t.Error("expected entry to carry an expiry")
	}
}

func TestStore_Scan(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := s.Put(ctx, fmt.Sprintf("rec:%d", i), record{ID: fmt.Sprint(i), Value: i}, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Put(ctx, "other:1", record{ID: "o"}, 0); err != nil {
		t.Fatal(err)
	}

	collect := func(opts ScanOptions) []string {
		var ids []string
		err := s.Scan(ctx, "rec:", opts, func(_ string, value []byte) error {
			var r record
			if err := Unmarshal(value, &r); err != nil {
				return err
			}
			ids = append(ids, r.ID)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		return ids
	}

	tests := []struct {
		name string
		opts ScanOptions
		want string
	}{
		{"forward", ScanOptions{}, "[1 2 3 4 5]"},
		{"reverse", ScanOptions{Reverse: true}, "[5 4 3 2 1]"},
		{"reverse limit", ScanOptions{Reverse: true, Limit: 2}, "[5 4]"},
		{"forward limit", ScanOptions{Limit: 3}, "[1 2 3]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fmt.Sprint(collect(tt.opts)); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	stop := errors.New("stop")
	err := s.Scan(ctx, "rec:", ScanOptions{}, func(string, []byte) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("expected callback error to propagate, got %v", err)
	}
}
