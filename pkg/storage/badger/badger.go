// Package badger opens the shared Badger database and provides a small JSON
// key-value layer over it.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/lifeos/ctxpack/pkg/storage"
)

// Config holds configuration for the Badger database.
type Config struct {
	Path             string
	InMemory         bool
	SyncWrites       bool
	ValueLogFileSize int64
}

// Logger receives Badger's internal diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Open opens the database described by cfg. A nil logger silences Badger.
func Open(cfg *Config, log Logger) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, &storage.StorageUnavailableError{Cause: errors.New("badger path is required")}
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts.SyncWrites = cfg.SyncWrites
	if cfg.ValueLogFileSize > 0 {
		opts.ValueLogFileSize = cfg.ValueLogFileSize
	}
	if log != nil {
		opts.Logger = &badgerLogger{log: log}
	} else {
		opts.Logger = nil
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &storage.StorageUnavailableError{Cause: err}
	}
	return db, nil
}

// Close runs a value log GC pass and closes the database.
func Close(db *badger.DB) error {
	if db == nil {
		return nil
	}
	if !db.Opts().InMemory {
		// ErrNoRewrite just means there was nothing to collect.
		_ = db.RunValueLogGC(0.5)
	}
	return db.Close()
}

type badgerLogger struct {
	log Logger
}

func (l *badgerLogger) Errorf(f string, v ...interface{})   { l.log.Error(fmt.Sprintf(f, v...)) }
func (l *badgerLogger) Warningf(f string, v ...interface{}) { l.log.Warn(fmt.Sprintf(f, v...)) }
func (l *badgerLogger) Infof(f string, v ...interface{})    { l.log.Debug(fmt.Sprintf(f, v...)) }
func (l *badgerLogger) Debugf(f string, v ...interface{})   { l.log.Debug(fmt.Sprintf(f, v...)) }

// Store is a JSON key-value view over a Badger database.
type Store struct {
	db *badger.DB
}

// NewStore wraps db. The caller owns the database lifecycle.
func NewStore(db *badger.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database.
func (s *Store) DB() *badger.DB {
	return s.db
}

// Put stores v as JSON under key. A positive ttl expires the entry.
func (s *Store) Put(_ context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := serialize(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get decodes the value at key into v.
func (s *Store) Get(_ context.Context, key string, v interface{}) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return &storage.NotFoundError{EntityType: "key", ID: key}
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return deserialize(val, v)
		})
	})
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// ScanOptions controls Scan.
type ScanOptions struct {
	// Reverse walks keys from last to first.
	Reverse bool
	// Limit stops after this many entries when positive.
	Limit int
}

// Scan calls fn with the key and raw value of every entry under prefix.
// Returning an error from fn stops the scan and is returned.
func (s *Store) Scan(ctx context.Context, prefix string, opts ScanOptions, fn func(key string, value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		itOpts := badger.DefaultIteratorOptions
		itOpts.Prefix = []byte(prefix)
		itOpts.Reverse = opts.Reverse
		it := txn.NewIterator(itOpts)
		defer it.Close()

		start := []byte(prefix)
		if opts.Reverse {
			// Reverse iteration seeks to the largest key <= start.
			start = append(start, 0xFF)
		}

		n := 0
		for it.Seek(start); it.ValidForPrefix([]byte(prefix)); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(string(item.Key()), val); err != nil {
				return err
			}
			n++
			if opts.Limit > 0 && n >= opts.Limit {
				return nil
			}
		}
		return nil
	})
}

// Unmarshal decodes a value returned by Scan.
func Unmarshal(data []byte, v interface{}) error {
	return deserialize(data, v)
}

func serialize(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &storage.SerializationError{
			Operation: "marshal",
			Cause:     err,
		}
	}
	return data, nil
}

func deserialize(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &storage.SerializationError{
			Operation: "unmarshal",
			Cause:     err,
		}
	}
	return nil
}
