package memory

import (
	"errors"
	"net/url"
)

// Sentinel errors for the memory index.
var (
	ErrInvalidUserID     = errors.New("memory: invalid user ID")
	ErrInvalidQuery      = errors.New("memory: empty query")
	ErrEmptyContent      = errors.New("memory: document content is empty")
	ErrDimensionMismatch = errors.New("memory: vector dimension mismatch")
	ErrNotFound          = errors.New("memory: document not found")
	ErrClosed            = errors.New("memory: index is closed")
)

const docKeyPrefix = "doc:"

// userPrefix is the Badger key prefix for one user's documents. The user ID
// is escaped so that a ':' inside it cannot collide with another user.
func userPrefix(userID string) string {
	return docKeyPrefix + url.QueryEscape(userID) + ":"
}

// docRef is both the Badger key and the identifier used by the in-memory
// indexes and the L1 cache.
func docRef(userID, id string) string {
	return userPrefix(userID) + id
}
