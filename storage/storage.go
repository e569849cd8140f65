// Package storage persists the coordinator's registry and the circles' state
// in a prefixed key-value store. The following prefixes are used:
//   - 'm/' for registry metadata (the circle id counter)
//   - 'c/' for circle snapshots
//   - 'e/' for the append-only event log (per circle, sequence-keyed)
//   - 'r/' for pending randomness requests
package storage

import (
	"errors"

	"go.vocdoni.io/dvote/db"
)

var (
	// Prefixes for the keys in the database.
	metadataPrefix = []byte("m/")
	circlePrefix   = []byte("c/")
	eventPrefix    = []byte("e/")
	requestPrefix  = []byte("r/")
)

// ErrNotFound is returned when the requested artifact does not exist.
var ErrNotFound = errors.New("not found")

// Storage wraps the key-value database.
type Storage struct {
	db db.Database
}

// New creates a new Storage instance backed by the given database.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the underlying database.
func (s *Storage) Close() {
	s.db.Close()
}
