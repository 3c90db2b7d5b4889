// Package pebble keeps client-side durable state in a Pebble key/value database.
package pebble

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
)

// IdentityKey is the key holding the current identity.
const IdentityKey = "chat_username"

// IdentityStore implements session.IdentityStore on top of Pebble.
type IdentityStore struct {
	db *pebble.DB
}

// Open opens (or creates) the database in dir.
func Open(dir string) (*IdentityStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &IdentityStore{db: db}, nil
}

// OpenInMemory opens a database backed by an in-memory filesystem.
func OpenInMemory() (*IdentityStore, error) {
	db, err := pebble.Open("", &pebble.Options{FS: vfs.NewMem()})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &IdentityStore{db: db}, nil
}

// Load returns the stored identity or "" if none is stored.
func (s *IdentityStore) Load() (string, error) {
	value, closer, err := s.db.Get([]byte(IdentityKey))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get identity: %w", err)
	}
	defer closer.Close()
	// value is only valid until closer is closed.
	return string(value), nil
}

// Save stores name durably.
func (s *IdentityStore) Save(name string) error {
	if err := s.db.Set([]byte(IdentityKey), []byte(name), pebble.Sync); err != nil {
		return fmt.Errorf("set identity: %w", err)
	}
	return nil
}

// Remove deletes the stored identity. Removing a missing identity is not an error.
func (s *IdentityStore) Remove() error {
	if err := s.db.Delete([]byte(IdentityKey), pebble.Sync); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *IdentityStore) Close() error {
	return s.db.Close()
}
