// Package store persists named chain documents. Every save of a name adds
// a revision; Load returns the newest one.
package store

import (
	"errors"
	"time"
)

// Store persists named documents.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores data as the next revision of name.
	Save(name string, data []byte) error

	// Load retrieves the newest revision of name.
	// Returns ErrNotFound if name was never saved.
	Load(name string) ([]byte, error)

	// LoadRevision retrieves one revision of name.
	// Returns ErrNotFound if that revision doesn't exist.
	LoadRevision(name string, revision int) ([]byte, error)

	// List returns the newest revision of every name, sorted by name.
	// Returns empty slice (not error) if the store is empty.
	List() ([]Info, error)

	// Revisions returns every revision of name, oldest first.
	Revisions(name string) ([]Info, error)

	// Delete removes every revision of name.
	// Returns nil if name doesn't exist.
	Delete(name string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading the document.
type Info struct {
	Name      string
	Revision  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates a document or revision doesn't exist.
	ErrNotFound = errors.New("document not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("document store closed")

	// ErrInvalidName indicates an empty document name.
	ErrInvalidName = errors.New("invalid document name")
)
