// Package storage provides the key-value stores behind the persistence
// layer.
package storage

import "errors"

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("key not found")

// Writer is the write half of a DB, handed to Update callbacks.
type Writer interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// DB is the interface for key-value storage.
type DB interface {
	Writer
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	// ForEach iterates over all keys with the given prefix in key order.
	// The callback receives a copy of the key and value.
	// Return a non-nil error from fn to stop iteration early.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	// Update applies every write made by fn atomically. Nothing is
	// written when fn returns an error.
	Update(fn func(w Writer) error) error
	Close() error
}
