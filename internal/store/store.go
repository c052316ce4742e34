// Package store defines the key-value persistence boundary. Every stateful
// component (users, sessions, collections, backups) receives a Store instance
// instead of touching a storage backend directly.
package store

import (
	"context"

	"github.com/arashthr/markcentral/internal/errors"
)

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.ErrNotFound
	// ErrKeyExists is returned by SetNX when the key is already taken.
	ErrKeyExists = errors.New("store: key already exists")
)

// Store is a namespaced key to JSON-blob mapping. Values are opaque bytes;
// callers own serialization.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetNX writes the value only when the key is absent.
	SetNX(ctx context.Context, key string, value []byte) error
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
}
