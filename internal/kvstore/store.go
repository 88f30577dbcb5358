// Package kvstore abstracts the schemaless fast store used for tenant
// records, usage ledgers and feature flags. Keys are hierarchical
// colon-delimited strings; values are raw JSON documents.
package kvstore

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key has no value. Callers must
// treat it as a normal miss, not a backend failure.
var ErrKeyNotFound = errors.New("key_not_found")

// Store is the point/prefix contract shared by every core component.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error

	// GetByPrefix returns the values (not the keys) of every entry whose key
	// starts with prefix. Callers recover identity from fields embedded in
	// the value itself.
	GetByPrefix(ctx context.Context, prefix string) ([][]byte, error)

	// Batch variants used by bulk cleanup paths such as tenant deletion.
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	MSet(ctx context.Context, pairs map[string][]byte) error
	MDel(ctx context.Context, keys ...string) error
}
