// Package storage persists the reputation ledger to an opaque key-blob store
// and restores it at startup. Each of the five snapshot records is one key,
// overwritten whole on every flush.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/rueidis"
)

// ErrNotFound is returned by BlobStore.Get when the key has never been written.
var ErrNotFound = errors.New("blob not found")

// BlobStore is the durable-storage medium: a key to blob mapping with atomic
// per-key writes.
type BlobStore interface {
	Put(ctx context.Context, key string, blob []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// RedisStore implements BlobStore on a Redis string keyspace. A Redis SET
// replaces the value atomically, so a reader can never observe a torn write.
type RedisStore struct {
	client rueidis.Client
}

// NewRedisStore creates a blob store backed by the given Redis client.
func NewRedisStore(client rueidis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Put overwrites the blob stored under key.
func (s *RedisStore) Put(ctx context.Context, key string, blob []byte) error {
	cmd := s.client.B().Set().Key(key).Value(rueidis.BinaryString(blob)).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to write blob %q: %w", key, err)
	}
	return nil
}

// Get returns the blob stored under key, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp := s.client.Do(ctx, s.client.B().Get().Key(key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read blob %q: %w", key, err)
	}

	blob, err := resp.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %q: %w", key, err)
	}
	return blob, nil
}
