// internal/storage/redis_store.go
package storage

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	apperrors "github.com/Corphon/Chronicle/internal/errors"
)

// RedisSnapshotStore keeps the autosave blob in a single redis key.
type RedisSnapshotStore struct {
	client *backend.Client
	key    string
}

// NewRedisSnapshotStore connects to redis at address.
func NewRedisSnapshotStore(address, password string, db int) *RedisSnapshotStore {
	return NewRedisSnapshotStoreFromClient(backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	}))
}

// NewRedisSnapshotStoreFromClient wraps an existing client.
func NewRedisSnapshotStoreFromClient(client *backend.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client, key: "chronicle:" + SaveKey}
}

// Ping checks connectivity, used at startup.
func (s *RedisSnapshotStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSnapshotStore) SaveSnapshot(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *RedisSnapshotStore) LoadSnapshot(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, apperrors.NewNotFoundError("no saved game", nil)
		}
		return nil, fmt.Errorf("failed to load from redis: %w", err)
	}
	return data, nil
}

func (s *RedisSnapshotStore) DeleteSnapshot(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisSnapshotStore) Close() error {
	return s.client.Close()
}
