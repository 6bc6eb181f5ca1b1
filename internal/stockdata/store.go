package stockdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wonny/stockrank/pkg/redis"
)

// Store persists the last downloaded StockData per account
type Store interface {
	Name() string
	Load(ctx context.Context, accountID string) (*StockData, error)
	Save(ctx context.Context, data *StockData) error
	Clear(ctx context.Context, accountID string) error
}

// FileStore keeps a single JSON snapshot on disk
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Name returns the backend name
func (s *FileStore) Name() string { return "file" }

// Path returns the cache file location
func (s *FileStore) Path() string { return s.path }

// Load reads the cache file. An entry written for another account is a miss.
func (s *FileStore) Load(_ context.Context, accountID string) (*StockData, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("read cache file: %w", err)
	}

	var data StockData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode cache file: %w", err)
	}

	if data.AccountID != "" && data.AccountID != accountID {
		return nil, ErrCacheMiss
	}

	return &data, nil
}

// Save writes the snapshot through a temp file and rename
func (s *FileStore) Save(_ context.Context, data *StockData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode stock data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}

	return nil
}

// Clear removes the cache file
func (s *FileStore) Clear(_ context.Context, _ string) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove cache file: %w", err)
	}
	return nil
}

// RedisStore keeps one snapshot per account in Redis
type RedisStore struct {
	cache *redis.Cache
}

// NewRedisStore creates a redis-backed store
func NewRedisStore(cache *redis.Cache) *RedisStore {
	return &RedisStore{cache: cache}
}

// Name returns the backend name
func (s *RedisStore) Name() string { return "redis" }

// Load reads the snapshot of the account
func (s *RedisStore) Load(ctx context.Context, accountID string) (*StockData, error) {
	var data StockData
	found, err := s.cache.Get(ctx, redis.StockDataKey(accountID), &data)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrCacheMiss
	}
	return &data, nil
}

// Save stores the snapshot. Staleness is decided by the Cacher, the TTL only bounds storage.
func (s *RedisStore) Save(ctx context.Context, data *StockData) error {
	return s.cache.Set(ctx, redis.StockDataKey(data.AccountID), data, 7*redis.TTLDaily)
}

// Clear deletes the snapshot of the account
func (s *RedisStore) Clear(ctx context.Context, accountID string) error {
	return s.cache.Delete(ctx, redis.StockDataKey(accountID))
}
