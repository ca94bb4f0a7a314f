package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"

	"scz-inmuebles/models"
)

// JSONFileCache stores the extraction cache as one JSON object on disk.
// Save merges into the existing file and replaces it atomically.
type JSONFileCache struct {
	mu   sync.Mutex
	path string
}

// NewJSONFileCache returns a file-backed cache store at path.
func NewJSONFileCache(path string) *JSONFileCache {
	return &JSONFileCache{path: path}
}

// Load reads the cache file. A missing file is an empty cache.
func (c *JSONFileCache) Load(ctx context.Context) (map[string]models.ExtractedFields, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

func (c *JSONFileCache) read() (map[string]models.ExtractedFields, error) {
	entries := make(map[string]models.ExtractedFields)
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read %q: %w", c.path, err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("cache: decode %q: %w", c.path, err)
	}
	return entries, nil
}

// Save merges entries into the file. New values win on key collisions.
func (c *JSONFileCache) Save(ctx context.Context, entries map[string]models.ExtractedFields) error {
	if len(entries) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	merged, err := c.read()
	if err != nil {
		return err
	}
	for k, v := range entries {
		merged[k] = v
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("cache: create dir: %w", err)
	}
	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: encode: %w", err)
	}
	return writeFileAtomic(c.path, data)
}

// writeFileAtomic writes data to a temp file next to path and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %q: %w", path, err)
	}
	return nil
}

// RedisCache stores the extraction cache in a Redis hash, one field per key.
// It lets several pipeline processes share cached LLM answers.
type RedisCache struct {
	rdb *redis.Client
	key string
}

// NewRedisCache connects to Redis and checks the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int, key string) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", addr, err)
	}
	return &RedisCache{rdb: rdb, key: key}, nil
}

// Load reads every cached entry. Entries that fail to decode are skipped.
func (c *RedisCache) Load(ctx context.Context) (map[string]models.ExtractedFields, error) {
	raw, err := c.rdb.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: hgetall %s: %w", c.key, err)
	}
	entries := make(map[string]models.ExtractedFields, len(raw))
	for k, v := range raw {
		var f models.ExtractedFields
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			continue
		}
		entries[k] = f
	}
	return entries, nil
}

// Save writes entries as hash fields. HSET only adds or replaces fields.
func (c *RedisCache) Save(ctx context.Context, entries map[string]models.ExtractedFields) error {
	if len(entries) == 0 {
		return nil
	}
	values := make(map[string]any, len(entries))
	for k, v := range entries {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("redis: encode %s: %w", k, err)
		}
		values[k] = string(data)
	}
	if err := c.rdb.HSet(ctx, c.key, values).Err(); err != nil {
		return fmt.Errorf("redis: hset %s: %w", c.key, err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
