package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"scz-inmuebles/models"
	"scz-inmuebles/storage"
	"scz-inmuebles/utils"
)

const cacheKeyDescriptionRunes = 200

// CacheKey identifies a listing text: its title plus the first 200 characters
// of its description.
func CacheKey(title, description string) string {
	desc := []rune(description)
	if len(desc) > cacheKeyDescriptionRunes {
		desc = desc[:cacheKeyDescriptionRunes]
	}
	sum := sha256.Sum256([]byte(title + "|" + string(desc)))
	return hex.EncodeToString(sum[:])
}

// ExtractionCache holds merged extraction results in memory and writes new
// entries through to its store every flushEvery puts.
type ExtractionCache struct {
	mu         sync.RWMutex
	entries    map[string]models.ExtractedFields
	pending    map[string]models.ExtractedFields
	store      storage.CacheStore
	flushEvery int
	logger     *utils.Logger
}

// NewExtractionCache creates a cache over store. A nil store keeps the cache
// purely in memory.
func NewExtractionCache(store storage.CacheStore, flushEvery int, logger *utils.Logger) *ExtractionCache {
	if flushEvery < 1 {
		flushEvery = 1
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &ExtractionCache{
		entries:    make(map[string]models.ExtractedFields),
		pending:    make(map[string]models.ExtractedFields),
		store:      store,
		flushEvery: flushEvery,
		logger:     logger,
	}
}

// Load reads the persisted entries into memory.
func (c *ExtractionCache) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	loaded, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	for k, v := range loaded {
		c.entries[k] = v
	}
	n := len(c.entries)
	c.mu.Unlock()

	c.logger.Info("[cache] Loaded %d cached extractions", n)
	return nil
}

// Get returns the cached result for key.
func (c *ExtractionCache) Get(key string) (models.ExtractedFields, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.entries[key]
	return f, ok
}

// Put stores f under key and flushes when enough new entries accumulated.
func (c *ExtractionCache) Put(ctx context.Context, key string, f models.ExtractedFields) {
	c.mu.Lock()
	c.entries[key] = f
	c.pending[key] = f
	due := len(c.pending) >= c.flushEvery
	c.mu.Unlock()

	if due {
		if err := c.Flush(ctx); err != nil {
			c.logger.Warn("[cache] Periodic flush failed: %v", err)
		}
	}
}

// Flush writes the entries added since the last flush to the store.
func (c *ExtractionCache) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.store == nil || len(c.pending) == 0 {
		c.mu.Unlock()
		return nil
	}
	batch := c.pending
	c.pending = make(map[string]models.ExtractedFields)
	c.mu.Unlock()

	if err := c.store.Save(ctx, batch); err != nil {
		// keep the entries for the next attempt
		c.mu.Lock()
		for k, v := range batch {
			if _, newer := c.pending[k]; !newer {
				c.pending[k] = v
			}
		}
		c.mu.Unlock()
		return err
	}
	c.logger.Debug("[cache] Flushed %d entries", len(batch))
	return nil
}

// Len returns the number of cached entries.
func (c *ExtractionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Pending returns the number of entries not yet flushed.
func (c *ExtractionCache) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}
