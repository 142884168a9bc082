package dataset

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hs170703/insightfull/pkg/models"
)

// Loader loads a dataset that is not cached
type Loader func(username, filename string) (*models.Dataset, error)

type cacheKey struct {
	username string
	filename string
}

type cacheEntry struct {
	dataset    *models.Dataset
	lastAccess time.Time
}

// Cache holds parsed datasets per user and file. Cached datasets are shared
// read-only between requests. Entries idle for longer than the TTL are
// evicted by a cron sweep.
type Cache struct {
	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
	ttl     time.Duration
	loader  Loader
	cron    *cron.Cron
	logger  *slog.Logger
	now     func() time.Time
}

// NewCache creates a cache. loader may be nil, in which case misses fail.
func NewCache(ttl time.Duration, loader Loader, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		entries: make(map[cacheKey]*cacheEntry),
		ttl:     ttl,
		loader:  loader,
		cron:    cron.New(),
		logger:  logger,
		now:     time.Now,
	}
}

// Put stores a dataset, replacing any earlier version
func (c *Cache) Put(username, filename string, ds *models.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{username, filename}] = &cacheEntry{dataset: ds, lastAccess: c.now()}
}

// Get returns the cached dataset, loading it on a miss
func (c *Cache) Get(username, filename string) (*models.Dataset, error) {
	key := cacheKey{username, filename}

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.lastAccess = c.now()
		c.mu.Unlock()
		return entry.dataset, nil
	}
	c.mu.Unlock()

	if c.loader == nil {
		return nil, fmt.Errorf("%s: %w", filename, ErrFileNotFound)
	}
	ds, err := c.loader(username, filename)
	if err != nil {
		return nil, err
	}
	c.Put(username, filename, ds)
	c.logger.Debug("dataset loaded into cache", "username", username, "filename", filename, "rows", ds.Rows())
	return ds, nil
}

// Len returns the number of cached datasets
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Evict drops entries idle for longer than the TTL and returns how many
func (c *Cache) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.ttl)
	evicted := 0
	for key, entry := range c.entries {
		if entry.lastAccess.Before(cutoff) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Start schedules the eviction sweep
func (c *Cache) Start(spec string) error {
	_, err := c.cron.AddFunc(spec, func() {
		if n := c.Evict(); n > 0 {
			c.logger.Info("evicted idle datasets", "count", n)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cache sweep schedule %q: %w", spec, err)
	}
	c.cron.Start()
	c.logger.Info("dataset cache sweeper started", "schedule", spec, "ttl", c.ttl)
	return nil
}

// Stop stops the eviction sweep
func (c *Cache) Stop() {
	<-c.cron.Stop().Done()
	c.logger.Info("dataset cache sweeper stopped")
}
