package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Cache is a read-through cache for the serialized registry index. The
// hosting repository stays the system of record; the cache only bounds
// how often the read side hits it.
type Cache struct {
	ttl   time.Duration
	fetch func(ctx context.Context) ([]byte, error)

	mu        sync.Mutex
	data      []byte
	fetchedAt time.Time
	now       func() time.Time
}

// NewCache creates a cache around fetch with the given TTL. A TTL of zero
// disables caching entirely.
func NewCache(ttl time.Duration, fetch func(ctx context.Context) ([]byte, error)) *Cache {
	return &Cache{
		ttl:   ttl,
		fetch: fetch,
		now:   time.Now,
	}
}

// Get returns the cached registry content, refreshing it when stale.
func (c *Cache) Get(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data != nil && c.ttl > 0 && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.data, nil
	}

	data, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.data = data
	c.fetchedAt = c.now()
	return data, nil
}

// Invalidate drops the cached content so the next Get refetches.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// localFetch reads the registry index from a local checkout, for
// development without a hosting-API token.
func localFetch(path string) func(ctx context.Context) ([]byte, error) {
	return func(ctx context.Context) ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading local registry: %w", err)
		}
		return data, nil
	}
}

// watchLocal invalidates the cache whenever the local registry file
// changes. Returns a close function for the watcher.
func watchLocal(path string, cache *Cache) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the directory: editors replace files rather than write in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	base := filepath.Base(path)
	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) == base && event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					slog.Debug("local registry changed, invalidating cache", "event", event.Op)
					cache.Invalidate()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("registry watcher error", "error", err)
			}
		}
	}()

	return watcher.Close, nil
}
