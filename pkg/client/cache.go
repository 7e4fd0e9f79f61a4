package client

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// keySep cannot appear in a key segment built from ids and resource names.
const keySep = "\x00"

// QueryCache holds query results by key. Concurrent fetches of the same key
// share one request.
type QueryCache struct {
	mu       sync.Mutex
	entries  map[string]any
	inflight map[string]*flight
	group    singleflight.Group
}

// flight is one shared fetch. A stale flight still answers the callers that
// joined it but its result is not stored.
type flight struct {
	stale bool
}

func NewQueryCache() *QueryCache {
	return &QueryCache{
		entries:  make(map[string]any),
		inflight: make(map[string]*flight),
	}
}

// Fetch returns the cached value for q.Key or fetches it. Errors are not
// cached. The shared fetch is detached from ctx so one caller giving up does
// not fail the others; ctx only bounds how long this caller waits.
func Fetch[Resp any](ctx context.Context, cache *QueryCache, q QueryOptions[Resp]) (Resp, error) {
	var zero Resp
	key := strings.Join(q.Key, keySep)

	cache.mu.Lock()
	if v, ok := cache.entries[key]; ok {
		cache.mu.Unlock()
		return v.(Resp), nil
	}
	cache.mu.Unlock()

	fetchCtx := context.WithoutCancel(ctx)
	ch := cache.group.DoChan(key, func() (interface{}, error) {
		f := &flight{}
		cache.mu.Lock()
		cache.inflight[key] = f
		cache.mu.Unlock()

		resp, err := q.Fetch(fetchCtx)

		cache.mu.Lock()
		defer cache.mu.Unlock()
		if cache.inflight[key] == f {
			delete(cache.inflight, key)
		}
		if err != nil {
			return nil, err
		}
		if !f.stale {
			cache.entries[key] = resp
		}
		return resp, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(Resp), nil
	}
}

// Invalidate drops every entry whose key starts with prefix and returns how
// many were dropped. An empty prefix clears the cache. Fetches still running
// for a matching key are marked stale and later callers start a new one.
func (c *QueryCache) Invalidate(prefix ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	joined := strings.Join(prefix, keySep)
	matches := func(key string) bool {
		return len(prefix) == 0 || key == joined || strings.HasPrefix(key, joined+keySep)
	}

	for key, f := range c.inflight {
		if matches(key) {
			f.stale = true
			delete(c.inflight, key)
			c.group.Forget(key)
		}
	}

	dropped := 0
	for key := range c.entries {
		if matches(key) {
			delete(c.entries, key)
			dropped++
		}
	}
	return dropped
}

// Len reports the number of cached entries.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
