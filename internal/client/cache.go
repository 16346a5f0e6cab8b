package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Policy401 selects what Cache.Get does with a 401.
type Policy401 int

const (
	// Return401Error propagates the 401 as an error.
	Return401Error Policy401 = iota
	// Return401Null reports a silent unauthenticated state: an empty result
	// with Status 401 and no error.
	Return401Null
)

type CacheConfig struct {
	On401 Policy401
}

// Cache serves GET results by key until the caller invalidates them. It never
// refetches on its own. Concurrent Gets for one key share a single request,
// and a fetch that started before an invalidation cannot write its result.
type Cache struct {
	c     *Client
	cfg   CacheConfig
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]Result
	gens    map[string]uint64
}

func NewCache(c *Client, cfg CacheConfig) *Cache {
	return &Cache{
		c:       c,
		cfg:     cfg,
		entries: make(map[string]Result),
		gens:    make(map[string]uint64),
	}
}

// Key derives the cache key from a request path: the query string is kept,
// a trailing slash is dropped and a leading one added.
func Key(path string) string {
	u, err := url.Parse(path)
	if err != nil {
		return strings.TrimRight(path, "/")
	}
	p := "/" + strings.Trim(u.Path, "/")
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// Get returns the cached result for path, fetching it once if absent. Errors
// are never cached. If ctx ends first Get returns ctx.Err() and the shared
// fetch keeps going for any other waiters.
func (k *Cache) Get(ctx context.Context, path string) (Result, error) {
	key := Key(path)

	k.mu.Lock()
	if res, ok := k.entries[key]; ok {
		k.mu.Unlock()
		return res, nil
	}
	gen := k.gens[key]
	k.gens[key] = gen // register the key so prefix invalidation sees it in flight
	// joined under mu: invalidation forgets the flight under mu too, so a
	// caller holding gen can never attach to a flight older than gen
	ch := k.group.DoChan(key, func() (any, error) {
		return k.c.Do(context.WithoutCancel(ctx), http.MethodGet, path, nil)
	})
	k.mu.Unlock()

	var r singleflight.Result
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r = <-ch:
	}
	res, _ := r.Val.(Result)
	if r.Err != nil {
		if res.Status == http.StatusUnauthorized && k.cfg.On401 == Return401Null {
			return Result{Kind: KindEmpty, Status: http.StatusUnauthorized}, nil
		}
		return res, r.Err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	k.mu.Lock()
	if k.gens[key] == gen {
		k.entries[key] = res
	}
	k.mu.Unlock()
	return res, nil
}

// Peek reports the cached result without fetching.
func (k *Cache) Peek(path string) (Result, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	res, ok := k.entries[Key(path)]
	return res, ok
}

func (k *Cache) Invalidate(path string) {
	k.mu.Lock()
	k.bump(Key(path))
	k.mu.Unlock()
}

// InvalidatePrefix drops every key at or below prefix, on path segment
// boundaries, including fetches in flight.
func (k *Cache) InvalidatePrefix(prefix string) {
	prefix = Key(prefix)
	k.mu.Lock()
	defer k.mu.Unlock()
	// every cached key also has a gens entry
	for key := range k.gens {
		if underPrefix(key, prefix) {
			k.bump(key)
		}
	}
}

func underPrefix(key, prefix string) bool {
	if prefix == "/" || key == prefix {
		return true
	}
	rest, ok := strings.CutPrefix(key, prefix)
	return ok && (rest[0] == '/' || rest[0] == '?')
}

// Reset empties the cache, e.g. after logout.
func (k *Cache) Reset() {
	k.InvalidatePrefix("/")
}

// Mutate sends a non-GET request and, on success, invalidates the given
// prefixes.
func (k *Cache) Mutate(ctx context.Context, method, path string, body any, invalidate ...string) (Result, error) {
	res, err := k.c.Do(ctx, method, path, body)
	if err != nil {
		return res, err
	}
	for _, p := range invalidate {
		k.InvalidatePrefix(p)
	}
	return res, nil
}

// bump must be called with mu held. The flight is forgotten under the same
// lock Get joins flights under.
func (k *Cache) bump(key string) {
	delete(k.entries, key)
	k.gens[key]++
	k.group.Forget(key)
}
