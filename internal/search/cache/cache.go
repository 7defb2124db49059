package cache

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alex-user-go/hotelsearch/internal/obs"
	"github.com/alex-user-go/hotelsearch/internal/providers"
	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// Cache provides in-memory caching with TTL and request collapsing (singleflight).
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	ttl     time.Duration
	group   singleflight.Group
	done    chan struct{}
}

type cacheEntry struct {
	hotels    []types.Hotel
	expiresAt time.Time
}

// NewCache creates a new Cache with the specified TTL.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}

	// Start background cleanup
	go c.cleanup()

	return c
}

// Close stops the background cleanup goroutine.
func (c *Cache) Close() {
	close(c.done)
}

// Key generates a canonical cache key for a remote query.
// Board codes are order-insensitive.
func Key(q types.Query) string {
	var b strings.Builder
	c := q.Criteria
	fmt.Fprintf(&b, "%d:%s:%s:%d:%d:%d:%s",
		c.Destination.ID,
		c.CheckIn.Format(types.DateLayout),
		c.CheckOut.Format(types.DateLayout),
		c.Occupancy.Rooms,
		c.Occupancy.Adults,
		c.Occupancy.Children,
		joinInts(c.Occupancy.ChildAges),
	)
	if q.Price != nil {
		fmt.Fprintf(&b, "|p=%g-%g", q.Price.Min, q.Price.Max)
	}
	if q.Stars != nil {
		fmt.Fprintf(&b, "|s=%d-%d", q.Stars.Min, q.Stars.Max)
	}
	if q.Rating != nil {
		fmt.Fprintf(&b, "|r=%d-%d", q.Rating.Min, q.Rating.Max)
	}
	if q.Boards != nil {
		codes := slices.Clone(q.Boards.Codes)
		slices.Sort(codes)
		fmt.Fprintf(&b, "|b=%s:%t", strings.Join(codes, ","), q.Boards.Included)
	}
	return b.String()
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// GetOrFetch retrieves from cache or executes the fetch function.
// Concurrent requests for the same key are collapsed (singleflight pattern).
// Returns the hotels and a boolean indicating if it was a cache hit.
func (c *Cache) GetOrFetch(ctx context.Context, key string, fetch func() ([]types.Hotel, error)) ([]types.Hotel, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return slices.Clone(entry.hotels), true, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		// A flight may have stored the key since the lookup above.
		c.mu.RLock()
		entry, ok := c.entries[key]
		c.mu.RUnlock()
		if ok && time.Now().Before(entry.expiresAt) {
			return entry.hotels, nil
		}

		hotels, err := fetch()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = &cacheEntry{
			hotels:    hotels,
			expiresAt: time.Now().Add(c.ttl),
		}
		c.mu.Unlock()
		return hotels, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return slices.Clone(res.Val.([]types.Hotel)), false, nil
	case <-ctx.Done():
		return nil, false, context.Cause(ctx)
	}
}

// Invalidate removes a specific key from the cache.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries from the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cleanup periodically removes expired entries.
func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		case <-c.done:
			return
		}
	}
}

// Source decorates a providers.Source with the cache. Hotel searches are
// cached by Key; destination lookups pass through.
type Source struct {
	next    providers.Source
	cache   *Cache
	metrics *obs.Metrics
}

// NewSource wraps next with c.
func NewSource(next providers.Source, c *Cache, metrics *obs.Metrics) *Source {
	return &Source{next: next, cache: c, metrics: metrics}
}

func (s *Source) Name() string {
	return s.next.Name()
}

// Search serves q from the cache or the wrapped source. The shared fetch
// is not cancelled when one of the waiting callers gives up.
func (s *Source) Search(ctx context.Context, q types.Query) ([]types.Hotel, error) {
	fetchCtx := context.WithoutCancel(ctx)
	hotels, hit, err := s.cache.GetOrFetch(ctx, Key(q), func() ([]types.Hotel, error) {
		return s.next.Search(fetchCtx, q)
	})
	if hit {
		s.metrics.IncCacheHits()
	}
	return hotels, err
}

func (s *Source) LookupDestination(ctx context.Context, query string, limit int) ([]types.Destination, error) {
	return s.next.LookupDestination(ctx, query, limit)
}
