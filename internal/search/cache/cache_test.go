package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alex-user-go/hotelsearch/internal/obs"
	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := types.ParseDate(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestKey(t *testing.T) {
	base := types.Criteria{
		Destination: types.Destination{ID: 7},
		CheckIn:     mustDate(t, "2026-11-10"),
		CheckOut:    mustDate(t, "2026-11-12"),
		Occupancy:   types.Occupancy{Rooms: 1, Adults: 2, Children: 2, ChildAges: []int{4, 9}},
	}

	tests := []struct {
		name string
		q    types.Query
		want string
	}{
		{
			name: "criteria only",
			q:    types.Query{Criteria: base},
			want: "7:2026-11-10:2026-11-12:1:2:2:4,9",
		},
		{
			name: "all constraints",
			q: types.Query{
				Criteria: base,
				Price:    &types.PriceRange{Min: 50, Max: 200.5},
				Stars:    &types.Range{Min: 3, Max: 5},
				Rating:   &types.Range{Min: 4, Max: 5},
				Boards:   &types.Boards{Codes: []string{"HB", "BB"}, Included: true},
			},
			want: "7:2026-11-10:2026-11-12:1:2:2:4,9|p=50-200.5|s=3-5|r=4-5|b=BB,HB:true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Key(tt.q)
			if got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKey_BoardOrderInsensitive(t *testing.T) {
	a := types.Query{Boards: &types.Boards{Codes: []string{"BB", "HB"}}}
	b := types.Query{Boards: &types.Boards{Codes: []string{"HB", "BB"}}}
	if Key(a) != Key(b) {
		t.Errorf("keys differ: %q vs %q", Key(a), Key(b))
	}
	if a.Boards.Codes[0] != "BB" {
		t.Errorf("Key() reordered the caller's codes: %v", a.Boards.Codes)
	}
}

func TestCache_GetOrFetch(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(c *Cache)
		key       string
		fetchFunc func() ([]types.Hotel, error)
		wantIDs   []int
		wantHit   bool
		wantErr   bool
	}{
		{
			name:  "cache miss - successful fetch",
			setup: func(c *Cache) {},
			key:   "test-key",
			fetchFunc: func() ([]types.Hotel, error) {
				return []types.Hotel{{ID: 5}}, nil
			},
			wantIDs: []int{5},
		},
		{
			name: "cache hit - returns cached value",
			setup: func(c *Cache) {
				c.mu.Lock()
				c.entries["cached-key"] = &cacheEntry{
					hotels:    []types.Hotel{{ID: 10}},
					expiresAt: time.Now().Add(time.Minute),
				}
				c.mu.Unlock()
			},
			key: "cached-key",
			fetchFunc: func() ([]types.Hotel, error) {
				t.Error("fetch should not be called for cached entry")
				return nil, nil
			},
			wantIDs: []int{10},
			wantHit: true,
		},
		{
			name:  "fetch error - not cached",
			setup: func(c *Cache) {},
			key:   "error-key",
			fetchFunc: func() ([]types.Hotel, error) {
				return nil, errors.New("fetch failed")
			},
			wantErr: true,
		},
		{
			name: "expired entry - refetches",
			setup: func(c *Cache) {
				c.mu.Lock()
				c.entries["expired-key"] = &cacheEntry{
					hotels:    []types.Hotel{{ID: 1}},
					expiresAt: time.Now().Add(-time.Minute),
				}
				c.mu.Unlock()
			},
			key: "expired-key",
			fetchFunc: func() ([]types.Hotel, error) {
				return []types.Hotel{{ID: 99}}, nil
			},
			wantIDs: []int{99},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewCache(time.Minute)
			defer cache.Close()

			tt.setup(cache)

			got, hit, err := cache.GetOrFetch(context.Background(), tt.key, tt.fetchFunc)

			if (err != nil) != tt.wantErr {
				t.Errorf("GetOrFetch() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if hit != tt.wantHit {
				t.Errorf("GetOrFetch() hit = %v, want %v", hit, tt.wantHit)
			}

			if len(got) != len(tt.wantIDs) {
				t.Fatalf("GetOrFetch() = %v, want ids %v", got, tt.wantIDs)
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("GetOrFetch()[%d].ID = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestCache_GetOrFetch_ContextCancellation(t *testing.T) {
	cache := NewCache(time.Minute)
	defer cache.Close()

	ctx, cancel := context.WithCancel(context.Background())

	fetchStarted := make(chan struct{})
	fetchDone := make(chan struct{})

	// Start a slow fetch
	go func() {
		_, _, _ = cache.GetOrFetch(context.Background(), "slow-key", func() ([]types.Hotel, error) {
			close(fetchStarted)
			<-fetchDone
			return []types.Hotel{{ID: 1}}, nil
		})
	}()

	<-fetchStarted

	// Cancel context before fetch completes
	cancel()

	// Try to get the same key with cancelled context
	_, _, err := cache.GetOrFetch(ctx, "slow-key", func() ([]types.Hotel, error) {
		t.Error("fetch should not be called - should wait for inflight")
		return nil, nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}

	close(fetchDone)
}

func TestCache_GetOrFetch_Singleflight(t *testing.T) {
	cache := NewCache(time.Minute)
	defer cache.Close()

	var fetchCount atomic.Int32
	fetchStarted := make(chan struct{})
	fetchContinue := make(chan struct{})

	var wg sync.WaitGroup
	const numGoroutines = 10

	for range numGoroutines {
		wg.Go(func() {
			hotels, _, err := cache.GetOrFetch(context.Background(), "shared-key", func() ([]types.Hotel, error) {
				if fetchCount.Add(1) == 1 {
					close(fetchStarted)
					<-fetchContinue
				}
				return []types.Hotel{{ID: 42}}, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if len(hotels) != 1 || hotels[0].ID != 42 {
				t.Errorf("unexpected result: %v", hotels)
			}
		})
	}

	<-fetchStarted
	close(fetchContinue)
	wg.Wait()

	if count := fetchCount.Load(); count != 1 {
		t.Errorf("fetch called %d times, expected 1 (singleflight)", count)
	}
}

func TestCache_Invalidate(t *testing.T) {
	cache := NewCache(time.Minute)
	defer cache.Close()

	for _, key := range []string{"a", "b", "c"} {
		_, _, _ = cache.GetOrFetch(context.Background(), key, func() ([]types.Hotel, error) {
			return []types.Hotel{{ID: 1}}, nil
		})
	}

	cache.Invalidate("b")
	cache.Invalidate("missing")

	if got := cache.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}

	_, hit, _ := cache.GetOrFetch(context.Background(), "b", func() ([]types.Hotel, error) {
		return nil, nil
	})
	if hit {
		t.Error("expected miss for invalidated key")
	}
}

func TestCache_Clear(t *testing.T) {
	cache := NewCache(time.Minute)
	defer cache.Close()

	_, _, _ = cache.GetOrFetch(context.Background(), "a", func() ([]types.Hotel, error) {
		return []types.Hotel{{ID: 1}}, nil
	})
	cache.Clear()

	if got := cache.Len(); got != 0 {
		t.Errorf("Len() = %d, want 0", got)
	}
}

func TestCache_ErrorNotCached(t *testing.T) {
	cache := NewCache(time.Minute)
	defer cache.Close()

	var calls int
	fetch := func() ([]types.Hotel, error) {
		calls++
		return nil, errors.New("remote down")
	}

	for range 2 {
		if _, _, err := cache.GetOrFetch(context.Background(), "k", fetch); err == nil {
			t.Fatal("expected error")
		}
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, expected 2", calls)
	}
}

// countingSource counts searches and returns fixed hotels.
type countingSource struct {
	calls  atomic.Int32
	hotels []types.Hotel
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Search(ctx context.Context, q types.Query) ([]types.Hotel, error) {
	s.calls.Add(1)
	return s.hotels, nil
}

func (s *countingSource) LookupDestination(ctx context.Context, query string, limit int) ([]types.Destination, error) {
	return []types.Destination{{ID: 1}}, nil
}

func TestSource_CachesSearches(t *testing.T) {
	next := &countingSource{hotels: []types.Hotel{{ID: 3}}}
	cache := NewCache(time.Minute)
	defer cache.Close()
	src := NewSource(next, cache, obs.NewMetrics(slog.New(slog.NewTextHandler(io.Discard, nil))))

	q := types.Query{Criteria: types.Criteria{Destination: types.Destination{ID: 7}}}
	for range 3 {
		hotels, err := src.Search(context.Background(), q)
		if err != nil || len(hotels) != 1 {
			t.Fatalf("Search() = %v, %v", hotels, err)
		}
	}
	if got := next.calls.Load(); got != 1 {
		t.Errorf("remote called %d times, want 1", got)
	}

	q.Stars = &types.Range{Min: 4, Max: 5}
	_, _ = src.Search(context.Background(), q)
	if got := next.calls.Load(); got != 2 {
		t.Errorf("different constraints must miss: remote called %d times, want 2", got)
	}

	if src.Name() != "counting" {
		t.Errorf("Name() = %q", src.Name())
	}
	dests, err := src.LookupDestination(context.Background(), "id:1", 10)
	if err != nil || len(dests) != 1 {
		t.Errorf("LookupDestination() = %v, %v", dests, err)
	}
}
