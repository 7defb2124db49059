package search_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alex-user-go/hotelsearch/internal/obs"
	"github.com/alex-user-go/hotelsearch/internal/providers"
	"github.com/alex-user-go/hotelsearch/internal/search"
	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// mockProvider is a test provider that returns predefined results.
type mockProvider struct {
	name   string
	hotels []types.Hotel
	dests  []types.Destination
	err    error
	delay  time.Duration
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Search(ctx context.Context, q types.Query) ([]types.Hotel, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		}
	}
	return m.hotels, m.err
}

func (m *mockProvider) LookupDestination(ctx context.Context, query string, limit int) ([]types.Destination, error) {
	return m.dests, m.err
}

func hotel(id int, name string, price float64) types.Hotel {
	h := types.Hotel{ID: id, Name: name}
	if price > 0 {
		h.Rooms = []types.Room{{Rates: types.Rates{TotalPrice: price}}}
	}
	return h
}

func newAggregator(list []providers.Source, timeout time.Duration) *search.Aggregator {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	metrics := obs.NewMetrics(logger)
	return search.NewAggregator(list, timeout, metrics, logger)
}

func TestAggregator_Search_Merging(t *testing.T) {
	agg := newAggregator([]providers.Source{
		&mockProvider{
			name:   "provider1",
			hotels: []types.Hotel{hotel(1, "Hotel A", 100), hotel(2, "Hotel B", 150)},
		},
		&mockProvider{
			name:   "provider2",
			hotels: []types.Hotel{hotel(3, "Hotel C", 120), hotel(4, "Hotel D", 200)},
		},
	}, 2*time.Second)

	hotels, err := agg.Search(context.Background(), types.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(hotels) != 4 {
		t.Fatalf("expected 4 hotels, got %d", len(hotels))
	}

	// Provider order is preserved, results are not re-sorted
	for i, want := range []int{1, 2, 3, 4} {
		if hotels[i].ID != want {
			t.Errorf("position %d: expected hotel %d, got %d", i, want, hotels[i].ID)
		}
	}
}

func TestAggregator_Search_Deduplication(t *testing.T) {
	agg := newAggregator([]providers.Source{
		&mockProvider{
			name:   "provider1",
			hotels: []types.Hotel{hotel(1, "Hotel A", 150), hotel(2, "Hotel B", 200)},
		},
		&mockProvider{
			name: "provider2",
			hotels: []types.Hotel{
				hotel(1, "Hotel A", 120), // Duplicate, lower price
				hotel(3, "Hotel C", 180),
				hotel(2, "Hotel B", 0), // Duplicate without price
			},
		},
	}, 2*time.Second)

	hotels, err := agg.Search(context.Background(), types.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Should have 3 unique hotels (1 and 2 deduplicated)
	if len(hotels) != 3 {
		t.Fatalf("expected 3 unique hotels, got %d", len(hotels))
	}

	if hotels[0].ID != 1 || hotels[0].Price() != 120 {
		t.Errorf("expected hotel 1 first with price 120, got %d at %v", hotels[0].ID, hotels[0].Price())
	}
	if hotels[1].Price() != 200 {
		t.Errorf("expected hotel 2 to keep price 200, got %v", hotels[1].Price())
	}
}

func TestAggregator_Search_PartialFailure(t *testing.T) {
	agg := newAggregator([]providers.Source{
		&mockProvider{
			name:   "provider1",
			hotels: []types.Hotel{hotel(1, "Hotel A", 100)},
		},
		&mockProvider{
			name: "provider2",
			err:  providers.ErrProviderUnavailable,
		},
	}, 2*time.Second)

	hotels, err := agg.Search(context.Background(), types.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hotels) != 1 {
		t.Fatalf("expected 1 hotel, got %d", len(hotels))
	}
}

func TestAggregator_Search_AllProvidersFail(t *testing.T) {
	agg := newAggregator([]providers.Source{
		&mockProvider{name: "provider1", err: providers.ErrProviderUnavailable},
		&mockProvider{name: "provider2", err: providers.ErrProviderUnavailable},
	}, 2*time.Second)

	_, err := agg.Search(context.Background(), types.Query{})
	if !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestAggregator_Search_Timeout(t *testing.T) {
	agg := newAggregator([]providers.Source{
		&mockProvider{
			name:   "fast",
			hotels: []types.Hotel{hotel(1, "Hotel A", 100)},
		},
		&mockProvider{
			name:   "slow",
			hotels: []types.Hotel{hotel(2, "Hotel B", 100)},
			delay:  time.Second,
		},
	}, 50*time.Millisecond)

	start := time.Now()
	hotels, err := agg.Search(context.Background(), types.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("search took too long: %v", time.Since(start))
	}
	if len(hotels) != 1 || hotels[0].ID != 1 {
		t.Errorf("expected only the fast provider's hotel, got %+v", hotels)
	}
}

func TestAggregator_Search_NoProviders(t *testing.T) {
	agg := newAggregator(nil, time.Second)

	_, err := agg.Search(context.Background(), types.Query{})
	if !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestAggregator_LookupDestination_FirstSuccessWins(t *testing.T) {
	agg := newAggregator([]providers.Source{
		&mockProvider{name: "down", err: providers.ErrProviderUnavailable},
		&mockProvider{name: "up", dests: []types.Destination{{ID: 7, Name: "Lisbon"}}},
		&mockProvider{name: "other", dests: []types.Destination{{ID: 9, Name: "Porto"}}},
	}, time.Second)

	dests, err := agg.LookupDestination(context.Background(), "id:7", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dests) != 1 || dests[0].ID != 7 {
		t.Errorf("expected destination 7, got %+v", dests)
	}
}

func TestAggregator_LookupDestination_AllFail(t *testing.T) {
	agg := newAggregator([]providers.Source{
		&mockProvider{name: "down", err: providers.ErrProviderUnavailable},
	}, time.Second)

	_, err := agg.LookupDestination(context.Background(), "id:7", 10)
	if !errors.Is(err, providers.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
