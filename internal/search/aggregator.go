package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alex-user-go/hotelsearch/internal/obs"
	"github.com/alex-user-go/hotelsearch/internal/providers"
	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// Aggregator fans a query out to several remote endpoints and merges the
// results. It satisfies providers.Source itself.
type Aggregator struct {
	providers []providers.Source
	timeout   time.Duration
	metrics   *obs.Metrics
	logger    *slog.Logger
}

// NewAggregator creates a new Aggregator.
func NewAggregator(providers []providers.Source, timeout time.Duration, metrics *obs.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		providers: providers,
		timeout:   timeout,
		metrics:   metrics,
		logger:    logger,
	}
}

// Name returns the aggregator name.
func (a *Aggregator) Name() string {
	return "aggregator"
}

// Search queries all providers concurrently and merges their hotels.
// Hotels keep the order of the provider list; a hotel returned by several
// providers keeps its first position and the lowest price.
// Fails only when every provider failed.
func (a *Aggregator) Search(ctx context.Context, q types.Query) ([]types.Hotel, error) {
	if len(a.providers) == 0 {
		return nil, providers.ErrProviderUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		results = make([][]types.Hotel, len(a.providers))
		errs    = make([]error, len(a.providers))
	)

	for i, provider := range a.providers {
		wg.Go(func() {
			hotels, err := provider.Search(ctx, q)
			if err != nil {
				errs[i] = err
				a.metrics.IncProviderErrors(provider.Name())
				return
			}
			results[i] = hotels
		})
	}

	// Wait for all providers to complete
	wg.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		a.logger.Error("provider search errors",
			"destination_id", q.Criteria.Destination.ID,
			"failed_count", len(failed),
			"errors", failed)

		// If all providers failed, return error
		if len(failed) == len(a.providers) {
			return nil, failed[0]
		}
	}

	return merge(results), nil
}

// LookupDestination asks each provider in turn and returns the first
// successful answer.
func (a *Aggregator) LookupDestination(ctx context.Context, query string, limit int) ([]types.Destination, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var errs []error
	for _, provider := range a.providers {
		dests, err := provider.LookupDestination(ctx, query, limit)
		if err == nil {
			return dests, nil
		}
		a.metrics.IncProviderErrors(provider.Name())
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, providers.ErrProviderUnavailable
	}
	return nil, errors.Join(errs...)
}

// merge concatenates provider results, dedups by hotel id and keeps the
// lowest price.
func merge(results [][]types.Hotel) []types.Hotel {
	var (
		hotels []types.Hotel
		index  = make(map[int]int)
	)
	for _, batch := range results {
		for _, h := range batch {
			pos, ok := index[h.ID]
			if !ok {
				index[h.ID] = len(hotels)
				hotels = append(hotels, h)
				continue
			}
			if cheaper(h, hotels[pos]) {
				hotels[pos] = h
			}
		}
	}
	return hotels
}

func cheaper(a, b types.Hotel) bool {
	pa, pb := a.Price(), b.Price()
	if pa <= 0 {
		return false
	}
	return pb <= 0 || pa < pb
}
