package filter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// Derive returns the hotels to display: fetched narrowed by the name query
// (case-insensitive substring) and stably sorted by price when a sort order is
// set. fetched is not modified.
func Derive(fetched []types.Hotel, s Set) []types.Hotel {
	out := make([]types.Hotel, 0, len(fetched))

	query := strings.ToLower(s.NameQuery)
	for _, h := range fetched {
		if query != "" && !strings.Contains(strings.ToLower(h.Name), query) {
			continue
		}
		out = append(out, h)
	}

	switch s.SortBy {
	case SortPriceAsc:
		slices.SortStableFunc(out, func(a, b types.Hotel) int {
			return cmp.Compare(a.Price(), b.Price())
		})
	case SortPriceDesc:
		slices.SortStableFunc(out, func(a, b types.Hotel) int {
			return cmp.Compare(b.Price(), a.Price())
		})
	}

	return out
}

// PriceBounds returns the lowest and highest positive price among hotels.
// Without priced hotels it returns (0, DefaultMaxPrice).
func PriceBounds(hotels []types.Hotel) (float64, float64) {
	var lo, hi float64
	for _, h := range hotels {
		p := h.Price()
		if p <= 0 {
			continue
		}
		if lo == 0 || p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	if hi == 0 {
		hi = DefaultMaxPrice
	}
	return lo, hi
}
