package providers

import (
	"context"
	"errors"

	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// Source is the remote hotel API the search store depends on.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Search returns the hotels matching q.
	Search(ctx context.Context, q types.Query) ([]types.Hotel, error)
	// LookupDestination returns up to limit destinations matching query.
	// "id:<n>" looks a destination up by id; an empty query lists popular ones.
	LookupDestination(ctx context.Context, query string, limit int) ([]types.Destination, error)
}

// ErrProviderUnavailable is returned when a provider is unavailable.
var ErrProviderUnavailable = errors.New("provider unavailable")

// ErrDestinationNotFound is returned when a destination lookup has no match.
var ErrDestinationNotFound = errors.New("destination not found")
