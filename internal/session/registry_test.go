package session

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/hotelsearch/internal/obs"
	"github.com/alex-user-go/hotelsearch/internal/search/store"
	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

type nopSource struct{}

func (nopSource) Name() string { return "nop" }

func (nopSource) Search(ctx context.Context, q types.Query) ([]types.Hotel, error) {
	return nil, nil
}

func (nopSource) LookupDestination(ctx context.Context, query string, limit int) ([]types.Destination, error) {
	return nil, nil
}

func newRegistry(t *testing.T, ttl time.Duration) *Registry {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := obs.NewMetrics(logger)
	r := NewRegistry(func() *store.Store {
		return store.New(nopSource{}, store.DefaultConfig(), metrics, logger)
	}, ttl, metrics, logger)
	t.Cleanup(r.Close)
	return r
}

func TestRegistry_CreateGetDelete(t *testing.T) {
	r := newRegistry(t, time.Hour)

	id, s := r.Create()
	require.NotEmpty(t, id)
	assert.Equal(t, 1, r.Len())

	got, err := r.Get(id)
	require.NoError(t, err)
	assert.Same(t, s, got)

	var closed []string
	r.OnClose(func(id string) { closed = append(closed, id) })

	require.NoError(t, r.Delete(id))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, []string{id}, closed)

	_, err = r.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, r.Delete(id), ErrSessionNotFound)

	assert.ErrorIs(t, s.Search(context.Background()), store.ErrClosed, "deleted stores are closed")
}

func TestRegistry_SessionsAreIndependent(t *testing.T) {
	r := newRegistry(t, time.Hour)

	id1, _ := r.Create()
	id2, _ := r.Create()
	assert.NotEqual(t, id1, id2)

	s1, err := r.Get(id1)
	require.NoError(t, err)
	s2, err := r.Get(id2)
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
}

func TestRegistry_EvictIdle(t *testing.T) {
	r := newRegistry(t, time.Hour)

	var mu sync.Mutex
	var closed []string
	r.OnClose(func(id string) {
		mu.Lock()
		closed = append(closed, id)
		mu.Unlock()
	})

	stale, _ := r.Create()
	r.mu.Lock()
	r.sessions[stale].lastSeen = time.Now().Add(-2 * time.Hour)
	r.mu.Unlock()
	fresh, _ := r.Create()

	n := r.evictIdle(time.Now().Add(-time.Hour))
	assert.Equal(t, 1, n)

	_, err := r.Get(stale)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = r.Get(fresh)
	assert.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{stale}, closed)
	mu.Unlock()
}

func TestRegistry_GetRefreshesLastSeen(t *testing.T) {
	r := newRegistry(t, time.Hour)

	id, _ := r.Create()
	r.mu.Lock()
	r.sessions[id].lastSeen = time.Now().Add(-2 * time.Hour)
	r.mu.Unlock()

	_, err := r.Get(id)
	require.NoError(t, err)
	assert.Zero(t, r.evictIdle(time.Now().Add(-time.Hour)))
}

func TestRegistry_KeepWhile(t *testing.T) {
	r := newRegistry(t, time.Hour)

	watched, _ := r.Create()
	unwatched, _ := r.Create()
	r.KeepWhile(func(id string) bool { return id == watched })

	r.mu.Lock()
	for _, e := range r.sessions {
		e.lastSeen = time.Now().Add(-2 * time.Hour)
	}
	r.mu.Unlock()

	assert.Equal(t, 1, r.evictIdle(time.Now().Add(-time.Hour)))
	_, err := r.Get(unwatched)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	r.mu.Lock()
	seen := r.sessions[watched].lastSeen
	r.mu.Unlock()
	assert.WithinDuration(t, time.Now(), seen, time.Minute, "activity refreshes lastSeen")

	// Once nobody watches, the session ages out like any other.
	r.KeepWhile(func(string) bool { return false })
	assert.Equal(t, 1, r.evictIdle(time.Now().Add(time.Minute)))
	assert.Zero(t, r.Len())
}

func TestRegistry_Close(t *testing.T) {
	r := newRegistry(t, time.Hour)
	_, s := r.Create()
	r.Create()

	r.Close()
	assert.Equal(t, 0, r.Len())
	assert.ErrorIs(t, s.Search(context.Background()), store.ErrClosed)

	r.Close() // idempotent
}
