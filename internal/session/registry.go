// Package session keeps one search store per client session.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alex-user-go/hotelsearch/internal/obs"
	"github.com/alex-user-go/hotelsearch/internal/search/store"
)

// ErrSessionNotFound is returned for unknown or evicted sessions.
var ErrSessionNotFound = errors.New("session not found")

// Factory builds the store of a new session.
type Factory func() *store.Store

// Registry maps session ids to stores and evicts idle sessions.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	newStore Factory
	idleTTL  time.Duration
	onClose  []func(id string)
	inUse    func(id string) bool
	metrics  *obs.Metrics
	logger   *slog.Logger
	done     chan struct{}
	once     sync.Once
}

type entry struct {
	store    *store.Store
	lastSeen time.Time
}

// NewRegistry creates a Registry evicting sessions idle for longer than idleTTL.
func NewRegistry(newStore Factory, idleTTL time.Duration, metrics *obs.Metrics, logger *slog.Logger) *Registry {
	r := &Registry{
		sessions: make(map[string]*entry),
		newStore: newStore,
		idleTTL:  idleTTL,
		metrics:  metrics,
		logger:   logger,
		done:     make(chan struct{}),
	}

	// Start background cleanup
	go r.cleanup()

	return r
}

// OnClose registers fn to run after a session was deleted or evicted.
// Must be called before sessions are created.
func (r *Registry) OnClose(fn func(id string)) {
	r.mu.Lock()
	r.onClose = append(r.onClose, fn)
	r.mu.Unlock()
}

// KeepWhile registers fn reporting sessions in use without requests, such as
// those watched over a websocket. They are not evicted while fn returns true.
func (r *Registry) KeepWhile(fn func(id string) bool) {
	r.mu.Lock()
	r.inUse = fn
	r.mu.Unlock()
}

// Create starts a new session.
func (r *Registry) Create() (string, *store.Store) {
	id := uuid.New().String()
	s := r.newStore()

	r.mu.Lock()
	r.sessions[id] = &entry{store: s, lastSeen: time.Now()}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetSessions(n)
	r.logger.Info("session created", "session_id", id)
	return id, s
}

// Get returns the store of a session and marks it as used.
func (r *Registry) Get(id string) (*store.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.lastSeen = time.Now()
	return e.store, nil
}

// Delete closes and removes a session.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	r.metrics.SetSessions(n)
	r.closeSession(id, e.store, "deleted")
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close stops eviction and closes every session.
func (r *Registry) Close() {
	r.once.Do(func() {
		close(r.done)
	})

	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for id, e := range sessions {
		r.closeSession(id, e.store, "shutdown")
	}
	r.metrics.SetSessions(0)
}

func (r *Registry) closeSession(id string, s *store.Store, reason string) {
	s.Close()
	r.mu.Lock()
	hooks := append([]func(string){}, r.onClose...)
	r.mu.Unlock()
	for _, fn := range hooks {
		fn(id)
	}
	r.logger.Info("session closed", "session_id", id, "reason", reason)
}

// evictIdle closes sessions not used since before cutoff.
func (r *Registry) evictIdle(cutoff time.Time) int {
	var evicted []string
	var stores []*store.Store

	now := time.Now()
	r.mu.Lock()
	for id, e := range r.sessions {
		if !e.lastSeen.Before(cutoff) {
			continue
		}
		if r.inUse != nil && r.inUse(id) {
			e.lastSeen = now
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, id)
		stores = append(stores, e.store)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for i, id := range evicted {
		r.closeSession(id, stores[i], "idle")
	}
	if len(evicted) > 0 {
		r.metrics.SetSessions(n)
	}
	return len(evicted)
}

// cleanup periodically evicts idle sessions.
func (r *Registry) cleanup() {
	interval := r.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.evictIdle(time.Now().Add(-r.idleTTL))
		case <-r.done:
			return
		}
	}
}
