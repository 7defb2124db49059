// Package store holds the state of one hotel search session and reconciles
// filter changes with the remote hotel source.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/alex-user-go/hotelsearch/internal/obs"
	"github.com/alex-user-go/hotelsearch/internal/providers"
	"github.com/alex-user-go/hotelsearch/internal/search/debounce"
	"github.com/alex-user-go/hotelsearch/internal/search/filter"
	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// ErrNoCriteria is returned when a search is requested before any criteria
// were set.
var ErrNoCriteria = errors.New("search criteria are required")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

const defaultFetchError = "Failed to fetch hotels"

// Config tunes a Store.
type Config struct {
	// Debounce is the quiet period before a remote filter change is evaluated.
	Debounce time.Duration `yaml:"debounce" validate:"gte=0"`
	// FetchTimeout bounds a single remote fetch.
	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	// DiscardStale drops responses of fetches that were superseded by a
	// newer one. Off by default: whichever response resolves last wins.
	DiscardStale bool `yaml:"discard_stale"`
}

// DefaultConfig returns the reference timings.
func DefaultConfig() Config {
	return Config{
		Debounce:     500 * time.Millisecond,
		FetchTimeout: 10 * time.Second,
	}
}

// State is a consistent view of a store. Version grows by one with every
// committed change.
type State struct {
	Version   uint64          `json:"version"`
	Criteria  *types.Criteria `json:"criteria"`
	Filters   filter.Set      `json:"filters"`
	Fetched   []types.Hotel   `json:"-"`
	Displayed []types.Hotel   `json:"hotels"`
	Loading   bool            `json:"loading"`
	Error     string          `json:"error,omitempty"`
}

// Listener is called with the new state after every change.
type Listener func(State)

// Store is the state container of one search session. All mutations are
// serialized. Listeners run outside the state lock, one state at a time and
// in version order; a state older than one already delivered is skipped.
type Store struct {
	source    providers.Source
	cfg       Config
	metrics   *obs.Metrics
	logger    *slog.Logger
	debouncer *debounce.Debouncer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	state     State
	baseline  filter.Set // remote filters of the last search or evaluation
	seq       uint64     // id of the most recently issued fetch
	inflight  int
	listeners map[int]Listener
	nextID    int
	closed    bool

	deliverMu sync.Mutex
	delivered uint64 // version of the last state passed to listeners
}

// New creates a Store reading hotels from source.
func New(source providers.Source, cfg Config, metrics *obs.Metrics, logger *slog.Logger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	defaults := filter.Default()
	return &Store{
		source:    source,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		debouncer: debounce.New(cfg.Debounce),
		ctx:       ctx,
		cancel:    cancel,
		state: State{
			Filters:   defaults,
			Fetched:   []types.Hotel{},
			Displayed: []types.Hotel{},
		},
		baseline:  defaults.Clone(),
		listeners: make(map[int]Listener),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// snapshot must be called with mu held.
func (s *Store) snapshot() State {
	st := s.state
	if st.Criteria != nil {
		c := st.Criteria.Clone()
		st.Criteria = &c
	}
	st.Filters = st.Filters.Clone()
	// Hotel lists are replaced wholesale, never modified in place.
	return st
}

// Subscribe registers fn for state changes and returns a function removing it.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// commit stamps a new version, snapshots the state and returns the
// listeners to notify. Must be called with mu held.
func (s *Store) commit() (State, []Listener) {
	s.state.Version++
	st := s.snapshot()
	ls := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		ls = append(ls, fn)
	}
	return st, ls
}

// notify passes st to ls unless a newer state was delivered already.
// Must be called without mu held.
func (s *Store) notify(st State, ls []Listener) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if st.Version <= s.delivered {
		return
	}
	s.delivered = st.Version
	for _, fn := range ls {
		fn(st)
	}
}

// SetCriteria validates c and makes it the current criteria. An invalid c
// leaves the state untouched.
func (s *Store) SetCriteria(c types.Criteria) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c = c.Clone()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state.Criteria = &c
	st, ls := s.commit()
	s.mu.Unlock()

	s.notify(st, ls)
	return nil
}

// Search fetches hotels for the current criteria and the remote part of the
// current filters. Only missing criteria are reported as an error; remote
// failures end up in State.Error.
func (s *Store) Search(ctx context.Context) error {
	return s.search(ctx, obs.TriggerSearch)
}

// Retry re-runs the last search.
func (s *Store) Retry(ctx context.Context) error {
	return s.search(ctx, obs.TriggerRetry)
}

func (s *Store) search(ctx context.Context, trigger string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state.Criteria == nil {
		s.mu.Unlock()
		return ErrNoCriteria
	}
	q := filter.ConstraintsFor(*s.state.Criteria, s.state.Filters)
	// A pending remote evaluation against the new baseline becomes a no-op.
	s.baseline = s.state.Filters.Clone()
	s.mu.Unlock()

	s.fetch(ctx, q, trigger)
	return nil
}

// UpdateFilters merges p into the current filters. Local changes are applied
// to the displayed list at once; remote changes are evaluated after the
// debounce period.
func (s *Store) UpdateFilters(p filter.Patch) (State, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return State{}, ErrClosed
	}
	next := filter.Apply(s.state.Filters, p)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return State{}, err
	}

	changed := filter.Changed(s.state.Filters, next)
	s.state.Filters = next
	if filter.HasClass(changed, filter.Local) {
		s.state.Displayed = filter.Derive(s.state.Fetched, next)
		s.metrics.IncLocalRecomputes()
	}
	remote := filter.HasClass(changed, filter.Remote)
	if len(changed) == 0 {
		st := s.snapshot()
		s.mu.Unlock()
		return st, nil
	}
	st, ls := s.commit()
	s.mu.Unlock()

	s.logger.Debug("filters updated", "fields", changed, "remote", remote)
	s.notify(st, ls)
	if remote {
		s.debouncer.Trigger(s.evaluate)
	}
	return st, nil
}

// FlushFilters runs a pending remote filter evaluation now and reports
// whether there was one.
func (s *Store) FlushFilters() bool {
	return s.debouncer.Flush()
}

// evaluate plans a refetch for the filters that settled during the quiet
// period.
func (s *Store) evaluate() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	criteria := s.state.Criteria
	q := filter.PlanRefetch(criteria, s.baseline, s.state.Filters)
	s.baseline = s.state.Filters.Clone()
	s.mu.Unlock()

	if q == nil {
		if criteria == nil {
			s.metrics.IncSkippedRefetches()
			s.logger.Debug("remote filters changed before any search, refetch skipped")
		}
		return
	}
	s.fetch(s.ctx, *q, obs.TriggerFilters)
}

// fetch runs q against the source and applies the result unless a newer
// fetch superseded it.
func (s *Store) fetch(ctx context.Context, q types.Query, trigger string) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.inflight++
	s.state.Loading = true
	st, ls := s.commit()
	s.mu.Unlock()
	s.notify(st, ls)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	start := time.Now()
	hotels, err := s.source.Search(ctx, q)
	s.metrics.ObserveFetch(trigger, time.Since(start), err)

	s.mu.Lock()
	s.inflight--
	s.state.Loading = s.inflight > 0
	switch {
	case s.cfg.DiscardStale && seq != s.seq:
		s.metrics.IncStaleDiscarded()
		s.logger.Debug("stale response discarded",
			"trigger", trigger,
			"seq", seq,
			"latest", s.seq)
	case err != nil:
		s.state.Fetched = []types.Hotel{}
		s.state.Displayed = []types.Hotel{}
		s.state.Error = errorMessage(err)
		s.logger.Error("hotel fetch failed",
			"trigger", trigger,
			"destination_id", q.Criteria.Destination.ID,
			"error", err)
	default:
		if hotels == nil {
			hotels = []types.Hotel{}
		}
		s.state.Fetched = hotels
		s.state.Displayed = filter.Derive(hotels, s.state.Filters)
		s.state.Error = ""
		s.logger.Info("hotels fetched",
			"trigger", trigger,
			"destination_id", q.Criteria.Destination.ID,
			"count", len(hotels),
			"duration_ms", time.Since(start).Milliseconds())
	}
	st, ls = s.commit()
	s.mu.Unlock()
	s.notify(st, ls)
}

func errorMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return defaultFetchError
}

// Restore sets criteria decoded from a shareable link and searches.
// The destination is resolved by id; when the lookup fails or finds nothing
// the link's display name is used as is. Without a display name the
// criteria already in memory are searched again.
func (s *Store) Restore(ctx context.Context, c types.Criteria) error {
	dest, err := s.resolveDestination(ctx, c.Destination)
	if err != nil {
		s.logger.Warn("destination not resolved, retrying current search",
			"destination_id", c.Destination.ID,
			"error", err)
		return s.search(ctx, obs.TriggerRestore)
	}

	c.Destination = dest
	if err := s.SetCriteria(c); err != nil {
		return err
	}
	return s.search(ctx, obs.TriggerRestore)
}

func (s *Store) resolveDestination(ctx context.Context, d types.Destination) (types.Destination, error) {
	query := "id:" + strconv.Itoa(d.ID)
	found, err := s.source.LookupDestination(ctx, query, 1)
	if err == nil {
		for _, f := range found {
			if f.ID == d.ID {
				return f, nil
			}
		}
		err = providers.ErrDestinationNotFound
	}
	if d.Name == "" {
		return types.Destination{}, fmt.Errorf("lookup %s: %w", query, err)
	}
	s.logger.Debug("using destination from link", "destination_id", d.ID, "lookup_error", err)
	return types.Destination{
		ID:      d.ID,
		Name:    d.Name,
		Country: types.Country{Name: d.Country.Name},
	}, nil
}

// Hotel returns the fetched hotel with the given id.
func (s *Store) Hotel(id int) (types.Hotel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.state.Fetched {
		if h.ID == id {
			return h, true
		}
	}
	return types.Hotel{}, false
}

// PriceBounds returns the price span of the fetched hotels.
func (s *Store) PriceBounds() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filter.PriceBounds(s.state.Fetched)
}

// Close cancels in-flight fetches and pending evaluations and waits for
// them to return.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.listeners = make(map[int]Listener)
	s.mu.Unlock()

	s.debouncer.Stop()
	s.cancel()
	s.wg.Wait()
}
