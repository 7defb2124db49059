package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alex-user-go/hotelsearch/internal/providers"
	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

var errProviderUnavailable = errors.New("provider unavailable")

// profile controls how a mock behaves.
type profile struct {
	name        string
	minLatency  time.Duration
	maxLatency  time.Duration
	failureRate float64
	// priceFactor scales nightly prices so endpoints disagree on prices.
	priceFactor float64
}

var profiles = map[string]profile{
	"mock1": {name: "provider1", minLatency: 50 * time.Millisecond, maxLatency: 200 * time.Millisecond, failureRate: 0.10, priceFactor: 1.00},
	"mock2": {name: "provider2", minLatency: 75 * time.Millisecond, maxLatency: 300 * time.Millisecond, failureRate: 0.15, priceFactor: 0.95},
	"mock3": {name: "provider3", minLatency: 100 * time.Millisecond, maxLatency: 500 * time.Millisecond, failureRate: 0.20, priceFactor: 1.10},
}

// Mock serves the remote hotel API: hotel search and destination places.
type Mock struct {
	profile profile
	mu      sync.Mutex
	rng     *rand.Rand
	logger  *slog.Logger
}

// NewMock creates a mock with the given profile.
func NewMock(p profile, seed int64, logger *slog.Logger) *Mock {
	return &Mock{
		profile: p,
		rng:     rand.New(rand.NewSource(seed)),
		logger:  logger,
	}
}

// Routes registers the mock endpoints on mux.
func (m *Mock) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /hotels", m.handleSearch)
	mux.HandleFunc("POST /hotels/places", m.handlePlaces)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			m.logger.Error("failed to write healthz response", "error", err)
		}
	})
}

func (m *Mock) float() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()
}

// wait simulates network latency and random failures.
func (m *Mock) wait(ctx context.Context) error {
	span := m.profile.maxLatency - m.profile.minLatency
	latency := m.profile.minLatency + time.Duration(m.float()*float64(span))

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return context.Cause(ctx)
	}

	if m.float() < m.profile.failureRate {
		return errProviderUnavailable
	}
	return nil
}

func (m *Mock) handleSearch(w http.ResponseWriter, r *http.Request) {
	destID, err := strconv.Atoi(r.URL.Query().Get("destinationId"))
	if err != nil || destID <= 0 {
		http.Error(w, "invalid destinationId", http.StatusBadRequest)
		return
	}

	var payload providers.SearchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	nights, err := stayNights(payload.Stay)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(payload.Occupancies) == 0 || payload.Occupancies[0].Adults <= 0 {
		http.Error(w, "invalid occupancies", http.StatusBadRequest)
		return
	}

	if err := m.wait(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	hotels := filterHotels(catalog(destID, nights, m.profile.priceFactor), payload)
	m.logger.Debug("search served",
		"tenant", r.Header.Get("x-tenant-id"),
		"destination_id", destID,
		"count", len(hotels))
	m.writeJSON(w, providers.SearchResponse{Data: hotels})
}

func (m *Mock) handlePlaces(w http.ResponseWriter, r *http.Request) {
	var payload providers.PlacesPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := m.wait(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	query := ""
	if payload.Search != nil {
		query = *payload.Search
	}
	found := findDestinations(query, payload.FetchStaticDestination)
	if limit := payload.Pagination.MaxLimit; limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	m.writeJSON(w, providers.PlacesResponse{Data: found})
}

func (m *Mock) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Error("failed to encode response", "error", err)
	}
}

func stayNights(s providers.StayPayload) (int, error) {
	checkIn, err := types.ParseDate(s.CheckIn)
	if err != nil {
		return 0, errors.New("invalid checkIn")
	}
	checkOut, err := types.ParseDate(s.CheckOut)
	if err != nil {
		return 0, errors.New("invalid checkOut")
	}
	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	if checkIn.IsZero() || nights <= 0 {
		return 0, errors.New("invalid stay")
	}
	return nights, nil
}

// filterHotels applies the constraints of a search payload.
func filterHotels(hotels []types.Hotel, p providers.SearchPayload) []types.Hotel {
	return slices.DeleteFunc(hotels, func(h types.Hotel) bool {
		if f := p.ExtraFilter; f != nil {
			if f.MinRate != nil && h.Price() < *f.MinRate {
				return true
			}
			if f.MaxRate != nil && h.Price() > *f.MaxRate {
				return true
			}
			if f.MinCategory != nil && h.StarRating() < *f.MinCategory {
				return true
			}
			if f.MaxCategory != nil && h.StarRating() > *f.MaxCategory {
				return true
			}
		}
		for _, rf := range p.Reviews {
			if h.ReviewCount < rf.MinReviewCount {
				return true
			}
		}
		if b := p.Boards; b != nil && len(b.Board) > 0 {
			if offersBoard(h, b.Board) != b.Included {
				return true
			}
		}
		return false
	})
}

func offersBoard(h types.Hotel, codes []string) bool {
	for _, room := range h.Rooms {
		for _, board := range room.Boards {
			if slices.Contains(codes, board.Code) {
				return true
			}
		}
	}
	return false
}

func findDestinations(query string, static bool) []types.Destination {
	if static {
		return slices.Clone(destinations)
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if id, ok := strings.CutPrefix(query, "id:"); ok {
		n, err := strconv.Atoi(id)
		if err != nil {
			return []types.Destination{}
		}
		for _, d := range destinations {
			if d.ID == n {
				return []types.Destination{d}
			}
		}
		return []types.Destination{}
	}
	out := []types.Destination{}
	for _, d := range destinations {
		if strings.Contains(strings.ToLower(d.Name), query) ||
			strings.Contains(strings.ToLower(d.Country.Name), query) {
			out = append(out, d)
		}
	}
	return out
}
