package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/alex-user-go/hotelsearch/internal/middleware"
	"github.com/alex-user-go/hotelsearch/internal/obs"
	"github.com/alex-user-go/hotelsearch/internal/providers"
	"github.com/alex-user-go/hotelsearch/internal/search/filter"
	"github.com/alex-user-go/hotelsearch/internal/search/ratelimit"
	"github.com/alex-user-go/hotelsearch/internal/search/store"
	"github.com/alex-user-go/hotelsearch/internal/search/types"
	"github.com/alex-user-go/hotelsearch/internal/session"
	"github.com/alex-user-go/hotelsearch/internal/sharelink"
	"github.com/alex-user-go/hotelsearch/internal/ws"
)

// destinationLimit caps destination autocomplete results.
const destinationLimit = 10

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// Handler handles HTTP requests.
type Handler struct {
	sessions    *session.Registry
	source      providers.Source
	hub         *ws.Hub
	rateLimiter *ratelimit.Limiter
	metrics     *obs.Metrics
	logger      *slog.Logger
}

// New creates a new Handler. Clients of a session are told over the hub when
// the session goes away, and a session stays alive while a client watches it.
func New(
	sessions *session.Registry,
	source providers.Source,
	hub *ws.Hub,
	rateLimiter *ratelimit.Limiter,
	metrics *obs.Metrics,
	logger *slog.Logger,
) *Handler {
	h := &Handler{
		sessions:    sessions,
		source:      source,
		hub:         hub,
		rateLimiter: rateLimiter,
		metrics:     metrics,
		logger:      logger,
	}
	sessions.OnClose(func(id string) {
		hub.Broadcast(id, ws.MessageTypeClosed, nil)
	})
	sessions.KeepWhile(func(id string) bool {
		return hub.ClientCount(id) > 0
	})
	return h
}

// CreateSession handles POST /api/sessions.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, s := h.sessions.Create()
	s.Subscribe(func(st store.State) {
		h.hub.Broadcast(id, ws.MessageTypeState, NewStateView(st))
	})

	writeJSON(w, http.StatusCreated, SessionResponse{
		ID:    id,
		State: NewStateView(s.Snapshot()),
	}, h.logger)
}

// GetSession handles GET /api/sessions/{id}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	h.writeState(w, s)
}

// DeleteSession handles DELETE /api/sessions/{id}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /api/sessions/{id}/search. The body holds the criteria.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}

	var c types.Criteria
	if !h.decode(w, r, &c) {
		return
	}
	if err := s.SetCriteria(c); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := s.Search(detach(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeState(w, s)
}

// UpdateFilters handles PATCH /api/sessions/{id}/filters.
func (h *Handler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}

	var p filter.Patch
	if !h.decode(w, r, &p) {
		return
	}
	st, err := s.UpdateFilters(p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewStateView(st), h.logger)
}

// Restore handles POST /api/sessions/{id}/restore?<share link parameters>.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}

	c, err := sharelink.Decode(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := s.Restore(detach(r), c); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeState(w, s)
}

// Retry handles POST /api/sessions/{id}/retry.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	if err := s.Retry(detach(r)); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeState(w, s)
}

// Hotel handles GET /api/sessions/{id}/hotels/{hotelId}.
func (h *Handler) Hotel(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}

	hotelID, err := strconv.Atoi(mux.Vars(r)["hotelId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "hotelId must be an integer")
		return
	}
	hotel, found := s.Hotel(hotelID)
	if !found {
		writeError(w, http.StatusNotFound, "hotel not found")
		return
	}
	writeJSON(w, http.StatusOK, hotel, h.logger)
}

// WebSocket handles GET /api/sessions/{id}/ws.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	s, ok := h.store(w, r)
	if !ok {
		return
	}
	h.hub.ServeWS(w, r, mux.Vars(r)["id"], func() any {
		return NewStateView(s.Snapshot())
	})
}

// Destinations handles GET /api/destinations?q=.
func (h *Handler) Destinations(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	dests, err := h.source.LookupDestination(r.Context(), query, destinationLimit)
	if err != nil {
		h.logger.Error("destination lookup failed",
			"request_id", middleware.RequestID(r.Context()),
			"query", query,
			"error", err)
		writeError(w, http.StatusBadGateway, "destination lookup failed")
		return
	}
	if dests == nil {
		dests = []types.Destination{}
	}
	writeJSON(w, http.StatusOK, DestinationsResponse{Data: dests}, h.logger)
}

// RateLimit rejects clients that exceed the per-IP limit.
func (h *Handler) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.metrics.IncRequests()

		// Check rate limit
		ip := ExtractIP(r)
		if wait, ok := h.rateLimiter.Reserve(ip); !ok {
			h.logger.Warn("rate limit exceeded", "request_id", middleware.RequestID(r.Context()), "ip", ip)
			if wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			}
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*store.Store, bool) {
	s, err := h.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		h.logger.Debug("invalid request body",
			"request_id", middleware.RequestID(r.Context()),
			"error", err)
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) writeState(w http.ResponseWriter, s *store.Store) {
	writeJSON(w, http.StatusOK, NewStateView(s.Snapshot()), h.logger)
}

// fail maps domain errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	requestID := middleware.RequestID(r.Context())
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "request_id", requestID, "error", err)
		writeError(w, status, "internal error")
		return
	}
	h.logger.Debug("request rejected", "request_id", requestID, "status", status, "error", err)
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, store.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, types.ErrInvalidCriteria),
		errors.Is(err, filter.ErrInvalidFilter),
		errors.Is(err, sharelink.ErrIncompleteLink),
		errors.Is(err, sharelink.ErrMalformedLink):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNoCriteria):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// detach keeps request values but not its cancellation, so a client going
// away does not turn into a fetch error for the whole session.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// ExtractIP extracts the client IP from the request.
// Checks X-Forwarded-For, X-Real-IP, then falls back to RemoteAddr.
func ExtractIP(r *http.Request) string {
	// Check X-Forwarded-For (first IP in the list)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	// Check X-Real-IP
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fallback to RemoteAddr (strip port)
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Can't change status after WriteHeader, just log
		logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
