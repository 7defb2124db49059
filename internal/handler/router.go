package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Router creates the API router. health and metrics are mounted outside the
// rate limit.
func (h *Handler) Router(health http.Handler, metrics http.Handler) *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.RateLimit)

	// Sessions
	api.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", h.GetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", h.DeleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/search", h.Search).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/filters", h.UpdateFilters).Methods(http.MethodPatch)
	api.HandleFunc("/sessions/{id}/restore", h.Restore).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/retry", h.Retry).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/hotels/{hotelId}", h.Hotel).Methods(http.MethodGet)

	// WebSocket for state updates
	api.HandleFunc("/sessions/{id}/ws", h.WebSocket).Methods(http.MethodGet)

	// Destinations autocomplete
	api.HandleFunc("/destinations", h.Destinations).Methods(http.MethodGet)

	r.Handle("/healthz", health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics).Methods(http.MethodGet)

	return r
}
