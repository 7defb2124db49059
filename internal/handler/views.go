package handler

import (
	"github.com/alex-user-go/hotelsearch/internal/search/filter"
	"github.com/alex-user-go/hotelsearch/internal/search/store"
	"github.com/alex-user-go/hotelsearch/internal/search/types"
	"github.com/alex-user-go/hotelsearch/internal/sharelink"
)

// resultsPath is the presentation route a share link points to.
const resultsPath = "/results"

// StateView is the read model of a session sent to clients. Clients drop a
// view whose version is lower than one they already applied.
type StateView struct {
	Version     uint64          `json:"version"`
	Criteria    *types.Criteria `json:"criteria"`
	ShareLink   string          `json:"shareLink,omitempty"`
	Filters     filter.Set      `json:"filters"`
	Hotels      []types.Hotel   `json:"hotels"`
	Total       int             `json:"total"`
	Fetched     int             `json:"fetched"`
	PriceBounds PriceBounds     `json:"priceBounds"`
	Loading     bool            `json:"loading"`
	Error       string          `json:"error,omitempty"`
}

// PriceBounds is the price span of the fetched hotels.
type PriceBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// SessionResponse is returned when a session is created.
type SessionResponse struct {
	ID    string    `json:"id"`
	State StateView `json:"state"`
}

// DestinationsResponse mirrors the remote places payload.
type DestinationsResponse struct {
	Data []types.Destination `json:"data"`
}

// NewStateView builds the view of st.
func NewStateView(st store.State) StateView {
	lo, hi := filter.PriceBounds(st.Fetched)
	v := StateView{
		Version:     st.Version,
		Criteria:    st.Criteria,
		Filters:     st.Filters,
		Hotels:      st.Displayed,
		Total:       len(st.Displayed),
		Fetched:     len(st.Fetched),
		PriceBounds: PriceBounds{Min: lo, Max: hi},
		Loading:     st.Loading,
		Error:       st.Error,
	}
	if v.Hotels == nil {
		v.Hotels = []types.Hotel{}
	}
	if st.Criteria != nil {
		v.ShareLink = ShareLink(*st.Criteria)
	}
	return v
}

// ShareLink returns the results URL path for c.
func ShareLink(c types.Criteria) string {
	return resultsPath + "?" + sharelink.Encode(c).Encode()
}
