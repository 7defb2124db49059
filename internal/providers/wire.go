package providers

import (
	"strings"

	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// Wire format of the remote hotel API.

const (
	paxChild       = "CH"
	reviewSource   = "TRIPADVISOR"
	minReviewCount = 1
	unknownHotel   = "Unknown Hotel"
)

// SearchPayload is the body of POST {base}?destinationId={id}.
type SearchPayload struct {
	Stay        StayPayload        `json:"stay"`
	Occupancies []OccupancyPayload `json:"occupancies"`
	ExtraFilter *ExtraFilter       `json:"extrafilter,omitempty"`
	Reviews     []ReviewFilter     `json:"reviews,omitempty"`
	Boards      *BoardsFilter      `json:"boards,omitempty"`
}

type StayPayload struct {
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
}

type OccupancyPayload struct {
	Rooms    int          `json:"rooms"`
	Adults   int          `json:"adults"`
	Children int          `json:"children"`
	Paxes    []PaxPayload `json:"paxes,omitempty"`
}

type PaxPayload struct {
	Type string `json:"type"`
	Age  int    `json:"age"`
}

type ExtraFilter struct {
	MinRate     *float64 `json:"minRate,omitempty"`
	MaxRate     *float64 `json:"maxRate,omitempty"`
	MinCategory *int     `json:"minCategory,omitempty"`
	MaxCategory *int     `json:"maxCategory,omitempty"`
}

type ReviewFilter struct {
	MaxRate        int    `json:"maxRate"`
	MinRate        int    `json:"minRate"`
	MinReviewCount int    `json:"minReviewCount"`
	Type           string `json:"type"`
}

type BoardsFilter struct {
	Board    []string `json:"board"`
	Included bool     `json:"included"`
}

// SearchResponse is the body returned by the search endpoint.
type SearchResponse struct {
	Data []types.Hotel `json:"data"`
}

// PlacesPayload is the body of POST {base}/places.
type PlacesPayload struct {
	Pagination             Pagination `json:"paginationFilterRequest"`
	Search                 *string    `json:"search"`
	FetchStaticDestination bool       `json:"fetchStaticDestination"`
}

type Pagination struct {
	Action       string `json:"paginationAction"`
	MaxLimit     int    `json:"maxLimit"`
	SortingOrder string `json:"sortingOrder"`
}

// PlacesResponse is the body returned by the places endpoint.
type PlacesResponse struct {
	Data []types.Destination `json:"data"`
}

// NewSearchPayload converts a query into the remote request body.
func NewSearchPayload(q types.Query) SearchPayload {
	occ := q.Criteria.Occupancy
	op := OccupancyPayload{
		Rooms:    occ.Rooms,
		Adults:   occ.Adults,
		Children: occ.Children,
	}
	if occ.Children > 0 {
		for _, age := range occ.ChildAges {
			op.Paxes = append(op.Paxes, PaxPayload{Type: paxChild, Age: age})
		}
	}

	p := SearchPayload{
		Stay: StayPayload{
			CheckIn:  q.Criteria.CheckIn.Format(types.DateLayout),
			CheckOut: q.Criteria.CheckOut.Format(types.DateLayout),
		},
		Occupancies: []OccupancyPayload{op},
	}

	if q.Price != nil || q.Stars != nil {
		p.ExtraFilter = &ExtraFilter{}
	}
	if q.Price != nil {
		p.ExtraFilter.MinRate = &q.Price.Min
		p.ExtraFilter.MaxRate = &q.Price.Max
	}
	if q.Stars != nil {
		p.ExtraFilter.MinCategory = &q.Stars.Min
		p.ExtraFilter.MaxCategory = &q.Stars.Max
	}
	if q.Rating != nil {
		p.Reviews = []ReviewFilter{{
			MaxRate:        q.Rating.Max,
			MinRate:        q.Rating.Min,
			MinReviewCount: minReviewCount,
			Type:           reviewSource,
		}}
	}
	if q.Boards != nil {
		p.Boards = &BoardsFilter{Board: q.Boards.Codes, Included: q.Boards.Included}
	}

	return p
}

// NewPlacesPayload builds the places request. An empty query asks for the
// static destination list.
func NewPlacesPayload(query string, limit int) PlacesPayload {
	p := PlacesPayload{
		Pagination: Pagination{
			Action:       "INITIAL_PAGE",
			MaxLimit:     limit,
			SortingOrder: "ASC",
		},
		FetchStaticDestination: query == "",
	}
	if query != "" {
		p.Search = &query
	}
	return p
}

// normalizeHotels drops records without an id and fills in defaults.
func normalizeHotels(in []types.Hotel) []types.Hotel {
	out := make([]types.Hotel, 0, len(in))
	for _, h := range in {
		if h.ID == 0 {
			continue
		}
		h.Name = strings.TrimSpace(h.Name)
		if h.Name == "" {
			h.Name = unknownHotel
		}
		out = append(out, h)
	}
	return out
}
