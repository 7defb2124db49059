package main

import (
	"math"

	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

var destinations = []types.Destination{
	{ID: 1, Name: "Lisbon", PlaceCode: "LIS", Country: types.Country{ID: 1, Name: "Portugal", CountryCode: "PT"}},
	{ID: 2, Name: "Porto", PlaceCode: "OPO", Country: types.Country{ID: 1, Name: "Portugal", CountryCode: "PT"}},
	{ID: 3, Name: "Barcelona", PlaceCode: "BCN", Country: types.Country{ID: 2, Name: "Spain", CountryCode: "ES"}},
	{ID: 4, Name: "Madrid", PlaceCode: "MAD", Country: types.Country{ID: 2, Name: "Spain", CountryCode: "ES"}},
	{ID: 5, Name: "Rome", PlaceCode: "ROM", Country: types.Country{ID: 3, Name: "Italy", CountryCode: "IT"}},
	{ID: 6, Name: "Paris", PlaceCode: "PAR", Country: types.Country{ID: 4, Name: "France", CountryCode: "FR"}},
}

type template struct {
	id      int
	name    string
	stars   string
	nightly float64
	reviews int
	boards  []string
	kind    string
}

var templates = []template{
	{id: 1, name: "Grand Hotel", stars: "5 STARS", nightly: 420, reviews: 812, boards: []string{"BB", "HB", "FB"}, kind: "HOTEL"},
	{id: 2, name: "City Center Inn", stars: "3 STARS", nightly: 150, reviews: 230, boards: []string{"RO", "BB"}, kind: "HOTEL"},
	{id: 3, name: "Budget Stay", stars: "2 STARS", nightly: 70, reviews: 0, boards: []string{"RO"}, kind: "HOSTEL"},
	{id: 4, name: "Luxury Palace", stars: "5 STARS", nightly: 650, reviews: 95, boards: []string{"BB", "AI"}, kind: "HOTEL"},
	{id: 5, name: "Seaside Resort", stars: "4 STARS", nightly: 310, reviews: 451, boards: []string{"HB", "FB", "AI"}, kind: "RESORT"},
	{id: 6, name: " ", stars: "3EST", nightly: 120, reviews: 12, boards: []string{"BB"}, kind: "APARTMENT"},
	{id: 7, name: "Old Town Suites", stars: "4 STARS", nightly: 240, reviews: 64, boards: []string{"RO", "BB"}, kind: "APARTMENT"},
}

// catalog returns the hotels of a destination priced for the given stay.
// Hotel ids are stable per destination so results from different
// endpoints overlap.
func catalog(destID, nights int, factor float64) []types.Hotel {
	hotels := make([]types.Hotel, 0, len(templates))
	for _, t := range templates {
		boards := make([]types.BoardOption, len(t.boards))
		for i, code := range t.boards {
			boards[i] = types.BoardOption{RoomCount: 1, Code: code, Name: code}
		}
		total := math.Round(t.nightly*factor*float64(nights)*100) / 100
		hotels = append(hotels, types.Hotel{
			ID:            destID*100 + t.id,
			Name:          t.name,
			Code:          "H" + string(rune('A'+t.id)),
			Accommodation: t.kind,
			Rating:        t.stars,
			ReviewCount:   t.reviews,
			Rooms: []types.Room{{
				ID:     1,
				Name:   "Standard Double",
				Code:   "DBL.ST",
				Boards: boards,
				Rates:  types.Rates{TotalPrice: total},
			}},
		})
	}
	return hotels
}
