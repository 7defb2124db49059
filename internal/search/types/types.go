package types

import (
	"regexp"
	"strconv"
)

// Country is the country a destination belongs to.
type Country struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
}

// Destination is a searchable place as returned by the remote places endpoint.
type Destination struct {
	ID        int     `json:"id" validate:"gt=0"`
	Name      string  `json:"name"`
	PlaceCode string  `json:"placeCode"`
	Country   Country `json:"country"`
}

// Hotel is a hotel record as returned by the remote search endpoint.
// Only ID, Name and Price are interpreted by the filtering logic.
type Hotel struct {
	ID             int             `json:"id"`
	Name           string          `json:"hotelName"`
	Code           string          `json:"hotelCode"`
	Segments       []string        `json:"segments"`
	Accommodation  string          `json:"hotelAccommodation"`
	Rating         string          `json:"rating"`
	Rooms          []Room          `json:"roomResponses"`
	Images         []Image         `json:"hotelImageLinks"`
	Facilities     []Facility      `json:"facilityResponses"`
	Description    string          `json:"description"`
	Email          string          `json:"email"`
	Address        string          `json:"address"`
	Phones         []Phone         `json:"phoneResponses"`
	PostalCode     string          `json:"postalCode"`
	InterestPoints []InterestPoint `json:"interestPoints"`
	Website        string          `json:"website,omitempty"`
	Coordinates    Coordinates     `json:"coordinates"`
	Type           string          `json:"type,omitempty"`
	ReviewCount    int             `json:"reviewCount,omitempty"`
}

// Room is a bookable room offer of a hotel.
type Room struct {
	Boards     []BoardOption `json:"boardNameResponse"`
	Name       string        `json:"roomName"`
	Code       string        `json:"roomCode"`
	ID         int           `json:"roomId"`
	Rates      Rates         `json:"rateKeyResponses"`
	Facilities []Facility    `json:"facilityResponses"`
	ImageURLs  []string      `json:"roomImageUrl"`
	Allotment  int           `json:"allotment"`
	RoomCount  int           `json:"rooms"`
	Adults     int           `json:"adults"`
	Children   int           `json:"children"`
}

// BoardOption is a board type offered with a room.
type BoardOption struct {
	RoomCount int    `json:"roomCount"`
	Name      string `json:"boardName"`
	Code      string `json:"boardCode"`
}

// Rates holds the rate keys and the total price of a room.
type Rates struct {
	RateKeys   []RateKey `json:"rateKeys"`
	TotalPrice float64   `json:"totalPrice"`
}

// RateKey identifies a bookable rate.
type RateKey struct {
	CancellationPolicy []CancellationPolicy `json:"cancellationPolicy"`
	Promotions         []Promotion          `json:"promotionResponses,omitempty"`
	RoomRateKey        string               `json:"roomRateKey"`
}

// CancellationPolicy is a penalty that applies from a point in time.
type CancellationPolicy struct {
	Amount string `json:"amount"`
	From   string `json:"from"`
}

// Promotion is a promotional offer attached to a rate.
type Promotion struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Remark string `json:"remark"`
}

// Facility is a hotel or room facility.
type Facility struct {
	Name          string `json:"name"`
	FeeApplied    bool   `json:"feeApplied"`
	Mandatory     bool   `json:"mandatory"`
	FacilityGroup string `json:"facilityGroup"`
}

// Image is a hotel image link.
type Image struct {
	Link string `json:"imageLink"`
	Type string `json:"imageType"`
}

// Phone is a hotel contact number.
type Phone struct {
	Number string `json:"phoneNumber"`
	Type   string `json:"phoneType"`
}

// InterestPoint is a point of interest near a hotel.
type InterestPoint struct {
	Name     string `json:"pointName"`
	Distance string `json:"distance"`
}

// Coordinates is a hotel location.
type Coordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Price returns the total price of the first room offer, or 0 when the hotel
// has no priced room.
func (h Hotel) Price() float64 {
	if len(h.Rooms) == 0 {
		return 0
	}
	return h.Rooms[0].Rates.TotalPrice
}

var firstNumber = regexp.MustCompile(`\d+`)

// StarRating extracts the star category from the free-form rating string
// ("4 STARS", "3EST", ...). Returns 0 when no number is present.
func (h Hotel) StarRating() int {
	m := firstNumber.FindString(h.Rating)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}
