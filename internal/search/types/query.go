package types

// PriceRange is an inclusive total-price range.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Range is an inclusive 0..5 rating range. (0,0) means no constraint.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Boards selects board types (BB, HB, ...). Included=false excludes them instead.
type Boards struct {
	Codes    []string `json:"codes"`
	Included bool     `json:"included"`
}

// Query is a request to the remote hotel source. A nil constraint is not sent.
type Query struct {
	Criteria Criteria    `json:"criteria"`
	Price    *PriceRange `json:"priceRange,omitempty"`
	Stars    *Range      `json:"starRange,omitempty"`
	Rating   *Range      `json:"ratingRange,omitempty"`
	Boards   *Boards     `json:"boards,omitempty"`
}
