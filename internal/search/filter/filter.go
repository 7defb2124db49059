// Package filter holds the filter set applied to hotel search results and the
// rules that decide whether a filter change is handled locally or needs a new
// remote search.
package filter

import (
	"errors"
	"fmt"
	"slices"

	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// SortOrder is the order of the displayed hotels.
type SortOrder string

const (
	SortNone      SortOrder = ""
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
)

// Sentinel price range: the remote source is not asked to constrain prices
// while the range equals it.
const (
	DefaultMinPrice = 1000
	DefaultMaxPrice = 100000
)

// MaxRating is the upper bound of star and review ratings.
const MaxRating = 5

// ErrInvalidFilter is returned when a filter set violates its invariants.
var ErrInvalidFilter = errors.New("invalid filter")

// Set is the full set of filters of a search session.
type Set struct {
	SortBy    SortOrder        `json:"sortBy"`
	NameQuery string           `json:"nameQuery"`
	Price     types.PriceRange `json:"priceRange"`
	Stars     types.Range      `json:"starRange"`
	Rating    types.Range      `json:"ratingRange"`
	Boards    types.Boards     `json:"boards"`
}

// Default returns the filters a new session starts with.
func Default() Set {
	return Set{
		SortBy: SortNone,
		Price:  types.PriceRange{Min: DefaultMinPrice, Max: DefaultMaxPrice},
		Boards: types.Boards{Codes: []string{}, Included: true},
	}
}

// Clone returns a copy that shares no memory with s.
func (s Set) Clone() Set {
	s.Boards.Codes = slices.Clone(s.Boards.Codes)
	return s
}

// Validate checks range ordering and bounds.
func (s Set) Validate() error {
	switch s.SortBy {
	case SortNone, SortPriceAsc, SortPriceDesc:
	default:
		return fmt.Errorf("%w: unknown sort order %q", ErrInvalidFilter, s.SortBy)
	}
	if s.Price.Min < 0 || s.Price.Min > s.Price.Max {
		return fmt.Errorf("%w: price range %v-%v", ErrInvalidFilter, s.Price.Min, s.Price.Max)
	}
	if err := validateRange("star", s.Stars); err != nil {
		return err
	}
	return validateRange("rating", s.Rating)
}

func validateRange(name string, r types.Range) error {
	if r.Min < 0 || r.Max > MaxRating || r.Min > r.Max {
		return fmt.Errorf("%w: %s range %d-%d", ErrInvalidFilter, name, r.Min, r.Max)
	}
	return nil
}

// Field names one filter criterion.
type Field int

const (
	FieldSortBy Field = iota
	FieldNameQuery
	FieldPrice
	FieldStars
	FieldRating
	FieldBoards
)

var fieldNames = [...]string{"sortBy", "nameQuery", "priceRange", "starRange", "ratingRange", "boards"}

func (f Field) String() string {
	if int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// Class tells where a filter is evaluated.
type Class int

const (
	// Local filters are applied to the already fetched hotels.
	Local Class = iota
	// Remote filters change the candidate set and need a new search.
	Remote
)

func (c Class) String() string {
	if c == Remote {
		return "remote"
	}
	return "local"
}

var classes = map[Field]Class{
	FieldSortBy:    Local,
	FieldNameQuery: Local,
	FieldPrice:     Remote,
	FieldStars:     Remote,
	FieldRating:    Remote,
	FieldBoards:    Remote,
}

// Classify returns the class of a field.
func Classify(f Field) Class {
	return classes[f]
}

// Changed lists the fields whose values differ between prev and next.
// Board codes are compared as sets.
func Changed(prev, next Set) []Field {
	var fields []Field
	if prev.SortBy != next.SortBy {
		fields = append(fields, FieldSortBy)
	}
	if prev.NameQuery != next.NameQuery {
		fields = append(fields, FieldNameQuery)
	}
	if prev.Price != next.Price {
		fields = append(fields, FieldPrice)
	}
	if prev.Stars != next.Stars {
		fields = append(fields, FieldStars)
	}
	if prev.Rating != next.Rating {
		fields = append(fields, FieldRating)
	}
	if !sameBoards(prev.Boards, next.Boards) {
		fields = append(fields, FieldBoards)
	}
	return fields
}

// HasClass reports whether any of fields belongs to class c.
func HasClass(fields []Field, c Class) bool {
	for _, f := range fields {
		if Classify(f) == c {
			return true
		}
	}
	return false
}

func sameBoards(a, b types.Boards) bool {
	if a.Included != b.Included {
		return false
	}
	return slices.Equal(codeSet(a.Codes), codeSet(b.Codes))
}

func codeSet(codes []string) []string {
	set := slices.Clone(codes)
	slices.Sort(set)
	return slices.Compact(set)
}
