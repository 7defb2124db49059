package filter

import (
	"slices"

	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// Patch is a partial filter update. Nil fields are left untouched.
type Patch struct {
	SortBy    *SortOrder   `json:"sortBy,omitempty"`
	NameQuery *string      `json:"nameQuery,omitempty"`
	Price     *PricePatch  `json:"priceRange,omitempty"`
	Stars     *RangePatch  `json:"starRange,omitempty"`
	Rating    *RangePatch  `json:"ratingRange,omitempty"`
	Boards    *BoardsPatch `json:"boards,omitempty"`
}

// PricePatch updates one or both price bounds.
type PricePatch struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// RangePatch updates one or both rating bounds.
type RangePatch struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// BoardsPatch updates the board selection. A nil Codes slice means "unchanged";
// an empty non-nil slice clears the selection.
type BoardsPatch struct {
	Codes    []string `json:"codes"`
	Included *bool    `json:"included,omitempty"`
}

// Apply merges p into current and returns the result. Every field, nested
// fields included, is taken from p when set and from current otherwise.
// current is never modified.
func Apply(current Set, p Patch) Set {
	next := current.Clone()

	if p.SortBy != nil {
		next.SortBy = *p.SortBy
	}
	if p.NameQuery != nil {
		next.NameQuery = *p.NameQuery
	}
	if p.Price != nil {
		if p.Price.Min != nil {
			next.Price.Min = *p.Price.Min
		}
		if p.Price.Max != nil {
			next.Price.Max = *p.Price.Max
		}
	}
	if p.Stars != nil {
		next.Stars = applyRange(next.Stars, *p.Stars)
	}
	if p.Rating != nil {
		next.Rating = applyRange(next.Rating, *p.Rating)
	}
	if p.Boards != nil {
		if p.Boards.Codes != nil {
			next.Boards.Codes = slices.Clone(p.Boards.Codes)
		}
		if p.Boards.Included != nil {
			next.Boards.Included = *p.Boards.Included
		}
	}

	return next
}

func applyRange(r types.Range, p RangePatch) types.Range {
	if p.Min != nil {
		r.Min = *p.Min
	}
	if p.Max != nil {
		r.Max = *p.Max
	}
	return r
}

// Fields lists the fields p touches.
func (p Patch) Fields() []Field {
	var fields []Field
	if p.SortBy != nil {
		fields = append(fields, FieldSortBy)
	}
	if p.NameQuery != nil {
		fields = append(fields, FieldNameQuery)
	}
	if p.Price != nil {
		fields = append(fields, FieldPrice)
	}
	if p.Stars != nil {
		fields = append(fields, FieldStars)
	}
	if p.Rating != nil {
		fields = append(fields, FieldRating)
	}
	if p.Boards != nil {
		fields = append(fields, FieldBoards)
	}
	return fields
}

// SelectRatings turns a set of checked ratings into the min/max range sent to
// the remote source. No selection yields (0,0).
func SelectRatings(selected []int) RangePatch {
	lo, hi := 0, 0
	if len(selected) > 0 {
		lo, hi = slices.Min(selected), slices.Max(selected)
	}
	return RangePatch{Min: &lo, Max: &hi}
}
