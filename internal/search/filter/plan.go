package filter

import (
	"slices"

	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// ConstraintsFor builds a remote query from criteria and the remote part of s.
// Only meaningful constraints are included:
//   - price when it differs from the sentinel (1000, 100000)
//   - star and review ranges when both bounds lie in 1..5
//   - boards when at least one code is selected
func ConstraintsFor(criteria types.Criteria, s Set) types.Query {
	q := types.Query{Criteria: criteria.Clone()}

	if s.Price.Min != DefaultMinPrice || s.Price.Max != DefaultMaxPrice {
		price := s.Price
		q.Price = &price
	}
	if selected(s.Stars) {
		stars := s.Stars
		q.Stars = &stars
	}
	if selected(s.Rating) {
		rating := s.Rating
		q.Rating = &rating
	}
	if len(s.Boards.Codes) > 0 {
		q.Boards = &types.Boards{
			Codes:    slices.Clone(s.Boards.Codes),
			Included: s.Boards.Included,
		}
	}

	return q
}

func selected(r types.Range) bool {
	return r.Min >= 1 && r.Max <= MaxRating
}

// PlanRefetch decides whether going from prev to next needs a new remote
// search. It returns nil when there are no criteria yet or no remote field
// changed value.
func PlanRefetch(criteria *types.Criteria, prev, next Set) *types.Query {
	if criteria == nil {
		return nil
	}
	if !HasClass(Changed(prev, next), Remote) {
		return nil
	}
	q := ConstraintsFor(*criteria, next)
	return &q
}
