package types

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCriteria() Criteria {
	return Criteria{
		Destination: Destination{ID: 42, Name: "Goa"},
		CheckIn:     time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:    time.Date(2025, 12, 3, 0, 0, 0, 0, time.UTC),
		Occupancy:   Occupancy{Rooms: 1, Adults: 2},
	}
}

func TestCriteria_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Criteria)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Criteria) {}},
		{
			name:    "missing destination",
			mutate:  func(c *Criteria) { c.Destination = Destination{} },
			wantErr: "destination is required",
		},
		{
			name:    "checkout before checkin",
			mutate:  func(c *Criteria) { c.CheckOut = c.CheckIn.AddDate(0, 0, -1) },
			wantErr: "checkOut must be after checkIn",
		},
		{
			name:    "checkout equal to checkin",
			mutate:  func(c *Criteria) { c.CheckOut = c.CheckIn },
			wantErr: "checkOut must be after checkIn",
		},
		{
			name:    "zero rooms",
			mutate:  func(c *Criteria) { c.Occupancy.Rooms = 0 },
			wantErr: "rooms must be at least 1",
		},
		{
			name:    "zero adults",
			mutate:  func(c *Criteria) { c.Occupancy.Adults = 0 },
			wantErr: "adults must be at least 1",
		},
		{
			name: "ages count mismatch",
			mutate: func(c *Criteria) {
				c.Occupancy.Children = 2
				c.Occupancy.ChildAges = []int{4}
			},
			wantErr: "childAges must have one entry per child",
		},
		{
			name: "child too old",
			mutate: func(c *Criteria) {
				c.Occupancy.Children = 1
				c.Occupancy.ChildAges = []int{18}
			},
			wantErr: "must be at most 17",
		},
		{
			name: "too many children",
			mutate: func(c *Criteria) {
				c.Occupancy.Children = 11
				c.Occupancy.ChildAges = make([]int, 11)
			},
			wantErr: "children must be at most 10",
		},
		{
			name: "children with ages",
			mutate: func(c *Criteria) {
				c.Occupancy.Children = 2
				c.Occupancy.ChildAges = []int{0, 17}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCriteria()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCriteria)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCriteria_JSONDates(t *testing.T) {
	c := validCriteria()
	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"checkIn":"2025-12-01"`)
	assert.Contains(t, string(data), `"checkOut":"2025-12-03"`)

	var decoded Criteria
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.CheckIn.Equal(c.CheckIn))
	assert.Equal(t, 2, decoded.Nights())

	err = json.Unmarshal([]byte(`{"checkIn":"2025/12/01"}`), &decoded)
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestOccupancy_WithChildren(t *testing.T) {
	o := Occupancy{Rooms: 1, Adults: 2, Children: 2, ChildAges: []int{5, 9}}

	grown := o.WithChildren(3)
	assert.Equal(t, []int{5, 9, 0}, grown.ChildAges)
	assert.Equal(t, 3, grown.Children)

	shrunk := o.WithChildren(1)
	assert.Equal(t, []int{5}, shrunk.ChildAges)

	assert.Equal(t, []int{5, 9}, o.ChildAges, "receiver must not change")

	capped := o.WithChildren(math.MaxInt)
	assert.Equal(t, MaxChildren, capped.Children)
	assert.Len(t, capped.ChildAges, MaxChildren)

	none := o.WithChildren(-3)
	assert.Zero(t, none.Children)
	assert.Empty(t, none.ChildAges)
}

func TestHotel_PriceAndStars(t *testing.T) {
	h := Hotel{
		Rating: "4 STARS",
		Rooms: []Room{
			{Rates: Rates{TotalPrice: 5000}},
			{Rates: Rates{TotalPrice: 1000}},
		},
	}
	assert.Equal(t, 5000.0, h.Price())
	assert.Equal(t, 4, h.StarRating())

	assert.Equal(t, 0.0, Hotel{}.Price())
	assert.Equal(t, 0, Hotel{Rating: "unrated"}.StarRating())
}
