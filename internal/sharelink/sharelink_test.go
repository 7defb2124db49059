package sharelink

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

func sample(t *testing.T) types.Criteria {
	t.Helper()
	in, err := types.ParseDate("2026-11-10")
	require.NoError(t, err)
	out, err := types.ParseDate("2026-11-12")
	require.NoError(t, err)
	return types.Criteria{
		Destination: types.Destination{ID: 7, Name: "Lisbon", Country: types.Country{Name: "Portugal"}},
		CheckIn:     in,
		CheckOut:    out,
		Occupancy:   types.Occupancy{Rooms: 1, Adults: 2, Children: 2, ChildAges: []int{4, 11}},
	}
}

func TestEncode(t *testing.T) {
	v := Encode(sample(t))

	assert.Equal(t, "7", v.Get(KeyDestinationID))
	assert.Equal(t, "Lisbon", v.Get(KeyDestinationName))
	assert.Equal(t, "Portugal", v.Get(KeyDestinationCountry))
	assert.Equal(t, "2026-11-10", v.Get(KeyCheckIn))
	assert.Equal(t, "2026-11-12", v.Get(KeyCheckOut))
	assert.Equal(t, "1", v.Get(KeyRooms))
	assert.Equal(t, "2", v.Get(KeyAdults))
	assert.Equal(t, "2", v.Get(KeyChildren))
	assert.Equal(t, "4,11", v.Get(KeyChildrenAges))
}

func TestEncode_NoChildrenOmitsAges(t *testing.T) {
	c := sample(t)
	c.Occupancy = types.Occupancy{Rooms: 1, Adults: 1}

	v := Encode(c)
	assert.Equal(t, "0", v.Get(KeyChildren))
	assert.False(t, v.Has(KeyChildrenAges))
}

func TestRoundTrip(t *testing.T) {
	want := sample(t)

	got, err := Decode(Encode(want))
	require.NoError(t, err)
	assert.Equal(t, want.Destination, got.Destination)
	assert.True(t, want.CheckIn.Equal(got.CheckIn))
	assert.True(t, want.CheckOut.Equal(got.CheckOut))
	assert.Equal(t, want.Occupancy, got.Occupancy)
	assert.NoError(t, got.Validate())
}

func TestDecode(t *testing.T) {
	base := func() url.Values { return Encode(sample(t)) }

	tests := []struct {
		name     string
		mutate   func(v url.Values)
		wantErr  error
		wantAges []int
	}{
		{
			name:    "missing destination",
			mutate:  func(v url.Values) { v.Del(KeyDestinationID) },
			wantErr: ErrIncompleteLink,
		},
		{
			name:    "missing dates",
			mutate:  func(v url.Values) { v.Del(KeyCheckIn); v.Del(KeyCheckOut) },
			wantErr: ErrIncompleteLink,
		},
		{
			name:    "bad date",
			mutate:  func(v url.Values) { v.Set(KeyCheckIn, "10/11/2026") },
			wantErr: ErrMalformedLink,
		},
		{
			name:    "bad number",
			mutate:  func(v url.Values) { v.Set(KeyAdults, "two") },
			wantErr: ErrMalformedLink,
		},
		{
			name:    "bad age",
			mutate:  func(v url.Values) { v.Set(KeyChildrenAges, "4,x") },
			wantErr: ErrMalformedLink,
		},
		{
			name:    "children beyond int range",
			mutate:  func(v url.Values) { v.Set(KeyChildren, "9223372036854775808") },
			wantErr: ErrMalformedLink,
		},
		{
			name:    "huge children count",
			mutate:  func(v url.Values) { v.Set(KeyChildren, "9223372036854775807") },
			wantErr: ErrMalformedLink,
		},
		{
			name:    "children above cap",
			mutate:  func(v url.Values) { v.Set(KeyChildren, "1000000000"); v.Del(KeyChildrenAges) },
			wantErr: ErrMalformedLink,
		},
		{
			name:    "negative children",
			mutate:  func(v url.Values) { v.Set(KeyChildren, "-1") },
			wantErr: ErrMalformedLink,
		},
		{
			name: "children at cap",
			mutate: func(v url.Values) {
				v.Set(KeyChildren, "10")
				v.Set(KeyChildrenAges, "1,2,3,4,5,6,7,8,9,10,11,12")
			},
			wantAges: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		{
			name:     "missing ages padded",
			mutate:   func(v url.Values) { v.Del(KeyChildrenAges) },
			wantAges: []int{0, 0},
		},
		{
			name:     "extra ages dropped",
			mutate:   func(v url.Values) { v.Set(KeyChildrenAges, "4,11,16") },
			wantAges: []int{4, 11},
		},
		{
			name:     "optional names absent",
			mutate:   func(v url.Values) { v.Del(KeyDestinationName); v.Del(KeyDestinationCountry) },
			wantAges: []int{4, 11},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := base()
			tt.mutate(v)

			got, err := Decode(v)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAges, got.Occupancy.ChildAges)
			assert.Equal(t, len(tt.wantAges), got.Occupancy.Children)
		})
	}
}
