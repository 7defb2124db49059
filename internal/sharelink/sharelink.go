// Package sharelink converts search criteria to and from the query string of
// a shareable results URL. Filters are not part of a link.
package sharelink

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/alex-user-go/hotelsearch/internal/search/types"
)

// Query parameter names.
const (
	KeyDestinationID      = "destinationId"
	KeyDestinationName    = "destinationName"
	KeyDestinationCountry = "destinationCountry"
	KeyCheckIn            = "checkIn"
	KeyCheckOut           = "checkOut"
	KeyRooms              = "rooms"
	KeyAdults             = "adults"
	KeyChildren           = "children"
	KeyChildrenAges       = "childrenAges"
)

var required = []string{KeyDestinationID, KeyCheckIn, KeyCheckOut, KeyRooms, KeyAdults, KeyChildren}

// ErrIncompleteLink is returned when a required parameter is missing.
var ErrIncompleteLink = errors.New("incomplete share link")

// ErrMalformedLink is returned when a parameter cannot be parsed.
var ErrMalformedLink = errors.New("malformed share link")

// Encode returns the link parameters for c.
func Encode(c types.Criteria) url.Values {
	v := url.Values{}
	v.Set(KeyDestinationID, strconv.Itoa(c.Destination.ID))
	v.Set(KeyDestinationName, c.Destination.Name)
	if c.Destination.Country.Name != "" {
		v.Set(KeyDestinationCountry, c.Destination.Country.Name)
	}
	v.Set(KeyCheckIn, c.CheckIn.Format(types.DateLayout))
	v.Set(KeyCheckOut, c.CheckOut.Format(types.DateLayout))
	v.Set(KeyRooms, strconv.Itoa(c.Occupancy.Rooms))
	v.Set(KeyAdults, strconv.Itoa(c.Occupancy.Adults))
	v.Set(KeyChildren, strconv.Itoa(c.Occupancy.Children))
	if c.Occupancy.Children > 0 {
		ages := make([]string, len(c.Occupancy.ChildAges))
		for i, a := range c.Occupancy.ChildAges {
			ages[i] = strconv.Itoa(a)
		}
		v.Set(KeyChildrenAges, strings.Join(ages, ","))
	}
	return v
}

// Decode parses link parameters. The result is not validated; missing child
// ages are padded with 0 and extra ones dropped. A child count outside
// [0, types.MaxChildren] is malformed.
func Decode(v url.Values) (types.Criteria, error) {
	var missing []string
	for _, k := range required {
		if v.Get(k) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return types.Criteria{}, fmt.Errorf("%w: missing %s", ErrIncompleteLink, strings.Join(missing, ", "))
	}

	var (
		c   types.Criteria
		err error
	)
	if c.Destination.ID, err = atoi(v, KeyDestinationID); err != nil {
		return types.Criteria{}, err
	}
	c.Destination.Name = v.Get(KeyDestinationName)
	c.Destination.Country.Name = v.Get(KeyDestinationCountry)

	if c.CheckIn, err = types.ParseDate(v.Get(KeyCheckIn)); err != nil {
		return types.Criteria{}, fmt.Errorf("%w: %s: %v", ErrMalformedLink, KeyCheckIn, err)
	}
	if c.CheckOut, err = types.ParseDate(v.Get(KeyCheckOut)); err != nil {
		return types.Criteria{}, fmt.Errorf("%w: %s: %v", ErrMalformedLink, KeyCheckOut, err)
	}

	var occ types.Occupancy
	if occ.Rooms, err = atoi(v, KeyRooms); err != nil {
		return types.Criteria{}, err
	}
	if occ.Adults, err = atoi(v, KeyAdults); err != nil {
		return types.Criteria{}, err
	}
	children, err := atoi(v, KeyChildren)
	if err != nil {
		return types.Criteria{}, err
	}
	if children < 0 || children > types.MaxChildren {
		return types.Criteria{}, fmt.Errorf("%w: %s: must be between 0 and %d", ErrMalformedLink, KeyChildren, types.MaxChildren)
	}
	if raw := v.Get(KeyChildrenAges); raw != "" && children > 0 {
		for _, part := range strings.Split(raw, ",") {
			if len(occ.ChildAges) == children {
				break
			}
			age, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return types.Criteria{}, fmt.Errorf("%w: %s: %v", ErrMalformedLink, KeyChildrenAges, err)
			}
			occ.ChildAges = append(occ.ChildAges, age)
		}
	}
	c.Occupancy = occ.WithChildren(children)

	return c, nil
}

func atoi(v url.Values, key string) (int, error) {
	n, err := strconv.Atoi(v.Get(key))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedLink, key, err)
	}
	return n, nil
}
