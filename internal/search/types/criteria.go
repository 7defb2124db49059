package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the wire format of stay dates.
const DateLayout = "2006-01-02"

// MaxChildAge is the oldest age that still counts as a child.
const MaxChildAge = 17

// MaxChildren caps the number of children in one search.
const MaxChildren = 10

// ErrInvalidCriteria is returned when search criteria fail validation.
var ErrInvalidCriteria = errors.New("invalid search criteria")

// Occupancy describes who is staying.
type Occupancy struct {
	Rooms     int   `json:"rooms" validate:"min=1"`
	Adults    int   `json:"adults" validate:"min=1"`
	Children  int   `json:"children" validate:"min=0,max=10"`
	ChildAges []int `json:"childAges" validate:"dive,min=0,max=17"`
}

// WithChildren returns a copy with the child count set to n, clamped to
// [0, MaxChildren]. New children get age 0, surplus ages are dropped.
func (o Occupancy) WithChildren(n int) Occupancy {
	n = max(0, min(n, MaxChildren))
	ages := make([]int, n)
	copy(ages, o.ChildAges)
	o.Children = n
	o.ChildAges = ages
	return o
}

// Criteria is what the user searches for: where, when and who.
type Criteria struct {
	Destination Destination `json:"destination"`
	CheckIn     time.Time   `json:"checkIn" validate:"required"`
	CheckOut    time.Time   `json:"checkOut" validate:"required,gtfield=CheckIn"`
	Occupancy   Occupancy   `json:"occupancy"`
}

// Nights returns the number of nights between check-in and check-out.
func (c Criteria) Nights() int {
	return int(c.CheckOut.Sub(c.CheckIn).Hours() / 24)
}

// Clone returns a deep copy.
func (c Criteria) Clone() Criteria {
	if c.Occupancy.ChildAges != nil {
		c.Occupancy.ChildAges = append([]int(nil), c.Occupancy.ChildAges...)
	}
	return c
}

type criteriaJSON struct {
	Destination Destination `json:"destination"`
	CheckIn     string      `json:"checkIn"`
	CheckOut    string      `json:"checkOut"`
	Occupancy   Occupancy   `json:"occupancy"`
}

// MarshalJSON encodes stay dates as YYYY-MM-DD.
func (c Criteria) MarshalJSON() ([]byte, error) {
	return json.Marshal(criteriaJSON{
		Destination: c.Destination,
		CheckIn:     c.CheckIn.Format(DateLayout),
		CheckOut:    c.CheckOut.Format(DateLayout),
		Occupancy:   c.Occupancy,
	})
}

// UnmarshalJSON decodes stay dates from YYYY-MM-DD.
func (c *Criteria) UnmarshalJSON(data []byte) error {
	var raw criteriaJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	checkIn, err := ParseDate(raw.CheckIn)
	if err != nil {
		return fmt.Errorf("checkIn: %w", err)
	}
	checkOut, err := ParseDate(raw.CheckOut)
	if err != nil {
		return fmt.Errorf("checkOut: %w", err)
	}
	*c = Criteria{
		Destination: raw.Destination,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Occupancy:   raw.Occupancy,
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be in YYYY-MM-DD format")
	}
	return t, nil
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterStructValidation(occupancyStructLevel, Occupancy{})
}

func occupancyStructLevel(sl validator.StructLevel) {
	o := sl.Current().Interface().(Occupancy)
	if len(o.ChildAges) != o.Children {
		sl.ReportError(o.ChildAges, "childAges", "ChildAges", "agescount", "")
	}
}

// Validate checks the criteria invariants: a destination is chosen, check-out
// is after check-in, and there is one age per child.
func (c Criteria) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidCriteria, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	if fe.Namespace() == "Criteria.destination.id" {
		return "destination is required"
	}
	switch fe.Tag() {
	case "gtfield":
		return "checkOut must be after checkIn"
	case "agescount":
		return "childAges must have one entry per child"
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
