package reservation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	nightLength            = 24 * time.Hour
	MaxSpecialRequestsSize = 500
)

var (
	ErrInvalidStay            = errors.New("check-in date must be before check-out date")
	ErrInvalidAdults          = errors.New("at least one adult is required")
	ErrInvalidChildren        = errors.New("children cannot be negative")
	ErrSpecialRequestsTooLong = errors.New("special requests are too long (max 500 characters)")
)

// Stay is the half-open occupancy interval [start, end).
type Stay struct {
	start time.Time
	end   time.Time
}

func NewStay(start, end time.Time) (Stay, error) {
	if !start.Before(end) {
		return Stay{}, ErrInvalidStay
	}
	return Stay{start: start, end: end}, nil
}

func (s Stay) Start() time.Time {
	return s.start
}

func (s Stay) End() time.Time {
	return s.end
}

// Nights counts any started day as a full night.
func (s Stay) Nights() int64 {
	d := s.end.Sub(s.start)
	n := int64(d / nightLength)
	if d%nightLength != 0 {
		n++
	}
	return n
}

func (s Stay) Overlaps(other Stay) bool {
	return s.start.Before(other.end) && s.end.After(other.start)
}

func (s Stay) ToTstzrange() string {
	return fmt.Sprintf("[%s,%s)", s.start.Format(time.RFC3339), s.end.Format(time.RFC3339))
}

type Occupants struct {
	adults   int
	children int
}

func NewOccupants(adults, children int) (Occupants, error) {
	if adults < 1 {
		return Occupants{}, ErrInvalidAdults
	}
	if children < 0 {
		return Occupants{}, ErrInvalidChildren
	}
	return Occupants{adults: adults, children: children}, nil
}

func (o Occupants) Adults() int   { return o.adults }
func (o Occupants) Children() int { return o.children }
func (o Occupants) Total() int    { return o.adults + o.children }

type SpecialRequests struct {
	value string
}

func NewSpecialRequests(value string) (SpecialRequests, error) {
	value = strings.TrimSpace(value)
	if utf8.RuneCountInString(value) > MaxSpecialRequestsSize {
		return SpecialRequests{}, ErrSpecialRequestsTooLong
	}
	return SpecialRequests{value: value}, nil
}

func (n SpecialRequests) String() string {
	return n.value
}

func (n SpecialRequests) IsEmpty() bool {
	return n.value == ""
}
