package request

import (
	"strings"
	"time"

	"tourism-booking/internal/usecase/commands"

	"github.com/google/uuid"
)

// Dates accept either a calendar date (2006-01-02) or an RFC 3339 timestamp.
type CreateReservationRequest struct {
	StartDate       string  `json:"startDate" binding:"required"`
	EndDate         string  `json:"endDate" binding:"required"`
	Adults          int     `json:"adults" binding:"required,min=1"`
	Children        int     `json:"children" binding:"min=0"`
	SpecialRequests *string `json:"specialRequests,omitempty" binding:"omitempty,max=500"`
}

func (r CreateReservationRequest) ToInput(resourceID, userID uuid.UUID) (commands.ReserveInput, error) {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return commands.ReserveInput{}, err
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return commands.ReserveInput{}, err
	}

	in := commands.ReserveInput{
		ResourceID: resourceID,
		UserID:     userID,
		Start:      start,
		End:        end,
		Adults:     r.Adults,
		Children:   r.Children,
	}
	if r.SpecialRequests != nil {
		in.SpecialRequests = strings.TrimSpace(*r.SpecialRequests)
	}
	return in, nil
}

type CancelReservationRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type QuoteQuery struct {
	Start string `form:"start" binding:"required"`
	End   string `form:"end" binding:"required"`
}

func (q QuoteQuery) Range() (time.Time, time.Time, error) {
	start, err := ParseDate(q.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDate(q.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// ParseDate reads bare dates as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
