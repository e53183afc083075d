// Package availability computes bookable time slots for an advisor from
// recurring weekly working hours minus existing bookings, and validates
// proposed bookings against both. It performs no I/O of its own: working
// hours and booked intervals are supplied by collaborators behind the
// Calendar and BookingSource interfaces.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownResource means the resource has no working-hours configuration
// at all. A resource that is configured but closed on a given day yields
// zero windows, not this error.
var ErrUnknownResource = errors.New("availability: unknown resource")

// ErrInvalidRange covers malformed or over-long date ranges.
var ErrInvalidRange = errors.New("availability: invalid range")

// Rule is one recurring weekly availability window. Start and end are
// minutes since local midnight. A resource may carry several rules for the
// same weekday (split shifts).
type Rule struct {
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	Comment     string
}

const minutesPerDay = 24 * 60

func (r Rule) Validate() error {
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d", ErrInvalidRange, r.Weekday)
	}
	if r.StartMinute < 0 || r.EndMinute >= minutesPerDay || r.StartMinute >= r.EndMinute {
		return fmt.Errorf("%w: window %d-%d", ErrInvalidRange, r.StartMinute, r.EndMinute)
	}
	return nil
}

// Window is a concrete, dated interval. Half-open: [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Slot is a concrete bookable sub-interval offered to a caller. Slots are
// derived on every query and never persisted or cached.
type Slot struct {
	Resource string    `json:"advisor_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Booking is an interval already claimed by a pending or confirmed
// appointment. Cancelled bookings must not be reported by a BookingSource.
type Booking struct {
	ID       string
	Resource string
	Start    time.Time
	End      time.Time
}

// Calendar supplies the recurring weekly rules for a resource. It returns
// ErrUnknownResource when the resource has no configuration.
type Calendar interface {
	Rules(ctx context.Context, resourceID string) ([]Rule, error)
}

// BookingSource lists non-cancelled bookings touching [from, to) for a
// resource.
type BookingSource interface {
	BookedIntervals(ctx context.Context, resourceID string, from, to time.Time) ([]Booking, error)
}
