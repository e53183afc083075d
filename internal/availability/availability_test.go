package availability

import (
	"context"
	"time"
)

// memCalendar and memBookings are in-memory collaborators for tests.

type memCalendar struct {
	rules map[string][]Rule
}

func (c *memCalendar) Rules(_ context.Context, resourceID string) ([]Rule, error) {
	rules, ok := c.rules[resourceID]
	if !ok {
		return nil, ErrUnknownResource
	}
	return rules, nil
}

type memBookings struct {
	bookings []Booking
}

func (b *memBookings) BookedIntervals(_ context.Context, resourceID string, from, to time.Time) ([]Booking, error) {
	var out []Booking
	for _, bk := range b.bookings {
		if bk.Resource != resourceID {
			continue
		}
		if Overlaps(bk.Start, bk.End, from, to) {
			out = append(out, bk)
		}
	}
	return out, nil
}

// monday is 2026-01-05, a Monday.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}
