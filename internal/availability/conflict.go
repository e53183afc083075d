package availability

import (
	"context"
	"time"
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// The check is strict: touching endpoints do not overlap, so back-to-back
// bookings are allowed.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Checker answers conflict questions against a booking source.
type Checker struct {
	Source BookingSource
}

// Booked returns the non-cancelled bookings for a resource touching
// [from, to).
func (c Checker) Booked(ctx context.Context, resourceID string, from, to time.Time) ([]Booking, error) {
	return c.Source.BookedIntervals(ctx, resourceID, from, to)
}

// HasConflict reports whether the candidate interval overlaps any existing
// non-cancelled booking for the resource. excludeID ignores one booking,
// which lets an edit-in-place check skip the booking being modified; pass
// "" for new bookings.
func (c Checker) HasConflict(ctx context.Context, resourceID string, start, end time.Time, excludeID string) (bool, error) {
	existing, err := c.Source.BookedIntervals(ctx, resourceID, start, end)
	if err != nil {
		return false, err
	}
	for _, b := range existing {
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if Overlaps(start, end, b.Start, b.End) {
			return true, nil
		}
	}
	return false, nil
}
