package availability

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// DefaultMaxRangeDays caps the span a single slot query may cover so the
// computation stays bounded regardless of caller input.
const DefaultMaxRangeDays = 90

// Generator produces the bookable slots for a resource over a date range by
// subtracting booked intervals from materialized working-hour windows.
type Generator struct {
	Calendar Calendar
	Bookings BookingSource

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time

	// MaxRangeDays overrides DefaultMaxRangeDays when positive.
	MaxRangeDays int
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

// Slots returns the free slots for the resource within [from, to).
//
// With granularity > 0 each remaining sub-window is chopped into
// granularity-sized slots and fragments shorter than one granularity unit
// are discarded. With granularity == 0 each remaining sub-window is returned
// whole, matching free-form calendar selection. Slots starting before now
// are never returned. Output is sorted ascending by start.
func (g *Generator) Slots(ctx context.Context, resourceID string, from, to time.Time, granularity time.Duration) ([]Slot, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to %s before from %s", ErrInvalidRange, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	maxDays := g.MaxRangeDays
	if maxDays <= 0 {
		maxDays = DefaultMaxRangeDays
	}
	if to.Sub(from) > time.Duration(maxDays)*24*time.Hour {
		return nil, fmt.Errorf("%w: range exceeds %d days", ErrInvalidRange, maxDays)
	}
	if granularity < 0 {
		return nil, fmt.Errorf("%w: negative granularity", ErrInvalidRange)
	}

	rules, err := g.Calendar.Rules(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	busy, err := g.Bookings.BookedIntervals(ctx, resourceID, from, to)
	if err != nil {
		return nil, err
	}

	now := g.now()
	slots := make([]Slot, 0)
	for day := startOfDay(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		for _, win := range windowsOn(rules, day) {
			win = clampWindow(win, from, to)
			if !win.End.After(win.Start) {
				continue
			}
			for _, free := range subtractBusy(win, busy) {
				slots = append(slots, chop(free, resourceID, granularity, now)...)
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].Start.Equal(slots[j].Start) {
			return slots[i].Start.Before(slots[j].Start)
		}
		return slots[i].Resource < slots[j].Resource
	})
	return slots, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func clampWindow(w Window, from, to time.Time) Window {
	if w.Start.Before(from) {
		w.Start = from
	}
	if w.End.After(to) {
		w.End = to
	}
	return w
}

// subtractBusy removes every booked interval from the window, possibly
// splitting it into several remaining sub-windows.
func subtractBusy(w Window, busy []Booking) []Window {
	free := []Window{w}
	for _, b := range busy {
		var next []Window
		for _, f := range free {
			if !Overlaps(f.Start, f.End, b.Start, b.End) {
				next = append(next, f)
				continue
			}
			if b.Start.After(f.Start) {
				next = append(next, Window{Start: f.Start, End: b.Start})
			}
			if b.End.Before(f.End) {
				next = append(next, Window{Start: b.End, End: f.End})
			}
		}
		free = next
	}
	return free
}

func chop(w Window, resourceID string, granularity time.Duration, now time.Time) []Slot {
	if granularity == 0 {
		if w.Start.Before(now) {
			w.Start = now
		}
		if !w.End.After(w.Start) {
			return nil
		}
		return []Slot{{Resource: resourceID, Start: w.Start, End: w.End}}
	}

	var out []Slot
	for t := w.Start; !t.Add(granularity).After(w.End); t = t.Add(granularity) {
		if t.Before(now) {
			continue
		}
		out = append(out, Slot{Resource: resourceID, Start: t, End: t.Add(granularity)})
	}
	return out
}
