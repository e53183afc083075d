package availability

import (
	"context"
	"fmt"
	"time"
)

// Outcome classifies a booking attempt. Rejections are results, not errors:
// every one maps to a distinct user-facing message.
type Outcome int

const (
	Accepted Outcome = iota
	RejectedPast
	RejectedOutsideHours
	RejectedConflict
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case RejectedPast:
		return "rejected_past"
	case RejectedOutsideHours:
		return "rejected_outside_hours"
	case RejectedConflict:
		return "rejected_conflict"
	}
	return "unknown"
}

// Decision is the result of validating a proposed booking.
type Decision struct {
	Outcome Outcome
	Detail  string
}

func (d Decision) OK() bool { return d.Outcome == Accepted }

// Validator is the final server-side gate before a booking is persisted.
// Client-side calendar constraints are advisory only; every check here runs
// unconditionally.
type Validator struct {
	Calendar Calendar
	Bookings BookingSource

	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

// Validate checks a proposed booking in order: not in the past, fully inside
// the union of that weekday's working-hour windows, and not overlapping any
// existing non-cancelled booking.
func (v *Validator) Validate(ctx context.Context, resourceID string, start, end time.Time) (Decision, error) {
	return v.ValidateExcluding(ctx, resourceID, start, end, "")
}

// ValidateExcluding is Validate for edit-in-place: the booking identified by
// excludeID is ignored during the conflict check.
func (v *Validator) ValidateExcluding(ctx context.Context, resourceID string, start, end time.Time, excludeID string) (Decision, error) {
	if !end.After(start) {
		return Decision{}, fmt.Errorf("%w: end %s not after start %s", ErrInvalidRange, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	if start.Before(now) {
		return Decision{Outcome: RejectedPast, Detail: "requested time is in the past"}, nil
	}

	rules, err := v.Calendar.Rules(ctx, resourceID)
	if err != nil {
		return Decision{}, err
	}
	if !contained(windowsOn(rules, start), start, end) {
		return Decision{Outcome: RejectedOutsideHours, Detail: "requested time is outside working hours"}, nil
	}

	conflict, err := Checker{Source: v.Bookings}.HasConflict(ctx, resourceID, start, end, excludeID)
	if err != nil {
		return Decision{}, err
	}
	if conflict {
		return Decision{Outcome: RejectedConflict, Detail: "requested time overlaps an existing appointment"}, nil
	}

	return Decision{Outcome: Accepted}, nil
}

// contained reports whether [start, end] lies entirely within one of the
// merged windows. Windows arrive pre-merged, so union containment reduces to
// single-window containment.
func contained(windows []Window, start, end time.Time) bool {
	for _, w := range windows {
		if !start.Before(w.Start) && !end.After(w.End) {
			return true
		}
	}
	return false
}
