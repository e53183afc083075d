package availability

import (
	"context"
	"errors"
	"testing"
	"time"
)

func mondayValidator(bookings ...Booking) *Validator {
	return &Validator{
		Calendar: &memCalendar{rules: map[string][]Rule{
			"adv-1": {{Weekday: time.Monday, StartMinute: 8 * 60, EndMinute: 12 * 60}},
		}},
		Bookings: &memBookings{bookings: bookings},
		Now:      func() time.Time { return monday.AddDate(0, 0, -7) },
	}
}

func TestValidate_Accepted(t *testing.T) {
	v := mondayValidator()
	d, err := v.Validate(context.Background(), "adv-1", at(monday, 10, 0), at(monday, 10, 30))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !d.OK() {
		t.Fatalf("expected accepted, got %s (%s)", d.Outcome, d.Detail)
	}
}

func TestValidate_RejectedPast(t *testing.T) {
	v := mondayValidator()
	v.Now = func() time.Time { return at(monday, 11, 0) }

	d, err := v.Validate(context.Background(), "adv-1", at(monday, 10, 0), at(monday, 10, 30))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if d.Outcome != RejectedPast {
		t.Fatalf("expected RejectedPast, got %s", d.Outcome)
	}
}

func TestValidate_RejectedOutsideHours(t *testing.T) {
	v := mondayValidator()
	ctx := context.Background()

	// Before opening.
	d, err := v.Validate(ctx, "adv-1", at(monday, 7, 30), at(monday, 8, 0))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if d.Outcome != RejectedOutsideHours {
		t.Fatalf("expected RejectedOutsideHours, got %s", d.Outcome)
	}

	// Straddling closing.
	d, err = v.Validate(ctx, "adv-1", at(monday, 11, 45), at(monday, 12, 15))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if d.Outcome != RejectedOutsideHours {
		t.Fatalf("expected RejectedOutsideHours, got %s", d.Outcome)
	}

	// Closed weekday.
	tuesday := monday.AddDate(0, 0, 1)
	d, err = v.Validate(ctx, "adv-1", at(tuesday, 10, 0), at(tuesday, 10, 30))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if d.Outcome != RejectedOutsideHours {
		t.Fatalf("expected RejectedOutsideHours on closed day, got %s", d.Outcome)
	}
}

func TestValidate_ExactWindowBoundariesAccepted(t *testing.T) {
	v := mondayValidator()
	d, err := v.Validate(context.Background(), "adv-1", at(monday, 8, 0), at(monday, 12, 0))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !d.OK() {
		t.Fatalf("booking the whole window must be accepted, got %s", d.Outcome)
	}
}

func TestValidate_RejectedConflict(t *testing.T) {
	v := mondayValidator(Booking{
		ID: "b1", Resource: "adv-1", Start: at(monday, 9, 0), End: at(monday, 9, 30),
	})
	d, err := v.Validate(context.Background(), "adv-1", at(monday, 9, 0), at(monday, 9, 30))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if d.Outcome != RejectedConflict {
		t.Fatalf("expected RejectedConflict, got %s", d.Outcome)
	}
}

func TestValidate_BackToBackAccepted(t *testing.T) {
	v := mondayValidator(Booking{
		ID: "b1", Resource: "adv-1", Start: at(monday, 9, 0), End: at(monday, 9, 30),
	})
	d, err := v.Validate(context.Background(), "adv-1", at(monday, 9, 30), at(monday, 10, 0))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !d.OK() {
		t.Fatalf("back-to-back booking must be accepted, got %s", d.Outcome)
	}
}

func TestValidate_SplitShiftUnion(t *testing.T) {
	v := &Validator{
		Calendar: &memCalendar{rules: map[string][]Rule{
			"adv-1": {
				{Weekday: time.Monday, StartMinute: 8 * 60, EndMinute: 10 * 60},
				{Weekday: time.Monday, StartMinute: 10 * 60, EndMinute: 12 * 60},
			},
		}},
		Bookings: &memBookings{},
		Now:      func() time.Time { return monday.AddDate(0, 0, -7) },
	}

	// A booking spanning the touching rules is inside the union.
	d, err := v.Validate(context.Background(), "adv-1", at(monday, 9, 30), at(monday, 10, 30))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !d.OK() {
		t.Fatalf("expected accepted across adjacent rule boundary, got %s", d.Outcome)
	}
}

func TestValidate_ExcludingOwnBooking(t *testing.T) {
	v := mondayValidator(Booking{
		ID: "b1", Resource: "adv-1", Start: at(monday, 9, 0), End: at(monday, 9, 30),
	})
	d, err := v.ValidateExcluding(context.Background(), "adv-1", at(monday, 9, 15), at(monday, 9, 45), "b1")
	if err != nil {
		t.Fatalf("ValidateExcluding: %v", err)
	}
	if !d.OK() {
		t.Fatalf("edit-in-place must ignore its own interval, got %s", d.Outcome)
	}
}

func TestValidate_MalformedInterval(t *testing.T) {
	v := mondayValidator()
	_, err := v.Validate(context.Background(), "adv-1", at(monday, 10, 0), at(monday, 10, 0))
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for empty interval, got %v", err)
	}
}

func TestValidate_UnknownResource(t *testing.T) {
	v := mondayValidator()
	_, err := v.Validate(context.Background(), "nobody", at(monday, 10, 0), at(monday, 10, 30))
	if !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}
}
