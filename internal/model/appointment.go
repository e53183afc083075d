package model

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Appointment is a booked interval on an advisor's calendar. Cancellation is
// a soft status flip; the row is kept and the interval released.
type Appointment struct {
	ID            string
	AdvisorID     string
	AgencyID      string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	StartTime     time.Time
	EndTime       time.Time
	Status        string
	CancelledAt   *time.Time
	CancelReason  string
	CreatedAt     time.Time
}

// Blocks reports whether the appointment occupies its interval.
func (a Appointment) Blocks() bool {
	return a.Status != StatusCancelled
}
