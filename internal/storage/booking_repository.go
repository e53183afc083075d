package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/karimbh/advisorly/internal/availability"
	"github.com/karimbh/advisorly/internal/model"
	"github.com/karimbh/advisorly/internal/outbox"
	"github.com/karimbh/advisorly/libs/db"
)

// ErrConflict means an insert lost the race against a concurrent booking:
// the exclusion constraint on (advisor_id, interval) rejected the row even
// though the pre-check passed.
var ErrConflict = errors.New("storage: conflicting appointment")

var ErrNotFound = errors.New("storage: not found")

// ErrCancelled means the operation targets an appointment that has already
// been cancelled.
var ErrCancelled = errors.New("storage: appointment cancelled")

type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo}
}

// BookedIntervals implements availability.BookingSource. Cancelled
// appointments do not block.
func (r *BookingRepository) BookedIntervals(ctx context.Context, advisorID string, from, to time.Time) ([]availability.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, advisor_id, start_time, end_time
		FROM appointments
		WHERE advisor_id = $1
			AND status <> 'cancelled'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, advisorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Booking
	for rows.Next() {
		var b availability.Booking
		if err := rows.Scan(&b.ID, &b.Resource, &b.Start, &b.End); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateConfirmed inserts the appointment and its outbox event in one
// transaction. The exclusion constraint guarantees at most one of two
// concurrent conflicting attempts commits; the loser gets ErrConflict.
func (r *BookingRepository) CreateConfirmed(ctx context.Context, appt *model.Appointment, evt outbox.Event) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO appointments
			(id, advisor_id, agency_id, customer_name, customer_email, customer_phone, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, appt.AdvisorID, appt.AgencyID, appt.CustomerName, appt.CustomerEmail, appt.CustomerPhone,
		appt.StartTime, appt.EndTime, appt.Status)
	if err != nil {
		if isExclusionViolation(err) {
			return "", fmt.Errorf("%w: %s", ErrConflict, appt.AdvisorID)
		}
		return "", err
	}

	evt.AggregateID = id
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return "", err
	}
	if err := tx.Commit(ctx); err != nil {
		if isExclusionViolation(err) {
			return "", fmt.Errorf("%w: %s", ErrConflict, appt.AdvisorID)
		}
		return "", err
	}
	return id, nil
}

// CancelBooking soft-cancels an appointment and records the cancellation
// event. Cancelling an already-cancelled appointment is idempotent.
func (r *BookingRepository) CancelBooking(ctx context.Context, appointmentID, reason string, evt outbox.Event) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := r.getForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, fmt.Errorf("%w: appointment %s", ErrNotFound, appointmentID)
		}
		return model.Appointment{}, err
	}
	if appt.Status == model.StatusCancelled {
		return appt, nil
	}

	var cancelledAt time.Time
	err = tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = now(),
			cancellation_reason = $2
		WHERE id = $1
		RETURNING cancelled_at
	`, appointmentID, reason).Scan(&cancelledAt)
	if err != nil {
		return model.Appointment{}, err
	}

	evt.AggregateID = appointmentID
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}

	appt.Status = model.StatusCancelled
	appt.CancelledAt = &cancelledAt
	appt.CancelReason = reason
	return appt, nil
}

func (r *BookingRepository) ListByAdvisor(ctx context.Context, advisorID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, advisor_id, agency_id, customer_name, customer_email, customer_phone,
			start_time, end_time, status, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		WHERE advisor_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, advisorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		var cancelledAt *time.Time
		if err := rows.Scan(
			&appt.ID,
			&appt.AdvisorID,
			&appt.AgencyID,
			&appt.CustomerName,
			&appt.CustomerEmail,
			&appt.CustomerPhone,
			&appt.StartTime,
			&appt.EndTime,
			&appt.Status,
			&cancelledAt,
			&appt.CancelReason,
			&appt.CreatedAt,
		); err != nil {
			return nil, err
		}
		appt.CancelledAt = cancelledAt
		out = append(out, appt)
	}
	return out, rows.Err()
}

// GetByID loads a single appointment.
func (r *BookingRepository) GetByID(ctx context.Context, appointmentID string) (model.Appointment, error) {
	var appt model.Appointment
	var cancelledAt *time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, advisor_id, agency_id, customer_name, customer_email, customer_phone,
			start_time, end_time, status, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		WHERE id = $1
	`, appointmentID).Scan(
		&appt.ID,
		&appt.AdvisorID,
		&appt.AgencyID,
		&appt.CustomerName,
		&appt.CustomerEmail,
		&appt.CustomerPhone,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Status,
		&cancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, fmt.Errorf("%w: appointment %s", ErrNotFound, appointmentID)
		}
		return model.Appointment{}, err
	}
	appt.CancelledAt = cancelledAt
	return appt, nil
}

// Reschedule moves an active appointment to a new interval and records the
// reschedule event in the same transaction. The exclusion constraint
// backstops the validator here exactly as it does on create: an update that
// would overlap another active appointment gets ErrConflict.
func (r *BookingRepository) Reschedule(ctx context.Context, appointmentID string, start, end time.Time, evt outbox.Event) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := r.getForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appointment{}, fmt.Errorf("%w: appointment %s", ErrNotFound, appointmentID)
		}
		return model.Appointment{}, err
	}
	if appt.Status == model.StatusCancelled {
		return model.Appointment{}, fmt.Errorf("%w: appointment %s", ErrCancelled, appointmentID)
	}

	_, err = tx.Exec(ctx, `
		UPDATE appointments
		SET start_time = $2, end_time = $3
		WHERE id = $1
	`, appointmentID, start, end)
	if err != nil {
		if isExclusionViolation(err) {
			return model.Appointment{}, fmt.Errorf("%w: %s", ErrConflict, appt.AdvisorID)
		}
		return model.Appointment{}, err
	}

	evt.AggregateID = appointmentID
	if err := r.outbox.Insert(ctx, tx, evt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		if isExclusionViolation(err) {
			return model.Appointment{}, fmt.Errorf("%w: %s", ErrConflict, appt.AdvisorID)
		}
		return model.Appointment{}, err
	}

	appt.StartTime = start
	appt.EndTime = end
	return appt, nil
}

func (r *BookingRepository) getForUpdate(ctx context.Context, tx pgx.Tx, appointmentID string) (model.Appointment, error) {
	var appt model.Appointment
	var cancelledAt *time.Time
	err := tx.QueryRow(ctx, `
		SELECT id::text, advisor_id, agency_id, customer_name, customer_email, customer_phone,
			start_time, end_time, status, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, appointmentID).Scan(
		&appt.ID,
		&appt.AdvisorID,
		&appt.AgencyID,
		&appt.CustomerName,
		&appt.CustomerEmail,
		&appt.CustomerPhone,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Status,
		&cancelledAt,
		&appt.CancelReason,
		&appt.CreatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.CancelledAt = cancelledAt
	return appt, nil
}

// 23P01 is exclusion_violation: the appointments_no_overlap constraint.
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
