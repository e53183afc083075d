package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/karimbh/advisorly/internal/availability"
	"github.com/karimbh/advisorly/internal/model"
	"github.com/karimbh/advisorly/internal/outbox"
	"github.com/karimbh/advisorly/internal/storage"
)

// BookingStore is the persistence surface the booking handler needs.
// *storage.BookingRepository satisfies it.
type BookingStore interface {
	CreateConfirmed(ctx context.Context, appt *model.Appointment, evt outbox.Event) (string, error)
	CancelBooking(ctx context.Context, appointmentID, reason string, evt outbox.Event) (model.Appointment, error)
	GetByID(ctx context.Context, appointmentID string) (model.Appointment, error)
	Reschedule(ctx context.Context, appointmentID string, start, end time.Time, evt outbox.Event) (model.Appointment, error)
	ListByAdvisor(ctx context.Context, advisorID string, limit int) ([]model.Appointment, error)
}

type BookingHandler struct {
	generator *availability.Generator
	validator *availability.Validator
	store     BookingStore
	logger    *slog.Logger
}

func NewBookingHandler(generator *availability.Generator, validator *availability.Validator, store BookingStore, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		generator: generator,
		validator: validator,
		store:     store,
		logger:    logger,
	}
}

type slotItem struct {
	AdvisorID string `json:"advisor_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type createBookingRequest struct {
	AdvisorID     string `json:"advisor_id"`
	AgencyID      string `json:"agency_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

type createBookingResponse struct {
	AppointmentID string `json:"appointment_id"`
}

type rejectionResponse struct {
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

type rescheduleBookingRequest struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

type rescheduleBookingResponse struct {
	AppointmentID string `json:"appointment_id"`
	AdvisorID     string `json:"advisor_id"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
}

type cancelBookingRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

type cancelBookingResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at"`
}

type listAppointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	AdvisorID     string `json:"advisor_id"`
	AgencyID      string `json:"agency_id,omitempty"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// Slots serves the free slots for an advisor over a date range. This is the
// feed behind the booking calendar; slots are recomputed on every request.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	advisorID := strings.TrimSpace(r.URL.Query().Get("advisor_id"))
	if advisorID == "" {
		http.Error(w, "advisor_id is required", http.StatusBadRequest)
		return
	}

	from, err := parseTimestamp(r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	}
	to, err := parseTimestamp(r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	}

	granularity := time.Duration(0)
	if raw := strings.TrimSpace(r.URL.Query().Get("granularity_minutes")); raw != "" {
		mins, err := strconv.Atoi(raw)
		if err != nil || mins < 0 || mins > 8*60 {
			http.Error(w, "invalid granularity_minutes", http.StatusBadRequest)
			return
		}
		granularity = time.Duration(mins) * time.Minute
	}

	slots, err := h.generator.Slots(r.Context(), advisorID, from, to, granularity)
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrInvalidRange):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, availability.ErrUnknownResource):
			http.Error(w, "advisor has no working hours configured", http.StatusNotFound)
		default:
			h.logger.Error("slot generation failed", "err", err, "advisor_id", advisorID)
			http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		}
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			AdvisorID: s.Resource,
			StartTime: s.Start.UTC().Format(time.RFC3339),
			EndTime:   s.End.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Create validates the proposed booking server-side and persists it. The
// validator is the sole source of truth; whatever the calendar widget
// allowed client-side is re-checked here.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AdvisorID = strings.TrimSpace(req.AdvisorID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.AdvisorID == "" || req.CustomerName == "" {
		http.Error(w, "advisor_id and customer_name are required", http.StatusBadRequest)
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	decision, err := h.validator.Validate(ctx, req.AdvisorID, start, end)
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrInvalidRange):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, availability.ErrUnknownResource):
			http.Error(w, "advisor has no working hours configured", http.StatusNotFound)
		default:
			h.logger.Error("booking validation failed", "err", err, "advisor_id", req.AdvisorID)
			http.Error(w, "failed to validate booking", http.StatusInternalServerError)
		}
		return
	}
	if !decision.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, rejectionResponse{
			Reason: decision.Outcome.String(),
			Error:  decision.Detail,
		})
		return
	}

	appt := &model.Appointment{
		AdvisorID:     req.AdvisorID,
		AgencyID:      strings.TrimSpace(req.AgencyID),
		CustomerName:  req.CustomerName,
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		StartTime:     start,
		EndTime:       end,
		Status:        model.StatusConfirmed,
	}

	payload, err := json.Marshal(map[string]any{
		"advisor_id":     appt.AdvisorID,
		"agency_id":      appt.AgencyID,
		"customer_email": appt.CustomerEmail,
		"customer_phone": appt.CustomerPhone,
		"start_time":     appt.StartTime.UTC().Format(time.RFC3339),
		"end_time":       appt.EndTime.UTC().Format(time.RFC3339),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}

	id, err := h.store.CreateConfirmed(ctx, appt, outbox.Event{
		AggregateType: "appointment",
		EventType:     outbox.EventBookingConfirmed,
		Payload:       payload,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// The pre-check passed but a concurrent booking won the race;
			// the caller should re-validate, not retry the insert blindly.
			writeJSON(w, http.StatusConflict, rejectionResponse{
				Reason: "persistence_conflict",
				Error:  "time slot was booked concurrently",
			})
			return
		}
		h.logger.Error("booking insert failed", "err", err, "advisor_id", req.AdvisorID)
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, createBookingResponse{AppointmentID: id})
}

// Reschedule moves an existing appointment to a new time. Validation runs
// with the appointment's own interval excluded, so moving within or adjacent
// to its current time is legal; everything else is checked exactly like a
// fresh booking.
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req rescheduleBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusBadRequest)
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	appt, err := h.store.GetByID(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("load appointment failed", "err", err, "appointment_id", req.AppointmentID)
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if appt.Status == model.StatusCancelled {
		writeJSON(w, http.StatusConflict, rejectionResponse{
			Reason: "appointment_cancelled",
			Error:  "cancelled appointments cannot be rescheduled",
		})
		return
	}

	decision, err := h.validator.ValidateExcluding(ctx, appt.AdvisorID, start, end, appt.ID)
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrInvalidRange):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, availability.ErrUnknownResource):
			http.Error(w, "advisor has no working hours configured", http.StatusNotFound)
		default:
			h.logger.Error("reschedule validation failed", "err", err, "appointment_id", appt.ID)
			http.Error(w, "failed to validate reschedule", http.StatusInternalServerError)
		}
		return
	}
	if !decision.OK() {
		writeJSON(w, http.StatusUnprocessableEntity, rejectionResponse{
			Reason: decision.Outcome.String(),
			Error:  decision.Detail,
		})
		return
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"advisor_id":     appt.AdvisorID,
		"old_start_time": appt.StartTime.UTC().Format(time.RFC3339),
		"old_end_time":   appt.EndTime.UTC().Format(time.RFC3339),
		"start_time":     start.UTC().Format(time.RFC3339),
		"end_time":       end.UTC().Format(time.RFC3339),
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}

	updated, err := h.store.Reschedule(ctx, appt.ID, start, end, outbox.Event{
		AggregateType: "appointment",
		EventType:     outbox.EventBookingRescheduled,
		Payload:       payload,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrConflict):
			writeJSON(w, http.StatusConflict, rejectionResponse{
				Reason: "persistence_conflict",
				Error:  "time slot was booked concurrently",
			})
		case errors.Is(err, storage.ErrNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrCancelled):
			writeJSON(w, http.StatusConflict, rejectionResponse{
				Reason: "appointment_cancelled",
				Error:  "cancelled appointments cannot be rescheduled",
			})
		default:
			h.logger.Error("reschedule failed", "err", err, "appointment_id", appt.ID)
			http.Error(w, "failed to reschedule appointment", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, rescheduleBookingResponse{
		AppointmentID: updated.ID,
		AdvisorID:     updated.AdvisorID,
		StartTime:     updated.StartTime.UTC().Format(time.RFC3339),
		EndTime:       updated.EndTime.UTC().Format(time.RFC3339),
		Status:        updated.Status,
	})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id is required", http.StatusBadRequest)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id": req.AppointmentID,
		"reason":         req.Reason,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}

	appt, err := h.store.CancelBooking(r.Context(), req.AppointmentID, req.Reason, outbox.Event{
		AggregateType: "appointment",
		EventType:     outbox.EventBookingCancelled,
		Payload:       payload,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("cancel failed", "err", err, "appointment_id", req.AppointmentID)
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}

	resp := cancelBookingResponse{
		AppointmentID: appt.ID,
		Status:        appt.Status,
	}
	if appt.CancelledAt != nil {
		resp.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	advisorID := strings.TrimSpace(r.URL.Query().Get("advisor_id"))
	if advisorID == "" {
		http.Error(w, "advisor_id is required", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.store.ListByAdvisor(r.Context(), advisorID, limit)
	if err != nil {
		h.logger.Error("list appointments failed", "err", err, "advisor_id", advisorID)
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	items := make([]listAppointmentItem, 0, len(appts))
	for _, appt := range appts {
		item := listAppointmentItem{
			AppointmentID: appt.ID,
			AdvisorID:     appt.AdvisorID,
			AgencyID:      appt.AgencyID,
			StartTime:     appt.StartTime.UTC().Format(time.RFC3339),
			EndTime:       appt.EndTime.UTC().Format(time.RFC3339),
			Status:        appt.Status,
			CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if appt.CancelledAt != nil {
			item.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

// parseTimestamp accepts RFC3339 or a bare date, which is read as midnight
// UTC of that day.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.UTC)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
