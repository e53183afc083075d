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
)

// ScheduleStore is what the schedule handler needs from persistence.
// *storage.ScheduleRepository satisfies it.
type ScheduleStore interface {
	Rules(ctx context.Context, advisorID string) ([]availability.Rule, error)
	ReplaceRules(ctx context.Context, advisorID string, rules []availability.Rule) error
}

type ScheduleHandler struct {
	store  ScheduleStore
	logger *slog.Logger
}

func NewScheduleHandler(store ScheduleStore, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{store: store, logger: logger}
}

type ruleItem struct {
	Weekday      int    `json:"weekday"`
	StartMinutes int    `json:"start_minutes"`
	EndMinutes   int    `json:"end_minutes"`
	Comment      string `json:"comment,omitempty"`
}

type workingHoursResponse struct {
	AdvisorID string     `json:"advisor_id"`
	Rules     []ruleItem `json:"rules"`
}

type replaceWorkingHoursRequest struct {
	AdvisorID string     `json:"advisor_id"`
	Rules     []ruleItem `json:"rules"`
}

// WorkingHours serves and replaces an advisor's recurring weekly schedule.
// PUT is a full replacement; partial edits are done by reading, modifying
// and writing back the whole rule set.
func (h *ScheduleHandler) WorkingHours(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.replace(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *ScheduleHandler) get(w http.ResponseWriter, r *http.Request) {
	advisorID := strings.TrimSpace(r.URL.Query().Get("advisor_id"))
	if advisorID == "" {
		http.Error(w, "advisor_id is required", http.StatusBadRequest)
		return
	}

	rules, err := h.store.Rules(r.Context(), advisorID)
	if err != nil {
		if errors.Is(err, availability.ErrUnknownResource) {
			http.Error(w, "advisor has no working hours configured", http.StatusNotFound)
			return
		}
		h.logger.Error("load working hours failed", "err", err, "advisor_id", advisorID)
		http.Error(w, "failed to load working hours", http.StatusInternalServerError)
		return
	}

	items := make([]ruleItem, 0, len(rules))
	for _, rule := range rules {
		items = append(items, ruleItem{
			Weekday:      int(rule.Weekday),
			StartMinutes: rule.StartMinute,
			EndMinutes:   rule.EndMinute,
			Comment:      rule.Comment,
		})
	}
	writeJSON(w, http.StatusOK, workingHoursResponse{AdvisorID: advisorID, Rules: items})
}

func (h *ScheduleHandler) replace(w http.ResponseWriter, r *http.Request) {
	var req replaceWorkingHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AdvisorID = strings.TrimSpace(req.AdvisorID)
	if req.AdvisorID == "" {
		http.Error(w, "advisor_id is required", http.StatusBadRequest)
		return
	}

	rules := make([]availability.Rule, 0, len(req.Rules))
	for i, item := range req.Rules {
		rule := availability.Rule{
			Weekday:     time.Weekday(item.Weekday),
			StartMinute: item.StartMinutes,
			EndMinute:   item.EndMinutes,
			Comment:     strings.TrimSpace(item.Comment),
		}
		if err := rule.Validate(); err != nil {
			h.logger.Warn("rejected working-hours rule", "err", err, "advisor_id", req.AdvisorID, "index", i)
			http.Error(w, "rules["+strconv.Itoa(i)+"]: "+err.Error(), http.StatusBadRequest)
			return
		}
		rules = append(rules, rule)
	}

	if err := h.store.ReplaceRules(r.Context(), req.AdvisorID, rules); err != nil {
		h.logger.Error("replace working hours failed", "err", err, "advisor_id", req.AdvisorID)
		http.Error(w, "failed to store working hours", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
