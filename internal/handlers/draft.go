package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/karimbh/advisorly/internal/draft"
)

// TokenHeader carries the opaque token that ties a booking wizard session
// to its server-side draft.
const TokenHeader = "X-Booking-Token"

// DraftStore is what the draft handler needs; *draft.Store satisfies it.
type DraftStore interface {
	Get(ctx context.Context, token string) (draft.Draft, bool, error)
	Put(ctx context.Context, d draft.Draft) error
	Delete(ctx context.Context, token string) error
}

type DraftHandler struct {
	store  DraftStore
	logger *slog.Logger
}

func NewDraftHandler(store DraftStore, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{store: store, logger: logger}
}

// Draft routes GET/PUT/DELETE on the booking draft. PUT without a token
// starts a new wizard session and returns the minted token in the response
// header as well as the body.
func (h *DraftHandler) Draft(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *DraftHandler) get(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.Header.Get(TokenHeader))
	if token == "" {
		http.Error(w, TokenHeader+" header is required", http.StatusBadRequest)
		return
	}

	d, ok, err := h.store.Get(r.Context(), token)
	if err != nil {
		h.logger.Error("load draft failed", "err", err)
		http.Error(w, "failed to load draft", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "draft not found or expired", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *DraftHandler) put(w http.ResponseWriter, r *http.Request) {
	var in draft.Draft
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	token := strings.TrimSpace(r.Header.Get(TokenHeader))

	var d draft.Draft
	if token == "" {
		token = uuid.NewString()
		d = draft.Draft{Token: token}
	} else {
		existing, ok, err := h.store.Get(ctx, token)
		if err != nil {
			h.logger.Error("load draft failed", "err", err)
			http.Error(w, "failed to load draft", http.StatusInternalServerError)
			return
		}
		if ok {
			d = existing
		} else {
			// Expired drafts restart cleanly under the same token.
			d = draft.Draft{Token: token}
		}
	}

	d.Merge(in)
	d.Token = token
	if err := h.store.Put(ctx, d); err != nil {
		h.logger.Error("store draft failed", "err", err)
		http.Error(w, "failed to store draft", http.StatusInternalServerError)
		return
	}

	w.Header().Set(TokenHeader, token)
	writeJSON(w, http.StatusOK, d)
}

func (h *DraftHandler) delete(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.Header.Get(TokenHeader))
	if token == "" {
		http.Error(w, TokenHeader+" header is required", http.StatusBadRequest)
		return
	}
	if err := h.store.Delete(r.Context(), token); err != nil {
		h.logger.Error("delete draft failed", "err", err)
		http.Error(w, "failed to delete draft", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
