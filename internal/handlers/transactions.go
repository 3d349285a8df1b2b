package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"budgetbuddy/internal/api"
	"budgetbuddy/internal/forms"
	"budgetbuddy/internal/predict"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// GetDraft handles GET /api/transactions/draft
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	if !h.signedIn() {
		respondError(w, http.StatusUnauthorized, api.MsgSessionExpired)
		return
	}
	respondJSON(w, http.StatusOK, h.draft.State())
}

// UpdateDraft handles POST /api/transactions/draft
func (h *Handler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	if !h.signedIn() {
		respondError(w, http.StatusUnauthorized, api.MsgSessionExpired)
		return
	}
	var fields predict.Fields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	state, err := h.draft.Set(fields)
	if err != nil {
		if errors.Is(err, predict.ErrClosed) {
			respondError(w, http.StatusServiceUnavailable, "Category suggestions are unavailable")
			return
		}
		respondError(w, http.StatusInternalServerError, forms.Message(err))
		return
	}
	respondJSON(w, http.StatusOK, state)
}
