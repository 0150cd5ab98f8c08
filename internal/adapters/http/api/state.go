package api

import (
	"errors"
	"net/http"

	"github.com/okian/smartart/internal/domain/scoring"
)

// StateHandler exposes the live snapshot and the blended vector.
type StateHandler struct {
	deps Dependencies
}

// NewStateHandler creates a new state handler.
func NewStateHandler(deps Dependencies) *StateHandler {
	return &StateHandler{deps: deps}
}

// HandleState handles GET /state requests.
func (h *StateHandler) HandleState(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	snap, err := h.deps.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleBlend handles GET /blend requests.
func (h *StateHandler) HandleBlend(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	out, err := h.deps.Blend(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleReloadModel handles POST /model/reload requests.
func (h *StateHandler) HandleReloadModel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	err := h.deps.ReloadModel(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, successResponse)
	case errors.Is(err, scoring.ErrModelUnavailable):
		writeError(w, http.StatusConflict, "model_unavailable", err)
	default:
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	}
}
