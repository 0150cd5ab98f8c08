package api

import (
	"errors"
	"net/http"

	service "github.com/okian/smartart/internal/app"
)

// RatingHandler handles rating submissions and the latest visual lookup.
type RatingHandler struct {
	deps Dependencies
}

// NewRatingHandler creates a new rating handler.
func NewRatingHandler(deps Dependencies) *RatingHandler {
	return &RatingHandler{deps: deps}
}

// HandleRateVisual handles POST /rate_visual requests.
func (h *RatingHandler) HandleRateVisual(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	in, err := service.DecodeRating(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	err = h.deps.SubmitRating(r.Context(), in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, successResponse)
	case unavailable(err):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// HandleLatestVisual handles GET /latest_visual requests.
// The response is the most recent unified snapshot, flattened.
func (h *RatingHandler) HandleLatestVisual(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	rec, err := h.deps.LatestVisual(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rec.Flatten())
	case errors.Is(err, service.ErrNoVisual):
		writeError(w, http.StatusNotFound, "not_found", err)
	case unavailable(err):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
