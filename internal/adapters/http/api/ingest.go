package api

import (
	"errors"
	"net/http"

	"github.com/okian/smartart/internal/domain/ingest"
)

// IngestHandler handles the request/response ingress path.
type IngestHandler struct {
	deps Dependencies
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(deps Dependencies) *IngestHandler {
	return &IngestHandler{deps: deps}
}

// HandleSensor handles POST /sensor requests.
func (h *IngestHandler) HandleSensor(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, ingest.PathSensor)
}

// HandleMotion handles POST /motion requests.
func (h *IngestHandler) HandleMotion(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, ingest.PathMotion)
}

func (h *IngestHandler) submit(w http.ResponseWriter, r *http.Request, path string) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	err = h.deps.Submit(r.Context(), path, body)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, successResponse)
	case errors.Is(err, ingest.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case unavailable(err):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
