// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	service "github.com/okian/smartart/internal/app"
	"github.com/okian/smartart/internal/domain/ingest"
	"github.com/okian/smartart/internal/domain/model"
)

// maxBodyBytes caps request bodies; sensor payloads are a few fields.
const maxBodyBytes = 64 << 10

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Submit validates a sensor or motion body and publishes it on the bus.
	Submit(ctx context.Context, path string, payload []byte) error
	SubmitRating(ctx context.Context, in service.RatingInput) error

	// Read operations expose the live and persisted state.
	LatestVisual(ctx context.Context) (model.PersistedRecord, error)
	Snapshot(ctx context.Context) (model.SensorSnapshot, error)
	Blend(ctx context.Context) (model.BlendedVector, error)

	ReloadModel(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	ingestHandler *IngestHandler
	ratingHandler *RatingHandler
	stateHandler  *StateHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		ingestHandler: NewIngestHandler(deps),
		ratingHandler: NewRatingHandler(deps),
		stateHandler:  NewStateHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc(ingest.PathSensor, MetricsMiddleware(s.ingestHandler.HandleSensor, "sensor"))
	mux.HandleFunc(ingest.PathMotion, MetricsMiddleware(s.ingestHandler.HandleMotion, "motion"))
	mux.HandleFunc("/rate_visual", MetricsMiddleware(s.ratingHandler.HandleRateVisual, "rate_visual"))
	mux.HandleFunc("/latest_visual", MetricsMiddleware(s.ratingHandler.HandleLatestVisual, "latest_visual"))
	mux.HandleFunc("/state", MetricsMiddleware(s.stateHandler.HandleState, "state"))
	mux.HandleFunc("/blend", MetricsMiddleware(s.stateHandler.HandleBlend, "blend"))
	mux.HandleFunc("/model/reload", MetricsMiddleware(s.stateHandler.HandleReloadModel, "model_reload"))
}

type statusResponse struct {
	Status string `json:"status"`
}

var successResponse = statusResponse{Status: "success"}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
	return false
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return body, nil
}

// unavailable reports errors meaning the service cannot take requests right now.
func unavailable(err error) bool {
	return errors.Is(err, service.ErrNotStarted) || errors.Is(err, ingest.ErrClosed)
}
