// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/gestura/internal/app"
	"github.com/okian/gestura/internal/adapters/preview"
	"github.com/okian/gestura/internal/domain/augment"
	"github.com/okian/gestura/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RunDependencies
	ChainLister
	StatsProvider
	HealthChecker
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	catalogHandler *CatalogHandler
	runsHandler    *RunsHandler

	maxBodyBytes int64
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler(deps)
	s.catalogHandler = NewCatalogHandler(deps, deps)
	s.runsHandler = NewRunsHandler(deps, s.maxBodyBytes)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.catalogHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /chains", MetricsMiddleware(s.catalogHandler.HandleListChains, "chains"))
	mux.HandleFunc("GET /chains/{id}", MetricsMiddleware(s.catalogHandler.HandleGetChain, "chains_get"))

	mux.HandleFunc("POST /runs", MetricsMiddleware(s.runsHandler.HandleSubmit, "runs_submit"))
	mux.HandleFunc("GET /runs", MetricsMiddleware(s.runsHandler.HandleList, "runs_list"))
	mux.HandleFunc("GET /runs/{id}", MetricsMiddleware(s.runsHandler.HandleGet, "runs_get"))
	mux.HandleFunc("DELETE /runs/{id}", MetricsMiddleware(s.runsHandler.HandleCancel, "runs_cancel"))
	mux.HandleFunc("GET /runs/{id}/samples", MetricsMiddleware(s.runsHandler.HandleSamples, "runs_samples"))
	mux.HandleFunc("GET /runs/{id}/preview.png", MetricsMiddleware(s.runsHandler.HandlePreview, "runs_preview"))
}

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

// classify maps an upstream error to a status code and an error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, augment.ErrInvalidConfig):
		return http.StatusBadRequest, "invalid_config"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, preview.ErrNothingToPlot):
		return http.StatusNotFound, "nothing_to_plot"
	case errors.Is(err, service.ErrNotReady):
		return http.StatusConflict, "not_ready"
	case errors.Is(err, service.ErrAlreadyFinished), errors.Is(err, ErrConflict):
		return http.StatusConflict, "already_finished"
	case errors.Is(err, service.ErrBackpressure), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// fail writes err tagged with op, using the status derived from its kind.
func fail(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	var kind error
	switch status {
	case http.StatusBadRequest:
		kind = ErrBadRequest
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusConflict:
		kind = ErrConflict
	case http.StatusTooManyRequests:
		kind = ErrBackpressure
	case http.StatusServiceUnavailable:
		kind = ErrUnavailable
	default:
		kind = ErrInternal
	}
	writeError(w, status, code, WrapKind(op, kind, err))
}
