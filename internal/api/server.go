// Package api provides the HTTP server exposing the reward engine core to
// external collaborators ("Reference HTTP surface"): event
// intake, claim settlement, and read-only snapshots.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finova-network/reward-engine/internal/app/intake"
	"github.com/finova-network/reward-engine/internal/domain"
)

// Server is the reward engine HTTP API server: a chi.Router wrapped in a
// struct holding the three domain boundary interfaces plus the Intake
// service, which owns the social-activity dedup/sequencing path ahead of
// domain.EventSink.
type Server struct {
	events         domain.EventSink
	claims         domain.ClaimSink
	snapshots      domain.SnapshotReader
	intake         *intake.Service
	metricsEnabled bool
}

// NewServer constructs an API server over the core's boundary interfaces
// and the intake service that fronts IngestSocialActivity.
func NewServer(events domain.EventSink, claims domain.ClaimSink, snapshots domain.SnapshotReader, intakeSvc *intake.Service) *Server {
	return &Server{events: events, claims: claims, snapshots: snapshots, intake: intakeSvc}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", s.handleEvents)
		r.Post("/claims", s.handleClaims)
		r.Get("/users/{id}", s.handleUserSnapshot)
		r.Get("/network", s.handleNetworkState)
		r.Get("/dead-letters", s.handleDeadLetters)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
		},
	})
}

// statusFor maps a domain error to the HTTP status a REST client expects,
// falling back to 500 for anything not explicitly classified.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrMalformedEvent),
		errors.Is(err, domain.ErrEventTooFarFuture),
		errors.Is(err, domain.ErrStaleEvent),
		errors.Is(err, domain.ErrInsufficientStake):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// withTimeout bounds a handler's work to 10 seconds on top of the request
// context, shorter than the Timeout middleware's 30-second deadline.
func withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 10*time.Second)
}

// corsMiddleware adds permissive CORS headers for local development and
// same-origin dashboards.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
