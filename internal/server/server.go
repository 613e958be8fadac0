// Package server exposes the HTTP ingestion and analytics surface:
// POST /track accepts one event per request, GET /analytics serves the
// aggregation read path, GET /health reports liveness.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/statmill/statmill/internal/aggregate"
	"github.com/statmill/statmill/internal/httputil"
	"github.com/statmill/statmill/internal/logger"
	"github.com/statmill/statmill/internal/store"
)

// Server wraps the HTTP handlers for event ingestion and analytics queries.
type Server struct {
	store      store.EventStore
	aggregator *aggregate.Aggregator
}

// NewServer creates a new server with the given event store.
func NewServer(eventStore store.EventStore) *Server {
	return &Server{
		store:      eventStore,
		aggregator: aggregate.NewAggregator(eventStore),
	}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler(log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/track", s.handleTrack)
	mux.HandleFunc("/analytics", s.handleAnalytics)

	requestLogging := logger.NewHTTPRequests(log)
	clientIP := httputil.ClientIPMiddleware()

	return requestLogging(clientIP(mux))
}

// errorResponse is the JSON body returned for 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
