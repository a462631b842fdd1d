// Package orchestrator implements the Ingestion Orchestrator and Query
// Surface: the HTTP entry point that wraps every request in tenant
// resolution, runs anomaly detection and alert dispatch on the
// critical path, and launches Storage Fan-out and the sensor-data
// publish as detached background work (spec.md 4.7, 4.8).
package orchestrator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// Server is the HTTP API server for the ingestion and query surface.
type Server struct {
	deps   Dependencies
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewServer constructs a Server and registers its routes.
func NewServer(deps Dependencies, logger *slog.Logger) *Server {
	s := &Server{deps: deps, logger: logger, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /webhook/events", s.handleIngest)
	s.mux.HandleFunc("POST /data", s.handleIngest)

	s.mux.HandleFunc("GET /equipment", s.handleListEquipment)
	s.mux.HandleFunc("GET /equipment/{id}", s.handleEquipmentStatus)
	s.mux.HandleFunc("GET /equipment/{id}/metrics", s.handleEquipmentMetrics)
	s.mux.HandleFunc("GET /equipment/{id}/history", s.handleHistoricalKeys)

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ServeHTTP implements http.Handler, applying CORS to every response
// per spec.md 6 "CORS: Access-Control-Allow-Origin: * on every
// response."
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Tenant-ID, X-API-Key")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	start := time.Now()
	s.mux.ServeHTTP(w, r)
	s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, http.StatusOK, map[string]string{"status": "ok"}, "", nil)
}

func (s *Server) writeEnvelope(w http.ResponseWriter, status int, data any, errMsg string, details []string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := types.NewEnvelope(status >= 200 && status < 300, data, errMsg, details)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Error("encode response envelope failed", "error", err)
	}
}

func (s *Server) readJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return nil
}
