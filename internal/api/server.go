// Package api exposes the operator console over HTTP: container reads,
// entry updates, name-mapping CRUD, the live status stream and the audit
// export. Typed service failures are mapped to status codes here.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"overdesk/internal/audit"
	"overdesk/internal/db"
	"overdesk/internal/overrides"
)

// HTTPServer serves the console API.
type HTTPServer struct {
	httpServer  *http.Server
	service     *overrides.Service
	database    *db.DB
	exporter    *audit.Exporter
	authToken   string
	liveRefresh time.Duration
	logger      zerolog.Logger
}

// NewHTTPServer builds the console server. authToken guards /api routes;
// health endpoints stay open for probes.
func NewHTTPServer(
	addr string,
	service *overrides.Service,
	database *db.DB,
	exporter *audit.Exporter,
	authToken string,
	liveRefresh time.Duration,
	logger zerolog.Logger,
) *HTTPServer {
	if liveRefresh <= 0 {
		liveRefresh = 15 * time.Second
	}
	s := &HTTPServer{
		service:     service,
		database:    database,
		exporter:    exporter,
		authToken:   authToken,
		liveRefresh: liveRefresh,
		logger:      logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.withMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *HTTPServer) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/containers", s.handleListContainers)
	mux.HandleFunc("GET /api/containers/{id}", s.handleGetContainer)
	mux.HandleFunc("PUT /api/containers/{id}/entries/{name}", s.handleUpdateEntry)
	mux.HandleFunc("GET /api/containers/{id}/live", s.handleLive)

	mux.HandleFunc("GET /api/mappings", s.handleListMappings)
	mux.HandleFunc("PUT /api/mappings/{name}", s.handleUpsertMapping)
	mux.HandleFunc("PUT /api/mappings/{name}/engaged", s.handleSetMappingEngaged)
	mux.HandleFunc("DELETE /api/mappings/{name}", s.handleDeleteMapping)

	mux.HandleFunc("GET /api/audit", s.handleListAudit)
	mux.HandleFunc("GET /api/audit/export", s.handleAuditExport)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", s.handleReady)
}

// Run blocks and serves HTTP traffic.
func (s *HTTPServer) Run() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the full middleware-wrapped handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if err := s.database.PingContext(ctx); err != nil {
		http.Error(w, "db not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// withMiddleware stamps a request id, enforces the static console token on
// /api routes and writes one access-log line per request.
func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		if s.authToken != "" && isAPIPath(r.URL.Path) {
			if r.Header.Get("Authorization") != "Bearer "+s.authToken {
				writeError(w, http.StatusUnauthorized, "missing or invalid token")
				return
			}
		}

		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func isAPIPath(path string) bool {
	return len(path) >= 5 && path[:5] == "/api/"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
