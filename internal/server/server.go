// Package server exposes the gateway over HTTP: the /ws WebSocket endpoint
// and a /healthz readiness probe.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"sockgate/internal/gateway"
)

// DBPinger reports database reachability (e.g. *sql.DB). Used by /healthz.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// StorePinger reports revocation-store reachability. Used by /healthz.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// Deps holds the gateway collaborators the server dispatches through.
type Deps struct {
	// Authenticator classifies every new connection. Required.
	Authenticator *gateway.Authenticator
	// Gate guards individual events. Required.
	Gate *gateway.Gate
	// Limiter bounds per-identity event rates. Required.
	Limiter *gateway.Limiter
	// DB is pinged by /healthz when set.
	DB DBPinger
	// Store is pinged by /healthz when set.
	Store StorePinger
}

// Server serves the gateway's HTTP surface.
type Server struct {
	deps Deps
}

// New returns a Server over deps.
func New(deps Deps) *Server {
	return &Server{deps: deps}
}

// Routes returns the HTTP handler with all endpoints registered.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// handleHealth reports readiness: 200 when the database and revocation store
// (those that are configured) answer a ping, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(ctx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(ctx); err != nil {
			checks["revocation_store"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["revocation_store"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": http.StatusText(status),
		"checks": checks,
	})
}
