package server

import (
	"net/http"
	"strings"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Agents
	mux.HandleFunc("/api/agents/", s.routeAgents)
}

// routeAgents dispatches /api/agents/{tenant}/{action} requests.
func (s *Server) routeAgents(w http.ResponseWriter, r *http.Request) {
	tenant := PathParam(r, "/api/agents/", "")
	if tenant == "" {
		WriteError(w, http.StatusBadRequest, "Tenant is required")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/agents/"+tenant)
	switch rest {
	case "/start":
		s.handleAgentStart(w, r, tenant)
	case "/stop":
		s.handleAgentStop(w, r, tenant)
	case "", "/", "/status":
		s.handleAgentStatus(w, r, tenant)
	case "/portfolio":
		s.handlePortfolio(w, r, tenant)
	case "/trades":
		s.handleTrades(w, r, tenant)
	case "/events":
		s.handleEvents(w, r, tenant)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}
