package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bobmcallan/argus/internal/common"
	"github.com/bobmcallan/argus/internal/models"
)

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": common.GetVersion(),
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"full":    common.GetFullVersion(),
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}

// handleAgentStart handles POST /api/agents/{tenant}/start.
func (s *Server) handleAgentStart(w http.ResponseWriter, r *http.Request, tenant string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.app.AgentService.Start(r.Context(), tenant); err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"tenant": tenant, "status": "started"})
}

// handleAgentStop handles POST /api/agents/{tenant}/stop.
func (s *Server) handleAgentStop(w http.ResponseWriter, r *http.Request, tenant string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.app.AgentService.Stop(r.Context(), tenant); err != nil {
		WriteError(w, http.StatusConflict, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"tenant": tenant, "status": "stopped"})
}

// handleAgentStatus handles GET /api/agents/{tenant}/status.
func (s *Server) handleAgentStatus(w http.ResponseWriter, r *http.Request, tenant string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status, err := s.app.AgentService.GetStatus(r.Context(), tenant)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, status)
}

// initPortfolioRequest is the body of POST /api/agents/{tenant}/portfolio.
type initPortfolioRequest struct {
	CashBalance   float64          `json:"cash_balance"`
	RiskTolerance string           `json:"risk_tolerance"`
	Holdings      []models.Holding `json:"holdings"`
}

// handlePortfolio handles GET and POST /api/agents/{tenant}/portfolio.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request, tenant string) {
	switch r.Method {
	case http.MethodGet:
		portfolio, err := s.app.AgentService.GetPortfolio(r.Context(), tenant)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if portfolio == nil {
			WriteError(w, http.StatusNotFound, "No portfolio configured for tenant '"+tenant+"'")
			return
		}
		WriteJSON(w, http.StatusOK, portfolio)

	case http.MethodPost:
		var req initPortfolioRequest
		if !DecodeJSON(w, r, &req) {
			return
		}
		if req.CashBalance < 0 {
			WriteError(w, http.StatusBadRequest, "Cash balance cannot be negative")
			return
		}
		for _, h := range req.Holdings {
			if h.Ticker == "" || h.Shares < 0 || h.AvgPrice < 0 {
				WriteError(w, http.StatusBadRequest, "Invalid holding")
				return
			}
		}

		tolerance := models.ParseRiskTolerance(req.RiskTolerance)
		if err := s.app.Store.InitPortfolio(r.Context(), tenant, req.CashBalance, tolerance, req.Holdings); err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}

		portfolio, err := s.app.Store.GetPortfolio(r.Context(), tenant)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusCreated, portfolio)

	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleTrades handles GET /api/agents/{tenant}/trades?limit=N.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request, tenant string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	trades, err := s.app.AgentService.GetTrades(r.Context(), tenant, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if trades == nil {
		trades = []*models.Trade{}
	}
	WriteJSON(w, http.StatusOK, trades)
}
