package handlers

import (
	"errors"
	"net/http"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/risk"
)

// MonteCarloRequest represents a Monte Carlo request; zero fields use defaults
type MonteCarloRequest struct {
	PortfolioData   *contracts.PortfolioData `json:"portfolioData"`
	NumSimulations  int                      `json:"numSimulations"`
	Timeframe       string                   `json:"timeframe"`
	Method          string                   `json:"method"`
	Seed            int64                    `json:"seed"`
	StartingCapital float64                  `json:"startingCapital"`
}

// Config converts the request into a simulator config
func (req MonteCarloRequest) Config() (risk.MonteCarloConfig, error) {
	cfg := risk.DefaultMonteCarloConfig()
	cfg.StartingCapital = 0 // orchestrator fills from engine config

	if req.NumSimulations != 0 {
		cfg.NumSimulations = req.NumSimulations
	}
	tf, err := risk.ParseTimeframe(req.Timeframe)
	if err != nil {
		return cfg, err
	}
	method, err := risk.ParseMethod(req.Method)
	if err != nil {
		return cfg, err
	}
	cfg.Timeframe = tf
	cfg.Method = method
	cfg.Seed = req.Seed
	if req.StartingCapital != 0 {
		cfg.StartingCapital = req.StartingCapital
	}
	return cfg, nil
}

// MonteCarlo runs the simulation synchronously
// POST /api/montecarlo
func (h *Handler) MonteCarlo(w http.ResponseWriter, r *http.Request) {
	var req MonteCarloRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	cfg, err := req.Config()
	if err != nil {
		h.fail(w, err, "run monte carlo")
		return
	}

	result, err := h.orch.MonteCarlo(r.Context(), req.PortfolioData, cfg)
	if err != nil {
		if errors.Is(err, risk.ErrSimulationCancelled) {
			// client went away
			h.logger.WithField("completed", completedRuns(result)).Info("Monte Carlo request cancelled")
			return
		}
		h.fail(w, err, "run monte carlo")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// StressRequest represents a stress test request
type StressRequest struct {
	PortfolioData     *contracts.PortfolioData `json:"portfolioData"`
	RemovalPercentage float64                  `json:"removalPercentage"`
	MarginType        string                   `json:"marginType"`
}

// Stress removes the top winners and recomputes
// POST /api/stress
func (h *Handler) Stress(w http.ResponseWriter, r *http.Request) {
	var req StressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.orch.Stress(r.Context(), req.PortfolioData, req.RemovalPercentage, req.MarginType)
	if err != nil {
		h.fail(w, err, "run stress test")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// MarginsResponse represents the resolved rate table
type MarginsResponse struct {
	MarginType string             `json:"marginType"`
	Rates      map[string]float64 `json:"rates"`
}

// Margins returns per-symbol margin rates
// GET /api/margins?type=overnight
func (h *Handler) Margins(w http.ResponseWriter, r *http.Request) {
	mt, rates, err := h.orch.Margins(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.fail(w, err, "load margin rates")
		return
	}

	respondJSON(w, http.StatusOK, MarginsResponse{MarginType: string(mt), Rates: rates})
}

func completedRuns(result *risk.MonteCarloResult) int {
	if result == nil {
		return 0
	}
	return result.CompletedSimulations
}
