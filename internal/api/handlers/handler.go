package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/stratfolio/internal/correlation"
	"github.com/wonny/stratfolio/internal/ingest"
	"github.com/wonny/stratfolio/internal/orchestrator"
	"github.com/wonny/stratfolio/internal/portfolio"
	"github.com/wonny/stratfolio/internal/risk"
	"github.com/wonny/stratfolio/pkg/logger"
)

// defaultMaxUpload multipart 업로드 기본 한도 (32MB)
const defaultMaxUpload = 32 << 20

// Handler handles portfolio analytics API endpoints
// ⭐ SSOT: HTTP → Orchestrator 변환은 이 패키지에서만
type Handler struct {
	orch      *orchestrator.Orchestrator
	maxUpload int64
	logger    *logger.Logger
}

// New creates a new handler
func New(orch *orchestrator.Orchestrator, maxUpload int64, log *logger.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		orch:      orch,
		maxUpload: maxUpload,
		logger:    log,
	}
}

// Test returns a liveness message
// GET /api/test
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"message": "Backend is running",
	})
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error    string      `json:"error"`
	Warnings interface{} `json:"warnings,omitempty"`
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidRequest),
		errors.Is(err, ingest.ErrUnknownFormat),
		errors.Is(err, correlation.ErrUnknownMethod),
		errors.Is(err, risk.ErrInvalidConfig),
		errors.Is(err, risk.ErrInvalidRemoval),
		errors.Is(err, portfolio.ErrNoFiles):
		return http.StatusBadRequest
	case errors.Is(err, portfolio.ErrNoTrades),
		errors.Is(err, risk.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// fail writes err; 5xx details stay in the log only
func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var we *orchestrator.WarningsError
	if errors.As(err, &we) && len(we.Warnings) > 0 {
		resp.Warnings = we.Warnings
	}

	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("op", op).Error("Request failed")
		resp.Error = "Failed to " + op
	} else {
		h.logger.WithError(err).WithField("op", op).Debug("Request rejected")
	}

	respondJSON(w, status, resp)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
