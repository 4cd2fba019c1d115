package handlers

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/wonny/stratfolio/internal/contracts"
	"github.com/wonny/stratfolio/internal/orchestrator"
	"github.com/wonny/stratfolio/internal/portfolio"
)

// Process builds PortfolioData from uploaded trade logs
// POST /api/process (multipart: files[], quantities JSON array, format, marginType, correlation)
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondError(w, http.StatusBadRequest, "No files provided")
		return
	}

	// quantities 누락분은 1 (normalizer 기본값)
	var quantities []int
	if raw := r.FormValue("quantities"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &quantities); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'quantities' (expected JSON array of integers)")
			return
		}
	}

	uploads := make([]orchestrator.Upload, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for i, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			h.logger.WithError(err).WithField("file", fh.Filename).Error("Failed to open upload")
			respondError(w, http.StatusBadRequest, "Failed to read upload "+fh.Filename)
			return
		}
		files = append(files, f)

		qty := 0
		if i < len(quantities) {
			qty = quantities[i]
		}
		uploads = append(uploads, orchestrator.Upload{Name: fh.Filename, Quantity: qty, Body: f})
	}

	data, err := h.orch.Process(r.Context(), orchestrator.ProcessRequest{
		Format:            r.FormValue("format"),
		Files:             uploads,
		MarginType:        r.FormValue("marginType"),
		CorrelationMethod: r.FormValue("correlation"),
	})
	if err != nil {
		h.fail(w, err, "process files")
		return
	}

	respondJSON(w, http.StatusOK, data)
}

// FilterRequest represents a date filter request
type FilterRequest struct {
	PortfolioData *contracts.PortfolioData `json:"portfolioData"`
	StartDate     string                   `json:"startDate"` // ISO; empty = open
	EndDate       string                   `json:"endDate"`   // ISO; date-only covers the whole day
	MarginType    string                   `json:"marginType"`
	Correlation   string                   `json:"correlation"`
}

// Filter rebuilds the portfolio over an exit-time window
// POST /api/filter
func (h *Handler) Filter(w http.ResponseWriter, r *http.Request) {
	var req FilterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PortfolioData == nil {
		respondError(w, http.StatusBadRequest, "Missing 'portfolioData'")
		return
	}

	rng, err := portfolio.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := h.orch.Filter(r.Context(), orchestrator.FilterRequest{
		Data:              req.PortfolioData,
		Range:             rng,
		MarginType:        req.MarginType,
		CorrelationMethod: req.Correlation,
	})
	if err != nil {
		h.fail(w, err, "filter portfolio")
		return
	}

	respondJSON(w, http.StatusOK, data)
}
