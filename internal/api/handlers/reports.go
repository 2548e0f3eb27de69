package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Genius-apple/open-alpha/internal/metrics"
	"github.com/Genius-apple/open-alpha/internal/report"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

// SaveReportRequest is the body of POST /api/reports. Result carries
// the full evaluate response so reports replay without recomputing.
type SaveReportRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Expression  string          `json:"expression"`
	Result      json.RawMessage `json:"result" validate:"required"`
}

// ReportHandler persists and ranks saved factor reports
type ReportHandler struct {
	store  report.Store
	ranker *report.Ranker
	logger *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(store report.Store, ranker *report.Ranker, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		store:  store,
		ranker: ranker,
		logger: log,
	}
}

// Save stores one evaluate result under a new report id
// POST /api/reports
func (h *ReportHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	rep := report.New(req.Name, req.Description, req.Expression, req.Result)
	if err := h.store.Save(r.Context(), rep); err != nil {
		h.logger.WithError(err).Error("Failed to save report")
		respondError(w, http.StatusInternalServerError, "Failed to save report")
		return
	}

	metrics.RecordReportSaved()
	respondJSON(w, http.StatusOK, map[string]string{
		"id":      rep.ID,
		"message": "Report saved",
	})
}

// List returns report summaries sorted by a metric
// GET /api/reports?sort_by=score
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	sortBy := r.URL.Query().Get("sort_by")

	summaries, err := h.ranker.List(r.Context(), sortBy)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list reports")
		respondError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"reports": summaries})
}

// Get returns one full report
// GET /api/reports/{id}
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rep, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Report not found")
			return
		}
		h.logger.WithError(err).WithField("report_id", id).Error("Failed to load report")
		respondError(w, http.StatusInternalServerError, "Failed to load report")
		return
	}

	respondJSON(w, http.StatusOK, rep)
}

// Delete removes one report
// DELETE /api/reports/{id}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, report.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Report not found")
			return
		}
		h.logger.WithError(err).WithField("report_id", id).Error("Failed to delete report")
		respondError(w, http.StatusInternalServerError, "Failed to delete report")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Report deleted"})
}

// Rankings returns the top reports by a metric with pre-limit total
// GET /api/rankings?sort_by=score&limit=20
func (h *ReportHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortBy := q.Get("sort_by")

	limit := report.DefaultRankingLimit
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	rankings, total, err := h.ranker.Rankings(r.Context(), sortBy, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to rank reports")
		respondError(w, http.StatusInternalServerError, "Failed to rank reports")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rankings": rankings,
		"total":    total,
	})
}
