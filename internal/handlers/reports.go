package handlers

import (
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"

	"budgetbuddy/internal/reports"
)

// GenerateReport handles GET /reports
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	if !h.signedIn() {
		h.redirectLogin(w, r, "")
		return
	}
	saved, err := h.reports.Download(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.failMutation(w, r, "/dashboard?menu="+MenuOverview, err, "Failed to generate report.")
		return
	}
	sendFile(w, saved.Name, saved.ContentType, saved.Data)
}

// SummaryPDF handles GET /reports/summary.pdf
func (h *Handler) SummaryPDF(w http.ResponseWriter, r *http.Request) {
	view, err := h.currentView(r)
	if err != nil {
		h.failMutation(w, r, "/dashboard?menu="+MenuOverview, err, "Failed to build summary.")
		return
	}
	now := h.now()
	data, err := reports.BuildSummaryPDF(view, now)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to render summary pdf")
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}
	sendFile(w, reports.SummaryFileName(now), "application/pdf", data)
}

// SavedReport handles GET /reports/files/{name}
func (h *Handler) SavedReport(w http.ResponseWriter, r *http.Request) {
	if !h.signedIn() {
		h.redirectLogin(w, r, "")
		return
	}
	name := chi.URLParam(r, "name")
	path, err := h.reports.Path(name)
	if err != nil {
		http.Error(w, "Invalid report name", http.StatusBadRequest)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}
	sendFile(w, name, "application/pdf", data)
}

func sendFile(w http.ResponseWriter, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
