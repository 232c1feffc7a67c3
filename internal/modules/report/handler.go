package report

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Handler exposes report HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/reports", func(r chi.Router) {
		r.Get("/stock-summary", h.stockSummary)     // GET /api/v1/reports/stock-summary?clinic_id=
		r.Get("/alert-summary", h.alertSummary)     // GET /api/v1/reports/alert-summary?clinic_id=
		r.Get("/recent-activity", h.recentActivity) // GET /api/v1/reports/recent-activity?clinic_id=&limit=50
	})
}

func (h *Handler) stockSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.StockSummary(r.Context(), r.URL.Query().Get("clinic_id"))
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, summary)
}

func (h *Handler) alertSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.AlertSummary(r.Context(), r.URL.Query().Get("clinic_id"))
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, counts)
}

func (h *Handler) recentActivity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.RecentActivity(r.Context(), r.URL.Query().Get("clinic_id"), limit)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, entries)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
