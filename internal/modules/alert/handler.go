package alert

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes alert HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/alerts", func(r chi.Router) {
		r.Get("/", h.listAlerts)                // GET  /api/v1/alerts?status=ACTIVE&type=LOW_STOCK
		r.Post("/{id}/resolve", h.resolveAlert) // POST /api/v1/alerts/{id}/resolve
		r.Post("/{id}/dismiss", h.dismissAlert) // POST /api/v1/alerts/{id}/dismiss
		r.Post("/bulk/resolve", h.bulkResolve)  // POST /api/v1/alerts/bulk/resolve
		r.Post("/bulk/dismiss", h.bulkDismiss)  // POST /api/v1/alerts/bulk/dismiss
	})
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{
		StockItemID: q.Get("stock_item_id"),
		ClinicID:    q.Get("clinic_id"),
		Type:        q.Get("type"),
		Status:      q.Get("status"),
		Severity:    q.Get("severity"),
	}
	alerts, err := h.service.ListAlerts(r.Context(), filters)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, alerts)
}

func (h *Handler) resolveAlert(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	a, err := h.service.Resolve(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, a)
}

func (h *Handler) dismissAlert(w http.ResponseWriter, r *http.Request) {
	a, err := h.service.Dismiss(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, a)
}

func (h *Handler) bulkResolve(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, h.service.BulkResolve(r.Context(), req))
}

func (h *Handler) bulkDismiss(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, h.service.BulkDismiss(r.Context(), req))
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, ErrInvalidState):
		code = http.StatusUnprocessableEntity
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
