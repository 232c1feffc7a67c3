package stock

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Handler exposes stock HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/stocks", func(r chi.Router) {
		r.Post("/", h.createStock)                    // POST   /api/v1/stocks
		r.Get("/", h.listStock)                       // GET    /api/v1/stocks?clinic_id=&category=&active=true
		r.Get("/{id}", h.getStock)                    // GET    /api/v1/stocks/{id}
		r.Post("/{id}/adjust", h.adjustStock)         // POST   /api/v1/stocks/{id}/adjust
		r.Post("/{id}/use", h.useStock)               // POST   /api/v1/stocks/{id}/use
		r.Post("/{id}/deactivate", h.deactivateStock) // POST   /api/v1/stocks/{id}/deactivate
		r.Post("/{id}/reactivate", h.reactivateStock) // POST   /api/v1/stocks/{id}/reactivate
		r.Delete("/{id}", h.deleteStock)              // DELETE /api/v1/stocks/{id}
		r.Get("/{id}/operations", h.listOperations)   // GET    /api/v1/stocks/{id}/operations?limit=50
	})
}

func (h *Handler) createStock(w http.ResponseWriter, r *http.Request) {
	var req CreateStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	item, err := h.service.CreateStock(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, item)
}

func (h *Handler) getStock(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetStock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, item)
}

func (h *Handler) listStock(w http.ResponseWriter, r *http.Request) {
	filters := ListFilters{
		ClinicID:   r.URL.Query().Get("clinic_id"),
		Category:   r.URL.Query().Get("category"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	items, err := h.service.ListStock(r.Context(), filters)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	item, err := h.service.AdjustStock(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, item)
}

func (h *Handler) useStock(w http.ResponseWriter, r *http.Request) {
	var req UseStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	item, err := h.service.UseStock(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, item)
}

func (h *Handler) deactivateStock(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeactivateStock(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "stock item deactivated"})
}

func (h *Handler) reactivateStock(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ReactivateStock(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"status": "stock item reactivated"})
}

func (h *Handler) deleteStock(w http.ResponseWriter, r *http.Request) {
	deactivated, err := h.service.DeleteStock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	status := "stock item deleted"
	if deactivated {
		status = "stock item has ledger history and was deactivated instead"
	}
	respond(w, http.StatusOK, map[string]string{"status": status})
}

func (h *Handler) listOperations(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ops, err := h.service.ListOperations(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, ops)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, ErrInsufficientStock),
		errors.Is(err, ErrInactiveStock),
		errors.Is(err, ErrHasOpenRequests):
		code = http.StatusUnprocessableEntity
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
