package transfer

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clinicore/medstock-backend/internal/modules/stock"
	"github.com/go-chi/chi/v5"
)

// Handler exposes stock request HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/stock-requests", func(r chi.Router) {
		r.Post("/", h.createRequest)              // POST /api/v1/stock-requests
		r.Get("/", h.listRequests)                // GET  /api/v1/stock-requests?status=PENDING
		r.Get("/{id}", h.getRequest)              // GET  /api/v1/stock-requests/{id}
		r.Post("/{id}/approve", h.approveRequest) // POST /api/v1/stock-requests/{id}/approve
		r.Post("/{id}/reject", h.rejectRequest)   // POST /api/v1/stock-requests/{id}/reject
		r.Post("/{id}/complete", h.completeRequest)
	})
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sr, err := h.service.CreateStockRequest(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, sr)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	sr, err := h.service.GetStockRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sr)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{
		RequesterClinicID:     q.Get("requester_clinic_id"),
		RequestedFromClinicID: q.Get("requested_from_clinic_id"),
		StockItemID:           q.Get("stock_item_id"),
		Status:                q.Get("status"),
	}
	requests, err := h.service.ListStockRequests(r.Context(), filters)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, requests)
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sr, err := h.service.ApproveStockRequest(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sr)
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sr, err := h.service.RejectStockRequest(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sr)
}

func (h *Handler) completeRequest(w http.ResponseWriter, r *http.Request) {
	var req CompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sr, err := h.service.CompleteStockRequest(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, sr)
}

func respondError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, stock.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, stock.ErrInsufficientStock),
		errors.Is(err, stock.ErrInactiveStock):
		code = http.StatusUnprocessableEntity
	}
	respond(w, code, map[string]string{"error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
