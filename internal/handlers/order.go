package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/amendes/orderdesk/internal/audit"
	"github.com/amendes/orderdesk/internal/auth"
	"github.com/amendes/orderdesk/internal/httpx"
	"github.com/amendes/orderdesk/internal/ledger"
	"github.com/amendes/orderdesk/internal/models"
	"github.com/amendes/orderdesk/internal/orders"
	"github.com/amendes/orderdesk/internal/trackcache"
	"github.com/go-chi/chi/v5"
)

// OrderHandler exposes the lifecycle operations as JSON endpoints. The tenant
// always comes from the session; it is never taken from the request body.
type OrderHandler struct {
	Svc   *orders.Service
	Cache *trackcache.Cache
	Audit *audit.Recorder
}

func NewOrderHandler(svc *orders.Service, cache *trackcache.Cache, rec *audit.Recorder) *OrderHandler {
	return &OrderHandler{Svc: svc, Cache: cache, Audit: rec}
}

func tenantFrom(r *http.Request) string {
	s, _ := auth.FromContext(r.Context())
	return s.TenantID
}

// writeOrderError maps lifecycle errors onto HTTP statuses. Storage errors
// surface as 500 without retry; everything else is a caller problem.
func writeOrderError(w http.ResponseWriter, err error) {
	var verr *orders.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Violations)
	case errors.Is(err, orders.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "order_not_found", nil)
	case errors.Is(err, orders.ErrNotAQuote):
		httpx.JSONError(w, http.StatusConflict, "not_a_quote", nil)
	case errors.Is(err, orders.ErrInsufficientBalance):
		httpx.JSONError(w, http.StatusConflict, "insufficient_remaining_balance", nil)
	case errors.Is(err, ledger.ErrIndexOutOfBounds):
		httpx.JSONError(w, http.StatusBadRequest, "payment_index_out_of_bounds", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "storage_error", nil)
	}
}

// List: GET /orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Svc.List(r.Context(), tenantFrom(r))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": list, "total": len(list)})
}

// Create: POST /orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "create", h.Svc.CreateOrder)
}

// CreateQuote: POST /quotes
func (h *OrderHandler) CreateQuote(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, "create_quote", h.Svc.CreateQuote)
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request, action string, fn func(ctx context.Context, tenantID string, in orders.Input) (*models.Order, error)) {
	var in orders.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	o, err := fn(r.Context(), tenantFrom(r), in)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.Audit.Record(r.Context(), o.ID, action, o.CustomerName)
	httpx.JSON(w, http.StatusCreated, o)
}

// Get: GET /orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Get(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

// Update: PUT /orders/{id}
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in orders.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	id := chi.URLParam(r, "id")
	o, err := h.Svc.UpdateOrder(r.Context(), tenantFrom(r), id, in)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.Cache.Invalidate(r.Context(), tenantFrom(r), id)
	h.Audit.Record(r.Context(), id, "update", o.CustomerName)
	httpx.JSON(w, http.StatusOK, o)
}

// Duplicate: POST /orders/{id}/duplicate. Returns an unsaved draft the
// client can edit and submit back through Create/CreateQuote.
func (h *OrderHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	o, err := h.Svc.Get(r.Context(), tenantFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.Svc.Duplicate(o))
}

// RecordPayment: POST /orders/{id}/payments
func (h *OrderHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
		Method string  `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	id := chi.URLParam(r, "id")
	o, err := h.Svc.RecordPayment(r.Context(), tenantFrom(r), id, req.Amount, req.Method)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.Cache.Invalidate(r.Context(), tenantFrom(r), id)
	h.Audit.Record(r.Context(), id, "payment", ledger.FormatAmount(req.Amount))
	httpx.JSON(w, http.StatusOK, o)
}

// RemovePayment: DELETE /orders/{id}/payments/{index}. Admin-only, enforced
// by the router.
func (h *OrderHandler) RemovePayment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_index", nil)
		return
	}
	id := chi.URLParam(r, "id")
	o, err := h.Svc.RemovePayment(r.Context(), tenantFrom(r), id, index)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.Cache.Invalidate(r.Context(), tenantFrom(r), id)
	h.Audit.Record(r.Context(), id, "remove_payment", strconv.Itoa(index))
	httpx.JSON(w, http.StatusOK, o)
}

// Convert: POST /orders/{id}/convert
func (h *OrderHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, err := h.Svc.ConvertQuoteToOrder(r.Context(), tenantFrom(r), id)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.Cache.Invalidate(r.Context(), tenantFrom(r), id)
	h.Audit.Record(r.Context(), id, "convert", "")
	httpx.JSON(w, http.StatusOK, o)
}

// ChangeStatus: POST /orders/{id}/status
func (h *OrderHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status   string `json:"status"`
		Location string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	id := chi.URLParam(r, "id")
	o, err := h.Svc.ChangeStatus(r.Context(), tenantFrom(r), id, models.Status(req.Status), req.Location)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.Cache.Invalidate(r.Context(), tenantFrom(r), id)
	h.Audit.Record(r.Context(), id, "status", req.Status)
	httpx.JSON(w, http.StatusOK, o)
}

// Delete: DELETE /orders/{id}. Admin-only, enforced by the router.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Svc.DeleteOrder(r.Context(), tenantFrom(r), id); err != nil {
		writeOrderError(w, err)
		return
	}
	h.Cache.Invalidate(r.Context(), tenantFrom(r), id)
	h.Audit.Record(r.Context(), id, "delete", "")
	httpx.JSON(w, http.StatusOK, map[string]string{"deleted": id})
}
