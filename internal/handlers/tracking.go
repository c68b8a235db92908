package handlers

import (
	"net/http"

	"github.com/amendes/orderdesk/internal/httpx"
	"github.com/amendes/orderdesk/internal/models"
	"github.com/amendes/orderdesk/internal/orders"
	"github.com/amendes/orderdesk/internal/trackcache"
	"github.com/go-chi/chi/v5"
)

// TrackingHandler serves the public customer-facing lookup. No session is
// required and no write is possible, so it stays available when the tenant's
// subscription lapses.
type TrackingHandler struct {
	Svc   *orders.Service
	Cache *trackcache.Cache
}

func NewTrackingHandler(svc *orders.Service, cache *trackcache.Cache) *TrackingHandler {
	return &TrackingHandler{Svc: svc, Cache: cache}
}

// trackingView trims an order down to what a customer should see. Internal
// notes, prices per item, and production metadata stay private.
type trackingView struct {
	ID            string               `json:"id"`
	CustomerName  string               `json:"customer_name"`
	CurrentStatus models.Status        `json:"current_status"`
	DownPayment   float64              `json:"down_payment"`
	Total         float64              `json:"total"`
	PaymentMethod string               `json:"payment_method"`
	Timeline      []models.StatusEvent `json:"timeline"`
}

func viewOf(o *models.Order) trackingView {
	return trackingView{
		ID:            o.ID,
		CustomerName:  o.CustomerName,
		CurrentStatus: o.CurrentStatus,
		DownPayment:   o.DownPayment,
		Total:         o.Total(),
		PaymentMethod: o.PaymentMethod,
		Timeline:      o.Timeline,
	}
}

// Track: GET /t/{tenant}/track/{id}
func (h *TrackingHandler) Track(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant")
	id := chi.URLParam(r, "id")
	if o := h.Cache.Get(r.Context(), tenantID, id); o != nil {
		httpx.JSON(w, http.StatusOK, viewOf(o))
		return
	}
	o, err := h.Svc.Get(r.Context(), tenantID, id)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	h.Cache.Put(r.Context(), o)
	httpx.JSON(w, http.StatusOK, viewOf(o))
}
