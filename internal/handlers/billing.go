package handlers

import (
	"net/http"
	"time"

	"github.com/amendes/orderdesk/internal/auth"
	"github.com/amendes/orderdesk/internal/httpx"
	"github.com/amendes/orderdesk/internal/models"
	"github.com/amendes/orderdesk/internal/subscription"
	"gorm.io/gorm"
)

// BillingHandler surfaces the subscription countdown and starts renewal
// checkout at the payment gateway.
type BillingHandler struct {
	DB       *gorm.DB
	Checkout subscription.CheckoutClient
}

func NewBillingHandler(db *gorm.DB, checkout subscription.CheckoutClient) *BillingHandler {
	return &BillingHandler{DB: db, Checkout: checkout}
}

// Status: GET /billing. Returns the countdown the dashboard banner renders.
func (h *BillingHandler) Status(w http.ResponseWriter, r *http.Request) {
	s, _ := auth.FromContext(r.Context())
	var tenant models.Tenant
	if err := h.DB.First(&tenant, "id = ?", s.TenantID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "tenant_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, subscription.Evaluate(&tenant, time.Now()))
}

// StartCheckout: POST /billing/checkout. Returns the gateway redirect URL.
func (h *BillingHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	if h.Checkout == nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "checkout_not_configured", nil)
		return
	}
	s, _ := auth.FromContext(r.Context())
	returnURL := r.URL.Query().Get("return_url")
	redirect, err := h.Checkout.CreateCheckout(r.Context(), s.TenantID, returnURL)
	if err != nil {
		httpx.JSONError(w, http.StatusBadGateway, "checkout_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"redirect_url": redirect})
}
