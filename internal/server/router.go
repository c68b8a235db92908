package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amendes/orderdesk/internal/audit"
	"github.com/amendes/orderdesk/internal/auth"
	"github.com/amendes/orderdesk/internal/handlers"
	"github.com/amendes/orderdesk/internal/httpx"
	"github.com/amendes/orderdesk/internal/models"
	"github.com/amendes/orderdesk/internal/orders"
	"github.com/amendes/orderdesk/internal/subscription"
	"github.com/amendes/orderdesk/internal/trackcache"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

// Deps bundles what the router needs. Cache and Checkout may be nil.
type Deps struct {
	DB       *gorm.DB
	Orders   *orders.Service
	Cache    *trackcache.Cache
	Checkout subscription.CheckoutClient
}

// New constructs the root http.Handler with all routes and middlewares applied.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	r.Use(chimw.Timeout(15 * time.Second))
	r.Use(auth.Middleware)

	// Ensure a session still refers to an existing employee of that tenant.
	auth.SetVerifier(func(ctx context.Context, s auth.Session) bool {
		var count int64
		if err := d.DB.WithContext(ctx).Model(&models.Employee{}).
			Where("id = ? AND tenant_id = ?", s.EmployeeID, s.TenantID).
			Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := d.DB.Exec("SELECT 1").Error; err != nil {
			httpx.JSONError(w, http.StatusServiceUnavailable, "degraded", nil)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ah := handlers.NewAuthHandler(d.DB)
	oh := handlers.NewOrderHandler(d.Orders, d.Cache, audit.NewRecorder(d.DB))
	th := handlers.NewTrackingHandler(d.Orders, d.Cache)
	eh := handlers.NewEmployeeHandler(d.DB)
	bh := handlers.NewBillingHandler(d.DB, d.Checkout)

	// Public: login and customer-facing tracking. Tracking stays reachable
	// when a tenant's subscription lapses; it is read-only.
	r.Post("/login", ah.Login)
	r.Post("/logout", ah.Logout)
	r.Get("/t/{tenant}/track/{id}", th.Track)

	// Authenticated, read-only.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAuth)
		pr.Get("/orders", oh.List)
		pr.Get("/orders/{id}", oh.Get)
		pr.Post("/orders/{id}/duplicate", oh.Duplicate) // returns a draft, writes nothing
		pr.Get("/billing", bh.Status)
		pr.Post("/billing/checkout", bh.StartCheckout)
	})

	// Lifecycle writes: blocked when the tenant's subscription no longer
	// permits them.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAuth, requireWritableTenant(d.DB))
		pr.Post("/orders", oh.Create)
		pr.Post("/quotes", oh.CreateQuote)
		pr.Put("/orders/{id}", oh.Update)
		pr.Post("/orders/{id}/payments", oh.RecordPayment)
		pr.Post("/orders/{id}/convert", oh.Convert)
		pr.Post("/orders/{id}/status", oh.ChangeStatus)
	})

	// Admin-only lifecycle writes.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAdmin, requireWritableTenant(d.DB))
		pr.Delete("/orders/{id}", oh.Delete)
		pr.Delete("/orders/{id}/payments/{index}", oh.RemovePayment)
	})

	// Staff management is not a lifecycle write; admins can still fix
	// accounts while a renewal is pending.
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireAdmin)
		pr.Get("/employees", eh.List)
		pr.Post("/employees", eh.Create)
		pr.Put("/employees/{id}", eh.Update)
		pr.Delete("/employees/{id}", eh.Delete)
	})

	return r
}

// requireWritableTenant consults the subscription gate before letting a
// lifecycle write through. The countdown itself is advisory only; the block
// is driven by the externally-maintained status field.
func requireWritableTenant(db *gorm.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := auth.FromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			var tenant models.Tenant
			if err := db.WithContext(r.Context()).First(&tenant, "id = ?", s.TenantID).Error; err != nil {
				httpx.JSONError(w, http.StatusNotFound, "tenant_not_found", nil)
				return
			}
			if !subscription.CanWrite(tenant.SubscriptionStatus) {
				httpx.JSONError(w, http.StatusForbidden, "subscription_expired", map[string]string{
					"subscription_status": tenant.SubscriptionStatus,
				})
				return
			}
			if c := subscription.Evaluate(&tenant, time.Now()); c.Warn {
				w.Header().Set("X-Subscription-Expires-In", fmt.Sprintf("%dd", c.DaysRemaining))
			}
			next.ServeHTTP(w, r)
		})
	}
}
