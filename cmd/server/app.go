package main

import (
	"net/http"

	"github.com/amendes/orderdesk/internal/config"
	"github.com/amendes/orderdesk/internal/orders"
	"github.com/amendes/orderdesk/internal/server"
	"github.com/amendes/orderdesk/internal/subscription"
	"github.com/amendes/orderdesk/internal/trackcache"
	"gorm.io/gorm"
)

// NewApp assembles the application handler from configuration. Kept separate
// from main so end-to-end tests can build the same stack on a test database.
func NewApp(dbConn *gorm.DB, cfg config.Config) http.Handler {
	repo := orders.NewGormRepository(dbConn)
	svc := orders.NewService(repo, cfg.Location())
	cache := trackcache.New(cfg.RedisAddr)

	var checkout subscription.CheckoutClient
	if cfg.CheckoutURL != "" {
		checkout = subscription.NewHTTPCheckoutClient(cfg.CheckoutURL)
	}

	return server.New(server.Deps{
		DB:       dbConn,
		Orders:   svc,
		Cache:    cache,
		Checkout: checkout,
	})
}
