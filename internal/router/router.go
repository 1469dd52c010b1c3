// Package router maps HTTP routes onto handlers and applies the
// middleware chains for each surface: public catalog browsing, gateway
// callbacks, authenticated customer operations and admin operations.
package router

import (
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/travel-reservation/internal/config"
    "github.com/iliyamo/travel-reservation/internal/handler"
    "github.com/iliyamo/travel-reservation/internal/middleware"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
    Auth     *handler.AuthHandler
    Resource *handler.ResourceHandler
    Checkout *handler.CheckoutHandler
    Payment  *handler.PaymentHandler
    Booking  *handler.BookingHandler
    Admin    *handler.AdminHandler
}

// Register wires all routes.  Gateway callback endpoints are mounted
// outside both the rate limiter and JWT auth: the gateway retries on
// non-200 answers and a throttled callback would delay settlement.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
    e.GET("/healthz", handler.Health)

    // Gateway IPN callbacks, no middleware by design.
    e.POST("/v1/payments/success", h.Payment.Success)
    e.POST("/v1/payments/fail", h.Payment.Fail)
    e.POST("/v1/payments/cancel", h.Payment.Cancel)

    limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    // Public catalog. Availability reads are cached briefly; the cache
    // is advisory just like the data it serves.
    pub := e.Group("/v1", limiter)
    pub.GET("/resources", h.Resource.List, cache)
    pub.GET("/resources/:id", h.Resource.Get, cache)
    pub.GET("/resources/:id/availability", h.Resource.Availability, cache)

    // Auth endpoints.
    pub.POST("/auth/register", h.Auth.Register)
    pub.POST("/auth/login", h.Auth.Login)

    // Authenticated customer surface.
    auth := e.Group("/v1", limiter, middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole("CUSTOMER", "ADMIN"))
    auth.GET("/me", h.Auth.Me)
    auth.POST("/checkout", h.Checkout.Checkout)
    auth.GET("/bookings", h.Booking.ListMine)
    auth.GET("/bookings/:reference", h.Booking.Get)
    auth.POST("/bookings/:reference/cancel", h.Booking.Cancel)

    // Admin surface.
    admin := e.Group("/v1/admin", limiter, middleware.JWTAuth(cfg.JWTSecret), middleware.RequireRole("ADMIN"))
    admin.POST("/resources", h.Admin.CreateResource)
    admin.GET("/resources", h.Admin.ListResources)
    admin.GET("/refunds", h.Admin.ListRefunds)
    admin.POST("/refunds/:id/resolve", h.Admin.ResolveRefund)
}
