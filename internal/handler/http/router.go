package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

const serviceName = "storefront"

// Handlers groups the API handlers mounted by NewRouter.
type Handlers struct {
	Retail    *CartHandler
	Wholesale *CartHandler
	Checkout  *CheckoutHandler
	Session   *SessionHandler
}

// RouterConfig holds the router settings.
type RouterConfig struct {
	CORSOrigin string
	// Enrich adds the customer identity to each request context before the
	// request-scoped logger is built.
	Enrich middleware.Enricher
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(h Handlers, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	var enrichers []middleware.Enricher
	if cfg.Enrich != nil {
		enrichers = append(enrichers, cfg.Enrich)
	}

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger, enrichers...))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.CORSOrigin != "" {
			r.Use(CORS(cfg.CORSOrigin))
		}
		r.Use(ContentTypeJSON)

		r.Route("/cart", func(r chi.Router) {
			mountCart(r, h.Retail)
		})

		r.Route("/wholesale/cart", func(r chi.Router) {
			mountCart(r, h.Wholesale)
			r.Post("/discount", h.Wholesale.ApplyDiscount)
			r.Post("/notes", h.Wholesale.AddNotes)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.Checkout.GetState)
			r.Post("/next", h.Checkout.Next)
			r.Post("/back", h.Checkout.Back)
			r.Post("/shipping", h.Checkout.CalculateShipping)
			r.Post("/orders", h.Checkout.CreateOrder)
			r.Post("/payment-session", h.Checkout.CreatePaymentSession)
			r.Post("/widget", h.Checkout.PrepareWidget)
			r.Post("/widget/result", h.Checkout.HandleWidgetResult)
			r.Post("/confirm", h.Checkout.ConfirmOrder)
			r.Post("/verify", h.Checkout.VerifyPayment)
			r.Get("/payment-methods", h.Checkout.PaymentMethods)
			r.Put("/payment-method", h.Checkout.SetPaymentMethod)
			r.Put("/notes", h.Checkout.SetNotes)
			r.Delete("/error", h.Checkout.DismissError)
			r.Post("/reset", h.Checkout.Reset)
		})

		r.Route("/session", func(r chi.Router) {
			r.Post("/login", h.Session.Login)
			r.Post("/logout", h.Session.Logout)
		})
	})

	return r
}

func mountCart(r chi.Router, h *CartHandler) {
	r.Get("/", h.GetCart)
	r.Delete("/", h.ClearCart)
	r.Post("/load", h.LoadCart)
	r.Post("/sync", h.SyncCart)

	r.Post("/items", h.AddItem)
	r.Get("/items/{productId}", h.GetItemQuantity)
	r.Put("/items/{productId}", h.UpdateItemQuantity)
	r.Delete("/items/{productId}", h.RemoveItem)

	r.Post("/gifts", h.AddGift)
	r.Delete("/gifts/{giftId}", h.RemoveGift)
}
