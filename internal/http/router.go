package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robertarktes/ticket-checkout/internal/observability"
)

// SetupRouter builds the service routes. rl and idemp may be nil, which
// disables rate limiting and idempotent replay on /checkout.
func SetupRouter(h *Handlers, logger observability.Logger, rl Limiter, idemp IdempotencyStore, checkoutRate int) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)

	r.Group(func(r chi.Router) {
		if rl != nil {
			r.Use(RateLimitMiddleware(rl, checkoutRate, logger))
		}
		if idemp != nil {
			r.Use(IdempotencyMiddleware(idemp, logger))
		}
		r.Post("/checkout", h.Checkout)
	})

	r.Get("/download-ticket", h.DownloadTicket)
	r.Get("/smtp-check", h.SmtpCheck)
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
