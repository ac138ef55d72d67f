package app

import (
	"net/http"
	"time"

	"secretburner/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterConfig carries the middleware knobs the router needs.
type RouterConfig struct {
	RequireHTTPS bool
	RateLimiter  *RateLimiterMiddleware
}

func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(SecurityHeaders(SecurityHeadersConfig{RequireHTTPS: cfg.RequireHTTPS}))
	r.Use(ContentLengthValidator(domain.MaxRequestBodySize))

	r.Get("/health", h.HandleHealth)

	r.Group(func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Handler)
		}
		r.Route("/api", func(r chi.Router) {
			r.Route("/secret", func(r chi.Router) {
				r.Post("/", h.HandleStoreSecret)
				r.Post("/retrieve", h.HandleRetrieveSecret)
				r.Post("/check", h.HandleCheckSecret)
			})
			r.Route("/request", func(r chi.Router) {
				r.Post("/", h.HandleStoreRequest)
				r.Post("/retrieve", h.HandleClaimFulfilment)
				r.Post("/fulfil", h.HandleFulfilRequest)
			})
			r.Route("/verify", func(r chi.Router) {
				r.Post("/", h.HandleConfirmCode)
				r.Post("/request", h.HandleRequestVerification)
			})
		})
	})

	return r
}
