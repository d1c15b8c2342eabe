// TierDrop - Self-Hosted ZeroTier Controller Dashboard
// Copyright 2026 cinerieus
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinerieus/tierdrop

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router assembles the HTTP surface from the handler set and the
// middleware stack.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router. The middleware config's CORS origins also
// feed the websocket origin check.
func NewRouter(handler *Handler, config *MiddlewareConfig) *Router {
	if config == nil {
		config = DefaultMiddlewareConfig()
	}
	handler.allowedOrigins = config.CORSAllowedOrigins
	return &Router{
		handler:    handler,
		middleware: NewMiddleware(config),
	}
}

// Setup builds the chi route tree.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())
		r.Use(PrometheusMetrics)

		r.Get("/health", router.handler.Health)
		r.Get("/status", router.handler.Status)

		r.Get("/networks", router.handler.Networks)
		r.Post("/networks", router.handler.CreateNetwork)
		r.Route("/networks/{nwid}", func(r chi.Router) {
			r.Get("/", router.handler.NetworkByID)
			r.Post("/", router.handler.UpdateNetwork)
			r.Delete("/", router.handler.DeleteNetwork)

			r.Get("/members", router.handler.NetworkMembers)
			r.Post("/members", router.handler.AddMember)
			r.Post("/members/{memberID}", router.handler.UpdateMember)
			r.Delete("/members/{memberID}", router.handler.DeleteMember)
		})

		r.Get("/events", router.handler.Events)
		r.Get("/ws", router.handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
