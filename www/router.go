// Package www serves the JSON + SSE API consumed by the courier PWA and
// the ops dashboard.
package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"couriertrack/engine"
)

type Handlers struct {
	engine   *engine.Engine
	sessions *sessions.CookieStore
	eventHub *EventHub
}

func NewRouter(eng *engine.Engine) (http.Handler, func()) {
	hub := NewEventHub()
	hub.Start()
	hub.SetupEngineListeners(eng)

	h := &Handlers{
		engine:   eng,
		sessions: newSessionStore(eng.AppConfig().Web.SessionSecret),
		eventHub: hub,
	}

	h.ensureDefaultAdmin(eng.DB())

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// SSE
	r.Get("/events", hub.SSEHandler)

	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)

	// Read endpoints, no auth required.
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.apiHealth)
		r.Get("/deliveries", h.apiDeliveries)
		r.Get("/orders/available", h.apiAvailableOrders)
		r.Get("/orders/{id}", h.apiGetOrder)
		r.Get("/orders/{id}/deviation", h.apiDeviation)
		r.Get("/orders/{id}/trail", h.apiTrail)
		r.Get("/queue", h.apiQueue)
	})

	// Mutating endpoints require a session.
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Post("/api/orders/{id}/accept", h.apiAccept)
		r.Post("/api/orders/{id}/pickup", h.apiPickup)
		r.Post("/api/orders/{id}/deliver", h.apiDeliver)
		r.Post("/api/position", h.apiPushPosition)
		r.Post("/api/queue/flush", h.apiFlushQueue)
	})

	stopFn := func() {
		hub.Stop()
	}

	return r, stopFn
}
