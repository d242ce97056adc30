package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Routes(m *Middleware, corsOrigins []string, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(m.RequestID)
	r.Use(m.RequestLogger)
	r.Use(m.Recoverer)
	r.Use(m.SecurityHeaders)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(m.CORS(corsOrigins))

	// Health endpoints
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	// Stored uploads
	r.Get("/uploads/{name}", h.ServeUpload)

	r.Route("/api", func(r chi.Router) {
		// Live updates are long-lived and must not be buffered
		if h.sseHandler != nil {
			r.Get("/events", h.HandleSSE)
		}
		if h.wsHub != nil {
			r.Get("/ws", h.HandleWebSocket)
		}

		// Uploads run without the request timeout
		r.Post("/entries/{id}/media", h.UploadMedia)

		r.Group(func(r chi.Router) {
			r.Use(m.Compress)
			r.Use(m.Timeout(15 * time.Second))

			r.Get("/categories", h.ListCategories)
			r.Post("/categories", h.CreateCategory)

			r.Get("/entries", h.ListEntries)
			r.Post("/entries", h.CreateEntry)
			r.Get("/entries/{id}", h.GetEntry)
			r.Patch("/entries/{id}", h.UpdateEntry)
			r.Delete("/entries/{id}", h.DeleteEntry)

			r.Get("/entries/{id}/comments", h.ListComments)
			r.Post("/entries/{id}/comments", h.CreateComment)
			r.Get("/entries/{id}/media", h.ListMedia)

			r.Delete("/comments/{id}", h.DeleteComment)
			r.Delete("/media/{id}", h.DeleteMedia)
		})
	})

	return r
}
