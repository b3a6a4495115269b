package api

import "net/http"

func (h *Handler) registerMetaRoutes(mux *http.ServeMux) {
	h.registerRoutes(mux, []routeBinding{
		{pattern: "GET /api/meta", handler: h.meta},
		{pattern: "GET /api/journal", handler: h.listJournal},
		{pattern: "GET /api/events", handler: h.streamEvents},
	})
	mux.Handle("GET /metrics", h.metrics.Handler())
}
