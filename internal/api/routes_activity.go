package api

import "net/http"

func (h *Handler) registerActivityRoutes(mux *http.ServeMux) {
	h.registerRoutes(mux, []routeBinding{
		{pattern: "GET /activities", handler: h.listActivities},
		{pattern: "POST /activities/{name}/signup", handler: h.signup},
		{pattern: "DELETE /activities/{name}/unregister", handler: h.unregister},
	})
}
