package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes mounts the API under /api next to the index, health and metrics
// endpoints.
func (h *Handler) Routes(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", h.Index)
	r.Get("/healthz", h.Healthz)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/devices", h.ListDevices)
		r.Post("/devices", h.CreateDevice)
		r.Delete("/devices/{id}", h.DeleteDevice)
		r.Patch("/devices/{id}/toggle", h.ToggleMonitoring)

		r.Get("/alerts", h.ListAlerts)
		r.Get("/logs", h.ListLogs)
		r.Get("/status", h.Status)
	})

	return r
}
