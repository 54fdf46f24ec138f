package server

import (
	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the viewer, health and metrics endpoints behind logging and panic recovery.
func NewRouter(viewers *ViewerHandler, logger *log.Logger) *BasicRouter {
	router := NewBasicRouter()
	router.Use(Recoverer(logger), RequestLogger(logger))

	router.Handler(viewers)
	router.Handler(NewHealthHandler(viewers.Count))
	router.Handle("GET", "/metrics", promhttp.Handler())

	return router
}
