package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router creates and configures the admin HTTP router.
func Router(handler *Handler) http.Handler {
	router := mux.NewRouter()

	router.Use(
		LoggingMiddleware,
		RecoveryMiddleware,
	)

	router.HandleFunc("/healthz", handler.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/stats", handler.Stats).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return router
}
