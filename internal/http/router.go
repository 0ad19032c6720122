package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/stem-explorer/internal/observability"
)

// RouterConfig controls the middleware chain.
type RouterConfig struct {
	RequestTimeout time.Duration
	// Limiter throttles the POST routes (uploads and contact). nil disables it.
	Limiter *rate.Limiter
}

// NewRouter wires every route of the service onto a mux router.
func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *mux.Router {
	limit := RateLimitMiddleware(cfg.Limiter)

	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler()).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(TimeoutMiddleware(cfg.RequestTimeout))
	api.HandleFunc("/datasets", h.ListDatasets).Methods("GET")
	api.HandleFunc("/datasets/{dataset}", h.GetDataset).Methods("GET")
	api.Handle("/publications", limit(http.HandlerFunc(h.CreatePublication))).Methods("POST")
	api.HandleFunc("/publications/{id}", h.GetPublication).Methods("GET")
	api.Handle("/contact", limit(http.HandlerFunc(h.CreateContact))).Methods("POST")

	pages := router.NewRoute().Subrouter()
	pages.Use(TimeoutMiddleware(cfg.RequestTimeout))
	pages.HandleFunc("/", h.Index).Methods("GET")
	pages.HandleFunc("/profile", h.GetProfile).Methods("GET")
	pages.HandleFunc("/publications", h.GetPublications).Methods("GET")
	pages.Handle("/publications", limit(http.HandlerFunc(h.PostPublications))).Methods("POST")
	pages.HandleFunc("/publications/{id}/trend.png", h.GetTrendChart).Methods("GET")
	pages.HandleFunc("/explorer", h.GetExplorer).Methods("GET")
	pages.HandleFunc("/explorer/{dataset}", h.GetExplorer).Methods("GET")
	pages.HandleFunc("/explorer/{dataset}/chart.png", h.GetDatasetChart).Methods("GET")
	pages.HandleFunc("/contact", h.GetContact).Methods("GET")
	pages.Handle("/contact", limit(http.HandlerFunc(h.PostContact))).Methods("POST")

	return router
}
