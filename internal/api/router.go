package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config holds what the router needs.
type Config struct {
	Dispatch *DispatchHandler
	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// RateLimit applies to /api. Empty disables limiting.
	RateLimit string
}

// NewRouter creates the HTTP router with all endpoints registered.
func NewRouter(cfg Config) (http.Handler, error) {
	mux := http.NewServeMux()

	api := http.NewServeMux()
	api.HandleFunc("POST /api", cfg.Dispatch.Post)
	api.HandleFunc("GET /api", cfg.Dispatch.Get)

	var apiHandler http.Handler = api
	if cfg.RateLimit != "" {
		limit, err := RateLimitMiddleware(cfg.RateLimit)
		if err != nil {
			return nil, err
		}
		apiHandler = limit(api)
	}
	mux.Handle("/api", apiHandler)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return mux, nil
}
