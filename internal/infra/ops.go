package infra

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports storage liveness
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewOpsRouter serves /metrics and /healthz for scrapers and probes
func NewOpsRouter(store Pinger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", handleHealthz(store))

	return r
}

// NewOpsServer wraps the ops router in an http.Server bound to addr
func NewOpsServer(addr string, store Pinger) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewOpsRouter(store),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func handleHealthz(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, code := "healthy", http.StatusOK
		if err := store.Ping(ctx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
