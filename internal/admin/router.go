// Package admin exposes the operator surface: health, the current status
// snapshot, and Prometheus metrics.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/penguinvovan/cloudflare-dns/internal/failover"
)

// StatusReporter produces point-in-time snapshots of the failover engine.
type StatusReporter interface {
	Status(ctx context.Context) failover.StatusSnapshot
}

type Router struct {
	engine  StatusReporter
	handler http.Handler
}

type RouterOpts struct {
	Engine StatusReporter
}

func NewRouter(opts RouterOpts) *Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	rt := &Router{engine: opts.Engine, handler: r}
	r.Get("/health", rt.getHealth)
	r.Get("/status", e(rt.getStatus))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return rt
}

func (rt *Router) Handler() http.Handler { return rt.handler }

func (rt *Router) getHealth(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// getStatus probes every configured server, so it can take up to the
// probe timeout to respond.
func (rt *Router) getStatus(
	w http.ResponseWriter,
	r *http.Request,
) (interface{}, error) {
	return rt.engine.Status(r.Context()), nil
}

type apiHandler func(http.ResponseWriter, *http.Request) (interface{}, error)

func e(h apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		x, err := h(w, r)
		if err != nil {
			http.Error(w, err.Error(),
				http.StatusInternalServerError)
			return
		}
		if x == nil {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Data interface{} `json:"data"`
		}{Data: x})
	}
}
