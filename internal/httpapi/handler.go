// Package httpapi exposes the HTTP endpoints of the price service.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zenon-tools/pricefeed/internal/cache"
	"github.com/zenon-tools/pricefeed/internal/metrics"
	"github.com/zenon-tools/pricefeed/internal/services/prices"
	"github.com/zenon-tools/pricefeed/internal/storage"
	"github.com/zenon-tools/pricefeed/pkg/logger"
)

// handler bundles the HTTP endpoints.
type handler struct {
	prices *prices.Service
	db     storage.Pinger
	cache  cache.Cache
	log    *logger.Logger
}

// NewHandler returns a mux exposing /price, /health and /metrics.
func NewHandler(pricesSvc *prices.Service, db storage.Pinger, c cache.Cache, m *metrics.Metrics, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{prices: pricesSvc, db: db, cache: c, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/price", h.price)
	mux.HandleFunc("/health", h.health)
	if m != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	}
	return mux
}

func (h *handler) price(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := h.prices.GetPrices(r.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to serve prices")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": "Internal Server Error",
			"code":  http.StatusInternalServerError,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	status := "healthy"
	checks := map[string]string{}

	if h.db != nil {
		if err := h.db.Ping(r.Context()); err != nil {
			status = "unhealthy"
			checks["database"] = err.Error()
		} else {
			checks["database"] = "ok"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "unhealthy"
			checks["cache"] = err.Error()
		} else {
			checks["cache"] = "ok"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
