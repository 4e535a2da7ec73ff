package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/zenon-tools/pricefeed/internal/metrics"
	"github.com/zenon-tools/pricefeed/pkg/logger"
)

// responseWriter captures the status code written by downstream handlers.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricRoute collapses unknown paths into a single label so scanner traffic
// cannot grow the metric label set without bound.
func metricRoute(path string) string {
	switch path {
	case "/price", "/health", "/metrics":
		return path
	default:
		return "other"
	}
}

// Logging logs each request and records HTTP metrics.
func Logging(log *logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.IncrementInFlight()
			defer m.DecrementInFlight()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			m.RecordHTTPRequest(r.Method, metricRoute(r.URL.Path), strconv.Itoa(wrapped.statusCode), duration)

			log.WithField("request_id", GetRequestID(r.Context())).
				WithField("method", r.Method).
				WithField("path", r.URL.Path).
				WithField("status", wrapped.statusCode).
				WithField("duration", duration.String()).
				Info("request handled")
		})
	}
}
