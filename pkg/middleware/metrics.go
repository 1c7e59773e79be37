package middleware

import (
	"net/http"
	"strconv"
	"time"

	"ejeapi/pkg/metrics"
)

// Metrics records request latency by method and final status code.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, strconv.Itoa(wrapped.statusCode)).
				Observe(time.Since(start).Seconds())
		})
	}
}
