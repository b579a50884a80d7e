package middleware

import (
	"net/http"
	"strconv"
	"time"

	"pathway-engine/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Metrics records a request count and latency datapoint per route. Passing
// a nil recorder disables the middleware.
func Metrics(metrics *observability.Metrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			dims := map[string]string{
				"Method": r.Method,
				"Route":  route,
				"Status": strconv.Itoa(ww.Status()),
			}
			metrics.Count("RequestCount", 1, dims)
			metrics.Duration("RequestLatency", time.Since(start), dims)
		})
	}
}
