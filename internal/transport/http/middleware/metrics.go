package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"appraisal/internal/platform/metrics"
)

// Metrics records request counts and latency labelled by the matched route
// pattern, which keeps label cardinality bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := newStatusRecorder(w)
		next.ServeHTTP(recorder, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.RecordRequest(r.Method, route, recorder.status, time.Since(start))
	})
}
