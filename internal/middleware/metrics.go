package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type HTTPRecorder interface {
	RecordHTTP(method, route string, status int, d time.Duration)
}

// Metrics reports every response under its chi route pattern, so path ids do
// not blow up label cardinality.
func Metrics(m HTTPRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := record(w)

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.RecordHTTP(r.Method, route, rec.status, time.Since(start))
		})
	}
}
