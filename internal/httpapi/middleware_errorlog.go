package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// serverErrorLoggerMiddleware logs every 5xx with the matched route and latency.
// Handlers put the failure text in the response body, so only the outcome is logged here.
func serverErrorLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status < http.StatusInternalServerError {
			return
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		logf(r.Context(), "http %s %s -> %d (%s)", r.Method, route, status, time.Since(start).Round(time.Millisecond))
	})
}
