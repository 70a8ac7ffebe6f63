package middleware

import (
	"net/http"
	"time"
)

// RequestObserver records served requests
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Metrics reports every request to the observer. Register it with
// Router.Use so the matched route template is known.
func Metrics(observer RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			observer.ObserveRequest(r.Method, routeTemplate(r), wrapped.status, time.Since(start))
		})
	}
}
