package middleware

import (
	"log/slog"
	"net/http"

	"github.com/isepctf/ctfportal/internal/middleware"
)

// Logging creates logging middleware for the web interface.
// Requests are tagged with a request ID first so log lines can be correlated.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	logging := middleware.Logging(logger)
	return func(next http.Handler) http.Handler {
		return middleware.RequestID(logging(next))
	}
}
