package middleware

import (
	"log/slog"
	"net/http"

	"github.com/isepctf/ctfportal/internal/api/apierr"
	"github.com/isepctf/ctfportal/internal/middleware"
)

// Recovery creates panic recovery middleware for the API.
// Panics become a JSON INTERNAL_ERROR response.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, jsonPanicHandler)
}

func jsonPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
