package middleware

import (
	"log/slog"
	"net/http"

	"github.com/isepctf/ctfportal/internal/middleware"
	"github.com/isepctf/ctfportal/internal/web/templates/layout"
	"github.com/isepctf/ctfportal/internal/web/templates/pages"
)

// Recovery creates panic recovery middleware for the web interface
// Returns an HTML error page on panic
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, webPanicHandler)
}

func webPanicHandler(w http.ResponseWriter, r *http.Request, _ any) {
	RenderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

// RenderError writes a full error page with the given status
func RenderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	data := pages.ErrorData{
		PageData: layout.PageData{Title: http.StatusText(status), Account: GetAccount(r.Context())},
		Status:   status,
		Message:  message,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pages.Error(data).Render(r.Context(), w)
}

// NotFound renders the 404 page for unmatched routes
func NotFound() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RenderError(w, r, http.StatusNotFound, "That page does not exist.")
	})
}
