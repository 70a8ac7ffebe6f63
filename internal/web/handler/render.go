package handler

import (
	"net/http"

	"github.com/a-h/templ"

	"github.com/isepctf/ctfportal/internal/validation"
)

func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	renderStatus(w, r, http.StatusOK, c)
}

func renderStatus(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// isHTMX reports whether the request came from an htmx swap
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// fieldErrors flattens validation failures into a per-field message map
func fieldErrors(err *validation.Error) map[string]string {
	out := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		if _, seen := out[f.Field]; !seen {
			out[f.Field] = f.Message
		}
	}
	return out
}

// safeNext only follows local redirects
func safeNext(next string) string {
	if len(next) > 1 && next[0] == '/' && next[1] != '/' && next[1] != '\\' {
		return next
	}
	return "/"
}
