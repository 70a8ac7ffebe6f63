package handler

import (
	"net/http"

	"github.com/isepctf/ctfportal/internal/services/policy"
	"github.com/isepctf/ctfportal/internal/web/templates/components"
)

// PasswordHandler serves the live strength fragment behind password inputs
type PasswordHandler struct {
	observer policy.Observer
}

// NewPasswordHandler creates a new PasswordHandler. observer may be nil.
func NewPasswordHandler(observer policy.Observer) *PasswordHandler {
	return &PasswordHandler{observer: observer}
}

// Strength handles POST /password/strength. Every keystroke recomputes the
// feedback from the current field values alone.
func (h *PasswordHandler) Strength(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	password := r.FormValue("password")
	confirm := r.FormValue("password_confirm")

	projection := policy.Project(password, confirm)
	if h.observer != nil {
		h.observer.ObserveEvaluation(projection.Policy)
	}

	render(w, r, components.Strength(projection, confirm))
}
