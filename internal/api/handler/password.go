package handler

import (
	"net/http"

	"github.com/isepctf/ctfportal/internal/api/request"
	"github.com/isepctf/ctfportal/internal/api/response"
	"github.com/isepctf/ctfportal/internal/services/policy"
)

// PasswordHandler serves live password feedback
type PasswordHandler struct {
	observer policy.Observer
}

// NewPasswordHandler creates a password handler. observer may be nil.
func NewPasswordHandler(observer policy.Observer) *PasswordHandler {
	return &PasswordHandler{observer: observer}
}

// Evaluate handles POST /api/v1/password/evaluate.
// Weak passwords are not an error here; the projection reports them.
func (h *PasswordHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req request.EvaluatePasswordRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	projection := policy.Project(req.Password, req.Confirmation)
	if h.observer != nil {
		h.observer.ObserveEvaluation(projection.Policy)
	}

	response.JSON(w, http.StatusOK, response.ProjectionFromModel(projection, req.Confirmation))
}
