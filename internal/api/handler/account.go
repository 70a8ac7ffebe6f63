package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/isepctf/ctfportal/internal/api/middleware"
	"github.com/isepctf/ctfportal/internal/api/request"
	"github.com/isepctf/ctfportal/internal/api/response"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/auth"
)

// AccountHandler handles registration, sessions and password changes
type AccountHandler struct {
	authService *auth.Service
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(authService *auth.Service) *AccountHandler {
	return &AccountHandler{
		authService: authService,
	}
}

// Register handles POST /api/v1/accounts/register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, session, err := h.authService.Register(r.Context(), auth.Registration{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if !writeSubmission(w, result, err) {
		return
	}

	response.JSON(w, http.StatusCreated, response.AuthResponseFromSession(session))
}

// Login handles POST /api/v1/accounts/login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	session, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.AuthResponseFromSession(session))
}

// Logout handles POST /api/v1/accounts/logout
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())
	h.authService.InvalidateSession(session.Token)
	response.NoContent(w)
}

// GetMe handles GET /api/v1/accounts/me
func (h *AccountHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())
	response.JSON(w, http.StatusOK, response.AccountFromModel(&session.Account))
}

// ChangePassword handles PUT /api/v1/accounts/{id}/password.
// "me" targets the caller's own account.
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	target := model.AccountID(mux.Vars(r)["id"])
	if target == "me" {
		target = session.AccountID
	}

	var req request.ChangePasswordRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.authService.ChangePassword(r.Context(), session, target, req.Password, req.PasswordConfirm)
	if !writeSubmission(w, result, err) {
		return
	}

	response.NoContent(w)
}
