package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/auth"
	"github.com/isepctf/ctfportal/internal/services/credential"
	"github.com/isepctf/ctfportal/internal/services/policy"
	"github.com/isepctf/ctfportal/internal/validation"
	"github.com/isepctf/ctfportal/internal/web/middleware"
	"github.com/isepctf/ctfportal/internal/web/templates/layout"
	"github.com/isepctf/ctfportal/internal/web/templates/pages"
)

// AuthHandler handles authentication pages and actions
type AuthHandler struct {
	authService *auth.Service
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

type registerForm struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
}

// LoginPage renders the login page
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.GetAccount(r.Context()) != nil {
		// Already logged in, redirect to home
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := pages.LoginData{
		PageData: layout.PageData{
			Title: "Log in",
			Flash: middleware.GetFlash(r.Context()),
		},
		Next: r.URL.Query().Get("next"),
	}
	render(w, r, pages.Login(data))
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderLoginError(w, r, "Invalid form data", "", "")
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	next := r.FormValue("next")

	if email == "" || password == "" {
		h.renderLoginError(w, r, "Email and password are required", email, next)
		return
	}

	session, err := h.authService.Login(r.Context(), email, password)
	switch {
	case errors.Is(err, model.ErrAccountSuspended):
		h.renderLoginError(w, r, "This account is suspended", email, next)
		return
	case err != nil:
		h.renderLoginError(w, r, "Invalid email or password", email, next)
		return
	}

	setSessionCookie(w, session)
	middleware.SetFlash(w, "success", "Welcome back, "+session.Account.Username+"!")
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

// RegisterPage renders the registration page
func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	if middleware.GetAccount(r.Context()) != nil {
		// Already logged in, redirect to home
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	data := pages.RegisterData{
		PageData: layout.PageData{
			Title: "Register",
			Flash: middleware.GetFlash(r.Context()),
		},
		FieldErrors: make(map[string]string),
	}
	render(w, r, pages.Register(data))
}

// Register handles registration form submission. The password goes through
// the same workflow as every other credential change.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderRegisterError(w, r, pages.RegisterData{Error: "Invalid form data"})
		return
	}

	form := registerForm{
		Username: strings.TrimSpace(r.FormValue("username")),
		Email:    strings.TrimSpace(r.FormValue("email")),
	}
	password := r.FormValue("password")
	confirm := r.FormValue("password_confirm")

	data := pages.RegisterData{Username: form.Username, Email: form.Email}

	var verr *validation.Error
	if err := validation.Struct(form); errors.As(err, &verr) {
		data.FieldErrors = fieldErrors(verr)
		h.renderRegisterError(w, r, data)
		return
	}

	result, session, err := h.authService.Register(r.Context(), auth.Registration{
		Username:        form.Username,
		Email:           form.Email,
		Password:        password,
		PasswordConfirm: confirm,
	})
	switch {
	case errors.Is(err, model.ErrUsernameTaken):
		data.FieldErrors = map[string]string{"username": "Username already taken"}
	case errors.Is(err, model.ErrEmailTaken):
		data.FieldErrors = map[string]string{"email": "Email already registered"}
	case errors.Is(err, credential.ErrPersistenceFailed):
		data.Error = "Your account could not be saved, please try again"
	case err != nil:
		data.Error = "Registration failed"
	case result.Rejected():
		projection := policy.Project(password, confirm)
		data.FieldErrors = rejectionErrors(result)
		data.Projection = &projection
	}
	if session == nil {
		h.renderRegisterError(w, r, data)
		return
	}

	setSessionCookie(w, session)
	middleware.SetFlash(w, "success", "Account created! Welcome, "+session.Account.Username+"!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout ends the session and clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookie); err == nil {
		h.authService.InvalidateSession(cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	middleware.SetFlash(w, "info", "You have been logged out")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func setSessionCookie(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// rejectionErrors puts a workflow rejection next to the field it concerns
func rejectionErrors(result credential.Result) map[string]string {
	switch result.Reason {
	case credential.ReasonWeakSecret:
		missing := result.Policy.Missing()
		rules := make([]string, len(missing))
		for i, rule := range missing {
			rules[i] = strings.ToLower(rule.Description())
		}
		return map[string]string{"password": "Password needs " + strings.Join(rules, ", ")}
	case credential.ReasonMismatch:
		return map[string]string{"password_confirm": "Passwords do not match"}
	default:
		return map[string]string{"password": "You may not change this password"}
	}
}

func (h *AuthHandler) renderLoginError(w http.ResponseWriter, r *http.Request, errorMsg, email, next string) {
	data := pages.LoginData{
		PageData: layout.PageData{Title: "Log in"},
		Email:    email,
		Error:    errorMsg,
		Next:     next,
	}
	renderStatus(w, r, http.StatusUnauthorized, pages.Login(data))
}

func (h *AuthHandler) renderRegisterError(w http.ResponseWriter, r *http.Request, data pages.RegisterData) {
	if data.FieldErrors == nil {
		data.FieldErrors = make(map[string]string)
	}
	data.PageData = layout.PageData{Title: "Register"}
	renderStatus(w, r, http.StatusUnprocessableEntity, pages.Register(data))
}
