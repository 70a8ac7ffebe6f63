package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/admin"
	"github.com/isepctf/ctfportal/internal/services/auth"
	"github.com/isepctf/ctfportal/internal/services/countdown"
	"github.com/isepctf/ctfportal/internal/services/credential"
	"github.com/isepctf/ctfportal/internal/services/policy"
	"github.com/isepctf/ctfportal/internal/web/middleware"
	"github.com/isepctf/ctfportal/internal/web/sse"
	"github.com/isepctf/ctfportal/internal/web/templates/components"
	"github.com/isepctf/ctfportal/internal/web/templates/layout"
	"github.com/isepctf/ctfportal/internal/web/templates/pages"
)

// AdminHandler serves the admin panel
type AdminHandler struct {
	authService  *auth.Service
	adminService *admin.Service
	countdown    *countdown.Countdown
	hubManager   *sse.HubManager
	broadcaster  *sse.Broadcaster
	logger       *slog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	authService *auth.Service,
	adminService *admin.Service,
	cd *countdown.Countdown,
	hubManager *sse.HubManager,
	broadcaster *sse.Broadcaster,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		authService:  authService,
		adminService: adminService,
		countdown:    cd,
		hubManager:   hubManager,
		broadcaster:  broadcaster,
		logger:       logger,
	}
}

// Panel renders the admin panel
func (h *AdminHandler) Panel(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	roster, err := h.adminService.Roster(r.Context(), *account)
	if err != nil {
		middleware.RenderError(w, r, http.StatusInternalServerError, "Could not load accounts.")
		return
	}

	data := pages.AdminData{
		PageData: layout.PageData{
			Title:   "Admin",
			Account: account,
			Flash:   middleware.GetFlash(r.Context()),
		},
		Roster:    roster,
		Countdown: h.countdown.Snapshot(),
	}
	render(w, r, pages.Admin(data))
}

// Events streams clock and roster updates to the admin panel
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	renderer := h.broadcaster.Renderer()

	roster, err := h.adminService.Roster(r.Context(), *account)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	clockEvent, err := renderer.CountdownHTML(r.Context(), h.countdown.Snapshot(), true)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	rosterEvent, err := renderer.RosterHTML(r.Context(), roster)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	hub := h.hubManager.GetOrCreateHub(sse.TopicAdmin)
	sse.ServeSSE(w, r, hub, account.ID, clockEvent, rosterEvent)
}

// ToggleCountdown handles POST /admin/ctf/toggle
func (h *AdminHandler) ToggleCountdown(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	snap := h.countdown.Toggle()

	h.logger.Info("ctf clock toggled",
		slog.Bool("running", snap.Running),
		slog.String("actor_id", string(account.ID)))

	if isHTMX(r) {
		render(w, r, components.Countdown(snap, true))
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// RosterAction handles POST /admin/accounts/{id}/{action}
func (h *AdminHandler) RosterAction(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())
	vars := mux.Vars(r)
	target := model.AccountID(vars["id"])

	var (
		roster model.Roster
		err    error
		done   string
	)
	switch vars["action"] {
	case "suspend":
		roster, err = h.adminService.Suspend(r.Context(), *account, target)
		done = "Account suspended"
	case "reinstate":
		roster, err = h.adminService.Reinstate(r.Context(), *account, target)
		done = "Account reinstated"
	case "remove":
		roster, err = h.adminService.Remove(r.Context(), *account, target)
		done = "Account removed"
	default:
		middleware.RenderError(w, r, http.StatusNotFound, "Unknown action.")
		return
	}

	if err != nil {
		msg := "Could not update the account"
		switch {
		case errors.Is(err, model.ErrSelfModification):
			msg = "You cannot suspend or remove your own account"
		case errors.Is(err, model.ErrAccountNotFound):
			msg = "Account not found"
		}
		if isHTMX(r) {
			http.Error(w, msg, http.StatusConflict)
			return
		}
		middleware.SetFlash(w, "error", msg)
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	h.broadcaster.BroadcastRoster(r.Context(), roster)

	if isHTMX(r) {
		render(w, r, components.Roster(roster, account.ID))
		return
	}
	middleware.SetFlash(w, "success", done)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// ChangePasswordPage renders the password form for one account
func (h *AdminHandler) ChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	target, err := h.adminService.Account(r.Context(), *account, model.AccountID(mux.Vars(r)["id"]))
	if err != nil {
		middleware.RenderError(w, r, http.StatusNotFound, "Account not found.")
		return
	}

	data := pages.ChangePasswordData{
		PageData: layout.PageData{
			Title:   "Change password",
			Account: account,
			Flash:   middleware.GetFlash(r.Context()),
		},
		Target:      *target,
		FieldErrors: make(map[string]string),
	}
	render(w, r, pages.ChangePassword(data))
}

// ChangePassword handles POST /admin/accounts/{id}/password
func (h *AdminHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	target, err := h.adminService.Account(r.Context(), *account, model.AccountID(mux.Vars(r)["id"]))
	if err != nil {
		middleware.RenderError(w, r, http.StatusNotFound, "Account not found.")
		return
	}

	if err := r.ParseForm(); err != nil {
		middleware.RenderError(w, r, http.StatusBadRequest, "Invalid form data.")
		return
	}
	password := r.FormValue("password")
	confirm := r.FormValue("password_confirm")

	session, err := h.authService.ValidateSession(middleware.GetToken(r.Context()))
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := pages.ChangePasswordData{
		PageData: layout.PageData{Title: "Change password", Account: account},
		Target:   *target,
	}

	result, err := h.authService.ChangePassword(r.Context(), session, target.ID, password, confirm)
	switch {
	case errors.Is(err, credential.ErrPersistenceFailed):
		data.Error = "The password could not be saved, please try again"
	case err != nil:
		data.Error = "Password change failed"
	case result.Rejected():
		projection := policy.Project(password, confirm)
		data.FieldErrors = rejectionErrors(result)
		data.Projection = &projection
	default:
		middleware.SetFlash(w, "success", "Password updated for "+target.Username)
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	if data.FieldErrors == nil {
		data.FieldErrors = make(map[string]string)
	}
	status := http.StatusUnprocessableEntity
	if err != nil {
		status = http.StatusServiceUnavailable
	}
	renderStatus(w, r, status, pages.ChangePassword(data))
}
