package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/team"
	"github.com/isepctf/ctfportal/internal/web/middleware"
	"github.com/isepctf/ctfportal/internal/web/templates/layout"
	"github.com/isepctf/ctfportal/internal/web/templates/pages"
)

// TeamHandler serves the invite link landing page
type TeamHandler struct {
	teamService *team.Service
}

// NewTeamHandler creates a new TeamHandler
func NewTeamHandler(teamService *team.Service) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// JoinPage handles GET /join-team?token=…
func (h *TeamHandler) JoinPage(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	t, err := h.teamService.ByInviteToken(r.Context(), token)
	if err != nil {
		middleware.RenderError(w, r, http.StatusNotFound, "This invite link is not valid.")
		return
	}

	data := pages.JoinTeamData{
		PageData: layout.PageData{
			Title:   "Join " + t.Name,
			Account: middleware.GetAccount(r.Context()),
			Flash:   middleware.GetFlash(r.Context()),
		},
		Token:    token,
		TeamName: t.Name,
	}
	render(w, r, pages.JoinTeam(data))
}

// Join handles POST /join-team
func (h *TeamHandler) Join(w http.ResponseWriter, r *http.Request) {
	account := middleware.GetAccount(r.Context())

	if err := r.ParseForm(); err != nil {
		middleware.SetFlash(w, "error", "Invalid form data")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	token := strings.TrimSpace(r.FormValue("token"))
	t, err := h.teamService.Join(r.Context(), *account, token, r.FormValue("password"))
	if err != nil {
		h.renderJoinError(w, r, token, err)
		return
	}

	middleware.SetFlash(w, "success", "You joined "+t.Name+"!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *TeamHandler) renderJoinError(w http.ResponseWriter, r *http.Request, token string, err error) {
	if errors.Is(err, model.ErrTeamNotFound) {
		middleware.RenderError(w, r, http.StatusNotFound, "This invite link is not valid.")
		return
	}

	msg := "Could not join the team"
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, team.ErrWrongPassword):
		msg, status = "Wrong team password", http.StatusForbidden
	case errors.Is(err, model.ErrAlreadyInTeam):
		msg, status = "You are already in this team", http.StatusConflict
	}

	var name string
	if t, lookupErr := h.teamService.ByInviteToken(r.Context(), token); lookupErr == nil {
		name = t.Name
	}

	data := pages.JoinTeamData{
		PageData: layout.PageData{Title: "Join " + name, Account: middleware.GetAccount(r.Context())},
		Token:    token,
		TeamName: name,
		Error:    msg,
	}
	renderStatus(w, r, status, pages.JoinTeam(data))
}
