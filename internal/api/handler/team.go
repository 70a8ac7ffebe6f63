package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/isepctf/ctfportal/internal/api/middleware"
	"github.com/isepctf/ctfportal/internal/api/request"
	"github.com/isepctf/ctfportal/internal/api/response"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/team"
)

// TeamHandler handles team endpoints
type TeamHandler struct {
	teamService *team.Service
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(teamService *team.Service) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// Create handles POST /api/v1/teams
func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	var req request.CreateTeamRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	t, err := h.teamService.Create(r.Context(), session.Account, req.Name, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.TeamFromModel(t, session.AccountID))
}

// Join handles POST /api/v1/teams/join
func (h *TeamHandler) Join(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	var req request.JoinTeamRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	t, err := h.teamService.Join(r.Context(), session.Account, req.Token, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TeamFromModel(t, session.AccountID))
}

// Get handles GET /api/v1/teams/{id}
func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	t, err := h.teamService.Get(r.Context(), model.TeamID(mux.Vars(r)["id"]))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TeamFromModel(t, session.AccountID))
}
