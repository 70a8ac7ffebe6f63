package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/isepctf/ctfportal/internal/api/middleware"
	"github.com/isepctf/ctfportal/internal/api/response"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/admin"
	"github.com/isepctf/ctfportal/internal/services/contact"
)

// RosterBroadcaster pushes roster changes to live admin panels
type RosterBroadcaster interface {
	BroadcastRoster(ctx context.Context, roster model.Roster)
}

// AdminHandler handles account administration endpoints
type AdminHandler struct {
	adminService   *admin.Service
	contactService *contact.Service
	broadcaster    RosterBroadcaster
}

// NewAdminHandler creates a new admin handler. broadcaster may be nil.
func NewAdminHandler(adminService *admin.Service, contactService *contact.Service, broadcaster RosterBroadcaster) *AdminHandler {
	return &AdminHandler{
		adminService:   adminService,
		contactService: contactService,
		broadcaster:    broadcaster,
	}
}

// ListAccounts handles GET /api/v1/admin/accounts
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	session := middleware.MustGetSession(r.Context())

	roster, err := h.adminService.Roster(r.Context(), session.Account)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RosterFromModel(roster))
}

// Suspend handles POST /api/v1/admin/accounts/{id}/suspend
func (h *AdminHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.adminService.Suspend)
}

// Reinstate handles POST /api/v1/admin/accounts/{id}/reinstate
func (h *AdminHandler) Reinstate(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.adminService.Reinstate)
}

// Remove handles DELETE /api/v1/admin/accounts/{id}
func (h *AdminHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.adminService.Remove)
}

type rosterAction func(ctx context.Context, actor model.Account, target model.AccountID) (model.Roster, error)

func (h *AdminHandler) apply(w http.ResponseWriter, r *http.Request, action rosterAction) {
	session := middleware.MustGetSession(r.Context())
	target := model.AccountID(mux.Vars(r)["id"])

	roster, err := action(r.Context(), session.Account, target)
	if err != nil {
		WriteError(w, err)
		return
	}

	if h.broadcaster != nil {
		h.broadcaster.BroadcastRoster(r.Context(), roster)
	}
	response.JSON(w, http.StatusOK, response.RosterFromModel(roster))
}

// ContactMessages handles GET /api/v1/admin/contact
func (h *AdminHandler) ContactMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.contactService.List(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	out := make([]response.ContactMessage, len(messages))
	for i, m := range messages {
		out[i] = response.ContactMessageFromModel(m)
	}
	response.JSON(w, http.StatusOK, out)
}
