package handler

import (
	"net/http"

	"github.com/isepctf/ctfportal/internal/api/request"
	"github.com/isepctf/ctfportal/internal/api/response"
	"github.com/isepctf/ctfportal/internal/services/contact"
)

// ContactHandler accepts contact form messages
type ContactHandler struct {
	contactService *contact.Service
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contactService *contact.Service) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// Submit handles POST /api/v1/contact. Field rules live in the contact
// service so the API and CLI report the same messages.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req request.ContactRequest
	if err := request.Decode(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	msg, err := h.contactService.Submit(r.Context(), contact.Submission{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusAccepted, response.ContactReceipt{ID: msg.ID, ReceivedAt: msg.ReceivedAt})
}
