package handler

import (
	"net/http"

	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/countdown"
	"github.com/isepctf/ctfportal/internal/web/middleware"
	"github.com/isepctf/ctfportal/internal/web/sse"
	"github.com/isepctf/ctfportal/internal/web/templates/layout"
	"github.com/isepctf/ctfportal/internal/web/templates/pages"
)

// HomeHandler handles the landing page and its live clock
type HomeHandler struct {
	countdown  *countdown.Countdown
	hubManager *sse.HubManager
	renderer   *sse.Renderer
}

// NewHomeHandler creates a new HomeHandler
func NewHomeHandler(cd *countdown.Countdown, hubManager *sse.HubManager) *HomeHandler {
	return &HomeHandler{
		countdown:  cd,
		hubManager: hubManager,
		renderer:   sse.NewRenderer(),
	}
}

// Home renders the home page
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := pages.HomeData{
		PageData: layout.PageData{
			Title:   "Home",
			Account: middleware.GetAccount(r.Context()),
			Flash:   middleware.GetFlash(r.Context()),
		},
		Countdown: h.countdown.Snapshot(),
	}

	render(w, r, pages.Home(data))
}

// Events streams the public clock (GET /ctf/events)
func (h *HomeHandler) Events(w http.ResponseWriter, r *http.Request) {
	initial, err := h.renderer.CountdownHTML(r.Context(), h.countdown.Snapshot(), false)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var accountID model.AccountID
	if account := middleware.GetAccount(r.Context()); account != nil {
		accountID = account.ID
	}

	hub := h.hubManager.GetOrCreateHub(sse.TopicCountdown)
	sse.ServeSSE(w, r, hub, accountID, initial)
}
