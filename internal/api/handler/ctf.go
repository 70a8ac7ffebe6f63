package handler

import (
	"log/slog"
	"net/http"

	"github.com/isepctf/ctfportal/internal/api/middleware"
	"github.com/isepctf/ctfportal/internal/api/response"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/countdown"
	"github.com/isepctf/ctfportal/internal/web/sse"
)

// CTFHandler exposes the competition clock
type CTFHandler struct {
	countdown  *countdown.Countdown
	hubManager *sse.HubManager
	renderer   *sse.Renderer
	logger     *slog.Logger
}

// NewCTFHandler creates a new CTF handler
func NewCTFHandler(cd *countdown.Countdown, hubManager *sse.HubManager, logger *slog.Logger) *CTFHandler {
	return &CTFHandler{
		countdown:  cd,
		hubManager: hubManager,
		renderer:   sse.NewRenderer(),
		logger:     logger,
	}
}

// Get handles GET /api/v1/ctf
func (h *CTFHandler) Get(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.CountdownFromSnapshot(h.countdown.Snapshot()))
}

// Start handles POST /api/v1/ctf/start
func (h *CTFHandler) Start(w http.ResponseWriter, r *http.Request) {
	snap := h.countdown.Start()
	h.logAction(r, "start")
	response.JSON(w, http.StatusOK, response.CountdownFromSnapshot(snap))
}

// Stop handles POST /api/v1/ctf/stop
func (h *CTFHandler) Stop(w http.ResponseWriter, r *http.Request) {
	snap := h.countdown.Stop()
	h.logAction(r, "stop")
	response.JSON(w, http.StatusOK, response.CountdownFromSnapshot(snap))
}

// Events handles GET /api/v1/ctf/events (SSE, JSON payloads)
func (h *CTFHandler) Events(w http.ResponseWriter, r *http.Request) {
	var accountID model.AccountID
	if session := middleware.GetSession(r.Context()); session != nil {
		accountID = session.AccountID
	}

	initial, err := h.renderer.CountdownJSON(h.countdown.Snapshot())
	if err != nil {
		WriteError(w, err)
		return
	}

	hub := h.hubManager.GetOrCreateHub(sse.TopicCountdownJSON)
	sse.ServeSSE(w, r, hub, accountID, initial)
}

func (h *CTFHandler) logAction(r *http.Request, action string) {
	if h.logger == nil {
		return
	}
	session := middleware.MustGetSession(r.Context())
	h.logger.Info("ctf clock changed",
		slog.String("action", action),
		slog.String("actor_id", string(session.AccountID)))
}
