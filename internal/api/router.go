package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/isepctf/ctfportal/internal/api/handler"
	"github.com/isepctf/ctfportal/internal/api/middleware"
	"github.com/isepctf/ctfportal/internal/api/response"
	"github.com/isepctf/ctfportal/internal/metrics"
	sharedmw "github.com/isepctf/ctfportal/internal/middleware"
	"github.com/isepctf/ctfportal/internal/services/admin"
	"github.com/isepctf/ctfportal/internal/services/auth"
	"github.com/isepctf/ctfportal/internal/services/contact"
	"github.com/isepctf/ctfportal/internal/services/countdown"
	"github.com/isepctf/ctfportal/internal/services/policy"
	"github.com/isepctf/ctfportal/internal/services/team"
	"github.com/isepctf/ctfportal/internal/web/sse"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	AdminService   *admin.Service
	TeamService    *team.Service
	ContactService *contact.Service
	Countdown      *countdown.Countdown
	HubManager     *sse.HubManager
	Broadcaster    *sse.Broadcaster
	// Metrics is optional; without it requests and evaluations go uncounted
	Metrics *metrics.Collector
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	var broadcaster handler.RosterBroadcaster
	if cfg.Broadcaster != nil {
		broadcaster = cfg.Broadcaster
	}
	var evalObserver policy.Observer
	if cfg.Metrics != nil {
		evalObserver = cfg.Metrics
	}

	accountHandler := handler.NewAccountHandler(cfg.AuthService)
	passwordHandler := handler.NewPasswordHandler(evalObserver)
	adminHandler := handler.NewAdminHandler(cfg.AdminService, cfg.ContactService, broadcaster)
	teamHandler := handler.NewTeamHandler(cfg.TeamService)
	ctfHandler := handler.NewCTFHandler(cfg.Countdown, cfg.HubManager, cfg.Logger)
	contactHandler := handler.NewContactHandler(cfg.ContactService)

	authMiddleware := middleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.AuthService)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(sharedmw.RequestID)
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(sharedmw.Logging(cfg.Logger))
	if cfg.Metrics != nil {
		api.Use(sharedmw.Metrics(cfg.Metrics))
	}

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/password/evaluate", passwordHandler.Evaluate).Methods(http.MethodPost)
	api.HandleFunc("/contact", contactHandler.Submit).Methods(http.MethodPost)

	// Account routes (no auth required for registering or logging in)
	api.HandleFunc("/accounts/register", accountHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/accounts/login", accountHandler.Login).Methods(http.MethodPost)

	accounts := api.PathPrefix("/accounts").Subrouter()
	accounts.Use(authMiddleware)
	accounts.HandleFunc("/me", accountHandler.GetMe).Methods(http.MethodGet)
	accounts.HandleFunc("/logout", accountHandler.Logout).Methods(http.MethodPost)
	accounts.HandleFunc("/{id}/password", accountHandler.ChangePassword).Methods(http.MethodPut)

	teams := api.PathPrefix("/teams").Subrouter()
	teams.Use(authMiddleware)
	teams.HandleFunc("", teamHandler.Create).Methods(http.MethodPost)
	teams.HandleFunc("/join", teamHandler.Join).Methods(http.MethodPost)
	teams.HandleFunc("/{id}", teamHandler.Get).Methods(http.MethodGet)

	// Clock state is public; changing it is for admins
	ctf := api.PathPrefix("/ctf").Subrouter()
	ctf.Handle("", optionalAuthMiddleware(http.HandlerFunc(ctfHandler.Get))).Methods(http.MethodGet)
	ctf.Handle("/events", optionalAuthMiddleware(http.HandlerFunc(ctfHandler.Events))).Methods(http.MethodGet)
	ctfAdmin := ctf.NewRoute().Subrouter()
	ctfAdmin.Use(authMiddleware, middleware.RequireAdmin)
	ctfAdmin.HandleFunc("/start", ctfHandler.Start).Methods(http.MethodPost)
	ctfAdmin.HandleFunc("/stop", ctfHandler.Stop).Methods(http.MethodPost)

	adminRoutes := api.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(authMiddleware, middleware.RequireAdmin)
	adminRoutes.HandleFunc("/accounts", adminHandler.ListAccounts).Methods(http.MethodGet)
	adminRoutes.HandleFunc("/accounts/{id}/suspend", adminHandler.Suspend).Methods(http.MethodPost)
	adminRoutes.HandleFunc("/accounts/{id}/reinstate", adminHandler.Reinstate).Methods(http.MethodPost)
	adminRoutes.HandleFunc("/accounts/{id}", adminHandler.Remove).Methods(http.MethodDelete)
	adminRoutes.HandleFunc("/contact", adminHandler.ContactMessages).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
