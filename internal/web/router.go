package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/isepctf/ctfportal/internal/metrics"
	"github.com/isepctf/ctfportal/internal/services/admin"
	"github.com/isepctf/ctfportal/internal/services/auth"
	"github.com/isepctf/ctfportal/internal/services/countdown"
	"github.com/isepctf/ctfportal/internal/services/policy"
	"github.com/isepctf/ctfportal/internal/services/team"
	"github.com/isepctf/ctfportal/internal/web/handler"
	"github.com/isepctf/ctfportal/internal/web/middleware"
	"github.com/isepctf/ctfportal/internal/web/sse"
)

// RouterConfig holds configuration for the web router
type RouterConfig struct {
	Logger       *slog.Logger
	AuthService  *auth.Service
	AdminService *admin.Service
	TeamService  *team.Service
	Countdown    *countdown.Countdown
	HubManager   *sse.HubManager
	Broadcaster  *sse.Broadcaster
	Metrics      *metrics.Collector // optional
	StaticDir    string             // Path to static files directory
}

// NewRouter creates a new web router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = middleware.NotFound()

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)
	flashMiddleware := middleware.Flash()
	authMiddleware := middleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.AuthService)

	// Apply global middleware to all routes
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	// Create SSE plumbing if not provided
	hubManager := cfg.HubManager
	if hubManager == nil {
		hubManager = sse.NewHubManager(cfg.Logger)
	}
	broadcaster := cfg.Broadcaster
	if broadcaster == nil {
		broadcaster = sse.NewBroadcaster(hubManager, cfg.Logger)
	}
	var evalObserver policy.Observer
	if cfg.Metrics != nil {
		evalObserver = cfg.Metrics
	}

	// Create handlers
	homeHandler := handler.NewHomeHandler(cfg.Countdown, hubManager)
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	passwordHandler := handler.NewPasswordHandler(evalObserver)
	teamHandler := handler.NewTeamHandler(cfg.TeamService)
	adminHandler := handler.NewAdminHandler(cfg.AuthService, cfg.AdminService, cfg.Countdown, hubManager, broadcaster, cfg.Logger)

	// Static files
	if cfg.StaticDir != "" {
		staticHandler := http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir)))
		r.PathPrefix("/static/").Handler(staticHandler)
	}

	// Public routes (optional auth for showing the account in nav)
	public := r.NewRoute().Subrouter()
	public.Use(flashMiddleware)
	public.Use(optionalAuthMiddleware)
	public.HandleFunc("/", homeHandler.Home).Methods(http.MethodGet)
	public.HandleFunc("/ctf/events", homeHandler.Events).Methods(http.MethodGet)
	public.HandleFunc("/login", authHandler.LoginPage).Methods(http.MethodGet)
	public.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	public.HandleFunc("/register", authHandler.RegisterPage).Methods(http.MethodGet)
	public.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	public.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)
	public.HandleFunc("/password/strength", passwordHandler.Strength).Methods(http.MethodPost)

	// Protected routes (require auth)
	protected := r.NewRoute().Subrouter()
	protected.Use(flashMiddleware)
	protected.Use(authMiddleware)
	protected.HandleFunc(team.JoinPath, teamHandler.JoinPage).Methods(http.MethodGet)
	protected.HandleFunc(team.JoinPath, teamHandler.Join).Methods(http.MethodPost)

	// Admin routes
	adminRoutes := r.PathPrefix("/admin").Subrouter()
	adminRoutes.Use(flashMiddleware)
	adminRoutes.Use(authMiddleware)
	adminRoutes.Use(middleware.RequireAdmin)
	adminRoutes.HandleFunc("", adminHandler.Panel).Methods(http.MethodGet)
	adminRoutes.HandleFunc("/events", adminHandler.Events).Methods(http.MethodGet)
	adminRoutes.HandleFunc("/ctf/toggle", adminHandler.ToggleCountdown).Methods(http.MethodPost)
	adminRoutes.HandleFunc("/accounts/{id}/password", adminHandler.ChangePasswordPage).Methods(http.MethodGet)
	adminRoutes.HandleFunc("/accounts/{id}/password", adminHandler.ChangePassword).Methods(http.MethodPost)
	adminRoutes.HandleFunc("/accounts/{id}/{action:suspend|reinstate|remove}", adminHandler.RosterAction).Methods(http.MethodPost)

	return r
}
