package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/isepctf/ctfportal/internal/api"
	"github.com/isepctf/ctfportal/internal/config"
	"github.com/isepctf/ctfportal/internal/factory"
	"github.com/isepctf/ctfportal/internal/metrics"
	"github.com/isepctf/ctfportal/internal/services/auth"
	"github.com/isepctf/ctfportal/internal/services/contact"
	redisstorage "github.com/isepctf/ctfportal/internal/storage/redis"
	"github.com/isepctf/ctfportal/internal/web"
)

// sessionSweepInterval is how often expired sessions are dropped
const sessionSweepInterval = 10 * time.Minute

func main() {
	// Load configuration from CTF_* environment variables
	serverCfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(serverCfg.LogLevel),
	}))
	slog.SetDefault(logger)

	// Build factory config
	cfg := factory.Config{
		AuthConfig: auth.Config{
			SessionDuration: serverCfg.SessionDuration,
			BcryptCost:      serverCfg.BcryptCost,
		},
		CountdownDuration: serverCfg.CountdownDuration,
		Logger:            logger,
		StorageType:       serverCfg.StorageType,
	}

	// Configure Redis if storage type is redis
	if cfg.StorageType == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = serverCfg.RedisURL
		cfg.RedisConfig = &redisCfg
	}

	// Deliver contact messages by mail when SMTP is configured
	if serverCfg.SMTP.Enabled() {
		cfg.Mailer = contact.NewSMTPMailer(serverCfg.SMTP.Mailer())
	}

	// Create application factory
	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = app.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Bootstrap the administrator account
	if serverCfg.Admin.Enabled() {
		admin := serverCfg.Admin
		if _, err := app.AuthService.EnsureAdmin(ctx, admin.Username, admin.Email, admin.Password); err != nil {
			logger.Error("failed to create admin account", slog.String("error", err.Error()))
			os.Exit(1)
		}
	} else {
		logger.Warn("no admin configured, set CTF_ADMIN_USERNAME, CTF_ADMIN_EMAIL and CTF_ADMIN_PASSWORD")
	}

	// Push every clock change to connected browsers and API clients
	go app.Broadcaster.RunCountdown(ctx, app.Countdown)
	go sweepSessions(ctx, app.AuthService)

	// Find static files directory
	staticDir := serverCfg.StaticDir
	if staticDir == "" {
		staticDir = findStaticDir()
	}

	// Create API router
	apiRouter := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		AuthService:    app.AuthService,
		AdminService:   app.AdminService,
		TeamService:    app.TeamService,
		ContactService: app.ContactService,
		Countdown:      app.Countdown,
		HubManager:     app.HubManager,
		Broadcaster:    app.Broadcaster,
		Metrics:        app.Metrics,
	})

	// Create web router
	webRouter := web.NewRouter(web.RouterConfig{
		Logger:       logger,
		AuthService:  app.AuthService,
		AdminService: app.AdminService,
		TeamService:  app.TeamService,
		Countdown:    app.Countdown,
		HubManager:   app.HubManager,
		Broadcaster:  app.Broadcaster,
		Metrics:      app.Metrics,
		StaticDir:    staticDir,
	})

	// Combine routers
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/metrics", metrics.Handler(app.Registry))
	mux.Handle("/", webRouter)

	// Create server
	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = serverCfg.Host
	serverConfig.Port = serverCfg.Port
	server := api.NewServer(mux, serverConfig, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
		slog.Duration("countdown", app.Countdown.Duration()))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

func sweepSessions(ctx context.Context, authService *auth.Service) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			authService.CleanExpiredSessions()
		}
	}
}

func logLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// findStaticDir looks for the static files directory
func findStaticDir() string {
	// Try common locations
	candidates := []string{
		"internal/web/static",
		"./internal/web/static",
		filepath.Join(os.Getenv("PWD"), "internal/web/static"),
	}

	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
	}

	// Default to relative path
	return "internal/web/static"
}
