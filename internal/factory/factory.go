package factory

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/isepctf/ctfportal/internal/dependencies/clock"
	"github.com/isepctf/ctfportal/internal/dependencies/random"
	"github.com/isepctf/ctfportal/internal/metrics"
	"github.com/isepctf/ctfportal/internal/services/admin"
	"github.com/isepctf/ctfportal/internal/services/auth"
	"github.com/isepctf/ctfportal/internal/services/contact"
	"github.com/isepctf/ctfportal/internal/services/countdown"
	"github.com/isepctf/ctfportal/internal/services/team"
	"github.com/isepctf/ctfportal/internal/storage"
	"github.com/isepctf/ctfportal/internal/storage/memory"
	redisstorage "github.com/isepctf/ctfportal/internal/storage/redis"
	"github.com/isepctf/ctfportal/internal/web/sse"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Observability
	Registry *prometheus.Registry
	Metrics  *metrics.Collector

	// Services
	AuthService    *auth.Service
	AdminService   *admin.Service
	TeamService    *team.Service
	ContactService *contact.Service
	Countdown      *countdown.Countdown

	// Live updates
	HubManager  *sse.HubManager
	Broadcaster *sse.Broadcaster
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// CountdownDuration is the competition length (optional)
	// If zero, defaults to countdown.DefaultDuration
	CountdownDuration time.Duration
	// Mailer delivers contact messages (optional)
	// If nil, messages are only logged
	Mailer contact.Mailer
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	// Create external dependencies
	clk := clock.New()
	rnd := random.New()

	// Use default auth config if not provided
	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg.SessionDuration = auth.DefaultConfig().SessionDuration
	}

	mailer := cfg.Mailer
	if mailer == nil {
		mailer = contact.NewLogMailer(logger)
	}

	return newWithDependencies(dependencies{
		store:     store,
		clock:     clk,
		random:    rnd,
		auth:      authCfg,
		countdown: cfg.CountdownDuration,
		mailer:    mailer,
		logger:    logger,
	}), nil
}

type dependencies struct {
	store     storage.Storage
	clock     clock.Clock
	random    random.Random
	auth      auth.Config
	countdown time.Duration
	mailer    contact.Mailer
	logger    *slog.Logger
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(deps dependencies) *App {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	authCfg := deps.auth
	if authCfg.Observer == nil {
		authCfg.Observer = collector
	}

	// Create services
	authService := auth.New(deps.store, deps.clock, authCfg, deps.logger)
	adminService := admin.New(deps.store, deps.clock, authService, deps.logger)
	teamService := team.New(deps.store, deps.clock, deps.random, authCfg.BcryptCost)
	contactService := contact.New(deps.store, deps.clock, deps.mailer, deps.logger)
	cd := countdown.New(deps.clock, deps.countdown, deps.logger)
	collector.TrackCountdown(cd)

	hubManager := sse.NewHubManager(deps.logger)
	broadcaster := sse.NewBroadcaster(hubManager, deps.logger)

	return &App{
		Storage:        deps.store,
		Clock:          deps.clock,
		Random:         deps.random,
		Registry:       registry,
		Metrics:        collector,
		AuthService:    authService,
		AdminService:   adminService,
		TeamService:    teamService,
		ContactService: contactService,
		Countdown:      cd,
		HubManager:     hubManager,
		Broadcaster:    broadcaster,
	}
}

// Close stops background work and releases the storage backend
func (a *App) Close() error {
	a.Countdown.Close()
	a.HubManager.Close()
	if closer, ok := a.Storage.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
