package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mcoot/tictactoe-go/internal/dependencies/clock"
	"github.com/mcoot/tictactoe-go/internal/dependencies/random"
	"github.com/mcoot/tictactoe-go/internal/realtime"
	"github.com/mcoot/tictactoe-go/internal/services/coordinator"
	"github.com/mcoot/tictactoe-go/internal/services/eventbus"
	"github.com/mcoot/tictactoe-go/internal/services/eventlog"
	"github.com/mcoot/tictactoe-go/internal/services/identity"
	"github.com/mcoot/tictactoe-go/internal/services/matchfactory"
	"github.com/mcoot/tictactoe-go/internal/services/presence"
	"github.com/mcoot/tictactoe-go/internal/storage"
	"github.com/mcoot/tictactoe-go/internal/storage/memory"
	redisstorage "github.com/mcoot/tictactoe-go/internal/storage/redis"
	"github.com/mcoot/tictactoe-go/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random
	Logger *slog.Logger

	// Services
	Bus          *eventbus.Bus
	Registry     *presence.Registry
	MatchFactory *matchfactory.Factory
	EventLog     *eventlog.Service
	Coordinator  *coordinator.Coordinator
	Identity     *identity.Service
	Realtime     *realtime.Router
}

// Config holds configuration for the application factory
type Config struct {
	// IdentityConfig holds token settings. Secret is required.
	// Zero Issuer and TokenTTL fall back to identity.DefaultConfig()
	IdentityConfig identity.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// AllowedOrigins lists browser origins that may open a WebSocket (optional)
	// If empty, only same-origin handshakes are accepted
	AllowedOrigins []string
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
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		sqliteStore, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}

	app, err := newWithDependencies(store, clock.New(), random.New(), cfg.IdentityConfig, cfg.AllowedOrigins, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	identityCfg identity.Config,
	allowedOrigins []string,
	logger *slog.Logger,
) (*App, error) {
	identityService, err := identity.New(identityCfg, clk, rnd)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}

	// Create services
	bus := eventbus.New(logger)
	registry := presence.NewRegistry()
	matchFactory := matchfactory.New(clk, rnd)
	eventLog := eventlog.New(store, clk, rnd, logger)
	coord := coordinator.New(store, store, matchFactory, bus, eventLog, clk, logger)
	router := realtime.New(realtime.Config{
		Verifier:    identityService,
		Coordinator: coord,
		Registry:    registry,
		Users:       store,
		Publisher:   bus,
		Clock:       clk,
		Random:      rnd,
		Logger:      logger,
		CheckOrigin: realtime.AllowOrigins(allowedOrigins),
	})

	// Subscriptions end when the bus closes
	eventLog.Attach(bus)
	router.Attach(bus)

	return &App{
		Storage:      store,
		Clock:        clk,
		Random:       rnd,
		Logger:       logger,
		Bus:          bus,
		Registry:     registry,
		MatchFactory: matchFactory,
		EventLog:     eventLog,
		Coordinator:  coord,
		Identity:     identityService,
		Realtime:     router,
	}, nil
}

// Close shuts down live connections, drains the event bus and closes storage
func (a *App) Close() error {
	a.Realtime.Close()
	a.Bus.Close()
	return a.Storage.Close()
}
