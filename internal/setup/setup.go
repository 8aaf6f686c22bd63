package setup

import (
	"log"

	"github.com/repwatch/repwatch/internal/redis"
	"github.com/repwatch/repwatch/internal/setup/config"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config // Application configuration
	Logger       *zap.Logger    // Main application logger
	RedisManager *redis.Manager // Redis connection manager
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp() (*App, error) {
	// Load app configuration
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logger, err := NewLogger(cfg.Bot.Debug.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.Info("Configuration loaded", zap.String("config_dir", configDir))

	// Redis manager provides connection pools for the persistence layer
	redisManager := redis.NewManager(&cfg.Bot.Redis, logger)

	return &App{
		Config:       cfg,
		Logger:       logger,
		RedisManager: redisManager,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse
// initialization order. Logs but does not fail on cleanup errors.
func (a *App) Cleanup() {
	if err := a.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	a.RedisManager.Close()
}
