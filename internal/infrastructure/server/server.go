// Package server wires the activity manager together: logger, metrics,
// the control-plane loop, requirement providers, the scheduler, the
// command surface, and the subscriber stream.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/coreplane/activityd/internal/api/http"
	"github.com/coreplane/activityd/internal/api/middleware"
	"github.com/coreplane/activityd/internal/domain/eventloop"
	"github.com/coreplane/activityd/internal/domain/requirement"
	"github.com/coreplane/activityd/internal/domain/resource"
	"github.com/coreplane/activityd/internal/domain/scheduler"
	"github.com/coreplane/activityd/internal/domain/trigger"
	"github.com/coreplane/activityd/internal/infrastructure/config"
	"github.com/coreplane/activityd/internal/infrastructure/logging"
	"github.com/coreplane/activityd/internal/infrastructure/monitoring"
	"github.com/coreplane/activityd/internal/infrastructure/persist"
	"github.com/coreplane/activityd/internal/providers/connectivity"
	"github.com/coreplane/activityd/internal/providers/power"
	"github.com/coreplane/activityd/internal/ws"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	router       *gin.Engine
	httpServer   *http.Server
	manager      *scheduler.Manager
	requirements *requirement.Manager
	store        *persist.Store
	logger       *logging.Logger
	config       *config.Config
	metrics      *monitoring.Metrics
}

// NewServer creates a server instance from configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		l, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: false,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
		logger = l
	}

	logger.Info("Initializing activity manager",
		zap.String("port", cfg.Server.Port),
		zap.Int("background_concurrency", cfg.Scheduler.BackgroundConcurrencyLevel),
		zap.Int("background_interactive_concurrency", cfg.Scheduler.BackgroundInteractiveConcurrencyLevel),
	)

	metrics := monitoring.NewMetrics()
	loop := eventloop.New()
	triggers := trigger.NewDispatcher()
	associations := resource.NewAssociations()
	requirements := requirement.NewManager()

	var source connectivity.Source
	if cfg.Upstream.ConnectivityURL != "" {
		source = connectivity.NewHTTPSource(
			cfg.Upstream.ConnectivityURL,
			time.Duration(cfg.Upstream.ConnectivityPollSeconds)*time.Second,
		)
		logger.Info("Connectivity upstream configured",
			zap.String("url", cfg.Upstream.ConnectivityURL))
	}

	connProvider := connectivity.New(loop, source, triggers, logger, metrics)
	powerProvider := power.New(loop, triggers, logger, metrics)

	manager := scheduler.NewManager(loop, requirements, triggers, associations, logger, metrics, scheduler.Config{
		BackgroundConcurrency:            cfg.Scheduler.BackgroundConcurrencyLevel,
		BackgroundInteractiveConcurrency: cfg.Scheduler.BackgroundInteractiveConcurrencyLevel,
		YieldTimeout:                     time.Duration(cfg.Scheduler.YieldTimeoutSeconds) * time.Second,
	})

	loop.Do(func() {
		connProvider.RegisterRequirements(requirements)
		powerProvider.RegisterRequirements(requirements)
		requirements.EnableAll()
	})

	store := persist.NewStore(cfg.Persist.Dir, logger)
	restoreActivities(manager, store, logger)
	seedActivities(manager, persist.NewSeeder(cfg.Persist.SeedDir, logger))

	// The device UI bit completes the enable mask; scheduling starts here.
	manager.Enable(scheduler.UIEnable)

	handlers := apihttp.NewHandlers(manager, connProvider, powerProvider, metrics, logger)
	wsHandler := ws.NewHandler(manager, metrics, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.Metrics(metrics))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	registerRoutes(router, handlers, wsHandler)

	return &Server{
		router:       router,
		manager:      manager,
		requirements: requirements,
		store:        store,
		logger:       logger,
		config:       cfg,
		metrics:      metrics,
	}, nil
}

// restoreActivities re-creates persisted activities in initialized state
// with triggers reset to armed.
func restoreActivities(manager *scheduler.Manager, store *persist.Store, logger *logging.Logger) {
	saved, err := store.Load()
	if err != nil {
		logger.Warn("Failed to load persisted activities", zap.Error(err))
		return
	}
	for _, entry := range saved {
		def := entry.Definition
		if _, err := manager.RecreateActivity(entry.ID, &def); err != nil {
			logger.Warn("Failed to restore persisted activity",
				zap.Uint64("activity", entry.ID),
				zap.String("name", def.Name),
				zap.Error(err))
		}
	}
}

// seedActivities registers shipped definitions, tolerating ones that
// already exist.
func seedActivities(manager *scheduler.Manager, seeder *persist.Seeder) {
	for _, def := range seeder.Load() {
		def := def
		_, _ = manager.CreateActivity(&def)
	}
}

func registerRoutes(router *gin.Engine, handlers *apihttp.Handlers, wsHandler *ws.Handler) {
	router.GET("/health", handlers.Health)
	router.GET("/metrics", apihttp.PrometheusHandler())
	router.GET("/metrics/snapshot", handlers.MetricsSnapshot)

	activity := router.Group("/activity")
	{
		activity.POST("/create", handlers.Create)
		activity.POST("/release", handlers.Release)
		activity.POST("/start", handlers.Start)
		activity.POST("/stop", handlers.Stop)
		activity.POST("/cancel", handlers.Cancel)
		activity.POST("/pause", handlers.Pause)
		activity.POST("/complete", handlers.Complete)
		activity.POST("/focus", handlers.Focus)
		activity.POST("/unfocus", handlers.Unfocus)
		activity.POST("/addFocus", handlers.AddFocus)
		activity.POST("/getDetails", handlers.GetDetails)
		activity.GET("/list", handlers.List)
	}

	admin := router.Group("/admin")
	{
		admin.POST("/concurrency", handlers.SetConcurrency)
		admin.POST("/yieldTimeout", handlers.SetYieldTimeout)
		admin.POST("/enable", handlers.Enable)
		admin.POST("/disable", handlers.Disable)
		admin.POST("/evict", handlers.Evict)
		admin.POST("/evictAll", handlers.EvictAll)
		admin.POST("/runReady", handlers.RunReady)
		admin.POST("/providers/connectivity/update", handlers.ConnectivityUpdate)
		admin.POST("/providers/power/update", handlers.PowerUpdate)
	}

	router.GET("/subscribe", wsHandler.HandleConnection)
}

// Run serves until Close shuts the server down or the listener fails.
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	s.logger.Info("Activity manager listening", zap.String("addr", addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close persists state and shuts the server down gracefully.
func (s *Server) Close() error {
	s.logger.Info("Shutting down")

	if err := s.store.Save(s.manager.PersistentDefinitions()); err != nil {
		s.logger.Warn("Failed to persist activities", zap.Error(err))
	}

	s.manager.Loop().Do(func() {
		s.requirements.DisableAll()
	})

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}

	_ = s.logger.Sync()
	return nil
}
