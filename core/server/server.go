package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"healthtrack-api/core/cache"
	"healthtrack-api/core/config"
	"healthtrack-api/core/constants"
	"healthtrack-api/core/database"
	"healthtrack-api/core/logger"
	"healthtrack-api/core/middleware"
	"healthtrack-api/core/worker"
	"healthtrack-api/modules/goal"
	"healthtrack-api/modules/integration"
	"healthtrack-api/modules/integration/tasks"
	"healthtrack-api/modules/notification"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// Run boots the API server, the redis-backed cache, and (when enabled) the
// background sync worker, then blocks until an interrupt.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.InitDB(database.DatabaseConfig{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Name:         cfg.Database.Name,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	err = db.EnsureSchema(schemaCtx)
	cancelSchema()
	if err != nil {
		return err
	}

	appCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		return err
	}
	defer appCache.Close()

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	mw := middleware.NewMiddleware()
	v1 := e.Group("/api/v1")
	private := v1.Group("/private")

	notifSvc := notification.Init(private, db, mw)
	progressSvc := goal.Init(db)
	integrationModule := integration.Init(private, db, mw, appCache, cfg, notifSvc, progressSvc)
	defer integrationModule.Tasks.Close()

	var w *worker.Worker
	if cfg.Worker.Enabled {
		w = worker.New(cfg.Redis, cfg.Worker)
		if err := w.RegisterCron(cfg.Worker.SyncCron, tasks.NewSyncDueTask()); err != nil {
			return err
		}
		if err := w.Start(integrationModule.Handler.Mux()); err != nil {
			return err
		}
		logger.Info("Background worker started", "cron", cfg.Worker.SyncCron)
	}

	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("Server stopped", "error", err)
		}
	}()
	logger.Info("Server started", "host", cfg.Server.Host, "port", cfg.Server.Port)

	quit, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-quit.Done()

	logger.Info("Shutting down...")
	if w != nil {
		w.Shutdown()
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return e.Shutdown(shutdownCtx)
}
