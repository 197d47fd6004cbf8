package integration

import (
	"healthtrack-api/core/cache"
	"healthtrack-api/core/config"
	"healthtrack-api/core/database"
	"healthtrack-api/core/logger"
	"healthtrack-api/core/middleware"
	"healthtrack-api/core/storage"
	healthRepo "healthtrack-api/modules/health/repository"
	"healthtrack-api/modules/integration/adapter"
	"healthtrack-api/modules/integration/controller"
	"healthtrack-api/modules/integration/repository"
	"healthtrack-api/modules/integration/router"
	"healthtrack-api/modules/integration/service"
	"healthtrack-api/modules/integration/tasks"
	notifService "healthtrack-api/modules/notification/service"

	"github.com/labstack/echo/v4"
)

// Module exposes the pieces the server boot wires into the background
// worker.
type Module struct {
	SyncService service.SyncService
	Tasks       *tasks.Client
	Handler     *tasks.Handler
}

func Init(
	e *echo.Group,
	db database.Database,
	mw *middleware.Middleware,
	appCache cache.Cache,
	cfg *config.Config,
	notifSvc *notifService.NotificationService,
	recalc service.ProgressRecalculator,
) *Module {
	repo := repository.NewIntegrationRepository(&db)
	healthRepository := healthRepo.NewHealthRepository(&db)
	registry := adapter.NewRegistry(cfg.OAuth)
	codec := service.NewStateCodec(cfg.OAuth.StateSecret)

	// Leave the archiver nil unless configured so the engine skips it
	// entirely.
	var archiver service.RawArchiver
	if cfg.Archive.Enabled {
		archiver = storage.NewArchive(cfg.Archive)
	}

	taskClient := tasks.NewClient(cfg.Redis)

	log := logger.Default()
	syncSvc := service.NewSyncService(repo, healthRepository, registry, archiver, recalc, notifSvc, taskClient, log)
	integSvc := service.NewIntegrationService(repo, registry, codec, appCache, notifSvc, taskClient, cfg.OAuth.RedirectURI, log)

	ctrl := controller.NewIntegrationController(integSvc, syncSvc)
	router.NewIntegrationRouter(ctrl).Register(e, mw)

	return &Module{
		SyncService: syncSvc,
		Tasks:       taskClient,
		Handler:     tasks.NewHandler(syncSvc),
	}
}
