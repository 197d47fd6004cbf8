package goal

import (
	"healthtrack-api/core/database"
	"healthtrack-api/modules/goal/repository"
	"healthtrack-api/modules/goal/service"
	healthRepo "healthtrack-api/modules/health/repository"
)

// Init wires the goal progress calculator. The module exposes no routes;
// goal CRUD is handled elsewhere, this package only recalculates progress
// when the sync engine asks.
func Init(db database.Database) *service.ProgressService {
	repo := repository.NewGoalRepository(&db)
	healthRepository := healthRepo.NewHealthRepository(&db)
	return service.NewProgressService(repo, healthRepository)
}
