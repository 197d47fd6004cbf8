package repository

import (
	"context"

	"healthtrack-api/core/database"
	"healthtrack-api/core/logger"
	"healthtrack-api/modules/goal/entity"

	"github.com/google/uuid"
)

// GoalRepository is the slice of goal persistence the progress calculator
// needs. Goal CRUD itself lives outside this subsystem.
type GoalRepository interface {
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]entity.Goal, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress float64) error
}

type goalRepository struct {
	db database.IDatabase
}

func NewGoalRepository(db database.IDatabase) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]entity.Goal, error) {
	query := `
		SELECT * FROM goals
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC
	`
	var goals []entity.Goal
	err := r.db.SelectContext(ctx, &goals, query, userID, entity.GoalStatusActive)
	if err != nil {
		logger.Error("GoalRepository:FindActiveByUserID:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return goals, nil
}

// UpdateProgress writes the recalculated percentage and completes the goal
// once it reaches 100.
func (r *goalRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress float64) error {
	query := `
		UPDATE goals
		SET progress = $2,
		    status = CASE WHEN $2 >= 100 THEN 'completed' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
	`
	err := r.db.ExecContext(ctx, query, id, progress)
	if err != nil {
		logger.Error("GoalRepository:UpdateProgress:Error", "error", err, "id", id)
		return err
	}
	return nil
}
