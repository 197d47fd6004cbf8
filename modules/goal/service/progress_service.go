package service

import (
	"context"
	"fmt"

	"healthtrack-api/core/logger"
	"healthtrack-api/modules/goal/entity"
	"healthtrack-api/modules/goal/repository"
	healthRepo "healthtrack-api/modules/health/repository"

	"github.com/google/uuid"
)

// progressFn computes the raw percent progress for one goal.
type progressFn func(ctx context.Context, g *entity.Goal) (float64, error)

// ProgressService recalculates goal progress from persisted health entries.
// The sync engine calls it after every import that stored new data; a
// recalculation failure is logged per goal and never fails the caller.
type ProgressService struct {
	repo       repository.GoalRepository
	healthRepo healthRepo.HealthRepository
	strategies map[entity.GoalType]progressFn
}

func NewProgressService(repo repository.GoalRepository, healthRepository healthRepo.HealthRepository) *ProgressService {
	s := &ProgressService{
		repo:       repo,
		healthRepo: healthRepository,
	}
	s.strategies = map[entity.GoalType]progressFn{
		entity.GoalTypeSteps:    s.stepsProgress,
		entity.GoalTypeCalories: s.caloriesProgress,
		entity.GoalTypeExercise: s.exerciseProgress,
		entity.GoalTypeWeight:   s.weightProgress,
	}
	return s
}

// RecalculateForUser refreshes the progress of every active goal of the
// user. Individual goal failures are skipped, not propagated.
func (s *ProgressService) RecalculateForUser(ctx context.Context, userID uuid.UUID) error {
	goals, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return err
	}

	for i := range goals {
		g := &goals[i]
		progress, err := s.computeProgress(ctx, g)
		if err != nil {
			logger.Error("ProgressService:Compute:Error", "error", err, "goal_id", g.ID, "goal_type", g.GoalType)
			continue
		}
		if err := s.repo.UpdateProgress(ctx, g.ID, progress); err != nil {
			logger.Error("ProgressService:Update:Error", "error", err, "goal_id", g.ID)
		}
	}
	return nil
}

func (s *ProgressService) computeProgress(ctx context.Context, g *entity.Goal) (float64, error) {
	fn, ok := s.strategies[g.GoalType]
	if !ok {
		return 0, fmt.Errorf("no progress strategy for goal type %q", g.GoalType)
	}
	p, err := fn(ctx, g)
	if err != nil {
		return 0, err
	}
	return clampPercent(p), nil
}

func (s *ProgressService) stepsProgress(ctx context.Context, g *entity.Goal) (float64, error) {
	totals, err := s.healthRepo.SumMetrics(ctx, g.UserID, g.StartDate, g.EndDate)
	if err != nil {
		return 0, err
	}
	return ratioPercent(float64(totals.Steps), g.TargetValue), nil
}

func (s *ProgressService) caloriesProgress(ctx context.Context, g *entity.Goal) (float64, error) {
	totals, err := s.healthRepo.SumMetrics(ctx, g.UserID, g.StartDate, g.EndDate)
	if err != nil {
		return 0, err
	}
	return ratioPercent(totals.CaloriesBurned, g.TargetValue), nil
}

func (s *ProgressService) exerciseProgress(ctx context.Context, g *entity.Goal) (float64, error) {
	totals, err := s.healthRepo.SumMetrics(ctx, g.UserID, g.StartDate, g.EndDate)
	if err != nil {
		return 0, err
	}
	return ratioPercent(float64(totals.ExerciseMinutes), g.TargetValue), nil
}

// weightProgress measures how far the latest recorded weight has moved from
// the start value toward the target. The same formula covers loss and gain
// goals; a goal already at its start value reports 0 until a new weight
// lands.
func (s *ProgressService) weightProgress(ctx context.Context, g *entity.Goal) (float64, error) {
	current, err := s.healthRepo.LatestWeight(ctx, g.UserID)
	if err != nil {
		return 0, err
	}
	if current == nil || g.StartValue == nil {
		return 0, nil
	}

	span := *g.StartValue - g.TargetValue
	if span == 0 {
		return 100, nil
	}
	return (*g.StartValue - *current) / span * 100, nil
}

func ratioPercent(total, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return total / target * 100
}

func clampPercent(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
