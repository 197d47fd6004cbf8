package repository

import (
	"context"
	"database/sql"
	"time"

	"healthtrack-api/core/database"
	"healthtrack-api/core/logger"
	"healthtrack-api/modules/health/entity"

	"github.com/google/uuid"
)

// MetricTotals aggregates the summable metrics over a date range, used by
// goal progress calculation.
type MetricTotals struct {
	Steps           int64   `db:"steps"`
	CaloriesBurned  float64 `db:"calories_burned"`
	ExerciseMinutes int64   `db:"exercise_minutes"`
}

type HealthRepository interface {
	FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*entity.HealthEntry, error)
	Create(ctx context.Context, e *entity.HealthEntry) (*entity.HealthEntry, error)
	Upsert(ctx context.Context, e *entity.HealthEntry) error
	SumMetrics(ctx context.Context, userID uuid.UUID, start, end time.Time) (*MetricTotals, error)
	LatestWeight(ctx context.Context, userID uuid.UUID) (*float64, error)
}

type healthRepository struct {
	db database.IDatabase
}

func NewHealthRepository(db database.IDatabase) HealthRepository {
	return &healthRepository{db: db}
}

func (r *healthRepository) FindByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) (*entity.HealthEntry, error) {
	query := `SELECT * FROM health_entries WHERE user_id = $1 AND entry_date = $2`
	var e entity.HealthEntry
	err := r.db.GetContext(ctx, &e, query, userID, date.Format("2006-01-02"))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("HealthRepository:FindByUserAndDate:Error", "error", err, "user_id", userID, "date", date)
		return nil, err
	}
	return &e, nil
}

func (r *healthRepository) Create(ctx context.Context, e *entity.HealthEntry) (*entity.HealthEntry, error) {
	query := `
		INSERT INTO health_entries (
			user_id, entry_date, steps, weight_kg, calories_burned,
			exercise_minutes, sleep_minutes, heart_rate_avg, resting_heart_rate,
			distance_km, active_minutes, source
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(
		ctx, query,
		e.UserID, e.EntryDate.Format("2006-01-02"), e.Steps, e.WeightKg, e.CaloriesBurned,
		e.ExerciseMinutes, e.SleepMinutes, e.HeartRateAvg, e.RestingHeartRate,
		e.DistanceKm, e.ActiveMinutes, e.Source,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		logger.Error("HealthRepository:Create:Error", "error", err, "user_id", e.UserID, "date", e.EntryDate)
		return nil, err
	}
	return e, nil
}

// Upsert overwrites the (user, date) row, keeping the one-row-per-day
// invariant on force resync.
func (r *healthRepository) Upsert(ctx context.Context, e *entity.HealthEntry) error {
	query := `
		INSERT INTO health_entries (
			user_id, entry_date, steps, weight_kg, calories_burned,
			exercise_minutes, sleep_minutes, heart_rate_avg, resting_heart_rate,
			distance_km, active_minutes, source
		)
		VALUES (
			:user_id, :entry_date, :steps, :weight_kg, :calories_burned,
			:exercise_minutes, :sleep_minutes, :heart_rate_avg, :resting_heart_rate,
			:distance_km, :active_minutes, :source
		)
		ON CONFLICT (user_id, entry_date)
		DO UPDATE SET
			steps = EXCLUDED.steps,
			weight_kg = EXCLUDED.weight_kg,
			calories_burned = EXCLUDED.calories_burned,
			exercise_minutes = EXCLUDED.exercise_minutes,
			sleep_minutes = EXCLUDED.sleep_minutes,
			heart_rate_avg = EXCLUDED.heart_rate_avg,
			resting_heart_rate = EXCLUDED.resting_heart_rate,
			distance_km = EXCLUDED.distance_km,
			active_minutes = EXCLUDED.active_minutes,
			source = EXCLUDED.source,
			updated_at = NOW()
	`
	_, err := r.db.NamedExecContext(ctx, query, e)
	if err != nil {
		logger.Error("HealthRepository:Upsert:Error", "error", err, "user_id", e.UserID, "date", e.EntryDate)
		return err
	}
	return nil
}

func (r *healthRepository) SumMetrics(ctx context.Context, userID uuid.UUID, start, end time.Time) (*MetricTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(steps), 0) AS steps,
			COALESCE(SUM(calories_burned), 0) AS calories_burned,
			COALESCE(SUM(exercise_minutes), 0) AS exercise_minutes
		FROM health_entries
		WHERE user_id = $1 AND entry_date BETWEEN $2 AND $3
	`
	var totals MetricTotals
	err := r.db.GetContext(ctx, &totals, query, userID, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		logger.Error("HealthRepository:SumMetrics:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return &totals, nil
}

func (r *healthRepository) LatestWeight(ctx context.Context, userID uuid.UUID) (*float64, error) {
	query := `
		SELECT weight_kg FROM health_entries
		WHERE user_id = $1 AND weight_kg IS NOT NULL
		ORDER BY entry_date DESC
		LIMIT 1
	`
	var weight float64
	err := r.db.GetContext(ctx, &weight, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("HealthRepository:LatestWeight:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return &weight, nil
}
