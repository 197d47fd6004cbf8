package entity

import (
	"time"

	"healthtrack-api/core/entity"

	"github.com/google/uuid"
)

// HealthEntry is one user's normalized metrics for one calendar day. Metric
// columns are nullable because no provider supplies all of them.
type HealthEntry struct {
	entity.BaseEntity
	UserID           uuid.UUID `db:"user_id" json:"user_id"`
	EntryDate        time.Time `db:"entry_date" json:"entry_date"`
	Steps            *int      `db:"steps" json:"steps,omitempty"`
	WeightKg         *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	CaloriesBurned   *float64  `db:"calories_burned" json:"calories_burned,omitempty"`
	ExerciseMinutes  *int      `db:"exercise_minutes" json:"exercise_minutes,omitempty"`
	SleepMinutes     *int      `db:"sleep_minutes" json:"sleep_minutes,omitempty"`
	HeartRateAvg     *int      `db:"heart_rate_avg" json:"heart_rate_avg,omitempty"`
	RestingHeartRate *int      `db:"resting_heart_rate" json:"resting_heart_rate,omitempty"`
	DistanceKm       *float64  `db:"distance_km" json:"distance_km,omitempty"`
	ActiveMinutes    *int      `db:"active_minutes" json:"active_minutes,omitempty"`
	Source           string    `db:"source" json:"source"`
}

func (HealthEntry) TableName() string {
	return "health_entries"
}
