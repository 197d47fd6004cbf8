package entity

import (
	"time"

	"healthtrack-api/core/entity"

	"github.com/google/uuid"
)

// GoalType selects the progress formula.
type GoalType string

const (
	// GoalTypeSteps, GoalTypeCalories and GoalTypeExercise are cumulative:
	// progress is the metric summed over the goal window against the target.
	GoalTypeSteps    GoalType = "steps"
	GoalTypeCalories GoalType = "calories"
	GoalTypeExercise GoalType = "exercise"

	// GoalTypeWeight is positional: progress is how far the latest weight has
	// moved from the start value toward the target.
	GoalTypeWeight GoalType = "weight"
)

type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusAbandoned GoalStatus = "abandoned"
)

// Goal is one user target over a date range. StartValue anchors goals
// measured as a delta (weight); it is unused for cumulative goals.
type Goal struct {
	entity.BaseEntity
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	GoalType    GoalType   `db:"goal_type" json:"goal_type"`
	TargetValue float64    `db:"target_value" json:"target_value"`
	StartValue  *float64   `db:"start_value" json:"start_value,omitempty"`
	Progress    float64    `db:"progress" json:"progress"`
	Status      GoalStatus `db:"status" json:"status"`
	StartDate   time.Time  `db:"start_date" json:"start_date"`
	EndDate     time.Time  `db:"end_date" json:"end_date"`
}

func (Goal) TableName() string {
	return "goals"
}
