package adapter

import (
	"encoding/json"
	"fmt"
	"time"

	"healthtrack-api/modules/integration/entity"
)

// DailyHealthData is the provider-agnostic shape every adapter normalizes
// one calendar day of external data into. Metric fields are pointers so
// absent and zero stay distinguishable; Raw keeps the provider payload for
// diagnostics and archiving.
type DailyHealthData struct {
	Date             time.Time       `json:"date"`
	Provider         entity.Provider `json:"provider"`
	Steps            *int            `json:"steps,omitempty"`
	WeightKg         *float64        `json:"weight_kg,omitempty"`
	CaloriesBurned   *float64        `json:"calories_burned,omitempty"`
	ExerciseMinutes  *int            `json:"exercise_minutes,omitempty"`
	SleepMinutes     *int            `json:"sleep_minutes,omitempty"`
	HeartRateAvg     *int            `json:"heart_rate_avg,omitempty"`
	RestingHeartRate *int            `json:"resting_heart_rate,omitempty"`
	DistanceKm       *float64        `json:"distance_km,omitempty"`
	ActiveMinutes    *int            `json:"active_minutes,omitempty"`
	Raw              json.RawMessage `json:"-"`
}

// Validate checks every present metric against its plausible range. Records
// that fail are counted as sync errors, never persisted.
func (d *DailyHealthData) Validate() error {
	if d.Date.IsZero() {
		return fmt.Errorf("record has no date")
	}
	if err := intInRange("steps", d.Steps, 0, 200000); err != nil {
		return err
	}
	if err := floatInRange("weight_kg", d.WeightKg, 20, 500); err != nil {
		return err
	}
	if err := floatInRange("calories_burned", d.CaloriesBurned, 0, 20000); err != nil {
		return err
	}
	if err := intInRange("exercise_minutes", d.ExerciseMinutes, 0, 1440); err != nil {
		return err
	}
	if err := intInRange("sleep_minutes", d.SleepMinutes, 0, 1440); err != nil {
		return err
	}
	if err := intInRange("heart_rate_avg", d.HeartRateAvg, 20, 300); err != nil {
		return err
	}
	if err := intInRange("resting_heart_rate", d.RestingHeartRate, 20, 300); err != nil {
		return err
	}
	if err := floatInRange("distance_km", d.DistanceKm, 0, 500); err != nil {
		return err
	}
	if err := intInRange("active_minutes", d.ActiveMinutes, 0, 1440); err != nil {
		return err
	}
	return nil
}

func intInRange(field string, v *int, min, max int) error {
	if v == nil {
		return nil
	}
	if *v < min || *v > max {
		return fmt.Errorf("%s out of range: %d (expected %d-%d)", field, *v, min, max)
	}
	return nil
}

func floatInRange(field string, v *float64, min, max float64) error {
	if v == nil {
		return nil
	}
	if *v < min || *v > max {
		return fmt.Errorf("%s out of range: %g (expected %g-%g)", field, *v, min, max)
	}
	return nil
}
