package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TypeIntegrationSync imports one integration's data over a date range.
	TypeIntegrationSync = "integration:sync"

	// TypeIntegrationSyncDue is the hourly scheduler entry that fans
	// TypeIntegrationSync out for every stale integration.
	TypeIntegrationSyncDue = "integration:sync_due"
)

// SyncPayload is the body of a TypeIntegrationSync task. Nil dates mean the
// engine applies its default range at execution time, not enqueue time.
type SyncPayload struct {
	IntegrationID uuid.UUID  `json:"integration_id"`
	UserID        uuid.UUID  `json:"user_id"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
}

func NewSyncTask(p SyncPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeIntegrationSync, payload), nil
}

func NewSyncDueTask() *asynq.Task {
	return asynq.NewTask(TypeIntegrationSyncDue, nil)
}
