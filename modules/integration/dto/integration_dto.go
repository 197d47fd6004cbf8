package dto

import (
	"time"

	"github.com/google/uuid"
)

// ========== Connection DTOs ==========

// ConnectRequest starts an OAuth flow for one provider.
type ConnectRequest struct {
	Provider string `json:"provider" validate:"required"`
}

// ConnectResponse carries the consent URL the client must redirect to and
// the state echoed back on callback.
type ConnectResponse struct {
	AuthURL   string    `json:"auth_url"`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CallbackRequest completes the OAuth flow with the provider's redirect
// parameters.
type CallbackRequest struct {
	Code  string `json:"code" validate:"required"`
	State string `json:"state" validate:"required"`
}

// IntegrationResponse is the client-facing view of a connection, including
// the sync metadata used to render connection health.
type IntegrationResponse struct {
	ID            uuid.UUID  `json:"id"`
	Provider      string     `json:"provider"`
	Status        string     `json:"status"`
	Scope         *string    `json:"scope,omitempty"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	LastSyncError *string    `json:"last_sync_error,omitempty"`
	ConnectedAt   time.Time  `json:"connected_at"`
}

// IntegrationListResponse lists the caller's connections.
type IntegrationListResponse struct {
	Integrations []IntegrationResponse `json:"integrations"`
}

// ========== Sync DTOs ==========

// SyncRequest narrows a sync to an explicit range. Dates are "2006-01-02";
// both optional.
type SyncRequest struct {
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	ForceResync bool   `json:"force_resync,omitempty"`
}

// SyncOptions are the parsed parameters the sync engine consumes.
type SyncOptions struct {
	StartDate   *time.Time
	EndDate     *time.Time
	ForceResync bool
}

// SyncResult summarizes one sync invocation. Never persisted.
type SyncResult struct {
	IntegrationID  uuid.UUID `json:"integration_id"`
	Provider       string    `json:"provider"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	RecordsSynced  int       `json:"records_synced"`
	RecordsSkipped int       `json:"records_skipped"`
	RecordsErrored int       `json:"records_errored"`
	DurationMs     int64     `json:"duration_ms"`
	Errors         []string  `json:"errors,omitempty"`
}

// SyncAllResponse lists the results of the integrations that synced; failed
// ones are omitted.
type SyncAllResponse struct {
	Results []SyncResult `json:"results"`
}
