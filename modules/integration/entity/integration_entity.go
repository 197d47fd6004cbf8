package entity

import (
	"time"

	"healthtrack-api/core/entity"
	"healthtrack-api/core/errors"

	"github.com/google/uuid"
)

// Provider identifies an external health data source.
type Provider string

const (
	ProviderStrava         Provider = "strava"
	ProviderFitbit         Provider = "fitbit"
	ProviderCalorieTracker Provider = "calorietracker"
)

// ParseProvider normalizes and validates a provider name from user input.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderStrava, ProviderFitbit, ProviderCalorieTracker:
		return Provider(s), nil
	}
	return "", errors.NewAppError(errors.ErrInvalidInput, "unsupported provider: "+s, nil)
}

// Status tracks the health of a provider connection.
type Status string

const (
	// StatusActive means the connection is usable as-is.
	StatusActive Status = "ACTIVE"
	// StatusExpired means the access token expired and no refresh token is
	// available; the user must reconnect.
	StatusExpired Status = "EXPIRED"
	// StatusRevoked means the provider rejected our refresh token; the user
	// must reconnect.
	StatusRevoked Status = "REVOKED"
	// StatusError means the last sync failed for a recoverable reason; the
	// next successful sync restores ACTIVE.
	StatusError Status = "ERROR"
)

// CanSync reports whether a sync may run against this status. EXPIRED and
// REVOKED connections need user action first.
func (s Status) CanSync() bool {
	return s == StatusActive || s == StatusError
}

// Integration stores a user's connection to an external provider.
type Integration struct {
	entity.BaseEntity
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Provider       Provider   `db:"provider" json:"provider"`
	AccessToken    string     `db:"access_token" json:"-"`
	RefreshToken   *string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time  `db:"token_expires_at" json:"token_expires_at"`
	Scope          *string    `db:"scope" json:"scope,omitempty"`
	Status         Status     `db:"status" json:"status"`
	LastSyncedAt   *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	LastSyncError  *string    `db:"last_sync_error" json:"last_sync_error,omitempty"`
}

func (Integration) TableName() string {
	return "integrations"
}

// TokenFresh reports whether the access token is still good at now, with a
// five minute margin so a token never expires mid-request.
func (i *Integration) TokenFresh(now time.Time) bool {
	return now.Before(i.TokenExpiresAt.Add(-5 * time.Minute))
}
