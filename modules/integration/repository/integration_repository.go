package repository

import (
	"context"
	"database/sql"
	"time"

	"healthtrack-api/core/database"
	"healthtrack-api/core/logger"
	"healthtrack-api/modules/integration/entity"

	"github.com/google/uuid"
)

// IntegrationRepository is the persistence boundary the sync engine depends
// on. Find methods return (nil, nil) when no row matches.
type IntegrationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Integration, error)
	FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider entity.Provider) (*entity.Integration, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]entity.Integration, error)
	FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]entity.Integration, error)
	FindDueForSync(ctx context.Context, before time.Time) ([]entity.Integration, error)
	Create(ctx context.Context, in *entity.Integration) (*entity.Integration, error)
	UpdateCredentials(ctx context.Context, in *entity.Integration) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.Status) error
	UpdateLastSynced(ctx context.Context, id uuid.UUID, syncedAt time.Time) error
	RecordSyncError(ctx context.Context, id uuid.UUID, message string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type integrationRepository struct {
	db database.IDatabase
}

func NewIntegrationRepository(db database.IDatabase) IntegrationRepository {
	return &integrationRepository{db: db}
}

func (r *integrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Integration, error) {
	query := `SELECT * FROM integrations WHERE id = $1`
	var in entity.Integration
	err := r.db.GetContext(ctx, &in, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("IntegrationRepository:FindByID:Error", "error", err, "id", id)
		return nil, err
	}
	return &in, nil
}

// FindByUserAndProvider returns the most recent integration for the pair,
// regardless of status, so reconnection can reuse a revoked row instead of
// colliding with the live-row unique index.
func (r *integrationRepository) FindByUserAndProvider(ctx context.Context, userID uuid.UUID, provider entity.Provider) (*entity.Integration, error) {
	query := `
		SELECT * FROM integrations
		WHERE user_id = $1 AND provider = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var in entity.Integration
	err := r.db.GetContext(ctx, &in, query, userID, provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("IntegrationRepository:FindByUserAndProvider:Error", "error", err, "user_id", userID, "provider", provider)
		return nil, err
	}
	return &in, nil
}

func (r *integrationRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]entity.Integration, error) {
	query := `
		SELECT * FROM integrations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	var items []entity.Integration
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		logger.Error("IntegrationRepository:FindByUserID:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return items, nil
}

func (r *integrationRepository) FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]entity.Integration, error) {
	query := `
		SELECT * FROM integrations
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC
	`
	var items []entity.Integration
	if err := r.db.SelectContext(ctx, &items, query, userID, entity.StatusActive); err != nil {
		logger.Error("IntegrationRepository:FindActiveByUserID:Error", "error", err, "user_id", userID)
		return nil, err
	}
	return items, nil
}

// FindDueForSync returns syncable integrations whose last sync is older than
// the cutoff (or that never synced). ERROR rows are included so transient
// failures retry on the next scheduler pass.
func (r *integrationRepository) FindDueForSync(ctx context.Context, before time.Time) ([]entity.Integration, error) {
	query := `
		SELECT * FROM integrations
		WHERE status IN ($1, $2)
		  AND (last_synced_at IS NULL OR last_synced_at < $3)
		ORDER BY last_synced_at ASC NULLS FIRST
	`
	var items []entity.Integration
	if err := r.db.SelectContext(ctx, &items, query, entity.StatusActive, entity.StatusError, before); err != nil {
		logger.Error("IntegrationRepository:FindDueForSync:Error", "error", err, "before", before)
		return nil, err
	}
	return items, nil
}

func (r *integrationRepository) Create(ctx context.Context, in *entity.Integration) (*entity.Integration, error) {
	query := `
		INSERT INTO integrations (user_id, provider, access_token, refresh_token, token_expires_at, scope, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(
		ctx, query,
		in.UserID, in.Provider, in.AccessToken, in.RefreshToken,
		in.TokenExpiresAt, in.Scope, in.Status,
	).Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		logger.Error("IntegrationRepository:Create:Error", "error", err, "user_id", in.UserID, "provider", in.Provider)
		return nil, err
	}
	return in, nil
}

// UpdateCredentials persists the token bundle plus whatever status the
// caller decided; used by both reconnection (forces ACTIVE) and proactive
// refresh (keeps the current status).
func (r *integrationRepository) UpdateCredentials(ctx context.Context, in *entity.Integration) error {
	query := `
		UPDATE integrations
		SET access_token = $2, refresh_token = $3, token_expires_at = $4, scope = $5, status = $6, updated_at = NOW()
		WHERE id = $1
	`
	err := r.db.ExecContext(ctx, query,
		in.ID, in.AccessToken, in.RefreshToken, in.TokenExpiresAt, in.Scope, in.Status,
	)
	if err != nil {
		logger.Error("IntegrationRepository:UpdateCredentials:Error", "error", err, "id", in.ID)
	}
	return err
}

func (r *integrationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.Status) error {
	query := `UPDATE integrations SET status = $2, updated_at = NOW() WHERE id = $1`
	err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		logger.Error("IntegrationRepository:UpdateStatus:Error", "error", err, "id", id, "status", status)
	}
	return err
}

// UpdateLastSynced marks a successful sync: stamps the time, clears the last
// error, and lifts an ERROR status back to ACTIVE in the same statement.
func (r *integrationRepository) UpdateLastSynced(ctx context.Context, id uuid.UUID, syncedAt time.Time) error {
	query := `
		UPDATE integrations
		SET last_synced_at = $2,
		    last_sync_error = NULL,
		    status = CASE WHEN status = 'ERROR' THEN 'ACTIVE' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
	`
	err := r.db.ExecContext(ctx, query, id, syncedAt)
	if err != nil {
		logger.Error("IntegrationRepository:UpdateLastSynced:Error", "error", err, "id", id)
	}
	return err
}

func (r *integrationRepository) RecordSyncError(ctx context.Context, id uuid.UUID, message string) error {
	query := `UPDATE integrations SET last_sync_error = $2, updated_at = NOW() WHERE id = $1`
	err := r.db.ExecContext(ctx, query, id, message)
	if err != nil {
		logger.Error("IntegrationRepository:RecordSyncError:Error", "error", err, "id", id)
	}
	return err
}

func (r *integrationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM integrations WHERE id = $1`
	err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		logger.Error("IntegrationRepository:Delete:Error", "error", err, "id", id)
	}
	return err
}
