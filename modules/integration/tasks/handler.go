package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"healthtrack-api/core/errors"
	"healthtrack-api/core/logger"
	"healthtrack-api/modules/integration/dto"
	"healthtrack-api/modules/integration/service"

	"github.com/hibiken/asynq"
)

// Handler executes integration tasks on the worker.
type Handler struct {
	syncService service.SyncService
}

func NewHandler(syncService service.SyncService) *Handler {
	return &Handler{syncService: syncService}
}

// Mux routes task types to their handlers.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeIntegrationSync, h.HandleSync)
	mux.HandleFunc(TypeIntegrationSyncDue, h.HandleSyncDue)
	return mux
}

// HandleSync runs one integration sync. Conditions retrying cannot fix (the
// integration is gone, or the user must reconnect) skip asynq's retry;
// transient provider failures retry with backoff.
func (h *Handler) HandleSync(ctx context.Context, t *asynq.Task) error {
	var p SyncPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", TypeIntegrationSync, err, asynq.SkipRetry)
	}

	opts := dto.SyncOptions{StartDate: p.StartDate, EndDate: p.EndDate}
	result, err := h.syncService.SyncHealthData(ctx, p.IntegrationID, p.UserID, opts)
	if err != nil {
		if isTerminal(err) {
			logger.Warn("Tasks:HandleSync:Terminal", "error", err, "integration_id", p.IntegrationID)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	logger.Info("Tasks:HandleSync:Done",
		"integration_id", p.IntegrationID,
		"synced", result.RecordsSynced,
		"skipped", result.RecordsSkipped,
		"errored", result.RecordsErrored)
	return nil
}

// HandleSyncDue fans out one sync task per integration past the staleness
// window.
func (h *Handler) HandleSyncDue(ctx context.Context, t *asynq.Task) error {
	return h.syncService.SyncDueIntegrations(ctx)
}

// isTerminal reports whether retrying the task can ever help.
func isTerminal(err error) bool {
	for _, code := range []errors.ErrorCode{
		errors.ErrNotFound,
		errors.ErrForbidden,
		errors.ErrUnauthorized,
		errors.ErrInvalidState,
	} {
		if errors.HasCode(err, code) {
			return true
		}
	}
	return false
}
