package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"healthtrack-api/core/constants"
	"healthtrack-api/core/errors"
	"healthtrack-api/core/logger"
	healthEntity "healthtrack-api/modules/health/entity"
	healthRepo "healthtrack-api/modules/health/repository"
	"healthtrack-api/modules/integration/adapter"
	"healthtrack-api/modules/integration/dto"
	"healthtrack-api/modules/integration/entity"
	"healthtrack-api/modules/integration/repository"
	notifDto "healthtrack-api/modules/notification/dto"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RawArchiver stores raw provider payloads for diagnostics. Nil disables
// archiving.
type RawArchiver interface {
	ArchiveRaw(ctx context.Context, provider string, userID uuid.UUID, day time.Time, payload []byte) error
}

// ProgressRecalculator is the goal module hook invoked after a sync that
// persisted new data. Failures never affect the sync outcome.
type ProgressRecalculator interface {
	RecalculateForUser(ctx context.Context, userID uuid.UUID) error
}

type SyncService interface {
	// SyncHealthData runs one fetch/validate/dedup/persist pass for a single
	// integration. requestingUserID enforces ownership; uuid.Nil marks an
	// internal caller (worker, sync-all fan-out) and skips the check.
	SyncHealthData(ctx context.Context, integrationID, requestingUserID uuid.UUID, opts dto.SyncOptions) (*dto.SyncResult, error)

	// SyncAllIntegrations syncs every ACTIVE integration of the user with
	// bounded concurrency and returns only the successful results.
	SyncAllIntegrations(ctx context.Context, userID uuid.UUID) (*dto.SyncAllResponse, error)

	// SyncDueIntegrations schedules a background sync for every integration
	// whose last sync is older than the staleness window.
	SyncDueIntegrations(ctx context.Context) error
}

type syncService struct {
	repo       repository.IntegrationRepository
	healthRepo healthRepo.HealthRepository
	registry   AdapterResolver
	archiver   RawArchiver
	recalc     ProgressRecalculator
	notifier   Notifier
	enqueuer   SyncEnqueuer
	locks      *syncLocks
	log        *logger.Logger
	now        func() time.Time
}

func NewSyncService(
	repo repository.IntegrationRepository,
	healthRepository healthRepo.HealthRepository,
	registry AdapterResolver,
	archiver RawArchiver,
	recalc ProgressRecalculator,
	notifier Notifier,
	enqueuer SyncEnqueuer,
	log *logger.Logger,
) SyncService {
	return &syncService{
		repo:       repo,
		healthRepo: healthRepository,
		registry:   registry,
		archiver:   archiver,
		recalc:     recalc,
		notifier:   notifier,
		enqueuer:   enqueuer,
		locks:      newSyncLocks(),
		log:        log,
		now:        time.Now,
	}
}

func (s *syncService) SyncHealthData(ctx context.Context, integrationID, requestingUserID uuid.UUID, opts dto.SyncOptions) (*dto.SyncResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.SyncTimeout)
	defer cancel()

	in, err := s.repo.FindByID(ctx, integrationID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load integration", err)
	}
	if in == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Integration not found", nil)
	}
	if requestingUserID != uuid.Nil && in.UserID != requestingUserID {
		return nil, errors.NewAppError(errors.ErrForbidden, "Integration belongs to another user", nil)
	}
	if !in.Status.CanSync() {
		return nil, errors.NewAppError(errors.ErrInvalidState,
			fmt.Sprintf("Integration is %s, not active, reconnect", in.Status), nil)
	}

	release, acquired := s.locks.TryAcquire(in.ID)
	if !acquired {
		return nil, errors.NewAppError(errors.ErrConflict, "Sync already in progress for this integration", nil)
	}
	defer release()

	started := s.now()
	start, end := s.resolveRange(opts)

	ad, err := s.registry.Get(in.Provider)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Provider not configured", err)
	}

	if err := s.ensureFreshToken(ctx, in, ad); err != nil {
		return nil, err
	}

	records, err := ad.FetchHealthData(ctx, credentialsFromIntegration(in), start, end)
	if err != nil {
		s.recordFetchFailure(ctx, in, err)
		return nil, err
	}

	result := &dto.SyncResult{
		IntegrationID: in.ID,
		Provider:      string(in.Provider),
		StartDate:     start,
		EndDate:       end,
	}
	for i := range records {
		s.persistRecord(ctx, in, &records[i], opts.ForceResync, result)
	}

	// Individual record errors do not make the sync a failure: the pass
	// completed, so the integration is marked synced and any prior error
	// state is cleared.
	if err := s.repo.UpdateLastSynced(ctx, in.ID, s.now()); err != nil {
		s.log.Error("SyncService:UpdateLastSynced:Error", "error", err, "integration_id", in.ID)
	}

	if result.RecordsSynced > 0 && s.recalc != nil {
		if err := s.recalc.RecalculateForUser(ctx, in.UserID); err != nil {
			s.log.Error("SyncService:RecalculateProgress:Error", "error", err, "user_id", in.UserID)
		}
	}

	result.DurationMs = s.now().Sub(started).Milliseconds()
	s.log.Info("SyncService:SyncComplete",
		"integration_id", in.ID, "provider", in.Provider,
		"synced", result.RecordsSynced, "skipped", result.RecordsSkipped,
		"errored", result.RecordsErrored, "duration_ms", result.DurationMs)
	return result, nil
}

func (s *syncService) SyncAllIntegrations(ctx context.Context, userID uuid.UUID) (*dto.SyncAllResponse, error) {
	integrations, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load integrations", err)
	}

	var (
		mu      sync.Mutex
		results []dto.SyncResult
	)

	// Wait for all, discard failures: a goroutine never returns an error, so
	// one provider outage cannot cancel the siblings.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.SyncFanOutLimit)
	for _, in := range integrations {
		in := in
		g.Go(func() error {
			res, err := s.SyncHealthData(gctx, in.ID, uuid.Nil, dto.SyncOptions{})
			if err != nil {
				s.log.Error("SyncService:SyncAll:IntegrationFailed",
					"error", err, "integration_id", in.ID, "provider", in.Provider)
				return nil
			}
			mu.Lock()
			results = append(results, *res)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return &dto.SyncAllResponse{Results: results}, nil
}

// SyncDueIntegrations runs on the worker's hourly cron. Each due integration
// becomes its own background task so retries and backoff stay per provider.
func (s *syncService) SyncDueIntegrations(ctx context.Context) error {
	if s.enqueuer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	cutoff := s.now().Add(-constants.SyncStaleness)
	due, err := s.repo.FindDueForSync(ctx, cutoff)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to load due integrations", err)
	}
	if len(due) == 0 {
		return nil
	}

	enqueued := 0
	for _, in := range due {
		if err := s.enqueuer.EnqueueSync(ctx, in.ID, in.UserID, nil, nil); err != nil {
			s.log.Error("SyncService:SyncDue:EnqueueError", "error", err, "integration_id", in.ID)
			continue
		}
		enqueued++
	}
	s.log.Info("SyncService:SyncDue:Enqueued", "due", len(due), "enqueued", enqueued)
	return nil
}

// resolveRange applies the default window: the last 7 days through now.
func (s *syncService) resolveRange(opts dto.SyncOptions) (time.Time, time.Time) {
	end := s.now()
	if opts.EndDate != nil {
		end = *opts.EndDate
	}
	start := end.AddDate(0, 0, -constants.DefaultSyncRangeDays)
	if opts.StartDate != nil {
		start = *opts.StartDate
	}
	return start, end
}

// ensureFreshToken refreshes credentials that are expired or inside the five
// minute expiry window, persisting the new token before any fetch so a crash
// cannot lose it. No refresh token on record or a provider rejection is
// terminal: the integration is flagged and the user must reconnect.
func (s *syncService) ensureFreshToken(ctx context.Context, in *entity.Integration, ad adapter.Adapter) error {
	if in.TokenFresh(s.now()) {
		return nil
	}

	if in.RefreshToken == nil || *in.RefreshToken == "" {
		s.markUnrecoverable(ctx, in, entity.StatusExpired, "access token expired and no refresh token on record")
		return errors.NewAppError(errors.ErrUnauthorized,
			fmt.Sprintf("%s token expired, reconnect required", in.Provider), nil)
	}

	s.log.Info("SyncService:RefreshingToken", "integration_id", in.ID, "provider", in.Provider)
	creds, err := ad.RefreshToken(ctx, *in.RefreshToken)
	if err != nil {
		if errors.HasCode(err, errors.ErrUnauthorized) {
			s.markUnrecoverable(ctx, in, entity.StatusRevoked, "provider rejected the refresh token")
			return err
		}
		if rerr := s.repo.RecordSyncError(ctx, in.ID, err.Error()); rerr != nil {
			s.log.Error("SyncService:RecordSyncError:Error", "error", rerr, "integration_id", in.ID)
		}
		if serr := s.repo.UpdateStatus(ctx, in.ID, entity.StatusError); serr != nil {
			s.log.Error("SyncService:UpdateStatus:Error", "error", serr, "integration_id", in.ID)
		}
		return err
	}

	applyCredentials(in, creds)
	if err := s.repo.UpdateCredentials(ctx, in); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to persist refreshed credentials", err)
	}
	return nil
}

// markUnrecoverable flags an integration that cannot sync again without the
// user reconnecting, and tells the user so.
func (s *syncService) markUnrecoverable(ctx context.Context, in *entity.Integration, status entity.Status, message string) {
	if err := s.repo.RecordSyncError(ctx, in.ID, message); err != nil {
		s.log.Error("SyncService:RecordSyncError:Error", "error", err, "integration_id", in.ID)
	}
	if err := s.repo.UpdateStatus(ctx, in.ID, status); err != nil {
		s.log.Error("SyncService:UpdateStatus:Error", "error", err, "integration_id", in.ID)
	}
	sendNotification(ctx, s.log, s.notifier, in.UserID, notifDto.TypeReconnectRequired,
		fmt.Sprintf("Reconnect %s", in.Provider),
		fmt.Sprintf("Your %s connection is no longer authorized. Reconnect to resume syncing.", in.Provider),
		map[string]interface{}{"provider": string(in.Provider), "integration_id": in.ID.String()})
}

// recordFetchFailure durably flags the integration before the error
// propagates, so the next read reflects the degraded state even if the
// caller persists nothing.
func (s *syncService) recordFetchFailure(ctx context.Context, in *entity.Integration, cause error) {
	s.log.Error("SyncService:Fetch:Error", "error", cause, "integration_id", in.ID, "provider", in.Provider)
	if err := s.repo.RecordSyncError(ctx, in.ID, cause.Error()); err != nil {
		s.log.Error("SyncService:RecordSyncError:Error", "error", err, "integration_id", in.ID)
	}
	if err := s.repo.UpdateStatus(ctx, in.ID, entity.StatusError); err != nil {
		s.log.Error("SyncService:UpdateStatus:Error", "error", err, "integration_id", in.ID)
	}
	sendNotification(ctx, s.log, s.notifier, in.UserID, notifDto.TypeSyncFailed,
		fmt.Sprintf("%s sync failed", in.Provider),
		fmt.Sprintf("We could not import your latest %s data. Another attempt will run automatically.", in.Provider),
		map[string]interface{}{"provider": string(in.Provider), "error": cause.Error()})
}

// persistRecord validates, dedups, and stores one canonical record, updating
// the result counts. Failures here never abort the batch.
func (s *syncService) persistRecord(ctx context.Context, in *entity.Integration, rec *adapter.DailyHealthData, force bool, result *dto.SyncResult) {
	day := rec.Date.Format("2006-01-02")

	if err := rec.Validate(); err != nil {
		result.RecordsErrored++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", day, err))
		return
	}

	s.archiveRaw(ctx, in, rec)

	entry := entryFromRecord(in, rec)

	if force {
		if err := s.healthRepo.Upsert(ctx, entry); err != nil {
			result.RecordsErrored++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: persist failed: %v", day, err))
			return
		}
		result.RecordsSynced++
		return
	}

	existing, err := s.healthRepo.FindByUserAndDate(ctx, in.UserID, rec.Date)
	if err != nil {
		result.RecordsErrored++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: dedup check failed: %v", day, err))
		return
	}
	if existing != nil {
		result.RecordsSkipped++
		return
	}

	if _, err := s.healthRepo.Create(ctx, entry); err != nil {
		result.RecordsErrored++
		result.Errors = append(result.Errors, fmt.Sprintf("%s: persist failed: %v", day, err))
		return
	}
	result.RecordsSynced++
}

// archiveRaw ships the record's raw provider payload to the archive sink.
// Diagnostics only: failures are logged and the sync proceeds.
func (s *syncService) archiveRaw(ctx context.Context, in *entity.Integration, rec *adapter.DailyHealthData) {
	if s.archiver == nil || len(rec.Raw) == 0 {
		return
	}
	if err := s.archiver.ArchiveRaw(ctx, string(in.Provider), in.UserID, rec.Date, rec.Raw); err != nil {
		s.log.Warn("SyncService:ArchiveRaw:Error",
			"error", err, "integration_id", in.ID, "date", rec.Date.Format("2006-01-02"))
	}
}

func entryFromRecord(in *entity.Integration, rec *adapter.DailyHealthData) *healthEntity.HealthEntry {
	return &healthEntity.HealthEntry{
		UserID:           in.UserID,
		EntryDate:        rec.Date,
		Steps:            rec.Steps,
		WeightKg:         rec.WeightKg,
		CaloriesBurned:   rec.CaloriesBurned,
		ExerciseMinutes:  rec.ExerciseMinutes,
		SleepMinutes:     rec.SleepMinutes,
		HeartRateAvg:     rec.HeartRateAvg,
		RestingHeartRate: rec.RestingHeartRate,
		DistanceKm:       rec.DistanceKm,
		ActiveMinutes:    rec.ActiveMinutes,
		Source:           string(in.Provider),
	}
}
