package service

import (
	"context"
	"fmt"
	"time"

	"healthtrack-api/core/cache"
	"healthtrack-api/core/constants"
	"healthtrack-api/core/errors"
	"healthtrack-api/core/logger"
	"healthtrack-api/modules/integration/adapter"
	"healthtrack-api/modules/integration/dto"
	"healthtrack-api/modules/integration/entity"
	"healthtrack-api/modules/integration/repository"
	notifDto "healthtrack-api/modules/notification/dto"

	"github.com/google/uuid"
)

// AdapterResolver resolves a provider to its API adapter. Implemented by
// adapter.Registry.
type AdapterResolver interface {
	Get(p entity.Provider) (adapter.Adapter, error)
}

// Notifier is the slice of the notification service the integration flows
// use. Every call through it is best-effort.
type Notifier interface {
	Create(ctx context.Context, req *notifDto.CreateNotificationRequest) error
}

// SyncEnqueuer schedules a background sync of one integration. Nil start/end
// mean the engine's default range at run time. Implemented by the asynq task
// client; a nil enqueuer disables background syncing.
type SyncEnqueuer interface {
	EnqueueSync(ctx context.Context, integrationID, userID uuid.UUID, start, end *time.Time) error
}

type IntegrationService interface {
	// Connection lifecycle
	InitiateConnection(ctx context.Context, userID uuid.UUID, provider string) (*dto.ConnectResponse, error)
	CompleteConnection(ctx context.Context, code, state string) (*entity.Integration, error)
	Disconnect(ctx context.Context, integrationID, requestingUserID uuid.UUID) error

	// Listing
	GetIntegrations(ctx context.Context, userID uuid.UUID) ([]entity.Integration, error)
}

type integrationService struct {
	repo        repository.IntegrationRepository
	registry    AdapterResolver
	codec       *StateCodec
	cache       cache.Cache
	notifier    Notifier
	enqueuer    SyncEnqueuer
	redirectURI string
	log         *logger.Logger
	now         func() time.Time
}

func NewIntegrationService(
	repo repository.IntegrationRepository,
	registry AdapterResolver,
	codec *StateCodec,
	cache cache.Cache,
	notifier Notifier,
	enqueuer SyncEnqueuer,
	redirectURI string,
	log *logger.Logger,
) IntegrationService {
	return &integrationService{
		repo:        repo,
		registry:    registry,
		codec:       codec,
		cache:       cache,
		notifier:    notifier,
		enqueuer:    enqueuer,
		redirectURI: redirectURI,
		log:         log,
		now:         time.Now,
	}
}

// InitiateConnection builds the provider consent URL for a new connection.
// Nothing is persisted here; the integration only comes into existence when
// the callback succeeds.
func (s *integrationService) InitiateConnection(ctx context.Context, userID uuid.UUID, providerName string) (*dto.ConnectResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	provider, err := entity.ParseProvider(providerName)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByUserAndProvider(ctx, userID, provider)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to check existing integration", err)
	}
	if existing != nil && existing.Status == entity.StatusActive {
		return nil, errors.NewAppError(errors.ErrConflict,
			fmt.Sprintf("%s already connected, disconnect first", provider), nil)
	}

	ad, err := s.registry.Get(provider)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Provider not configured", err)
	}

	state, expiresAt := s.codec.Encode(userID, provider, s.redirectURI)
	return &dto.ConnectResponse{
		AuthURL:   ad.AuthorizationURL(state),
		State:     state,
		ExpiresAt: expiresAt,
	}, nil
}

// CompleteConnection validates the returned state, trades the code for
// credentials, and creates the integration. Reconnecting over a revoked or
// expired row updates it in place and forces it back to ACTIVE.
func (s *integrationService) CompleteConnection(ctx context.Context, code, state string) (*entity.Integration, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	decoded, err := s.codec.Decode(state)
	if err != nil {
		return nil, err
	}

	if err := s.consumeNonce(ctx, decoded.Nonce); err != nil {
		return nil, err
	}

	ad, err := s.registry.Get(decoded.Provider)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Provider not configured", err)
	}

	creds, err := ad.ExchangeCode(ctx, code)
	if err != nil {
		s.log.Error("IntegrationService:CompleteConnection:ExchangeError",
			"error", err, "provider", decoded.Provider, "user_id", decoded.UserID)
		return nil, err
	}

	in, err := s.saveConnection(ctx, decoded.UserID, decoded.Provider, creds)
	if err != nil {
		return nil, err
	}

	s.log.Info("IntegrationService:Connected",
		"integration_id", in.ID, "provider", in.Provider, "user_id", in.UserID)
	s.enqueueBackfill(ctx, in)
	return in, nil
}

// Disconnect revokes provider-side access best-effort and hard-deletes the
// integration. A failed remote revocation never blocks local deletion:
// keeping a stale row because the provider was down would strand the user.
func (s *integrationService) Disconnect(ctx context.Context, integrationID, requestingUserID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	in, err := s.repo.FindByID(ctx, integrationID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to load integration", err)
	}
	if in == nil {
		return errors.NewAppError(errors.ErrNotFound, "Integration not found", nil)
	}
	if in.UserID != requestingUserID {
		return errors.NewAppError(errors.ErrForbidden, "Integration belongs to another user", nil)
	}

	if ad, regErr := s.registry.Get(in.Provider); regErr == nil {
		if revErr := ad.RevokeAccess(ctx, credentialsFromIntegration(in)); revErr != nil {
			s.log.Warn("IntegrationService:Disconnect:RevokeFailed",
				"error", revErr, "integration_id", in.ID, "provider", in.Provider)
		}
	}

	if err := s.repo.Delete(ctx, in.ID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to delete integration", err)
	}

	s.log.Info("IntegrationService:Disconnected",
		"integration_id", in.ID, "provider", in.Provider, "user_id", in.UserID)
	sendNotification(ctx, s.log, s.notifier, in.UserID, notifDto.TypeIntegrationDisconnected,
		"Integration disconnected",
		fmt.Sprintf("Your %s connection has been removed.", in.Provider),
		map[string]interface{}{"provider": string(in.Provider)})
	return nil
}

// GetIntegrations returns every integration of the user, newest first,
// including sync metadata for rendering connection health.
func (s *integrationService) GetIntegrations(ctx context.Context, userID uuid.UUID) ([]entity.Integration, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()

	items, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list integrations", err)
	}
	return items, nil
}

// consumeNonce marks the state's nonce as used for the rest of its validity
// window so a replayed callback is rejected. A cache outage degrades to the
// provider's single-use code guarantee instead of failing the connection.
func (s *integrationService) consumeNonce(ctx context.Context, nonce string) error {
	fresh, err := s.cache.SetNX(ctx, constants.OAuthNonceKeyPrefix+nonce, "1", constants.OAuthStateValidity)
	if err != nil {
		s.log.Warn("IntegrationService:ConsumeNonce:CacheError", "error", err)
		return nil
	}
	if !fresh {
		return errors.NewAppError(errors.ErrInvalidRequest, "state already used", nil)
	}
	return nil
}

// saveConnection creates the integration, or reactivates the existing row
// when the user reconnects after a revocation, expiry, or sync error.
func (s *integrationService) saveConnection(ctx context.Context, userID uuid.UUID, provider entity.Provider, creds *adapter.Credentials) (*entity.Integration, error) {
	existing, err := s.repo.FindByUserAndProvider(ctx, userID, provider)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load integration", err)
	}

	if existing != nil {
		applyCredentials(existing, creds)
		existing.Status = entity.StatusActive
		if err := s.repo.UpdateCredentials(ctx, existing); err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to update integration", err)
		}
		return existing, nil
	}

	in := &entity.Integration{
		UserID:   userID,
		Provider: provider,
		Status:   entity.StatusActive,
	}
	applyCredentials(in, creds)
	created, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create integration", err)
	}
	return created, nil
}

// enqueueBackfill schedules the initial 30 day import in the background so
// the callback responds fast. Best-effort: on failure the hourly scheduler
// still picks the integration up, just without the deep backfill.
func (s *integrationService) enqueueBackfill(ctx context.Context, in *entity.Integration) {
	if s.enqueuer == nil {
		return
	}
	end := s.now()
	start := end.AddDate(0, 0, -constants.InitialBackfillDays)
	if err := s.enqueuer.EnqueueSync(ctx, in.ID, in.UserID, &start, &end); err != nil {
		s.log.Error("IntegrationService:EnqueueBackfill:Error", "error", err, "integration_id", in.ID)
	}
}

// applyCredentials copies an adapter token bundle onto the entity. Optional
// fields are only overwritten when the provider sent a value, so a refresh
// response without a rotated refresh token keeps the stored one.
func applyCredentials(in *entity.Integration, creds *adapter.Credentials) {
	in.AccessToken = creds.AccessToken
	in.TokenExpiresAt = creds.ExpiresAt
	if creds.RefreshToken != "" {
		rt := creds.RefreshToken
		in.RefreshToken = &rt
	}
	if creds.Scope != "" {
		sc := creds.Scope
		in.Scope = &sc
	}
}

func credentialsFromIntegration(in *entity.Integration) *adapter.Credentials {
	creds := &adapter.Credentials{
		AccessToken: in.AccessToken,
		ExpiresAt:   in.TokenExpiresAt,
	}
	if in.RefreshToken != nil {
		creds.RefreshToken = *in.RefreshToken
	}
	if in.Scope != nil {
		creds.Scope = *in.Scope
	}
	return creds
}

// sendNotification emits a user notification, logging instead of failing:
// nothing in the connection or sync flow may break on a notification error.
func sendNotification(ctx context.Context, log *logger.Logger, n Notifier, userID uuid.UUID, typ, title, message string, data map[string]interface{}) {
	if n == nil {
		return
	}
	err := n.Create(ctx, &notifDto.CreateNotificationRequest{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
		Data:    data,
	})
	if err != nil {
		log.Error("SendNotification:Error", "error", err, "user_id", userID, "type", typ)
	}
}
