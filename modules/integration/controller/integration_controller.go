package controller

import (
	"fmt"
	"time"

	"healthtrack-api/core/controller"
	"healthtrack-api/core/errors"
	"healthtrack-api/core/utils"
	"healthtrack-api/modules/integration/dto"
	"healthtrack-api/modules/integration/mapper"
	"healthtrack-api/modules/integration/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type IntegrationController struct {
	service     service.IntegrationService
	syncService service.SyncService
	controller.BaseController
}

func NewIntegrationController(svc service.IntegrationService, syncSvc service.SyncService) *IntegrationController {
	return &IntegrationController{
		service:        svc,
		syncService:    syncSvc,
		BaseController: controller.NewBaseController(),
	}
}

// Connect starts the OAuth flow and returns the provider consent URL the
// client must redirect to.
func (c *IntegrationController) Connect(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	req := new(dto.ConnectRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body", nil)
	}
	if req.Provider == "" {
		return c.BadRequest(errors.ErrInvalidRequestData, "provider is required", nil)
	}

	resp, err := c.service.InitiateConnection(ctx.Request().Context(), userID, req.Provider)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Connection initiated")
}

// Callback completes the OAuth flow with the code and state the provider
// redirected back with. The connecting user is identified by the signed
// state, not the bearer token.
func (c *IntegrationController) Callback(ctx echo.Context) error {
	if _, err := getUserIDFromContext(ctx); err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	req := new(dto.CallbackRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body", nil)
	}
	if req.Code == "" || req.State == "" {
		return c.BadRequest(errors.ErrInvalidRequestData, "code and state are required", nil)
	}

	in, err := c.service.CompleteConnection(ctx.Request().Context(), req.Code, req.State)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, mapper.ToIntegrationResponse(in), "Integration connected successfully")
}

// GetIntegrations lists the caller's integrations with their sync health.
func (c *IntegrationController) GetIntegrations(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	items, err := c.service.GetIntegrations(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, mapper.ToIntegrationListResponse(items), "Integrations retrieved successfully")
}

// Sync runs an on-demand import for one integration.
func (c *IntegrationController) Sync(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	integrationID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid integration id", nil)
	}

	req := new(dto.SyncRequest)
	if err := ctx.Bind(req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body", nil)
	}

	opts, parseErr := syncOptionsFromRequest(req)
	if parseErr != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, parseErr.Error(), nil)
	}

	result, err := c.syncService.SyncHealthData(ctx.Request().Context(), integrationID, userID, *opts)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, result, "Sync completed")
}

// SyncAll syncs every active integration of the caller, returning results
// for the ones that succeeded.
func (c *IntegrationController) SyncAll(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	resp, err := c.syncService.SyncAllIntegrations(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, resp, "Sync completed")
}

// Disconnect revokes and removes one integration.
func (c *IntegrationController) Disconnect(ctx echo.Context) error {
	userID, err := getUserIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Unauthorized", nil)
	}

	integrationID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid integration id", nil)
	}

	if err := c.service.Disconnect(ctx.Request().Context(), integrationID, userID); err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return c.SuccessResponse(ctx, nil, "Integration disconnected successfully")
}

// syncOptionsFromRequest parses the optional YYYY-MM-DD bounds.
func syncOptionsFromRequest(req *dto.SyncRequest) (*dto.SyncOptions, error) {
	opts := &dto.SyncOptions{ForceResync: req.ForceResync}

	if req.StartDate != "" {
		t, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			return nil, fmt.Errorf("start_date must be YYYY-MM-DD")
		}
		opts.StartDate = &t
	}
	if req.EndDate != "" {
		t, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("end_date must be YYYY-MM-DD")
		}
		opts.EndDate = &t
	}
	if opts.StartDate != nil && opts.EndDate != nil && opts.StartDate.After(*opts.EndDate) {
		return nil, fmt.Errorf("start_date must not be after end_date")
	}
	return opts, nil
}

// Helper function to get user ID from JWT context
func getUserIDFromContext(ctx echo.Context) (uuid.UUID, error) {
	token := ctx.Request().Header.Get("Authorization")
	if token == "" {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "No token provided", nil)
	}

	// Remove "Bearer " prefix
	if len(token) > 7 && token[:7] == "Bearer " {
		token = token[7:]
	}

	tokenData, err := utils.ValidateAndParseToken(token)
	if err != nil {
		return uuid.Nil, err
	}

	return tokenData.UserID, nil
}
