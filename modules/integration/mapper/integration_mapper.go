package mapper

import (
	"healthtrack-api/modules/integration/dto"
	"healthtrack-api/modules/integration/entity"
)

func ToIntegrationResponse(in *entity.Integration) *dto.IntegrationResponse {
	return &dto.IntegrationResponse{
		ID:            in.ID,
		Provider:      string(in.Provider),
		Status:        string(in.Status),
		Scope:         in.Scope,
		LastSyncedAt:  in.LastSyncedAt,
		LastSyncError: in.LastSyncError,
		ConnectedAt:   in.CreatedAt,
	}
}

func ToIntegrationListResponse(items []entity.Integration) *dto.IntegrationListResponse {
	responses := make([]dto.IntegrationResponse, len(items))
	for i := range items {
		responses[i] = *ToIntegrationResponse(&items[i])
	}
	return &dto.IntegrationListResponse{Integrations: responses}
}
