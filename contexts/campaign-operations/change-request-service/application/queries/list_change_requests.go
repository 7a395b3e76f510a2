package queries

import (
	"context"
	"log/slog"
	"strings"

	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	"meridian/contexts/campaign-operations/change-request-service/ports"
)

type ListChangeRequestsQuery struct {
	CampaignID string
	Status     entities.RequestStatus
}

type ListChangeRequestsUseCase struct {
	Requests ports.ChangeRequestRepository
	Logger   *slog.Logger
}

func (uc ListChangeRequestsUseCase) Execute(ctx context.Context, query ListChangeRequestsQuery) ([]entities.ChangeRequest, error) {
	return uc.Requests.ListRequestsByCampaign(ctx, strings.TrimSpace(query.CampaignID), query.Status)
}
