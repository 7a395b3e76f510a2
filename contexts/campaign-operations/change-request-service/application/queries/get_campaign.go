package queries

import (
	"context"
	"log/slog"
	"strings"

	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	"meridian/contexts/campaign-operations/change-request-service/ports"
)

type GetCampaignUseCase struct {
	Campaigns ports.CampaignRepository
	Logger    *slog.Logger
}

func (uc GetCampaignUseCase) Execute(ctx context.Context, campaignID string) (entities.Campaign, error) {
	return uc.Campaigns.GetCampaign(ctx, strings.TrimSpace(campaignID))
}
