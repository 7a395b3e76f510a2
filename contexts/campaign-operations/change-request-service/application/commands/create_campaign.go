package commands

import (
	"context"
	"log/slog"
	"strings"

	application "meridian/contexts/campaign-operations/change-request-service/application"
	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	domainerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	"meridian/contexts/campaign-operations/change-request-service/ports"

	"github.com/shopspring/decimal"
)

type CreateCampaignCommand struct {
	AccountID  string
	ActorID    string
	ActorLabel string
	Name       string
	Budget     decimal.Decimal
	DailyLimit *decimal.Decimal
	Cards      []entities.Card
}

type CreateCampaignUseCase struct {
	Campaigns ports.CampaignRepository
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// Execute provisions a draft campaign with a seeded history entry. All
// later mutation goes through the change-request workflow.
func (uc CreateCampaignUseCase) Execute(ctx context.Context, cmd CreateCampaignCommand) (entities.Campaign, error) {
	logger := application.ResolveLogger(uc.Logger)
	accountID := strings.TrimSpace(cmd.AccountID)
	actorID := strings.TrimSpace(cmd.ActorID)
	if accountID == "" || actorID == "" {
		return entities.Campaign{}, domainerrors.ErrInvalidCampaignInput
	}
	if !entities.ValidCampaignName(cmd.Name) || !entities.ValidBudget(cmd.Budget) {
		return entities.Campaign{}, domainerrors.ErrInvalidCampaignInput
	}
	if cmd.DailyLimit != nil && !cmd.DailyLimit.IsPositive() {
		return entities.Campaign{}, domainerrors.ErrInvalidCampaignInput
	}

	campaignID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Campaign{}, err
	}
	now := uc.Clock.Now().UTC()
	campaign := entities.Campaign{
		CampaignID: campaignID,
		AccountID:  accountID,
		Name:       strings.TrimSpace(cmd.Name),
		Status:     entities.CampaignStatusDraft,
		Budget:     cmd.Budget,
		DailyLimit: cmd.DailyLimit,
		Cards:      append([]entities.Card(nil), cmd.Cards...),
		StatusHistory: []entities.StatusHistoryEntry{{
			OccurredAt: now,
			ActorID:    actorID,
			ActorLabel: strings.TrimSpace(cmd.ActorLabel),
			Status:     entities.CampaignStatusDraft,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.Campaigns.CreateCampaign(ctx, campaign); err != nil {
		return entities.Campaign{}, err
	}

	logger.Info("campaign created",
		"event", "campaign_created",
		"module", "campaign-operations/change-request-service",
		"layer", "application",
		"campaign_id", campaign.CampaignID,
		"account_id", campaign.AccountID,
	)
	return campaign, nil
}
