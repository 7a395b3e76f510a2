package commands

import (
	"context"
	"log/slog"
	"strings"

	application "meridian/contexts/campaign-operations/change-request-service/application"
	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	domainerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	"meridian/contexts/campaign-operations/change-request-service/ports"
)

type CancelChangeRequestCommand struct {
	RequestID  string
	ActorID    string
	ActorLabel string
}

type CancelChangeRequestUseCase struct {
	Campaigns    ports.CampaignRepository
	Requests     ports.ChangeRequestRepository
	Entitlements ports.Entitlements
	Clock        ports.Clock
	Logger       *slog.Logger
}

// Execute withdraws a pending request. Only the requester (or an actor with
// approval authority) may cancel. The campaign reverts exactly as on
// rejection but no reason is required and no notification goes out.
func (uc CancelChangeRequestUseCase) Execute(ctx context.Context, cmd CancelChangeRequestCommand) (entities.ChangeRequest, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" {
		return entities.ChangeRequest{}, domainerrors.ErrNotAuthorized
	}

	request, err := uc.Requests.GetRequest(ctx, strings.TrimSpace(cmd.RequestID))
	if err != nil {
		return entities.ChangeRequest{}, err
	}
	if request.Status != entities.RequestStatusPending {
		return entities.ChangeRequest{}, domainerrors.ErrRequestNotPending
	}

	if request.RequestedBy != actorID {
		privileged, err := uc.Entitlements.HasApprovalAuthority(ctx, actorID, request.AccountID)
		if err != nil {
			return entities.ChangeRequest{}, err
		}
		if !privileged {
			return entities.ChangeRequest{}, domainerrors.ErrNotAuthorized
		}
	}

	campaign, err := uc.Campaigns.GetCampaign(ctx, request.CampaignID)
	if err != nil {
		return entities.ChangeRequest{}, err
	}

	now := uc.Clock.Now().UTC()
	reverted, entry := revertForDiscard(campaign, request, actorID, cmd.ActorLabel, "", now)
	if err := uc.Requests.CommitDecision(ctx, ports.DecisionCommit{
		RequestID: request.RequestID,
		From:      entities.RequestStatusPending,
		To:        entities.RequestStatusCanceled,
		Campaign:  reverted,
		History:   &entry,
		DecidedBy: actorID,
		DecidedAt: now,
	}); err != nil {
		return entities.ChangeRequest{}, err
	}

	request.Status = entities.RequestStatusCanceled
	request.DecidedBy = actorID
	request.DecidedAt = &now
	request.UpdatedAt = now

	logger.Info("change request canceled",
		"event", "change_request_canceled",
		"module", "campaign-operations/change-request-service",
		"layer", "application",
		"request_id", request.RequestID,
		"campaign_id", request.CampaignID,
		"kind", string(request.Kind),
		"actor_id", actorID,
	)
	return request, nil
}
