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

type ApproveChangeRequestCommand struct {
	RequestID  string
	ActorID    string
	ActorLabel string
}

type ApproveChangeRequestUseCase struct {
	Campaigns    ports.CampaignRepository
	Requests     ports.ChangeRequestRepository
	Entitlements ports.Entitlements
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	Logger       *slog.Logger
}

// Execute merges the pending proposal into the campaign and unlocks it.
// The terminal transition is a compare-and-swap on the request status, so a
// second approval of the same request loses the swap and reports a
// not-pending conflict instead of applying twice. Funds were reserved at
// proposal time; the credit gate is not re-run here.
func (uc ApproveChangeRequestUseCase) Execute(ctx context.Context, cmd ApproveChangeRequestCommand) (entities.ChangeRequest, error) {
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

	privileged, err := uc.Entitlements.HasApprovalAuthority(ctx, actorID, request.AccountID)
	if err != nil {
		return entities.ChangeRequest{}, err
	}
	if !privileged {
		return entities.ChangeRequest{}, domainerrors.ErrNotAuthorized
	}

	campaign, err := uc.Campaigns.GetCampaign(ctx, request.CampaignID)
	if err != nil {
		return entities.ChangeRequest{}, err
	}

	now := uc.Clock.Now().UTC()
	merged, history := mergeForApproval(campaign, request, actorID, cmd.ActorLabel, now)
	if err := uc.Requests.CommitDecision(ctx, ports.DecisionCommit{
		RequestID: request.RequestID,
		From:      entities.RequestStatusPending,
		To:        entities.RequestStatusApproved,
		Campaign:  merged,
		History:   history,
		DecidedBy: actorID,
		DecidedAt: now,
	}); err != nil {
		return entities.ChangeRequest{}, err
	}

	request.Status = entities.RequestStatusApproved
	request.DecidedBy = actorID
	request.DecidedAt = &now
	request.UpdatedAt = now

	// First activations get their own event so the notifier can send the
	// "campaign approved" message instead of the generic one.
	eventType := EventChangeRequestApproved
	if request.InitialSubmit() {
		eventType = EventCampaignApproved
	}
	emitWorkflowEvent(ctx, uc.Outbox, uc.IDGen, logger, eventType, merged, request, actorID, now)

	logger.Info("change request approved",
		"event", "change_request_approved",
		"module", "campaign-operations/change-request-service",
		"layer", "application",
		"request_id", request.RequestID,
		"campaign_id", request.CampaignID,
		"kind", string(request.Kind),
		"actor_id", actorID,
	)
	return request, nil
}
