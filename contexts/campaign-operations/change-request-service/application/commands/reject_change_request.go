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

type RejectChangeRequestCommand struct {
	RequestID       string
	ActorID         string
	ActorLabel      string
	RejectionReason string
}

type RejectChangeRequestUseCase struct {
	Campaigns    ports.CampaignRepository
	Requests     ports.ChangeRequestRepository
	Entitlements ports.Entitlements
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	Logger       *slog.Logger
}

// Execute discards the pending proposal: the patch is never applied, the
// lock clears, and the campaign status reverts by proposal kind (first
// submission -> draft, renewal -> expired, ordinary edit -> unchanged).
// Exactly one history entry records the outcome.
func (uc RejectChangeRequestUseCase) Execute(ctx context.Context, cmd RejectChangeRequestCommand) (entities.ChangeRequest, error) {
	logger := application.ResolveLogger(uc.Logger)
	reason := strings.TrimSpace(cmd.RejectionReason)
	// A rejection without a reason is invalid whoever the actor is.
	if reason == "" {
		return entities.ChangeRequest{}, domainerrors.ErrRejectionReasonRequired
	}
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
	reverted, entry := revertForDiscard(campaign, request, actorID, cmd.ActorLabel, reason, now)
	if err := uc.Requests.CommitDecision(ctx, ports.DecisionCommit{
		RequestID:       request.RequestID,
		From:            entities.RequestStatusPending,
		To:              entities.RequestStatusRejected,
		Campaign:        reverted,
		History:         &entry,
		RejectionReason: reason,
		DecidedBy:       actorID,
		DecidedAt:       now,
	}); err != nil {
		return entities.ChangeRequest{}, err
	}

	request.Status = entities.RequestStatusRejected
	request.RejectionReason = reason
	request.DecidedBy = actorID
	request.DecidedAt = &now
	request.UpdatedAt = now

	// Three distinct notifications: first-activation rejection, renewal
	// rejection, ordinary change rejection. The renewal case shares the
	// change-request event type and is distinguished by the kind carried in
	// the payload.
	eventType := EventChangeRequestRejected
	if request.InitialSubmit() {
		eventType = EventCampaignRejected
	}
	emitWorkflowEvent(ctx, uc.Outbox, uc.IDGen, logger, eventType, reverted, request, actorID, now)

	logger.Info("change request rejected",
		"event", "change_request_rejected",
		"module", "campaign-operations/change-request-service",
		"layer", "application",
		"request_id", request.RequestID,
		"campaign_id", request.CampaignID,
		"kind", string(request.Kind),
		"reverted_status", string(reverted.Status),
		"actor_id", actorID,
	)
	return request, nil
}
