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

type SubmitChangeRequestCommand struct {
	AccountID  string
	CampaignID string
	ActorID    string
	ActorLabel string
	Patch      entities.CampaignPatch
}

type SubmitChangeRequestUseCase struct {
	Campaigns          ports.CampaignRepository
	Requests           ports.ChangeRequestRepository
	Credit             ports.CreditGate
	Entitlements       ports.Entitlements
	Outbox             ports.OutboxWriter
	Clock              ports.Clock
	IDGen              ports.IDGenerator
	AutoApproveEnabled bool
	Logger             *slog.Logger
}

// Execute proposes a campaign mutation. Budget-touching proposals pass the
// credit gate first; admission denial aborts with zero mutation. The lock
// acquisition is a store-native compare-and-swap, so of two concurrent
// submissions against the same campaign exactly one wins.
func (uc SubmitChangeRequestUseCase) Execute(ctx context.Context, cmd SubmitChangeRequestCommand) (entities.ChangeRequest, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" {
		return entities.ChangeRequest{}, domainerrors.ErrNotAuthorized
	}
	if cmd.Patch.IsZero() {
		return entities.ChangeRequest{}, domainerrors.ErrInvalidPatch
	}
	if cmd.Patch.Status != nil && !entities.IsSupportedStatus(*cmd.Patch.Status) {
		return entities.ChangeRequest{}, domainerrors.ErrInvalidPatch
	}
	if cmd.Patch.Budget != nil && !entities.ValidBudget(*cmd.Patch.Budget) {
		return entities.ChangeRequest{}, domainerrors.ErrInvalidBudget
	}

	campaign, err := uc.Campaigns.GetCampaign(ctx, strings.TrimSpace(cmd.CampaignID))
	if err != nil {
		return entities.ChangeRequest{}, err
	}
	// Campaigns outside the caller's account and deleted campaigns are both
	// invisible.
	if campaign.AccountID != strings.TrimSpace(cmd.AccountID) || campaign.Status == entities.CampaignStatusDeleted {
		return entities.ChangeRequest{}, domainerrors.ErrCampaignNotFound
	}
	if campaign.Locked() {
		return entities.ChangeRequest{}, domainerrors.ErrProposalLockHeld
	}

	privileged, err := uc.Entitlements.HasApprovalAuthority(ctx, actorID, campaign.AccountID)
	if err != nil {
		return entities.ChangeRequest{}, err
	}
	if !privileged && len(campaign.UnknownCardRefs(cmd.Patch)) > 0 {
		return entities.ChangeRequest{}, domainerrors.ErrUnknownCardRef
	}

	kind := entities.ClassifyProposal(campaign, cmd.Patch)
	if cmd.Patch.TouchesBudget() || kind != entities.ProposalKindOrdinary {
		proposedBudget := campaign.Budget
		if cmd.Patch.Budget != nil {
			proposedBudget = *cmd.Patch.Budget
		}
		decision, err := uc.Credit.Check(ctx, campaign.AccountID, campaign.CampaignID, proposedBudget)
		if err != nil {
			return entities.ChangeRequest{}, err
		}
		if !decision.Admitted {
			return entities.ChangeRequest{}, &domainerrors.InsufficientCreditError{DepositAmount: decision.DepositAmount}
		}
	}

	requestID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.ChangeRequest{}, err
	}
	now := uc.Clock.Now().UTC()
	request := entities.ChangeRequest{
		RequestID:   requestID,
		CampaignID:  campaign.CampaignID,
		AccountID:   campaign.AccountID,
		RequestedBy: actorID,
		Status:      entities.RequestStatusPending,
		Proposed:    cmd.Patch,
		Kind:        kind,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	autoApprove := false
	if uc.AutoApproveEnabled {
		autoApprove, err = uc.Entitlements.HasAutoApprove(ctx, actorID, campaign.AccountID)
		if err != nil {
			return entities.ChangeRequest{}, err
		}
	}

	if autoApprove {
		request.Status = entities.RequestStatusApproved
		request.AutoApproved = true
		request.DecidedBy = actorID
		request.DecidedAt = &now

		merged, history := mergeForApproval(campaign, request, actorID, cmd.ActorLabel, now)
		if err := uc.Requests.CreateAutoApproved(ctx, request, merged, history); err != nil {
			return entities.ChangeRequest{}, err
		}

		eventType := EventChangeRequestApproved
		if request.InitialSubmit() {
			eventType = EventCampaignApproved
		}
		emitWorkflowEvent(ctx, uc.Outbox, uc.IDGen, logger, eventType, merged, request, actorID, now)
		logger.Info("change request auto-approved",
			"event", "change_request_auto_approved",
			"module", "campaign-operations/change-request-service",
			"layer", "application",
			"request_id", request.RequestID,
			"campaign_id", campaign.CampaignID,
			"kind", string(request.Kind),
			"actor_id", actorID,
		)
		return request, nil
	}

	if err := uc.Requests.CreateWithLock(ctx, request); err != nil {
		return entities.ChangeRequest{}, err
	}
	emitWorkflowEvent(ctx, uc.Outbox, uc.IDGen, logger, EventNewChangeRequest, campaign, request, actorID, now)
	logger.Info("change request submitted",
		"event", "change_request_submitted",
		"module", "campaign-operations/change-request-service",
		"layer", "application",
		"request_id", request.RequestID,
		"campaign_id", campaign.CampaignID,
		"kind", string(request.Kind),
		"actor_id", actorID,
	)
	return request, nil
}
