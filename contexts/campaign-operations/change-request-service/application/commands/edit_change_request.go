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

type EditChangeRequestCommand struct {
	RequestID string
	ActorID   string
	Patch     entities.CampaignPatch
}

type EditChangeRequestUseCase struct {
	Campaigns    ports.CampaignRepository
	Requests     ports.ChangeRequestRepository
	Credit       ports.CreditGate
	Entitlements ports.Entitlements
	Clock        ports.Clock
	Logger       *slog.Logger
}

// Execute merges an edit into a pending request's proposal. The requester
// may amend their own proposal's content; anyone else needs approval
// authority. Status transitions never go through here. Budget-touching
// edits re-run the credit gate.
func (uc EditChangeRequestUseCase) Execute(ctx context.Context, cmd EditChangeRequestCommand) (entities.ChangeRequest, error) {
	logger := application.ResolveLogger(uc.Logger)
	actorID := strings.TrimSpace(cmd.ActorID)
	if actorID == "" {
		return entities.ChangeRequest{}, domainerrors.ErrNotAuthorized
	}
	if cmd.Patch.IsZero() {
		return entities.ChangeRequest{}, domainerrors.ErrInvalidPatch
	}
	if cmd.Patch.Status != nil {
		// Deciding a request is Approve/Reject territory, whoever the actor.
		return entities.ChangeRequest{}, domainerrors.ErrInvalidPatch
	}
	if cmd.Patch.Budget != nil && !entities.ValidBudget(*cmd.Patch.Budget) {
		return entities.ChangeRequest{}, domainerrors.ErrInvalidBudget
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
	if request.RequestedBy != actorID && !privileged {
		return entities.ChangeRequest{}, domainerrors.ErrNotAuthorized
	}

	campaign, err := uc.Campaigns.GetCampaign(ctx, request.CampaignID)
	if err != nil {
		return entities.ChangeRequest{}, err
	}
	if !privileged && len(campaign.UnknownCardRefs(cmd.Patch)) > 0 {
		return entities.ChangeRequest{}, domainerrors.ErrUnknownCardRef
	}

	if cmd.Patch.TouchesBudget() {
		decision, err := uc.Credit.Check(ctx, request.AccountID, request.CampaignID, *cmd.Patch.Budget)
		if err != nil {
			return entities.ChangeRequest{}, err
		}
		if !decision.Admitted {
			return entities.ChangeRequest{}, &domainerrors.InsufficientCreditError{DepositAmount: decision.DepositAmount}
		}
	}

	now := uc.Clock.Now().UTC()
	merged := entities.MergePatches(request.Proposed, cmd.Patch)
	if err := uc.Requests.UpdateProposal(ctx, request.RequestID, merged, now); err != nil {
		return entities.ChangeRequest{}, err
	}

	request.Proposed = merged
	request.UpdatedAt = now
	logger.Info("change request edited",
		"event", "change_request_edited",
		"module", "campaign-operations/change-request-service",
		"layer", "application",
		"request_id", request.RequestID,
		"campaign_id", request.CampaignID,
		"actor_id", actorID,
	)
	return request, nil
}
