package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"meridian/contexts/campaign-operations/change-request-service/application/commands"
	"meridian/contexts/campaign-operations/change-request-service/application/queries"
	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	domainerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	httptransport "meridian/contexts/campaign-operations/change-request-service/transport/http"

	"github.com/shopspring/decimal"
)

// Actor identifies the authenticated caller, resolved by the HTTP layer
// before any handler runs.
type Actor struct {
	AccountID string
	ActorID   string
	Label     string
}

type Handler struct {
	CreateCampaign commands.CreateCampaignUseCase
	SubmitChange   commands.SubmitChangeRequestUseCase
	EditChange     commands.EditChangeRequestUseCase
	ApproveChange  commands.ApproveChangeRequestUseCase
	RejectChange   commands.RejectChangeRequestUseCase
	CancelChange   commands.CancelChangeRequestUseCase
	GetCampaign    queries.GetCampaignUseCase
	GetChange      queries.GetChangeRequestUseCase
	ListChanges    queries.ListChangeRequestsUseCase
	Logger         *slog.Logger
}

func (h Handler) CreateCampaignHandler(ctx context.Context, actor Actor, req httptransport.CreateCampaignRequest) (httptransport.CreateCampaignResponse, error) {
	budget, err := decimal.NewFromString(strings.TrimSpace(req.Budget))
	if err != nil {
		return httptransport.CreateCampaignResponse{}, domainerrors.ErrInvalidCampaignInput
	}
	var dailyLimit *decimal.Decimal
	if req.DailyLimit != nil {
		parsed, err := decimal.NewFromString(strings.TrimSpace(*req.DailyLimit))
		if err != nil {
			return httptransport.CreateCampaignResponse{}, domainerrors.ErrInvalidCampaignInput
		}
		dailyLimit = &parsed
	}

	campaign, err := h.CreateCampaign.Execute(ctx, commands.CreateCampaignCommand{
		AccountID:  actor.AccountID,
		ActorID:    actor.ActorID,
		ActorLabel: actor.Label,
		Name:       req.Name,
		Budget:     budget,
		DailyLimit: dailyLimit,
		Cards:      cardsFromDTOs(req.Cards),
	})
	if err != nil {
		return httptransport.CreateCampaignResponse{}, err
	}
	return httptransport.CreateCampaignResponse{Campaign: campaignToDTO(campaign)}, nil
}

func (h Handler) GetCampaignHandler(ctx context.Context, actor Actor, campaignID string) (httptransport.GetCampaignResponse, error) {
	campaign, err := h.GetCampaign.Execute(ctx, campaignID)
	if err != nil {
		return httptransport.GetCampaignResponse{}, err
	}
	if campaign.AccountID != actor.AccountID || campaign.Status == entities.CampaignStatusDeleted {
		return httptransport.GetCampaignResponse{}, domainerrors.ErrCampaignNotFound
	}
	return httptransport.GetCampaignResponse{Campaign: campaignToDTO(campaign)}, nil
}

func (h Handler) SubmitChangeHandler(ctx context.Context, actor Actor, campaignID string, req httptransport.SubmitChangeRequest) (httptransport.SubmitChangeResponse, error) {
	patch, err := patchFromDTO(req.Data)
	if err != nil {
		return httptransport.SubmitChangeResponse{}, err
	}
	request, err := h.SubmitChange.Execute(ctx, commands.SubmitChangeRequestCommand{
		AccountID:  actor.AccountID,
		CampaignID: campaignID,
		ActorID:    actor.ActorID,
		ActorLabel: actor.Label,
		Patch:      patch,
	})
	if err != nil {
		return httptransport.SubmitChangeResponse{}, err
	}
	return httptransport.SubmitChangeResponse{Request: requestToDTO(request)}, nil
}

func (h Handler) GetChangeHandler(ctx context.Context, actor Actor, campaignID string, requestID string) (httptransport.GetChangeResponse, error) {
	request, err := h.GetChange.Execute(ctx, requestID)
	if err != nil {
		return httptransport.GetChangeResponse{}, err
	}
	if request.CampaignID != strings.TrimSpace(campaignID) || request.AccountID != actor.AccountID {
		return httptransport.GetChangeResponse{}, domainerrors.ErrRequestNotFound
	}
	return httptransport.GetChangeResponse{Request: requestToDTO(request)}, nil
}

func (h Handler) ListChangesHandler(ctx context.Context, actor Actor, campaignID string, status string) (httptransport.ListChangesResponse, error) {
	// Visibility first: a foreign campaign must not leak its queue.
	if _, err := h.GetCampaignHandler(ctx, actor, campaignID); err != nil {
		return httptransport.ListChangesResponse{}, err
	}
	items, err := h.ListChanges.Execute(ctx, queries.ListChangeRequestsQuery{
		CampaignID: campaignID,
		Status:     entities.RequestStatus(strings.TrimSpace(status)),
	})
	if err != nil {
		return httptransport.ListChangesResponse{}, err
	}
	dtos := make([]httptransport.ChangeRequestDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, requestToDTO(item))
	}
	return httptransport.ListChangesResponse{Items: dtos}, nil
}

// DecideChangeHandler dispatches the PUT verb by target status: approved,
// rejected and canceled resolve the request; pending amends its proposal.
func (h Handler) DecideChangeHandler(ctx context.Context, actor Actor, campaignID string, requestID string, req httptransport.DecideChangeRequest) (httptransport.DecideChangeResponse, error) {
	if _, err := h.GetChangeHandler(ctx, actor, campaignID, requestID); err != nil {
		return httptransport.DecideChangeResponse{}, err
	}

	var (
		request entities.ChangeRequest
		err     error
	)
	switch strings.TrimSpace(req.Status) {
	case string(entities.RequestStatusApproved):
		request, err = h.ApproveChange.Execute(ctx, commands.ApproveChangeRequestCommand{
			RequestID:  requestID,
			ActorID:    actor.ActorID,
			ActorLabel: actor.Label,
		})
	case string(entities.RequestStatusRejected):
		request, err = h.RejectChange.Execute(ctx, commands.RejectChangeRequestCommand{
			RequestID:       requestID,
			ActorID:         actor.ActorID,
			ActorLabel:      actor.Label,
			RejectionReason: req.RejectionReason,
		})
	case string(entities.RequestStatusCanceled):
		request, err = h.CancelChange.Execute(ctx, commands.CancelChangeRequestCommand{
			RequestID:  requestID,
			ActorID:    actor.ActorID,
			ActorLabel: actor.Label,
		})
	case string(entities.RequestStatusPending):
		if req.Data == nil {
			return httptransport.DecideChangeResponse{}, domainerrors.ErrInvalidPatch
		}
		var patch entities.CampaignPatch
		patch, err = patchFromDTO(*req.Data)
		if err != nil {
			return httptransport.DecideChangeResponse{}, err
		}
		request, err = h.EditChange.Execute(ctx, commands.EditChangeRequestCommand{
			RequestID: requestID,
			ActorID:   actor.ActorID,
			Patch:     patch,
		})
	default:
		return httptransport.DecideChangeResponse{}, domainerrors.ErrInvalidPatch
	}
	if err != nil {
		return httptransport.DecideChangeResponse{}, err
	}
	return httptransport.DecideChangeResponse{Request: requestToDTO(request)}, nil
}

func patchFromDTO(dto httptransport.CampaignPatchDTO) (entities.CampaignPatch, error) {
	patch := entities.CampaignPatch{Name: dto.Name}
	if dto.Budget != nil {
		budget, err := decimal.NewFromString(strings.TrimSpace(*dto.Budget))
		if err != nil {
			return entities.CampaignPatch{}, domainerrors.ErrInvalidBudget
		}
		patch.Budget = &budget
	}
	if dto.DailyLimit != nil {
		limit, err := decimal.NewFromString(strings.TrimSpace(*dto.DailyLimit))
		if err != nil {
			return entities.CampaignPatch{}, domainerrors.ErrInvalidPatch
		}
		patch.DailyLimit = &limit
	}
	if dto.Status != nil {
		status := entities.CampaignStatus(strings.TrimSpace(*dto.Status))
		if !entities.IsSupportedStatus(status) {
			return entities.CampaignPatch{}, domainerrors.ErrInvalidPatch
		}
		patch.Status = &status
	}
	for _, card := range dto.Cards {
		patch.Cards = append(patch.Cards, entities.CardPatch{
			CardID:       strings.TrimSpace(card.CardID),
			Headline:     card.Headline,
			Body:         card.Body,
			MediaURL:     card.MediaURL,
			CallToAction: card.CallToAction,
		})
	}
	return patch, nil
}

func patchToDTO(patch entities.CampaignPatch) httptransport.CampaignPatchDTO {
	dto := httptransport.CampaignPatchDTO{Name: patch.Name}
	if patch.Budget != nil {
		budget := patch.Budget.String()
		dto.Budget = &budget
	}
	if patch.DailyLimit != nil {
		limit := patch.DailyLimit.String()
		dto.DailyLimit = &limit
	}
	if patch.Status != nil {
		status := string(*patch.Status)
		dto.Status = &status
	}
	for _, card := range patch.Cards {
		dto.Cards = append(dto.Cards, httptransport.CardPatchDTO{
			CardID:       card.CardID,
			Headline:     card.Headline,
			Body:         card.Body,
			MediaURL:     card.MediaURL,
			CallToAction: card.CallToAction,
		})
	}
	return dto
}

func cardsFromDTOs(dtos []httptransport.CardDTO) []entities.Card {
	cards := make([]entities.Card, 0, len(dtos))
	for _, dto := range dtos {
		cards = append(cards, entities.Card{
			CardID:       strings.TrimSpace(dto.CardID),
			Headline:     dto.Headline,
			Body:         dto.Body,
			MediaURL:     dto.MediaURL,
			CallToAction: dto.CallToAction,
		})
	}
	return cards
}

func campaignToDTO(campaign entities.Campaign) httptransport.CampaignDTO {
	cards := make([]httptransport.CardDTO, 0, len(campaign.Cards))
	for _, card := range campaign.Cards {
		cards = append(cards, httptransport.CardDTO{
			CardID:       card.CardID,
			Headline:     card.Headline,
			Body:         card.Body,
			MediaURL:     card.MediaURL,
			CallToAction: card.CallToAction,
		})
	}
	history := make([]httptransport.StatusHistoryEntryDTO, 0, len(campaign.StatusHistory))
	for _, entry := range campaign.StatusHistory {
		history = append(history, httptransport.StatusHistoryEntryDTO{
			OccurredAt: entry.OccurredAt.Format(time.RFC3339),
			ActorID:    entry.ActorID,
			ActorLabel: entry.ActorLabel,
			Status:     string(entry.Status),
		})
	}
	dto := httptransport.CampaignDTO{
		CampaignID:             campaign.CampaignID,
		AccountID:              campaign.AccountID,
		Name:                   campaign.Name,
		Status:                 string(campaign.Status),
		Budget:                 campaign.Budget.StringFixed(2),
		Cards:                  cards,
		OutstandingProposalRef: campaign.OutstandingProposalRef,
		RejectionReason:        campaign.RejectionReason,
		StatusHistory:          history,
		CreatedAt:              campaign.CreatedAt.Format(time.RFC3339),
		UpdatedAt:              campaign.UpdatedAt.Format(time.RFC3339),
	}
	if campaign.DailyLimit != nil {
		dto.DailyLimit = campaign.DailyLimit.StringFixed(2)
	}
	return dto
}

func requestToDTO(request entities.ChangeRequest) httptransport.ChangeRequestDTO {
	dto := httptransport.ChangeRequestDTO{
		RequestID:       request.RequestID,
		CampaignID:      request.CampaignID,
		AccountID:       request.AccountID,
		RequestedBy:     request.RequestedBy,
		Status:          string(request.Status),
		Kind:            string(request.Kind),
		Data:            patchToDTO(request.Proposed),
		AutoApproved:    request.AutoApproved,
		RejectionReason: request.RejectionReason,
		CreatedAt:       request.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       request.UpdatedAt.Format(time.RFC3339),
		DecidedBy:       request.DecidedBy,
	}
	if request.DecidedAt != nil {
		dto.DecidedAt = request.DecidedAt.Format(time.RFC3339)
	}
	return dto
}
