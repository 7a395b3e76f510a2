package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	domainerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	"meridian/contexts/campaign-operations/change-request-service/ports"

	"github.com/shopspring/decimal"
)

func storedCampaign(id string) entities.Campaign {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return entities.Campaign{
		CampaignID: id,
		AccountID:  "acct-1",
		Name:       "stored",
		Status:     entities.CampaignStatusActive,
		Budget:     decimal.RequireFromString("100"),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func pendingRequest(requestID string, campaignID string) entities.ChangeRequest {
	now := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	name := "proposed"
	return entities.ChangeRequest{
		RequestID:   requestID,
		CampaignID:  campaignID,
		AccountID:   "acct-1",
		RequestedBy: "user-1",
		Status:      entities.RequestStatusPending,
		Proposed:    entities.CampaignPatch{Name: &name},
		Kind:        entities.ProposalKindOrdinary,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateWithLockCompareAndSwap(t *testing.T) {
	store := NewStore([]entities.Campaign{storedCampaign("camp-1")})

	if err := store.CreateWithLock(context.Background(), pendingRequest("req-1", "camp-1")); err != nil {
		t.Fatalf("first lock acquisition failed: %v", err)
	}
	campaign, err := store.GetCampaign(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaign.OutstandingProposalRef != "req-1" {
		t.Fatalf("expected lock req-1, got %q", campaign.OutstandingProposalRef)
	}

	err = store.CreateWithLock(context.Background(), pendingRequest("req-2", "camp-1"))
	if !errors.Is(err, domainerrors.ErrProposalLockHeld) {
		t.Fatalf("expected lock conflict, got %v", err)
	}
	if _, err := store.GetRequest(context.Background(), "req-2"); !errors.Is(err, domainerrors.ErrRequestNotFound) {
		t.Fatalf("losing request must not be stored, got %v", err)
	}

	err = store.CreateWithLock(context.Background(), pendingRequest("req-3", "camp-missing"))
	if !errors.Is(err, domainerrors.ErrCampaignNotFound) {
		t.Fatalf("expected missing campaign, got %v", err)
	}
}

func TestCommitDecisionStatusSwap(t *testing.T) {
	store := NewStore([]entities.Campaign{storedCampaign("camp-1")})
	if err := store.CreateWithLock(context.Background(), pendingRequest("req-1", "camp-1")); err != nil {
		t.Fatalf("lock acquisition failed: %v", err)
	}

	decided := storedCampaign("camp-1")
	decided.Name = "merged"
	decidedAt := time.Date(2026, 1, 13, 9, 0, 0, 0, time.UTC)
	commit := ports.DecisionCommit{
		RequestID: "req-1",
		From:      entities.RequestStatusPending,
		To:        entities.RequestStatusApproved,
		Campaign:  decided,
		DecidedBy: "reviewer-1",
		DecidedAt: decidedAt,
	}
	if err := store.CommitDecision(context.Background(), commit); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	request, err := store.GetRequest(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	if request.Status != entities.RequestStatusApproved || request.DecidedBy != "reviewer-1" {
		t.Fatalf("unexpected request after commit: %+v", request)
	}
	campaign, err := store.GetCampaign(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaign.Name != "merged" {
		t.Fatalf("decided campaign not stored: %+v", campaign)
	}

	// Replaying the same transition loses the swap.
	if err := store.CommitDecision(context.Background(), commit); !errors.Is(err, domainerrors.ErrRequestNotPending) {
		t.Fatalf("expected not-pending conflict on replay, got %v", err)
	}
}

func TestUpdateProposalOnlyWhilePending(t *testing.T) {
	store := NewStore([]entities.Campaign{storedCampaign("camp-1")})
	if err := store.CreateWithLock(context.Background(), pendingRequest("req-1", "camp-1")); err != nil {
		t.Fatalf("lock acquisition failed: %v", err)
	}

	budget := decimal.RequireFromString("300")
	updatedAt := time.Date(2026, 1, 13, 10, 0, 0, 0, time.UTC)
	if err := store.UpdateProposal(context.Background(), "req-1", entities.CampaignPatch{Budget: &budget}, updatedAt); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	request, err := store.GetRequest(context.Background(), "req-1")
	if err != nil {
		t.Fatalf("get request failed: %v", err)
	}
	if request.Proposed.Budget == nil || !request.Proposed.Budget.Equal(budget) {
		t.Fatalf("proposal not updated: %+v", request.Proposed)
	}

	if err := store.CommitDecision(context.Background(), ports.DecisionCommit{
		RequestID: "req-1",
		From:      entities.RequestStatusPending,
		To:        entities.RequestStatusCanceled,
		Campaign:  storedCampaign("camp-1"),
		DecidedBy: "user-1",
		DecidedAt: updatedAt,
	}); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	err = store.UpdateProposal(context.Background(), "req-1", entities.CampaignPatch{Budget: &budget}, updatedAt)
	if !errors.Is(err, domainerrors.ErrRequestNotPending) {
		t.Fatalf("expected not-pending, got %v", err)
	}
}

func TestOutboxLifecycle(t *testing.T) {
	store := NewStore(nil)
	envelope := ports.EventEnvelope{
		EventID:      "evt-1",
		EventType:    "newChangeRequest",
		PartitionKey: "camp-1",
		OccurredAt:   time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC),
	}
	if err := store.AppendOutbox(context.Background(), envelope); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 1 || pending[0].OutboxID != "evt-1" || pending[0].EventType != "newChangeRequest" {
		t.Fatalf("unexpected pending rows: %+v", pending)
	}

	if err := store.MarkOutboxPublished(context.Background(), "evt-1", time.Now().UTC()); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected drained outbox, got %d rows", len(pending))
	}
}
