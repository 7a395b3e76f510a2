package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	workflowentities "meridian/contexts/campaign-operations/change-request-service/domain/entities"
	workflowerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	workflowhttp "meridian/contexts/campaign-operations/change-request-service/transport/http"
	ledgerentities "meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	"meridian/internal/app/bootstrap"

	httpadapter "meridian/contexts/campaign-operations/change-request-service/adapters/http"
)

func strPtr(value string) *string {
	return &value
}

func actor(account string, user string) httpadapter.Actor {
	return httpadapter.Actor{AccountID: account, ActorID: user, Label: "user " + user}
}

func fundedAccount(account string, amount string) []ledgerentities.Transaction {
	return []ledgerentities.Transaction{seedTx("tx-fund-"+account, account, ledgerentities.SignCredit, amount, "")}
}

func seedCampaignWithCards(id string, account string, status workflowentities.CampaignStatus, budget string) workflowentities.Campaign {
	campaign := seedCampaign(id, account, status, budget)
	campaign.Cards = []workflowentities.Card{
		{CardID: "card-1", Headline: "old headline", Body: "old body"},
		{CardID: "card-2", Headline: "second", Body: "second body"},
	}
	return campaign
}

func expiredCampaign(id string, account string, budget string) workflowentities.Campaign {
	campaign := seedCampaign(id, account, workflowentities.CampaignStatusExpired, budget)
	campaign.StatusHistory = append(campaign.StatusHistory,
		workflowentities.StatusHistoryEntry{
			OccurredAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
			ActorID:    "seed",
			Status:     workflowentities.CampaignStatusActive,
		},
		workflowentities.StatusHistoryEntry{
			OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			ActorID:    "seed",
			Status:     workflowentities.CampaignStatusExpired,
		},
	)
	return campaign
}

func submitNameChange(t *testing.T, stack *bootstrap.InMemoryStack, who httpadapter.Actor, campaignID string, name string) workflowhttp.ChangeRequestDTO {
	t.Helper()
	resp, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), who, campaignID, workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{Name: strPtr(name)},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return resp.Request
}

func TestSubmitAcquiresProposalLock(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)
	owner := actor("acct-1", "user-1")

	request := submitNameChange(t, stack, owner, "camp-1", "renamed")
	if request.Status != "pending" {
		t.Fatalf("expected pending request, got %s", request.Status)
	}
	if request.Kind != "ordinary" {
		t.Fatalf("expected ordinary kind, got %s", request.Kind)
	}

	campaign, err := stack.Workflow.Handler.GetCampaignHandler(context.Background(), owner, "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaign.Campaign.OutstandingProposalRef != request.RequestID {
		t.Fatalf("expected lock %s, got %q", request.RequestID, campaign.Campaign.OutstandingProposalRef)
	}
	// The stored document is untouched until a decision lands.
	if campaign.Campaign.Name != "campaign camp-1" {
		t.Fatalf("submit must not mutate the campaign, got name %q", campaign.Campaign.Name)
	}

	_, err = stack.Workflow.Handler.SubmitChangeHandler(context.Background(), owner, "camp-1", workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{Name: strPtr("second attempt")},
	})
	if !errors.Is(err, workflowerrors.ErrProposalLockHeld) {
		t.Fatalf("expected lock conflict, got %v", err)
	}
}

func TestSubmitForeignCampaignLooksMissing(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)

	_, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), actor("acct-2", "user-9"), "camp-1", workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{Name: strPtr("hijack")},
	})
	if !errors.Is(err, workflowerrors.ErrCampaignNotFound) {
		t.Fatalf("expected campaign not found, got %v", err)
	}
}

func TestSubmitEmptyPatchRejected(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)

	_, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), actor("acct-1", "user-1"), "camp-1", workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{},
	})
	if !errors.Is(err, workflowerrors.ErrInvalidPatch) {
		t.Fatalf("expected invalid patch, got %v", err)
	}
}

func TestSubmitUnknownCardRefRejected(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaignWithCards("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)

	_, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), actor("acct-1", "user-1"), "camp-1", workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{
			Cards: []workflowhttp.CardPatchDTO{{CardID: "card-missing", Headline: strPtr("x")}},
		},
	})
	if !errors.Is(err, workflowerrors.ErrUnknownCardRef) {
		t.Fatalf("expected unknown card ref, got %v", err)
	}
}

func TestSubmitInsufficientCreditCarriesDeposit(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, fundedAccount("acct-1", "150"), false, nil)

	_, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), actor("acct-1", "user-1"), "camp-1", workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{Budget: strPtr("400.25")},
	})
	var denied *workflowerrors.InsufficientCreditError
	if !errors.As(err, &denied) {
		t.Fatalf("expected insufficient credit, got %v", err)
	}
	if denied.DepositAmount.StringFixed(2) != "250.25" {
		t.Fatalf("expected deposit 250.25, got %s", denied.DepositAmount.StringFixed(2))
	}

	// Denial leaves no lock behind.
	campaign, err := stack.Workflow.Handler.GetCampaignHandler(context.Background(), actor("acct-1", "user-1"), "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaign.Campaign.OutstandingProposalRef != "" {
		t.Fatalf("expected no lock after denial, got %q", campaign.Campaign.OutstandingProposalRef)
	}
}

func TestApproveMergesProposalAndUnlocks(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaignWithCards("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, fundedAccount("acct-1", "10000"), false, nil)
	stack.Workflow.Entitlements.GrantApprovalAuthority("reviewer-1")
	owner := actor("acct-1", "user-1")
	reviewer := actor("acct-1", "reviewer-1")

	resp, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), owner, "camp-1", workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{
			Name:   strPtr("relaunch"),
			Budget: strPtr("250"),
			Cards: []workflowhttp.CardPatchDTO{
				{CardID: "card-1", Headline: strPtr("new headline")},
			},
		},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	decided, err := stack.Workflow.Handler.DecideChangeHandler(context.Background(), reviewer, "camp-1", resp.Request.RequestID, workflowhttp.DecideChangeRequest{Status: "approved"})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if decided.Request.Status != "approved" || decided.Request.DecidedBy != "reviewer-1" {
		t.Fatalf("unexpected decision record: %+v", decided.Request)
	}

	campaign, err := stack.Workflow.Handler.GetCampaignHandler(context.Background(), owner, "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	got := campaign.Campaign
	if got.Name != "relaunch" || got.Budget != "250.00" {
		t.Fatalf("patch not applied: name=%q budget=%s", got.Name, got.Budget)
	}
	if got.OutstandingProposalRef != "" {
		t.Fatalf("expected lock cleared, got %q", got.OutstandingProposalRef)
	}
	if got.Cards[0].Headline != "new headline" || got.Cards[0].Body != "old body" {
		t.Fatalf("card merge wrong: %+v", got.Cards[0])
	}
	if got.Cards[1].Headline != "second" {
		t.Fatalf("untouched card changed: %+v", got.Cards[1])
	}

	// The terminal transition happens once.
	_, err = stack.Workflow.Handler.DecideChangeHandler(context.Background(), reviewer, "camp-1", resp.Request.RequestID, workflowhttp.DecideChangeRequest{Status: "approved"})
	if !errors.Is(err, workflowerrors.ErrRequestNotPending) {
		t.Fatalf("expected not-pending conflict, got %v", err)
	}
}

func TestApproveWithoutAuthority(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)
	owner := actor("acct-1", "user-1")

	request := submitNameChange(t, stack, owner, "camp-1", "renamed")
	_, err := stack.Workflow.Handler.DecideChangeHandler(context.Background(), owner, "camp-1", request.RequestID, workflowhttp.DecideChangeRequest{Status: "approved"})
	if !errors.Is(err, workflowerrors.ErrNotAuthorized) {
		t.Fatalf("expected authorization failure, got %v", err)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)
	stack.Workflow.Entitlements.GrantApprovalAuthority("reviewer-1")
	owner := actor("acct-1", "user-1")
	reviewer := actor("acct-1", "reviewer-1")

	request := submitNameChange(t, stack, owner, "camp-1", "renamed")
	_, err := stack.Workflow.Handler.DecideChangeHandler(context.Background(), reviewer, "camp-1", request.RequestID, workflowhttp.DecideChangeRequest{Status: "rejected"})
	if !errors.Is(err, workflowerrors.ErrRejectionReasonRequired) {
		t.Fatalf("expected reason required, got %v", err)
	}
	_, err = stack.Workflow.Handler.DecideChangeHandler(context.Background(), reviewer, "camp-1", request.RequestID, workflowhttp.DecideChangeRequest{Status: "rejected", RejectionReason: "   "})
	if !errors.Is(err, workflowerrors.ErrRejectionReasonRequired) {
		t.Fatalf("expected reason required for whitespace, got %v", err)
	}
}

func TestRejectOrdinaryKeepsStatus(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)
	stack.Workflow.Entitlements.GrantApprovalAuthority("reviewer-1")
	owner := actor("acct-1", "user-1")
	reviewer := actor("acct-1", "reviewer-1")

	request := submitNameChange(t, stack, owner, "camp-1", "renamed")
	decided, err := stack.Workflow.Handler.DecideChangeHandler(context.Background(), reviewer, "camp-1", request.RequestID, workflowhttp.DecideChangeRequest{Status: "rejected", RejectionReason: "budget owner said no"})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if decided.Request.Status != "rejected" || decided.Request.RejectionReason != "budget owner said no" {
		t.Fatalf("unexpected rejection record: %+v", decided.Request)
	}

	campaign, err := stack.Workflow.Handler.GetCampaignHandler(context.Background(), owner, "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	got := campaign.Campaign
	if got.Status != "active" {
		t.Fatalf("ordinary rejection must keep status, got %s", got.Status)
	}
	if got.Name != "campaign camp-1" {
		t.Fatalf("rejected patch leaked into campaign: %q", got.Name)
	}
	if got.OutstandingProposalRef != "" {
		t.Fatalf("expected lock cleared after rejection")
	}
	if got.RejectionReason != "budget owner said no" {
		t.Fatalf("expected reason surfaced on campaign, got %q", got.RejectionReason)
	}
}

func TestRejectInitialSubmitRevertsToDraft(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusDraft, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, fundedAccount("acct-1", "10000"), false, nil)
	stack.Workflow.Entitlements.GrantApprovalAuthority("reviewer-1")
	owner := actor("acct-1", "user-1")
	reviewer := actor("acct-1", "reviewer-1")

	resp, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), owner, "camp-1", workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{Status: strPtr("pending")},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp.Request.Kind != "initial_submit" {
		t.Fatalf("expected initial_submit kind, got %s", resp.Request.Kind)
	}

	_, err = stack.Workflow.Handler.DecideChangeHandler(context.Background(), reviewer, "camp-1", resp.Request.RequestID, workflowhttp.DecideChangeRequest{Status: "rejected", RejectionReason: "creative violates policy"})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	campaign, err := stack.Workflow.Handler.GetCampaignHandler(context.Background(), owner, "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaign.Campaign.Status != "draft" {
		t.Fatalf("expected revert to draft, got %s", campaign.Campaign.Status)
	}
}

func TestRejectRenewalRevertsToExpired(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		expiredCampaign("camp-1", "acct-1", "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, fundedAccount("acct-1", "10000"), false, nil)
	stack.Workflow.Entitlements.GrantApprovalAuthority("reviewer-1")
	owner := actor("acct-1", "user-1")
	reviewer := actor("acct-1", "reviewer-1")

	resp, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), owner, "camp-1", workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{Status: strPtr("active"), Budget: strPtr("150")},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp.Request.Kind != "renewal" {
		t.Fatalf("expected renewal kind, got %s", resp.Request.Kind)
	}

	_, err = stack.Workflow.Handler.DecideChangeHandler(context.Background(), reviewer, "camp-1", resp.Request.RequestID, workflowhttp.DecideChangeRequest{Status: "rejected", RejectionReason: "renewal budget too high"})
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	campaign, err := stack.Workflow.Handler.GetCampaignHandler(context.Background(), owner, "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaign.Campaign.Status != "expired" {
		t.Fatalf("expected revert to expired, got %s", campaign.Campaign.Status)
	}
}

func TestApproveRenewalReactivates(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		expiredCampaign("camp-1", "acct-1", "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, fundedAccount("acct-1", "10000"), false, nil)
	stack.Workflow.Entitlements.GrantApprovalAuthority("reviewer-1")
	owner := actor("acct-1", "user-1")
	reviewer := actor("acct-1", "reviewer-1")

	resp, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), owner, "camp-1", workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{Status: strPtr("active"), Budget: strPtr("150")},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp.Request.Kind != "renewal" {
		t.Fatalf("expected renewal kind, got %s", resp.Request.Kind)
	}

	decided, err := stack.Workflow.Handler.DecideChangeHandler(context.Background(), reviewer, "camp-1", resp.Request.RequestID, workflowhttp.DecideChangeRequest{Status: "approved"})
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if decided.Request.Status != "approved" {
		t.Fatalf("expected approved, got %s", decided.Request.Status)
	}

	campaign, err := stack.Workflow.Handler.GetCampaignHandler(context.Background(), owner, "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaign.Campaign.Status != "active" {
		t.Fatalf("approved renewal must follow the patch, got status %s", campaign.Campaign.Status)
	}
	if campaign.Campaign.Budget != "150.00" {
		t.Fatalf("expected budget 150.00, got %s", campaign.Campaign.Budget)
	}
	if campaign.Campaign.OutstandingProposalRef != "" {
		t.Fatalf("expected lock cleared after approval")
	}
}

func TestCancelByRequester(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)
	owner := actor("acct-1", "user-1")

	request := submitNameChange(t, stack, owner, "camp-1", "renamed")

	// A different plain user in the account cannot withdraw it.
	_, err := stack.Workflow.Handler.DecideChangeHandler(context.Background(), actor("acct-1", "user-2"), "camp-1", request.RequestID, workflowhttp.DecideChangeRequest{Status: "canceled"})
	if !errors.Is(err, workflowerrors.ErrNotAuthorized) {
		t.Fatalf("expected authorization failure, got %v", err)
	}

	decided, err := stack.Workflow.Handler.DecideChangeHandler(context.Background(), owner, "camp-1", request.RequestID, workflowhttp.DecideChangeRequest{Status: "canceled"})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if decided.Request.Status != "canceled" {
		t.Fatalf("expected canceled, got %s", decided.Request.Status)
	}

	campaign, err := stack.Workflow.Handler.GetCampaignHandler(context.Background(), owner, "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaign.Campaign.OutstandingProposalRef != "" {
		t.Fatalf("expected lock cleared after cancel")
	}
}

func TestEditPendingProposal(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, fundedAccount("acct-1", "10000"), false, nil)
	owner := actor("acct-1", "user-1")

	request := submitNameChange(t, stack, owner, "camp-1", "first name")
	edited, err := stack.Workflow.Handler.DecideChangeHandler(context.Background(), owner, "camp-1", request.RequestID, workflowhttp.DecideChangeRequest{
		Status: "pending",
		Data:   &workflowhttp.CampaignPatchDTO{Budget: strPtr("300")},
	})
	if err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if edited.Request.Status != "pending" {
		t.Fatalf("edit must keep the request pending, got %s", edited.Request.Status)
	}
	// The overlay extends the stored proposal instead of replacing it.
	if edited.Request.Data.Name == nil || *edited.Request.Data.Name != "first name" {
		t.Fatalf("stored name dropped by edit: %+v", edited.Request.Data)
	}
	if edited.Request.Data.Budget == nil || *edited.Request.Data.Budget != "300" {
		t.Fatalf("edited budget missing: %+v", edited.Request.Data)
	}

	// Amending to pending without a body is meaningless.
	_, err = stack.Workflow.Handler.DecideChangeHandler(context.Background(), owner, "camp-1", request.RequestID, workflowhttp.DecideChangeRequest{Status: "pending"})
	if !errors.Is(err, workflowerrors.ErrInvalidPatch) {
		t.Fatalf("expected invalid patch, got %v", err)
	}
}

func TestAutoApprovePath(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, fundedAccount("acct-1", "10000"), true, nil)
	stack.Workflow.Entitlements.GrantAutoApprove("trusted-1")
	trusted := actor("acct-1", "trusted-1")

	resp, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), trusted, "camp-1", workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{Name: strPtr("fast path"), Budget: strPtr("200")},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp.Request.Status != "approved" || !resp.Request.AutoApproved {
		t.Fatalf("expected auto-approved request, got %+v", resp.Request)
	}

	campaign, err := stack.Workflow.Handler.GetCampaignHandler(context.Background(), trusted, "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaign.Campaign.Name != "fast path" || campaign.Campaign.Budget != "200.00" {
		t.Fatalf("auto-approval must apply immediately: %+v", campaign.Campaign)
	}
	if campaign.Campaign.OutstandingProposalRef != "" {
		t.Fatalf("auto-approval must not leave a lock")
	}
}

func TestAutoApproveGrantIgnoredWhenDisabled(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)
	stack.Workflow.Entitlements.GrantAutoApprove("trusted-1")

	resp, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), actor("acct-1", "trusted-1"), "camp-1", workflowhttp.SubmitChangeRequest{
		Data: workflowhttp.CampaignPatchDTO{Name: strPtr("slow path")},
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if resp.Request.Status != "pending" || resp.Request.AutoApproved {
		t.Fatalf("expected ordinary pending request, got %+v", resp.Request)
	}
}

func TestListChangesFiltersByStatus(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)
	stack.Workflow.Entitlements.GrantApprovalAuthority("reviewer-1")
	owner := actor("acct-1", "user-1")
	reviewer := actor("acct-1", "reviewer-1")

	first := submitNameChange(t, stack, owner, "camp-1", "one")
	if _, err := stack.Workflow.Handler.DecideChangeHandler(context.Background(), reviewer, "camp-1", first.RequestID, workflowhttp.DecideChangeRequest{Status: "rejected", RejectionReason: "nope"}); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	second := submitNameChange(t, stack, owner, "camp-1", "two")

	pending, err := stack.Workflow.Handler.ListChangesHandler(context.Background(), owner, "camp-1", "pending")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending.Items) != 1 || pending.Items[0].RequestID != second.RequestID {
		t.Fatalf("unexpected pending list: %+v", pending.Items)
	}

	all, err := stack.Workflow.Handler.ListChangesHandler(context.Background(), owner, "camp-1", "")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all.Items) != 2 {
		t.Fatalf("expected both requests, got %d", len(all.Items))
	}

	_, err = stack.Workflow.Handler.ListChangesHandler(context.Background(), actor("acct-2", "user-9"), "camp-1", "")
	if !errors.Is(err, workflowerrors.ErrCampaignNotFound) {
		t.Fatalf("foreign account must not see the queue, got %v", err)
	}
}

func TestCreateCampaignStartsDraft(t *testing.T) {
	stack := bootstrap.NewInMemoryStack(nil, nil, false, nil)
	owner := actor("acct-1", "user-1")

	resp, err := stack.Workflow.Handler.CreateCampaignHandler(context.Background(), owner, workflowhttp.CreateCampaignRequest{
		Name:   "spring launch",
		Budget: "500",
		Cards:  []workflowhttp.CardDTO{{CardID: "card-1", Headline: "hello"}},
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if resp.Campaign.Status != "draft" {
		t.Fatalf("expected draft, got %s", resp.Campaign.Status)
	}
	if len(resp.Campaign.StatusHistory) != 1 || resp.Campaign.StatusHistory[0].Status != "draft" {
		t.Fatalf("expected seeded history entry, got %+v", resp.Campaign.StatusHistory)
	}

	_, err = stack.Workflow.Handler.CreateCampaignHandler(context.Background(), owner, workflowhttp.CreateCampaignRequest{Name: "bad", Budget: "not-a-number"})
	if !errors.Is(err, workflowerrors.ErrInvalidCampaignInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestWorkflowEventsReachOutbox(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)
	stack.Workflow.Entitlements.GrantApprovalAuthority("reviewer-1")
	owner := actor("acct-1", "user-1")
	reviewer := actor("acct-1", "reviewer-1")

	request := submitNameChange(t, stack, owner, "camp-1", "renamed")
	if stack.Workflow.Store.PendingOutboxCount() != 1 {
		t.Fatalf("expected one pending event after submit, got %d", stack.Workflow.Store.PendingOutboxCount())
	}
	if _, err := stack.Workflow.Handler.DecideChangeHandler(context.Background(), reviewer, "camp-1", request.RequestID, workflowhttp.DecideChangeRequest{Status: "approved"}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if stack.Workflow.Store.PendingOutboxCount() != 2 {
		t.Fatalf("expected two pending events after approval, got %d", stack.Workflow.Store.PendingOutboxCount())
	}

	if err := stack.Workflow.Relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if stack.Workflow.Store.PendingOutboxCount() != 0 {
		t.Fatalf("expected drained outbox, got %d", stack.Workflow.Store.PendingOutboxCount())
	}
}
