package unit

import (
	"context"
	"errors"
	"sync"
	"testing"

	workflowentities "meridian/contexts/campaign-operations/change-request-service/domain/entities"
	workflowerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	workflowhttp "meridian/contexts/campaign-operations/change-request-service/transport/http"
	"meridian/internal/app/bootstrap"
)

// The proposal lock is a store-native compare-and-swap: with many racing
// submissions exactly one acquires it and the rest see the conflict.
func TestConcurrentSubmitsSingleWinner(t *testing.T) {
	campaigns := []workflowentities.Campaign{
		seedCampaign("camp-1", "acct-1", workflowentities.CampaignStatusActive, "100"),
	}
	stack := bootstrap.NewInMemoryStack(campaigns, nil, false, nil)

	const racers = 16
	var wg sync.WaitGroup
	results := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			name := "contender"
			_, err := stack.Workflow.Handler.SubmitChangeHandler(context.Background(), actor("acct-1", "user-1"), "camp-1", workflowhttp.SubmitChangeRequest{
				Data: workflowhttp.CampaignPatchDTO{Name: &name},
			})
			results[slot] = err
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, workflowerrors.ErrProposalLockHeld):
		default:
			t.Fatalf("unexpected submit error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}

	campaign, err := stack.Workflow.Handler.GetCampaignHandler(context.Background(), actor("acct-1", "user-1"), "camp-1")
	if err != nil {
		t.Fatalf("get campaign failed: %v", err)
	}
	if campaign.Campaign.OutstandingProposalRef == "" {
		t.Fatalf("winner must hold the lock")
	}

	pending, err := stack.Workflow.Handler.ListChangesHandler(context.Background(), actor("acct-1", "user-1"), "camp-1", "pending")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(pending.Items) != 1 {
		t.Fatalf("expected a single stored request, got %d", len(pending.Items))
	}
}
