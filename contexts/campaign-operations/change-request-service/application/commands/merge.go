package commands

import (
	"time"

	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
)

// mergeForApproval computes the post-approval campaign document: the patch
// merged field by field, lock cleared, stale rejection reason dropped, and a
// history entry appended only when the patch moves the status (approving an
// ordinary edit leaves the status log untouched).
func mergeForApproval(
	campaign entities.Campaign,
	request entities.ChangeRequest,
	actorID string,
	actorLabel string,
	now time.Time,
) (entities.Campaign, *entities.StatusHistoryEntry) {
	merged := entities.ApplyPatch(campaign, request.Proposed)
	merged.OutstandingProposalRef = ""
	merged.RejectionReason = ""
	merged.UpdatedAt = now

	var history *entities.StatusHistoryEntry
	if request.Proposed.Status != nil {
		entry := entities.StatusHistoryEntry{
			OccurredAt: now,
			ActorID:    actorID,
			ActorLabel: actorLabel,
			Status:     *request.Proposed.Status,
		}
		merged.StatusHistory = append(merged.StatusHistory, entry)
		history = &entry
	}
	return merged, history
}

// revertForDiscard computes the campaign document after a pending proposal
// is discarded (reject or cancel): lock cleared, status reverted by kind,
// exactly one history entry appended attributed to the discarding actor.
func revertForDiscard(
	campaign entities.Campaign,
	request entities.ChangeRequest,
	actorID string,
	actorLabel string,
	reason string,
	now time.Time,
) (entities.Campaign, entities.StatusHistoryEntry) {
	reverted := campaign.Clone()
	reverted.OutstandingProposalRef = ""
	reverted.Status = request.RevertStatus(campaign.Status)
	reverted.RejectionReason = reason
	reverted.UpdatedAt = now

	entry := entities.StatusHistoryEntry{
		OccurredAt: now,
		ActorID:    actorID,
		ActorLabel: actorLabel,
		Status:     reverted.Status,
	}
	reverted.StatusHistory = append(reverted.StatusHistory, entry)
	return reverted, entry
}
