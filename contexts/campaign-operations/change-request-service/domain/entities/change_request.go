package entities

import "time"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
	RequestStatusCanceled RequestStatus = "canceled"
)

// ProposalKind tags why the proposal exists; the revert target on discard
// depends on it.
type ProposalKind string

const (
	ProposalKindOrdinary      ProposalKind = "ordinary"
	ProposalKindInitialSubmit ProposalKind = "initial_submit"
	ProposalKindRenewal       ProposalKind = "renewal"
)

// ChangeRequest is a proposed campaign mutation working its way through the
// approval lifecycle. Requests are never deleted; terminal states remain as
// the audit trail.
type ChangeRequest struct {
	RequestID   string
	CampaignID  string
	AccountID   string
	RequestedBy string

	Status   RequestStatus
	Proposed CampaignPatch
	Kind     ProposalKind

	AutoApproved    bool
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
	DecidedBy string
	DecidedAt *time.Time
}

func (r ChangeRequest) InitialSubmit() bool {
	return r.Kind == ProposalKindInitialSubmit
}

func (r ChangeRequest) Renewal() bool {
	return r.Kind == ProposalKindRenewal
}

// ClassifyProposal derives the proposal kind at submission time: a first
// activation attempt when the patch proposes pending and the campaign has
// never gone live, a renewal when an expired campaign is being reactivated,
// an ordinary edit otherwise.
func ClassifyProposal(campaign Campaign, patch CampaignPatch) ProposalKind {
	if patch.Status != nil && *patch.Status == CampaignStatusPending && !campaign.HasEverActivated() {
		return ProposalKindInitialSubmit
	}
	if campaign.Status == CampaignStatusExpired && patch.ProposesActivation() {
		return ProposalKindRenewal
	}
	return ProposalKindOrdinary
}

// RevertStatus is the campaign status after this proposal is discarded:
// first submissions fall back to draft, renewals back to expired, ordinary
// edits never touched the live status in the first place.
func (r ChangeRequest) RevertStatus(current CampaignStatus) CampaignStatus {
	switch r.Kind {
	case ProposalKindInitialSubmit:
		return CampaignStatusDraft
	case ProposalKindRenewal:
		return CampaignStatusExpired
	default:
		return current
	}
}
