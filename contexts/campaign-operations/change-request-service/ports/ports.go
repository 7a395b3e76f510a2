package ports

import (
	"context"
	"time"

	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	contractsv1 "meridian/contracts/gen/events/v1"

	"github.com/shopspring/decimal"
)

type CampaignFilter struct {
	AccountID string
	Status    entities.CampaignStatus
}

type CampaignRepository interface {
	CreateCampaign(ctx context.Context, campaign entities.Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (entities.Campaign, error)
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]entities.Campaign, error)
}

// DecisionCommit carries everything a terminal transition writes in one
// atomic step: the status CAS on the request, the post-decision campaign
// document (lock cleared, status resolved), and the history row to append.
type DecisionCommit struct {
	RequestID       string
	From            entities.RequestStatus
	To              entities.RequestStatus
	Campaign        entities.Campaign
	History         *entities.StatusHistoryEntry
	RejectionReason string
	DecidedBy       string
	DecidedAt       time.Time
}

type ChangeRequestRepository interface {
	GetRequest(ctx context.Context, requestID string) (entities.ChangeRequest, error)
	ListRequestsByCampaign(ctx context.Context, campaignID string, status entities.RequestStatus) ([]entities.ChangeRequest, error)

	// CreateWithLock inserts the pending request and compare-and-swaps the
	// campaign's outstanding proposal ref from unset in one atomic step.
	// A concurrent holder surfaces as ErrProposalLockHeld with no mutation.
	CreateWithLock(ctx context.Context, request entities.ChangeRequest) error

	// CreateAutoApproved persists an already-approved request together with
	// the merged campaign and optional history entry, atomically. The
	// campaign must be unlocked at commit time.
	CreateAutoApproved(ctx context.Context, request entities.ChangeRequest, campaign entities.Campaign, history *entities.StatusHistoryEntry) error

	// UpdateProposal replaces a pending request's proposed patch; the swap
	// fails with ErrRequestNotPending once the request left pending.
	UpdateProposal(ctx context.Context, requestID string, patch entities.CampaignPatch, updatedAt time.Time) error

	// CommitDecision compare-and-swaps the request status From->To and
	// writes the campaign + history in the same transaction. Losing the CAS
	// yields ErrRequestNotPending, never a double apply.
	CommitDecision(ctx context.Context, commit DecisionCommit) error
}

// CreditDecision mirrors the admission verdict from the finance context.
type CreditDecision struct {
	Admitted      bool
	DepositAmount decimal.Decimal
}

// CreditGate guards budget-touching proposals. Checks are pure reads; a
// denial must leave campaign and ledger unmutated.
type CreditGate interface {
	Check(ctx context.Context, accountID string, campaignID string, proposedBudget decimal.Decimal) (CreditDecision, error)
}

// Entitlements is the external policy boundary: who may auto-approve their
// own proposals and who may decide other actors' proposals.
type Entitlements interface {
	HasAutoApprove(ctx context.Context, actorID string, accountID string) (bool, error)
	HasApprovalAuthority(ctx context.Context, actorID string, accountID string) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
