package ports

import (
	"context"
	"time"

	"meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	contractsv1 "meridian/contracts/gen/events/v1"

	"github.com/shopspring/decimal"
)

type LedgerRepository interface {
	// AppendTransaction inserts the transaction and, when envelope is
	// non-nil, its outbox row in one atomic step. A failure leaves neither
	// behind, so retrying a reported failure cannot double-fund the account.
	AppendTransaction(ctx context.Context, tx entities.Transaction, envelope *EventEnvelope) error
	ListByAccount(ctx context.Context, accountID string) ([]entities.Transaction, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]entities.Transaction, error)
}

// CampaignView is the slice of a campaign the ledger aggregation needs.
// The campaign store itself belongs to another context; bootstrap supplies
// an adapter satisfying CampaignDirectory.
type CampaignView struct {
	CampaignID string
	AccountID  string
	Status     string
	Budget     decimal.Decimal
}

type CampaignDirectory interface {
	ListAccountCampaigns(ctx context.Context, accountID string) ([]CampaignView, error)
	GetCampaignView(ctx context.Context, campaignID string) (CampaignView, error)
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

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
