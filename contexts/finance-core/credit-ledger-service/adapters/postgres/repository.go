package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	domainerrors "meridian/contexts/finance-core/credit-ledger-service/domain/errors"
	"meridian/contexts/finance-core/credit-ledger-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) AppendTransaction(ctx context.Context, tx entities.Transaction, envelope *ports.EventEnvelope) error {
	row := transactionModelFromEntity(tx)
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		if err := db.Create(&row).Error; err != nil {
			return err
		}
		if envelope == nil {
			return nil
		}
		outbox, err := outboxModelFromEnvelope(*envelope)
		if err != nil {
			return err
		}
		return db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outbox_id"}},
			DoNothing: true,
		}).Create(&outbox).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrTransactionExists
		}
		return classifyStoreError(err)
	}
	return nil
}

func (r *Repository) ListByAccount(ctx context.Context, accountID string) ([]entities.Transaction, error) {
	var rows []transactionModel
	err := r.db.WithContext(ctx).
		Where("account_id = ?", strings.TrimSpace(accountID)).
		Order("occurred_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return transactionsFromModels(rows), nil
}

func (r *Repository) ListByCampaign(ctx context.Context, campaignID string) ([]entities.Transaction, error) {
	var rows []transactionModel
	err := r.db.WithContext(ctx).
		Where("campaign_ref = ?", strings.TrimSpace(campaignID)).
		Order("occurred_at ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return transactionsFromModels(rows), nil
}

func outboxModelFromEnvelope(envelope ports.EventEnvelope) (outboxModel, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return outboxModel{}, err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, classifyStoreError(err)
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return classifyStoreError(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// classifyStoreError downgrades infrastructure faults to the retryable
// sentinel while keeping row-level outcomes intact.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exceptions. Class 57: operator intervention.
		if strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57") {
			return domainerrors.ErrStoreUnavailable
		}
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domainerrors.ErrStoreUnavailable
	}
	return err
}

type transactionModel struct {
	TxID        string          `gorm:"column:tx_id;primaryKey"`
	AccountID   string          `gorm:"column:account_id;index"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(19,4)"`
	Sign        int             `gorm:"column:sign"`
	CampaignRef string          `gorm:"column:campaign_ref;index"`
	OccurredAt  time.Time       `gorm:"column:occurred_at"`
}

func (transactionModel) TableName() string {
	return "ledger_transactions"
}

type outboxModel struct {
	OutboxID     string          `gorm:"column:outbox_id;primaryKey"`
	EventType    string          `gorm:"column:event_type"`
	PartitionKey string          `gorm:"column:partition_key"`
	Payload      json.RawMessage `gorm:"column:payload;type:jsonb"`
	Status       string          `gorm:"column:status"`
	CreatedAt    time.Time       `gorm:"column:created_at"`
	PublishedAt  *time.Time      `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "ledger_outbox"
}

func transactionModelFromEntity(tx entities.Transaction) transactionModel {
	return transactionModel{
		TxID:        strings.TrimSpace(tx.TxID),
		AccountID:   strings.TrimSpace(tx.AccountID),
		Amount:      tx.Amount,
		Sign:        int(tx.Sign),
		CampaignRef: strings.TrimSpace(tx.CampaignRef),
		OccurredAt:  tx.OccurredAt.UTC(),
	}
}

func (m transactionModel) toEntity() entities.Transaction {
	return entities.Transaction{
		TxID:        m.TxID,
		AccountID:   m.AccountID,
		Amount:      m.Amount,
		Sign:        entities.TransactionSign(m.Sign),
		CampaignRef: m.CampaignRef,
		OccurredAt:  m.OccurredAt,
	}
}

func transactionsFromModels(rows []transactionModel) []entities.Transaction {
	items := make([]entities.Transaction, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}
