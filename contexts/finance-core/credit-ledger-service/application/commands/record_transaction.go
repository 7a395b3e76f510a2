package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "meridian/contexts/finance-core/credit-ledger-service/application"
	"meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	domainerrors "meridian/contexts/finance-core/credit-ledger-service/domain/errors"
	"meridian/contexts/finance-core/credit-ledger-service/ports"

	"github.com/shopspring/decimal"
)

type RecordTransactionCommand struct {
	AccountID   string
	Amount      decimal.Decimal
	Sign        entities.TransactionSign
	CampaignRef string
	OccurredAt  time.Time
}

type RecordTransactionUseCase struct {
	Ledger ports.LedgerRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// Execute appends one signed transaction to the account's ledger. Billing
// and funding integrations are the producers; rows are immutable once
// written.
func (uc RecordTransactionUseCase) Execute(ctx context.Context, cmd RecordTransactionCommand) (entities.Transaction, error) {
	logger := application.ResolveLogger(uc.Logger)
	accountID := strings.TrimSpace(cmd.AccountID)
	if accountID == "" {
		return entities.Transaction{}, domainerrors.ErrInvalidAccountID
	}
	if !entities.ValidAmount(cmd.Amount) || !entities.IsSupportedSign(cmd.Sign) {
		return entities.Transaction{}, domainerrors.ErrInvalidTransactionInput
	}

	txID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Transaction{}, err
	}
	occurredAt := cmd.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = uc.Clock.Now().UTC()
	}

	tx := entities.Transaction{
		TxID:        txID,
		AccountID:   accountID,
		Amount:      cmd.Amount,
		Sign:        cmd.Sign,
		CampaignRef: strings.TrimSpace(cmd.CampaignRef),
		OccurredAt:  occurredAt,
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Transaction{}, err
	}
	envelope, err := newLedgerEnvelope(
		eventID,
		"ledger.transactionRecorded",
		accountID,
		occurredAt,
		map[string]any{
			"tx_id":        tx.TxID,
			"account_id":   tx.AccountID,
			"amount":       tx.Amount.StringFixed(4),
			"sign":         int(tx.Sign),
			"campaign_ref": tx.CampaignRef,
		},
	)
	if err != nil {
		return entities.Transaction{}, err
	}

	// Row and outbox envelope commit together or not at all.
	if err := uc.Ledger.AppendTransaction(ctx, tx, &envelope); err != nil {
		return entities.Transaction{}, err
	}

	logger.Info("ledger transaction recorded",
		"event", "ledger_transaction_recorded",
		"module", "finance-core/credit-ledger-service",
		"layer", "application",
		"tx_id", tx.TxID,
		"account_id", tx.AccountID,
		"sign", int(tx.Sign),
		"amount", tx.Amount.StringFixed(4),
	)
	return tx, nil
}
