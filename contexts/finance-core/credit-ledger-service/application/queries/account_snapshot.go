package queries

import (
	"context"
	"log/slog"
	"strings"

	application "meridian/contexts/finance-core/credit-ledger-service/application"
	"meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	domainerrors "meridian/contexts/finance-core/credit-ledger-service/domain/errors"
	"meridian/contexts/finance-core/credit-ledger-service/ports"
)

type AccountSnapshotUseCase struct {
	Ledger    ports.LedgerRepository
	Campaigns ports.CampaignDirectory
	Logger    *slog.Logger
}

// Execute reduces the account's ledger and campaign set into a balance,
// total spend and outstanding budget. Pure read: an account with no
// transactions or no campaigns yields an all-zero snapshot.
func (uc AccountSnapshotUseCase) Execute(ctx context.Context, accountID string) (entities.AccountSnapshot, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return entities.AccountSnapshot{}, domainerrors.ErrInvalidAccountID
	}

	transactions, err := uc.Ledger.ListByAccount(ctx, accountID)
	if err != nil {
		return entities.AccountSnapshot{}, err
	}
	views, err := uc.Campaigns.ListAccountCampaigns(ctx, accountID)
	if err != nil {
		return entities.AccountSnapshot{}, err
	}

	totals := aggregateLedger(transactions)
	snapshot := entities.AccountSnapshot{
		AccountID:         accountID,
		Balance:           totals.balance,
		TotalSpend:        totals.totalSpend,
		OutstandingBudget: outstandingTotal(views, totals, ""),
	}

	application.ResolveLogger(uc.Logger).Debug("account snapshot computed",
		"event", "account_snapshot_computed",
		"module", "finance-core/credit-ledger-service",
		"layer", "application",
		"account_id", accountID,
		"transaction_count", len(transactions),
		"campaign_count", len(views),
	)
	return snapshot, nil
}
