package queries

import (
	"context"
	"log/slog"
	"strings"

	application "meridian/contexts/finance-core/credit-ledger-service/application"
	"meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	domainerrors "meridian/contexts/finance-core/credit-ledger-service/domain/errors"
	"meridian/contexts/finance-core/credit-ledger-service/ports"

	"github.com/shopspring/decimal"
)

type CreditCheckQuery struct {
	AccountID      string
	CampaignID     string
	ProposedBudget decimal.Decimal
}

type CreditCheckUseCase struct {
	Ledger    ports.LedgerRepository
	Campaigns ports.CampaignDirectory
	Logger    *slog.Logger
}

// Execute decides whether the proposed budget for one campaign fits inside
// the account's available credit. The account-wide outstanding total is
// recomputed without the campaign under test; the campaign under test then
// contributes max(proposedBudget - spentOnCampaign, 0) even when it is
// currently expired, since a renewal evaluates it as if already reactivated.
//
// Pure read: admission or denial never touches the ledger or the campaign.
func (uc CreditCheckUseCase) Execute(ctx context.Context, query CreditCheckQuery) (entities.CreditDecision, error) {
	accountID := strings.TrimSpace(query.AccountID)
	campaignID := strings.TrimSpace(query.CampaignID)
	if accountID == "" {
		return entities.CreditDecision{}, domainerrors.ErrInvalidAccountID
	}
	if campaignID == "" || query.ProposedBudget.IsNegative() {
		return entities.CreditDecision{}, domainerrors.ErrInvalidTransactionInput
	}

	target, err := uc.Campaigns.GetCampaignView(ctx, campaignID)
	if err != nil {
		return entities.CreditDecision{}, err
	}
	if target.AccountID != accountID {
		// Campaigns outside the caller's account are indistinguishable from
		// missing ones.
		return entities.CreditDecision{}, domainerrors.ErrCampaignNotFound
	}

	transactions, err := uc.Ledger.ListByAccount(ctx, accountID)
	if err != nil {
		return entities.CreditDecision{}, err
	}
	views, err := uc.Campaigns.ListAccountCampaigns(ctx, accountID)
	if err != nil {
		return entities.CreditDecision{}, err
	}

	totals := aggregateLedger(transactions)
	otherOutstanding := outstandingTotal(views, totals, campaignID)
	thisContribution := unspentBudget(query.ProposedBudget, totals.spendByCampaign[campaignID])
	requiredTotal := otherOutstanding.Add(thisContribution)

	logger := application.ResolveLogger(uc.Logger)
	if requiredTotal.LessThanOrEqual(totals.balance) {
		return entities.CreditDecision{Admitted: true, DepositAmount: decimal.Zero}, nil
	}

	deposit := entities.RequiredDeposit(requiredTotal.Sub(totals.balance))
	logger.Info("credit admission denied",
		"event", "credit_admission_denied",
		"module", "finance-core/credit-ledger-service",
		"layer", "application",
		"account_id", accountID,
		"campaign_id", campaignID,
		"required_total", requiredTotal.String(),
		"balance", totals.balance.String(),
		"deposit_amount", deposit.StringFixed(2),
	)
	return entities.CreditDecision{Admitted: false, DepositAmount: deposit}, nil
}
