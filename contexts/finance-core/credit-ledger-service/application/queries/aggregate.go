package queries

import (
	"meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	"meridian/contexts/finance-core/credit-ledger-service/ports"

	"github.com/shopspring/decimal"
)

// ledgerTotals is the single pass over an account's transactions shared by
// the snapshot and credit-check queries.
type ledgerTotals struct {
	balance         decimal.Decimal
	totalSpend      decimal.Decimal
	spendByCampaign map[string]decimal.Decimal
}

func aggregateLedger(transactions []entities.Transaction) ledgerTotals {
	totals := ledgerTotals{
		balance:         decimal.Zero,
		totalSpend:      decimal.Zero,
		spendByCampaign: make(map[string]decimal.Decimal),
	}
	for _, tx := range transactions {
		totals.balance = totals.balance.Add(tx.Signed())
		if tx.Sign != entities.SignDebit {
			continue
		}
		// Spend is historical fact: counted for every campaign regardless
		// of that campaign's current status.
		totals.totalSpend = totals.totalSpend.Add(tx.Amount)
		if tx.CampaignRef != "" {
			spent := totals.spendByCampaign[tx.CampaignRef]
			totals.spendByCampaign[tx.CampaignRef] = spent.Add(tx.Amount)
		}
	}
	return totals
}

// unspentBudget is a campaign's contribution to outstanding budget: the part
// of its budget not yet spent, never negative.
func unspentBudget(budget decimal.Decimal, spent decimal.Decimal) decimal.Decimal {
	remaining := budget.Sub(spent)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// outstandingTotal sums unspent budget over the account's eligible campaigns,
// optionally skipping one campaign id.
func outstandingTotal(views []ports.CampaignView, totals ledgerTotals, excludeID string) decimal.Decimal {
	total := decimal.Zero
	for _, view := range views {
		if excludeID != "" && view.CampaignID == excludeID {
			continue
		}
		if !entities.OutstandingEligible(view.Status) {
			continue
		}
		total = total.Add(unspentBudget(view.Budget, totals.spendByCampaign[view.CampaignID]))
	}
	return total
}
