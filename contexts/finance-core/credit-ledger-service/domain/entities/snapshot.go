package entities

import "github.com/shopspring/decimal"

// AccountSnapshot is the read-side aggregation of an account's ledger.
// Values retain full precision; rounding to cents happens only at the
// presentation boundary.
type AccountSnapshot struct {
	AccountID         string
	Balance           decimal.Decimal
	TotalSpend        decimal.Decimal
	OutstandingBudget decimal.Decimal
}

// CreditDecision is the outcome of an admission check for a proposed budget.
// DepositAmount is zero when admitted, otherwise the minimum top-up needed.
type CreditDecision struct {
	Admitted      bool
	DepositAmount decimal.Decimal
}

// MinimumDeposit is the floor applied to any positive shortfall so that
// sub-dollar gaps do not produce fractional billing requests.
var MinimumDeposit = decimal.NewFromInt(1)

// RequiredDeposit converts a positive shortfall into the deposit a caller
// must fund: rounded to cents, floored at MinimumDeposit.
func RequiredDeposit(shortfall decimal.Decimal) decimal.Decimal {
	deposit := shortfall.Round(2)
	if deposit.LessThan(MinimumDeposit) {
		return MinimumDeposit
	}
	return deposit
}

// OutstandingEligible reports whether a campaign in the given status reserves
// its unspent budget against available credit. Draft, expired and deleted
// campaigns hold no reservation even though their spend remains on the books.
func OutstandingEligible(status string) bool {
	switch status {
	case "active", "paused", "pending":
		return true
	default:
		return false
	}
}
