package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionSign int

const (
	SignCredit TransactionSign = 1
	SignDebit  TransactionSign = -1
)

// Transaction is a single append-only ledger row. Rows are never mutated or
// deleted once written.
type Transaction struct {
	TxID        string
	AccountID   string
	Amount      decimal.Decimal // always positive, at most 4 decimal places
	Sign        TransactionSign
	CampaignRef string // empty when the transaction is not tied to a campaign
	OccurredAt  time.Time
}

// Signed returns the amount with the sign applied (negative for debits).
func (t Transaction) Signed() decimal.Decimal {
	if t.Sign == SignDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

func IsSupportedSign(value TransactionSign) bool {
	return value == SignCredit || value == SignDebit
}

// ValidAmount requires a strictly positive value with ledger precision
// (four decimal places).
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Exponent() >= -4
}
