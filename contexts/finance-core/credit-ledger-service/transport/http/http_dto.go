package http

import "github.com/shopspring/decimal"

// Monetary values cross the wire as fixed two-decimal strings; internal
// aggregation keeps full precision.

type BalanceResponse struct {
	AccountID         string `json:"account_id"`
	Balance           string `json:"balance"`
	TotalSpend        string `json:"total_spend"`
	OutstandingBudget string `json:"outstanding_budget"`
}

type CreditCheckRequest struct {
	Account   string           `json:"account"`
	Campaign  string           `json:"campaign"`
	NewBudget *decimal.Decimal `json:"new_budget,omitempty"`
}

type CreditCheckResult struct {
	Admitted      bool   `json:"admitted"`
	Message       string `json:"message,omitempty"`
	DepositAmount string `json:"deposit_amount,omitempty"`
}

type RecordTransactionRequest struct {
	Account     string          `json:"account"`
	Amount      decimal.Decimal `json:"amount"`
	Sign        int             `json:"sign"`
	CampaignRef string          `json:"campaign_ref,omitempty"`
	OccurredAt  string          `json:"occurred_at,omitempty"`
}

type TransactionResponse struct {
	TxID        string `json:"tx_id"`
	Account     string `json:"account"`
	Amount      string `json:"amount"`
	Sign        int    `json:"sign"`
	CampaignRef string `json:"campaign_ref,omitempty"`
	OccurredAt  string `json:"occurred_at"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
