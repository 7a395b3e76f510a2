package errors

import "errors"

var (
	ErrInvalidAccountID        = errors.New("account id is required")
	ErrInvalidTransactionInput = errors.New("invalid transaction input")
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrTransactionExists       = errors.New("transaction already recorded")
	ErrStoreUnavailable        = errors.New("ledger store unavailable")
)
