package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrCampaignNotFound        = errors.New("campaign not found")
	ErrRequestNotFound         = errors.New("change request not found")
	ErrProposalLockHeld        = errors.New("campaign already has an outstanding change request")
	ErrRequestNotPending       = errors.New("change request is not pending")
	ErrRejectionReasonRequired = errors.New("rejection requires a reason")
	ErrInvalidPatch            = errors.New("invalid change request patch")
	ErrInvalidBudget           = errors.New("malformed budget")
	ErrUnknownCardRef          = errors.New("patch references a card the campaign does not have")
	ErrNotAuthorized           = errors.New("actor is not authorized for this transition")
	ErrInvalidCampaignInput    = errors.New("invalid campaign input")
	ErrStoreUnavailable        = errors.New("campaign store unavailable")
)

// InsufficientCreditError is an admission denial. It carries the minimum
// deposit that would let the proposal through.
type InsufficientCreditError struct {
	DepositAmount decimal.Decimal
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit: deposit of %s required", e.DepositAmount.StringFixed(2))
}
