package bootstrap

import (
	"context"
	"errors"
	"testing"

	workflowmemory "meridian/contexts/campaign-operations/change-request-service/adapters/memory"
	workflowentities "meridian/contexts/campaign-operations/change-request-service/domain/entities"
	workflowerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	creditledgerservice "meridian/contexts/finance-core/credit-ledger-service"
	ledgerqueries "meridian/contexts/finance-core/credit-ledger-service/application/queries"
	ledgerentities "meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	ledgererrors "meridian/contexts/finance-core/credit-ledger-service/domain/errors"
	ledgerports "meridian/contexts/finance-core/credit-ledger-service/ports"

	"github.com/shopspring/decimal"
)

// Each context only ever sees its own sentinels; the adapters here are the
// boundary where the other context's errors get translated.
func TestCreditGateTranslatesCampaignNotFound(t *testing.T) {
	store := workflowmemory.NewStore(nil)
	ledger := creditledgerservice.NewInMemoryModule(nil, campaignDirectory{campaigns: store}, nil)
	gate := creditGate{check: ledger.CreditCheck}

	_, err := gate.Check(context.Background(), "acct-1", "camp-missing", decimal.NewFromInt(10))
	if !errors.Is(err, workflowerrors.ErrCampaignNotFound) {
		t.Fatalf("expected workflow campaign-not-found sentinel, got %v", err)
	}
	if errors.Is(err, ledgererrors.ErrCampaignNotFound) {
		t.Fatalf("ledger sentinel leaked across the boundary: %v", err)
	}
}

func TestCreditGateTranslatesStoreUnavailable(t *testing.T) {
	store := workflowmemory.NewStore([]workflowentities.Campaign{{
		CampaignID: "camp-1",
		AccountID:  "acct-1",
		Name:       "campaign camp-1",
		Status:     workflowentities.CampaignStatusActive,
		Budget:     decimal.NewFromInt(100),
	}})
	gate := creditGate{check: ledgerqueries.CreditCheckUseCase{
		Ledger:    brokenLedger{},
		Campaigns: campaignDirectory{campaigns: store},
	}}

	_, err := gate.Check(context.Background(), "acct-1", "camp-1", decimal.NewFromInt(10))
	if !errors.Is(err, workflowerrors.ErrStoreUnavailable) {
		t.Fatalf("expected workflow store-unavailable sentinel, got %v", err)
	}
}

func TestCampaignDirectoryTranslatesNotFound(t *testing.T) {
	directory := campaignDirectory{campaigns: workflowmemory.NewStore(nil)}

	_, err := directory.GetCampaignView(context.Background(), "camp-missing")
	if !errors.Is(err, ledgererrors.ErrCampaignNotFound) {
		t.Fatalf("expected ledger campaign-not-found sentinel, got %v", err)
	}
}

type brokenLedger struct{}

func (brokenLedger) AppendTransaction(context.Context, ledgerentities.Transaction, *ledgerports.EventEnvelope) error {
	return ledgererrors.ErrStoreUnavailable
}

func (brokenLedger) ListByAccount(context.Context, string) ([]ledgerentities.Transaction, error) {
	return nil, ledgererrors.ErrStoreUnavailable
}

func (brokenLedger) ListByCampaign(context.Context, string) ([]ledgerentities.Transaction, error) {
	return nil, ledgererrors.ErrStoreUnavailable
}
