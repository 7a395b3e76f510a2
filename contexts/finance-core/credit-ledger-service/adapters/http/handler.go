package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"meridian/contexts/finance-core/credit-ledger-service/application/commands"
	"meridian/contexts/finance-core/credit-ledger-service/application/queries"
	"meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	domainerrors "meridian/contexts/finance-core/credit-ledger-service/domain/errors"
	httptransport "meridian/contexts/finance-core/credit-ledger-service/transport/http"
)

type Handler struct {
	AccountSnapshot   queries.AccountSnapshotUseCase
	CreditCheck       queries.CreditCheckUseCase
	RecordTransaction commands.RecordTransactionUseCase
	Logger            *slog.Logger
}

func (h Handler) BalanceHandler(ctx context.Context, account string) (httptransport.BalanceResponse, error) {
	snapshot, err := h.AccountSnapshot.Execute(ctx, account)
	if err != nil {
		return httptransport.BalanceResponse{}, err
	}
	return httptransport.BalanceResponse{
		AccountID:         snapshot.AccountID,
		Balance:           snapshot.Balance.Round(2).StringFixed(2),
		TotalSpend:        snapshot.TotalSpend.Round(2).StringFixed(2),
		OutstandingBudget: snapshot.OutstandingBudget.Round(2).StringFixed(2),
	}, nil
}

func (h Handler) CreditCheckHandler(ctx context.Context, req httptransport.CreditCheckRequest) (httptransport.CreditCheckResult, error) {
	query := queries.CreditCheckQuery{
		AccountID:  req.Account,
		CampaignID: req.Campaign,
	}
	if req.NewBudget != nil {
		query.ProposedBudget = *req.NewBudget
	} else {
		// No override: evaluate the campaign's current budget.
		view, err := h.CreditCheck.Campaigns.GetCampaignView(ctx, strings.TrimSpace(req.Campaign))
		if err != nil {
			return httptransport.CreditCheckResult{}, err
		}
		query.ProposedBudget = view.Budget
	}

	decision, err := h.CreditCheck.Execute(ctx, query)
	if err != nil {
		return httptransport.CreditCheckResult{}, err
	}
	if decision.Admitted {
		return httptransport.CreditCheckResult{Admitted: true}, nil
	}
	return httptransport.CreditCheckResult{
		Admitted:      false,
		Message:       fmt.Sprintf("insufficient credit: a deposit of %s is required", decision.DepositAmount.StringFixed(2)),
		DepositAmount: decision.DepositAmount.StringFixed(2),
	}, nil
}

func (h Handler) RecordTransactionHandler(ctx context.Context, req httptransport.RecordTransactionRequest) (httptransport.TransactionResponse, error) {
	occurredAt, err := parseOccurredAt(req.OccurredAt)
	if err != nil {
		return httptransport.TransactionResponse{}, domainerrors.ErrInvalidTransactionInput
	}
	tx, err := h.RecordTransaction.Execute(ctx, commands.RecordTransactionCommand{
		AccountID:   req.Account,
		Amount:      req.Amount,
		Sign:        entities.TransactionSign(req.Sign),
		CampaignRef: req.CampaignRef,
		OccurredAt:  occurredAt,
	})
	if err != nil {
		return httptransport.TransactionResponse{}, err
	}
	return httptransport.TransactionResponse{
		TxID:        tx.TxID,
		Account:     tx.AccountID,
		Amount:      tx.Amount.StringFixed(4),
		Sign:        int(tx.Sign),
		CampaignRef: tx.CampaignRef,
		OccurredAt:  tx.OccurredAt.Format(time.RFC3339),
	}, nil
}

func parseOccurredAt(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse occurred_at: %w", err)
	}
	return parsed.UTC(), nil
}
