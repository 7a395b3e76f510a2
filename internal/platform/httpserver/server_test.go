package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	changerequestservice "meridian/contexts/campaign-operations/change-request-service"
	workflowmemory "meridian/contexts/campaign-operations/change-request-service/adapters/memory"
	workflowentities "meridian/contexts/campaign-operations/change-request-service/domain/entities"
	workflowerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	workflowports "meridian/contexts/campaign-operations/change-request-service/ports"
	creditledgerservice "meridian/contexts/finance-core/credit-ledger-service"
	ledgerqueries "meridian/contexts/finance-core/credit-ledger-service/application/queries"
	ledgerentities "meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	ledgererrors "meridian/contexts/finance-core/credit-ledger-service/domain/errors"
	ledgerports "meridian/contexts/finance-core/credit-ledger-service/ports"

	"github.com/shopspring/decimal"
)

// testDirectory and testGate re-create the composition root's cross-context
// glue locally; bootstrap cannot be imported from here.
type testDirectory struct {
	campaigns workflowports.CampaignRepository
}

func (d testDirectory) ListAccountCampaigns(ctx context.Context, accountID string) ([]ledgerports.CampaignView, error) {
	items, err := d.campaigns.ListCampaigns(ctx, workflowports.CampaignFilter{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	views := make([]ledgerports.CampaignView, 0, len(items))
	for _, item := range items {
		views = append(views, ledgerports.CampaignView{
			CampaignID: item.CampaignID,
			AccountID:  item.AccountID,
			Status:     string(item.Status),
			Budget:     item.Budget,
		})
	}
	return views, nil
}

func (d testDirectory) GetCampaignView(ctx context.Context, campaignID string) (ledgerports.CampaignView, error) {
	campaign, err := d.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, workflowerrors.ErrCampaignNotFound) {
			return ledgerports.CampaignView{}, ledgererrors.ErrCampaignNotFound
		}
		return ledgerports.CampaignView{}, err
	}
	return ledgerports.CampaignView{
		CampaignID: campaign.CampaignID,
		AccountID:  campaign.AccountID,
		Status:     string(campaign.Status),
		Budget:     campaign.Budget,
	}, nil
}

type testGate struct {
	check ledgerqueries.CreditCheckUseCase
}

func (g testGate) Check(ctx context.Context, accountID string, campaignID string, proposedBudget decimal.Decimal) (workflowports.CreditDecision, error) {
	decision, err := g.check.Execute(ctx, ledgerqueries.CreditCheckQuery{
		AccountID:      accountID,
		CampaignID:     campaignID,
		ProposedBudget: proposedBudget,
	})
	if err != nil {
		if errors.Is(err, ledgererrors.ErrCampaignNotFound) {
			return workflowports.CreditDecision{}, workflowerrors.ErrCampaignNotFound
		}
		if errors.Is(err, ledgererrors.ErrStoreUnavailable) {
			return workflowports.CreditDecision{}, workflowerrors.ErrStoreUnavailable
		}
		return workflowports.CreditDecision{}, err
	}
	return workflowports.CreditDecision{Admitted: decision.Admitted, DepositAmount: decision.DepositAmount}, nil
}

func activeCampaign(id string, account string, budget string) workflowentities.Campaign {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return workflowentities.Campaign{
		CampaignID: id,
		AccountID:  account,
		Name:       "campaign " + id,
		Status:     workflowentities.CampaignStatusActive,
		Budget:     decimal.RequireFromString(budget),
		StatusHistory: []workflowentities.StatusHistoryEntry{
			{OccurredAt: now, ActorID: "seed", Status: workflowentities.CampaignStatusActive},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func creditOf(account string, amount string) ledgerentities.Transaction {
	return ledgerentities.Transaction{
		TxID:       "tx-seed-" + account,
		AccountID:  account,
		Amount:     decimal.RequireFromString(amount),
		Sign:       ledgerentities.SignCredit,
		OccurredAt: time.Date(2026, 1, 9, 9, 0, 0, 0, time.UTC),
	}
}

func newTestServer(campaigns []workflowentities.Campaign, transactions []ledgerentities.Transaction) (*Server, *workflowmemory.Entitlements) {
	store := workflowmemory.NewStore(campaigns)
	entitlements := workflowmemory.NewEntitlements()

	ledgerModule := creditledgerservice.NewInMemoryModule(transactions, testDirectory{campaigns: store}, nil)
	workflowModule := changerequestservice.NewModule(changerequestservice.Dependencies{
		Campaigns:    store,
		Requests:     store,
		Credit:       testGate{check: ledgerModule.CreditCheck},
		Entitlements: entitlements,
		Outbox:       store,
		OutboxSource: store,
		Clock:        store,
		IDGen:        store,
	})
	workflowModule.Store = store
	workflowModule.Entitlements = entitlements

	return New(workflowModule, ledgerModule, nil, ":0"), entitlements
}

func doJSON(server *Server, method string, path string, account string, user string, payload any) *httptest.ResponseRecorder {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if account != "" {
		req.Header.Set("X-Account-Id", account)
	}
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestCampaignEndpointsRequireIdentity(t *testing.T) {
	server, _ := newTestServer(nil, nil)

	rr := doJSON(server, http.MethodPost, "/campaigns", "", "", map[string]any{"name": "x", "budget": "10"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(server, http.MethodGet, "/campaigns/camp-1", "acct-1", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user header, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateAndFetchCampaign(t *testing.T) {
	server, _ := newTestServer(nil, nil)

	rr := doJSON(server, http.MethodPost, "/campaigns", "acct-1", "user-1", map[string]any{
		"name":   "spring launch",
		"budget": "500",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created struct {
		Campaign struct {
			CampaignID string `json:"campaign_id"`
			Status     string `json:"status"`
		} `json:"campaign"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if created.Campaign.Status != "draft" {
		t.Fatalf("expected draft, got %s", created.Campaign.Status)
	}

	rr = doJSON(server, http.MethodGet, "/campaigns/"+created.Campaign.CampaignID, "acct-1", "user-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	// Another account cannot see it.
	rr = doJSON(server, http.MethodGet, "/campaigns/"+created.Campaign.CampaignID, "acct-2", "user-9", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 across accounts, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreateCampaignBadBudget(t *testing.T) {
	server, _ := newTestServer(nil, nil)
	rr := doJSON(server, http.MethodPost, "/campaigns", "acct-1", "user-1", map[string]any{
		"name":   "bad",
		"budget": "lots",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSubmitChangeConflictOnSecondProposal(t *testing.T) {
	server, _ := newTestServer([]workflowentities.Campaign{activeCampaign("camp-1", "acct-1", "100")}, nil)

	body := map[string]any{"data": map[string]any{"name": "renamed"}}
	rr := doJSON(server, http.MethodPost, "/campaigns/camp-1/changes", "acct-1", "user-1", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = doJSON(server, http.MethodPost, "/campaigns/camp-1/changes", "acct-1", "user-1", body)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestSubmitChangeInsufficientCredit(t *testing.T) {
	server, _ := newTestServer(
		[]workflowentities.Campaign{activeCampaign("camp-1", "acct-1", "100")},
		[]ledgerentities.Transaction{creditOf("acct-1", "150")},
	)

	rr := doJSON(server, http.MethodPost, "/campaigns/camp-1/changes", "acct-1", "user-1", map[string]any{
		"data": map[string]any{"budget": "400.25"},
	})
	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d body=%s", rr.Code, rr.Body.String())
	}
	var denial struct {
		Code          string `json:"code"`
		DepositAmount string `json:"deposit_amount"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &denial); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if denial.Code != "insufficient_credit" || denial.DepositAmount != "250.25" {
		t.Fatalf("unexpected denial body: %+v", denial)
	}
}

func TestDecideChangeStatusCodes(t *testing.T) {
	server, entitlements := newTestServer([]workflowentities.Campaign{activeCampaign("camp-1", "acct-1", "100")}, nil)
	entitlements.GrantApprovalAuthority("reviewer-1")

	rr := doJSON(server, http.MethodPost, "/campaigns/camp-1/changes", "acct-1", "user-1", map[string]any{
		"data": map[string]any{"name": "renamed"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("submit failed: %d body=%s", rr.Code, rr.Body.String())
	}
	var submitted struct {
		Request struct {
			RequestID string `json:"request_id"`
		} `json:"change_request"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	path := "/campaigns/camp-1/changes/" + submitted.Request.RequestID

	// Plain users cannot decide.
	rr = doJSON(server, http.MethodPut, path, "acct-1", "user-1", map[string]any{"status": "approved"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d body=%s", rr.Code, rr.Body.String())
	}

	// Rejection without a reason is unprocessable.
	rr = doJSON(server, http.MethodPut, path, "acct-1", "reviewer-1", map[string]any{"status": "rejected"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(server, http.MethodPut, path, "acct-1", "reviewer-1", map[string]any{"status": "approved"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}

	// Terminal requests cannot be decided again.
	rr = doJSON(server, http.MethodPut, path, "acct-1", "reviewer-1", map[string]any{"status": "approved"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 on replay, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(server, http.MethodPut, "/campaigns/camp-1/changes/req-missing", "acct-1", "reviewer-1", map[string]any{"status": "approved"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown request, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestCreditCheckEndpoint(t *testing.T) {
	server, _ := newTestServer(
		[]workflowentities.Campaign{activeCampaign("camp-1", "acct-1", "100")},
		[]ledgerentities.Transaction{creditOf("acct-1", "500")},
	)

	rr := doJSON(server, http.MethodPost, "/accounting/credit-check", "", "", map[string]any{
		"account":    "acct-1",
		"campaign":   "camp-1",
		"new_budget": "450",
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(server, http.MethodPost, "/accounting/credit-check", "", "", map[string]any{
		"account":    "acct-1",
		"campaign":   "camp-1",
		"new_budget": "900",
	})
	if rr.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d body=%s", rr.Code, rr.Body.String())
	}
	var denial struct {
		DepositAmount string `json:"deposit_amount"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &denial); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if denial.DepositAmount != "400.00" {
		t.Fatalf("expected deposit 400.00, got %s", denial.DepositAmount)
	}

	rr = doJSON(server, http.MethodPost, "/accounting/credit-check", "", "", map[string]any{
		"account":    "acct-1",
		"campaign":   "camp-missing",
		"new_budget": "10",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestBalanceAndTransactionEndpoints(t *testing.T) {
	server, _ := newTestServer(nil, nil)

	rr := doJSON(server, http.MethodPost, "/accounting/transactions", "", "", map[string]any{
		"account": "acct-1",
		"amount":  "320.40",
		"sign":    1,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/accounting/balance?account=acct-1", nil)
	recorder := httptest.NewRecorder()
	server.mux.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", recorder.Code, recorder.Body.String())
	}
	var balance struct {
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &balance); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if balance.Balance != "320.40" {
		t.Fatalf("expected balance 320.40, got %s", balance.Balance)
	}

	rr = doJSON(server, http.MethodPost, "/accounting/transactions", "", "", map[string]any{
		"account": "acct-1",
		"amount":  "10",
		"sign":    7,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad sign, got %d body=%s", rr.Code, rr.Body.String())
	}
}
