package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	changerequestservice "meridian/contexts/campaign-operations/change-request-service"
	workflowhttpadapter "meridian/contexts/campaign-operations/change-request-service/adapters/http"
	workflowerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	workflowhttp "meridian/contexts/campaign-operations/change-request-service/transport/http"
	creditledgerservice "meridian/contexts/finance-core/credit-ledger-service"
	ledgererrors "meridian/contexts/finance-core/credit-ledger-service/domain/errors"
	ledgerhttp "meridian/contexts/finance-core/credit-ledger-service/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "meridian/internal/platform/httpserver/docs"
)

type Server struct {
	mux      *http.ServeMux
	logger   *slog.Logger
	addr     string
	workflow changerequestservice.Module
	ledger   creditledgerservice.Module
}

func New(
	workflow changerequestservice.Module,
	ledger creditledgerservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:      http.NewServeMux(),
		logger:   logger,
		addr:     addr,
		workflow: workflow,
		ledger:   ledger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	s.mux.HandleFunc("POST /campaigns", s.handleCreateCampaign)
	s.mux.HandleFunc("GET /campaigns/{campaign_id}", s.handleGetCampaign)
	s.mux.HandleFunc("POST /campaigns/{campaign_id}/changes", s.handleSubmitChange)
	s.mux.HandleFunc("GET /campaigns/{campaign_id}/changes", s.handleListChanges)
	s.mux.HandleFunc("GET /campaigns/{campaign_id}/changes/{request_id}", s.handleGetChange)
	s.mux.HandleFunc("PUT /campaigns/{campaign_id}/changes/{request_id}", s.handleDecideChange)

	s.mux.HandleFunc("GET /accounting/balance", s.handleBalance)
	s.mux.HandleFunc("POST /accounting/credit-check", s.handleCreditCheck)
	s.mux.HandleFunc("POST /accounting/transactions", s.handleRecordTransaction)
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r)
	if !ok {
		return
	}
	var req workflowhttp.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeWorkflowError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.workflow.Handler.CreateCampaignHandler(r.Context(), actor, req)
	if err != nil {
		writeWorkflowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r)
	if !ok {
		return
	}
	resp, err := s.workflow.Handler.GetCampaignHandler(r.Context(), actor, r.PathValue("campaign_id"))
	if err != nil {
		writeWorkflowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitChange(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r)
	if !ok {
		return
	}
	var req workflowhttp.SubmitChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeWorkflowError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.workflow.Handler.SubmitChangeHandler(r.Context(), actor, r.PathValue("campaign_id"), req)
	if err != nil {
		writeWorkflowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListChanges(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r)
	if !ok {
		return
	}
	resp, err := s.workflow.Handler.ListChangesHandler(
		r.Context(),
		actor,
		r.PathValue("campaign_id"),
		r.URL.Query().Get("status"),
	)
	if err != nil {
		writeWorkflowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetChange(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r)
	if !ok {
		return
	}
	resp, err := s.workflow.Handler.GetChangeHandler(
		r.Context(),
		actor,
		r.PathValue("campaign_id"),
		r.PathValue("request_id"),
	)
	if err != nil {
		writeWorkflowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDecideChange(w http.ResponseWriter, r *http.Request) {
	actor, ok := resolveActor(w, r)
	if !ok {
		return
	}
	var req workflowhttp.DecideChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeWorkflowError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.workflow.Handler.DecideChangeHandler(
		r.Context(),
		actor,
		r.PathValue("campaign_id"),
		r.PathValue("request_id"),
		req,
	)
	if err != nil {
		writeWorkflowDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account := strings.TrimSpace(r.URL.Query().Get("account"))
	if account == "" {
		account = strings.TrimSpace(r.Header.Get("X-Account-Id"))
	}
	resp, err := s.ledger.Handler.BalanceHandler(r.Context(), account)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreditCheck(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.CreditCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Account) == "" {
		req.Account = strings.TrimSpace(r.Header.Get("X-Account-Id"))
	}
	resp, err := s.ledger.Handler.CreditCheckHandler(r.Context(), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	if resp.Admitted {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusPaymentRequired, resp)
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req ledgerhttp.RecordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeLedgerError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	resp, err := s.ledger.Handler.RecordTransactionHandler(r.Context(), req)
	if err != nil {
		writeLedgerDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func resolveActor(w http.ResponseWriter, r *http.Request) (workflowhttpadapter.Actor, bool) {
	accountID := strings.TrimSpace(r.Header.Get("X-Account-Id"))
	actorID := strings.TrimSpace(r.Header.Get("X-User-Id"))
	if accountID == "" || actorID == "" {
		writeWorkflowError(w, http.StatusUnauthorized, "missing_identity", "X-Account-Id and X-User-Id headers are required")
		return workflowhttpadapter.Actor{}, false
	}
	return workflowhttpadapter.Actor{
		AccountID: accountID,
		ActorID:   actorID,
		Label:     strings.TrimSpace(r.Header.Get("X-User-Label")),
	}, true
}

func writeWorkflowDomainError(w http.ResponseWriter, err error) {
	var insufficient *workflowerrors.InsufficientCreditError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusPaymentRequired, workflowhttp.InsufficientCreditResponse{
			Code:          "insufficient_credit",
			Message:       insufficient.Error(),
			DepositAmount: insufficient.DepositAmount.StringFixed(2),
		})
		return
	}
	switch {
	case errors.Is(err, workflowerrors.ErrCampaignNotFound),
		errors.Is(err, workflowerrors.ErrRequestNotFound):
		writeWorkflowError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, workflowerrors.ErrProposalLockHeld):
		writeWorkflowError(w, http.StatusConflict, "proposal_lock_held", err.Error())
	case errors.Is(err, workflowerrors.ErrRequestNotPending):
		writeWorkflowError(w, http.StatusConflict, "request_not_pending", err.Error())
	case errors.Is(err, workflowerrors.ErrRejectionReasonRequired):
		writeWorkflowError(w, http.StatusUnprocessableEntity, "rejection_reason_required", err.Error())
	case errors.Is(err, workflowerrors.ErrInvalidBudget):
		writeWorkflowError(w, http.StatusUnprocessableEntity, "invalid_budget", err.Error())
	case errors.Is(err, workflowerrors.ErrUnknownCardRef):
		writeWorkflowError(w, http.StatusUnprocessableEntity, "unknown_card_ref", err.Error())
	case errors.Is(err, workflowerrors.ErrInvalidPatch),
		errors.Is(err, workflowerrors.ErrInvalidCampaignInput):
		writeWorkflowError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, workflowerrors.ErrNotAuthorized):
		writeWorkflowError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, workflowerrors.ErrStoreUnavailable):
		writeWorkflowError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	default:
		writeWorkflowError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeLedgerDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledgererrors.ErrInvalidAccountID),
		errors.Is(err, ledgererrors.ErrInvalidTransactionInput):
		writeLedgerError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ledgererrors.ErrCampaignNotFound):
		writeLedgerError(w, http.StatusNotFound, "campaign_not_found", err.Error())
	case errors.Is(err, ledgererrors.ErrTransactionExists):
		writeLedgerError(w, http.StatusConflict, "transaction_exists", err.Error())
	case errors.Is(err, ledgererrors.ErrStoreUnavailable):
		writeLedgerError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
	default:
		writeLedgerError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeWorkflowError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, workflowhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeLedgerError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledgerhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
