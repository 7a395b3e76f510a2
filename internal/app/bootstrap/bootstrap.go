package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	changerequestservice "meridian/contexts/campaign-operations/change-request-service"
	workflowmemory "meridian/contexts/campaign-operations/change-request-service/adapters/memory"
	workflowpostgres "meridian/contexts/campaign-operations/change-request-service/adapters/postgres"
	workflowworkers "meridian/contexts/campaign-operations/change-request-service/application/workers"
	workflowentities "meridian/contexts/campaign-operations/change-request-service/domain/entities"
	workflowerrors "meridian/contexts/campaign-operations/change-request-service/domain/errors"
	workflowports "meridian/contexts/campaign-operations/change-request-service/ports"
	creditledgerservice "meridian/contexts/finance-core/credit-ledger-service"
	ledgerpostgres "meridian/contexts/finance-core/credit-ledger-service/adapters/postgres"
	ledgerqueries "meridian/contexts/finance-core/credit-ledger-service/application/queries"
	ledgerworkers "meridian/contexts/finance-core/credit-ledger-service/application/workers"
	ledgerentities "meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	ledgererrors "meridian/contexts/finance-core/credit-ledger-service/domain/errors"
	ledgerports "meridian/contexts/finance-core/credit-ledger-service/ports"
	"meridian/internal/platform/config"
	"meridian/internal/platform/db"
	"meridian/internal/platform/httpserver"
	"meridian/internal/platform/messaging"

	"github.com/shopspring/decimal"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic;
// the cross-context adapters below are the only place the two bounded
// contexts meet.

// campaignDirectory projects the workflow context's campaign store into the
// read-only view the ledger aggregation needs.
type campaignDirectory struct {
	campaigns workflowports.CampaignRepository
}

func (d campaignDirectory) ListAccountCampaigns(ctx context.Context, accountID string) ([]ledgerports.CampaignView, error) {
	items, err := d.campaigns.ListCampaigns(ctx, workflowports.CampaignFilter{AccountID: accountID})
	if err != nil {
		return nil, err
	}
	views := make([]ledgerports.CampaignView, 0, len(items))
	for _, item := range items {
		views = append(views, campaignView(item))
	}
	return views, nil
}

func (d campaignDirectory) GetCampaignView(ctx context.Context, campaignID string) (ledgerports.CampaignView, error) {
	campaign, err := d.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		// Translate at the context boundary so the ledger only ever sees
		// its own sentinel.
		if errors.Is(err, workflowerrors.ErrCampaignNotFound) {
			return ledgerports.CampaignView{}, ledgererrors.ErrCampaignNotFound
		}
		return ledgerports.CampaignView{}, err
	}
	return campaignView(campaign), nil
}

func campaignView(campaign workflowentities.Campaign) ledgerports.CampaignView {
	return ledgerports.CampaignView{
		CampaignID: campaign.CampaignID,
		AccountID:  campaign.AccountID,
		Status:     string(campaign.Status),
		Budget:     campaign.Budget,
	}
}

// creditGate fronts the ledger's admission check for the workflow context.
type creditGate struct {
	check ledgerqueries.CreditCheckUseCase
}

func (g creditGate) Check(ctx context.Context, accountID string, campaignID string, proposedBudget decimal.Decimal) (workflowports.CreditDecision, error) {
	decision, err := g.check.Execute(ctx, ledgerqueries.CreditCheckQuery{
		AccountID:      accountID,
		CampaignID:     campaignID,
		ProposedBudget: proposedBudget,
	})
	if err != nil {
		// Translate at the context boundary so the workflow only ever sees
		// its own sentinels.
		if errors.Is(err, ledgererrors.ErrCampaignNotFound) {
			return workflowports.CreditDecision{}, workflowerrors.ErrCampaignNotFound
		}
		if errors.Is(err, ledgererrors.ErrStoreUnavailable) {
			return workflowports.CreditDecision{}, workflowerrors.ErrStoreUnavailable
		}
		return workflowports.CreditDecision{}, err
	}
	return workflowports.CreditDecision{
		Admitted:      decision.Admitted,
		DepositAmount: decision.DepositAmount,
	}, nil
}

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	workflowRelay workflowworkers.OutboxRelay
	ledgerRelay   ledgerworkers.OutboxRelay
	publisher     *messaging.KafkaPublisher
	relayEnabled  bool
	pollInterval  time.Duration
	logger        *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	workflowRepo := workflowpostgres.NewRepository(pg.DB, logger)
	ledgerRepo := ledgerpostgres.NewRepository(pg.DB, logger)
	directory := campaignDirectory{campaigns: workflowRepo}

	ledgerModule := creditledgerservice.NewModule(creditledgerservice.Dependencies{
		Ledger:    ledgerRepo,
		Campaigns: directory,
		Clock:     ledgerpostgres.SystemClock{},
		IDGen:     ledgerpostgres.UUIDGenerator{},
		Logger:    logger,
	})

	entitlements := memoryEntitlements(cfg)
	workflowModule := changerequestservice.NewModule(changerequestservice.Dependencies{
		Campaigns:          workflowRepo,
		Requests:           workflowRepo,
		Credit:             creditGate{check: ledgerModule.CreditCheck},
		Entitlements:       entitlements,
		Outbox:             workflowRepo,
		Clock:              workflowpostgres.SystemClock{},
		IDGen:              workflowpostgres.UUIDGenerator{},
		AutoApproveEnabled: cfg.EnableAutoApprove,
		Logger:             logger,
	})

	server := httpserver.New(workflowModule, ledgerModule, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	publisher, err := messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.EventsTopic, logger)
	if err != nil {
		return nil, err
	}

	workflowRepo := workflowpostgres.NewRepository(pg.DB, logger)
	ledgerRepo := ledgerpostgres.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		workflowRelay: workflowworkers.OutboxRelay{
			Outbox:    workflowRepo,
			Publisher: publisher,
			Clock:     workflowpostgres.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		ledgerRelay: ledgerworkers.OutboxRelay{
			Outbox:    ledgerRepo,
			Publisher: publisher,
			Clock:     ledgerpostgres.SystemClock{},
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		publisher:    publisher,
		relayEnabled: cfg.EnableOutboxRelay,
		pollInterval: cfg.OutboxRelayInterval,
		logger:       logger,
	}, nil
}

// InMemoryStack wires both modules against shared memory stores. Tests and
// broker-less deployments use it.
type InMemoryStack struct {
	Workflow changerequestservice.Module
	Ledger   creditledgerservice.Module
	Server   *httpserver.Server
	Bus      *messaging.Bus
}

func NewInMemoryStack(
	campaigns []workflowentities.Campaign,
	transactions []ledgerentities.Transaction,
	autoApprove bool,
	logger *slog.Logger,
) *InMemoryStack {
	if logger == nil {
		logger = slog.Default()
	}

	// The two stores reference each other through narrow adapters, so build
	// the workflow store first and close the loop via the ledger module.
	store := workflowmemory.NewStore(campaigns)
	entitlements := workflowmemory.NewEntitlements()
	directory := campaignDirectory{campaigns: store}
	ledgerModule := creditledgerservice.NewInMemoryModule(transactions, directory, logger)
	bus := messaging.NewBus(logger)

	workflowModule := changerequestservice.NewModule(changerequestservice.Dependencies{
		Campaigns:          store,
		Requests:           store,
		Credit:             creditGate{check: ledgerModule.CreditCheck},
		Entitlements:       entitlements,
		Outbox:             store,
		OutboxSource:       store,
		Publisher:          bus,
		Clock:              store,
		IDGen:              store,
		AutoApproveEnabled: autoApprove,
		Logger:             logger,
	})
	workflowModule.Store = store
	workflowModule.Entitlements = entitlements
	server := httpserver.New(workflowModule, ledgerModule, logger, ":8080")
	return &InMemoryStack{
		Workflow: workflowModule,
		Ledger:   ledgerModule,
		Server:   server,
		Bus:      bus,
	}
}

func memoryEntitlements(cfg config.Config) workflowports.Entitlements {
	table := workflowmemory.NewEntitlements()
	for _, actorID := range cfg.ApproverIDs {
		table.GrantApprovalAuthority(actorID)
	}
	for _, actorID := range cfg.AutoApproveIDs {
		table.GrantAutoApprove(actorID)
	}
	return table
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if !w.relayEnabled {
		w.logger.Info("outbox relay disabled, worker idle",
			"event", "bootstrap_worker_idle",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.workflowRelay.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.ledgerRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.publisher != nil {
		_ = w.publisher.Close()
	}
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
