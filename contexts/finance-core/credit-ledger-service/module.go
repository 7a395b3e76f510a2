package creditledgerservice

import (
	"log/slog"

	httpadapter "meridian/contexts/finance-core/credit-ledger-service/adapters/http"
	"meridian/contexts/finance-core/credit-ledger-service/adapters/memory"
	"meridian/contexts/finance-core/credit-ledger-service/application/commands"
	"meridian/contexts/finance-core/credit-ledger-service/application/queries"
	"meridian/contexts/finance-core/credit-ledger-service/domain/entities"
	"meridian/contexts/finance-core/credit-ledger-service/ports"
)

type Module struct {
	Handler     httpadapter.Handler
	Snapshot    queries.AccountSnapshotUseCase
	CreditCheck queries.CreditCheckUseCase
	Store       *memory.Store
}

type Dependencies struct {
	Ledger    ports.LedgerRepository
	Campaigns ports.CampaignDirectory
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

func NewModule(deps Dependencies) Module {
	snapshot := queries.AccountSnapshotUseCase{
		Ledger:    deps.Ledger,
		Campaigns: deps.Campaigns,
		Logger:    deps.Logger,
	}
	creditCheck := queries.CreditCheckUseCase{
		Ledger:    deps.Ledger,
		Campaigns: deps.Campaigns,
		Logger:    deps.Logger,
	}
	recordTransaction := commands.RecordTransactionUseCase{
		Ledger: deps.Ledger,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}

	return Module{
		Handler: httpadapter.Handler{
			AccountSnapshot:   snapshot,
			CreditCheck:       creditCheck,
			RecordTransaction: recordTransaction,
			Logger:            deps.Logger,
		},
		Snapshot:    snapshot,
		CreditCheck: creditCheck,
	}
}

// NewInMemoryModule wires the module against the seedable memory ledger.
// The campaign directory comes from outside the context; tests wire it to
// the change-request service's store.
func NewInMemoryModule(seed []entities.Transaction, campaigns ports.CampaignDirectory, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Ledger:    store,
		Campaigns: campaigns,
		Clock:     store,
		IDGen:     store,
		Logger:    logger,
	})
	module.Store = store
	return module
}
