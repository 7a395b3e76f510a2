package changerequestservice

import (
	"log/slog"

	httpadapter "meridian/contexts/campaign-operations/change-request-service/adapters/http"
	"meridian/contexts/campaign-operations/change-request-service/adapters/memory"
	"meridian/contexts/campaign-operations/change-request-service/application/commands"
	"meridian/contexts/campaign-operations/change-request-service/application/queries"
	"meridian/contexts/campaign-operations/change-request-service/application/workers"
	"meridian/contexts/campaign-operations/change-request-service/domain/entities"
	"meridian/contexts/campaign-operations/change-request-service/ports"
)

type Module struct {
	Handler      httpadapter.Handler
	Submit       commands.SubmitChangeRequestUseCase
	Approve      commands.ApproveChangeRequestUseCase
	Reject       commands.RejectChangeRequestUseCase
	Cancel       commands.CancelChangeRequestUseCase
	Edit         commands.EditChangeRequestUseCase
	Relay        workers.OutboxRelay
	Store        *memory.Store
	Entitlements *memory.Entitlements
}

type Dependencies struct {
	Campaigns          ports.CampaignRepository
	Requests           ports.ChangeRequestRepository
	Credit             ports.CreditGate
	Entitlements       ports.Entitlements
	Outbox             ports.OutboxWriter
	OutboxSource       ports.OutboxRepository
	Publisher          ports.EventPublisher
	Clock              ports.Clock
	IDGen              ports.IDGenerator
	AutoApproveEnabled bool
	Logger             *slog.Logger
}

func NewModule(deps Dependencies) Module {
	submit := commands.SubmitChangeRequestUseCase{
		Campaigns:          deps.Campaigns,
		Requests:           deps.Requests,
		Credit:             deps.Credit,
		Entitlements:       deps.Entitlements,
		Outbox:             deps.Outbox,
		Clock:              deps.Clock,
		IDGen:              deps.IDGen,
		AutoApproveEnabled: deps.AutoApproveEnabled,
		Logger:             deps.Logger,
	}
	approve := commands.ApproveChangeRequestUseCase{
		Campaigns:    deps.Campaigns,
		Requests:     deps.Requests,
		Entitlements: deps.Entitlements,
		Outbox:       deps.Outbox,
		Clock:        deps.Clock,
		IDGen:        deps.IDGen,
		Logger:       deps.Logger,
	}
	reject := commands.RejectChangeRequestUseCase{
		Campaigns:    deps.Campaigns,
		Requests:     deps.Requests,
		Entitlements: deps.Entitlements,
		Outbox:       deps.Outbox,
		Clock:        deps.Clock,
		IDGen:        deps.IDGen,
		Logger:       deps.Logger,
	}
	cancel := commands.CancelChangeRequestUseCase{
		Campaigns:    deps.Campaigns,
		Requests:     deps.Requests,
		Entitlements: deps.Entitlements,
		Clock:        deps.Clock,
		Logger:       deps.Logger,
	}
	edit := commands.EditChangeRequestUseCase{
		Campaigns:    deps.Campaigns,
		Requests:     deps.Requests,
		Credit:       deps.Credit,
		Entitlements: deps.Entitlements,
		Clock:        deps.Clock,
		Logger:       deps.Logger,
	}
	createCampaign := commands.CreateCampaignUseCase{
		Campaigns: deps.Campaigns,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}

	module := Module{
		Handler: httpadapter.Handler{
			CreateCampaign: createCampaign,
			SubmitChange:   submit,
			EditChange:     edit,
			ApproveChange:  approve,
			RejectChange:   reject,
			CancelChange:   cancel,
			GetCampaign:    queries.GetCampaignUseCase{Campaigns: deps.Campaigns, Logger: deps.Logger},
			GetChange:      queries.GetChangeRequestUseCase{Requests: deps.Requests, Logger: deps.Logger},
			ListChanges:    queries.ListChangeRequestsUseCase{Requests: deps.Requests, Logger: deps.Logger},
			Logger:         deps.Logger,
		},
		Submit:  submit,
		Approve: approve,
		Reject:  reject,
		Cancel:  cancel,
		Edit:    edit,
	}
	if deps.OutboxSource != nil && deps.Publisher != nil {
		module.Relay = workers.OutboxRelay{
			Outbox:    deps.OutboxSource,
			Publisher: deps.Publisher,
			Clock:     deps.Clock,
			Logger:    deps.Logger,
		}
	}
	return module
}

// NewInMemoryModule wires the module against the seedable memory store with
// a static entitlements table. The credit gate comes from outside the
// context; tests typically wire it to the credit-ledger module.
func NewInMemoryModule(seed []entities.Campaign, credit ports.CreditGate, autoApprove bool, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	entitlements := memory.NewEntitlements()
	module := NewModule(Dependencies{
		Campaigns:          store,
		Requests:           store,
		Credit:             credit,
		Entitlements:       entitlements,
		Outbox:             store,
		OutboxSource:       store,
		Clock:              store,
		IDGen:              store,
		AutoApproveEnabled: autoApprove,
		Logger:             logger,
	})
	module.Store = store
	module.Entitlements = entitlements
	return module
}
