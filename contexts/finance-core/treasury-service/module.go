package treasuryservice

import (
	"log/slog"

	httpadapter "delphi/contexts/finance-core/treasury-service/adapters/http"
	"delphi/contexts/finance-core/treasury-service/adapters/memory"
	"delphi/contexts/finance-core/treasury-service/application"
	"delphi/contexts/finance-core/treasury-service/ports"
	"delphi/internal/shared/guard"
)

type Module struct {
	Handler  httpadapter.Handler
	Treasury application.Service
	Store    *memory.Store
}

type Dependencies struct {
	Ledger ports.LedgerRepository
	Outbox ports.OutboxWriter
	Guard  *guard.Guard
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	service := application.Service{
		Ledger: deps.Ledger,
		Outbox: deps.Outbox,
		Guard:  deps.Guard,
		Clock:  deps.Clock,
		IDGen:  deps.IDGen,
		Logger: deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Treasury: service,
			Logger:   deps.Logger,
		},
		Treasury: service,
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Ledger: store,
		Outbox: store,
		Guard:  guard.New(),
		Clock:  memory.SystemClock{},
		IDGen:  memory.UUIDGenerator{},
		Logger: logger,
	})
	module.Store = store
	return module
}
