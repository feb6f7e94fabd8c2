package votingengine

import (
	"log/slog"

	httpadapter "delphi/contexts/market-core/voting-engine/adapters/http"
	"delphi/contexts/market-core/voting-engine/adapters/memory"
	"delphi/contexts/market-core/voting-engine/application/commands"
	"delphi/contexts/market-core/voting-engine/application/queries"
	"delphi/contexts/market-core/voting-engine/ports"
	"delphi/internal/shared/guard"
	"delphi/internal/shared/rewardsplit"
)

type Module struct {
	Handler httpadapter.Handler
	Markets commands.MarketUseCase
	Store   *memory.Store
	Bank    *memory.EscrowBank
	Status  *memory.StatusFlag
}

type Dependencies struct {
	Events     ports.EventRepository
	Treasury   ports.TreasuryGateway
	Status     ports.SystemStatus
	Signers    ports.SignerDirectory
	Outbox     ports.OutboxWriter
	Guard      *guard.Guard
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	CreatorCap int
	MaxStake   int64
	Payout     rewardsplit.Split
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	marketUseCase := commands.MarketUseCase{
		Events:     deps.Events,
		Treasury:   deps.Treasury,
		Status:     deps.Status,
		Signers:    deps.Signers,
		Outbox:     deps.Outbox,
		Guard:      deps.Guard,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		CreatorCap: deps.CreatorCap,
		MaxStake:   deps.MaxStake,
		Payout:     deps.Payout,
		Logger:     deps.Logger,
	}
	queryUseCase := queries.MarketQueryUseCase{
		Events: deps.Events,
		Clock:  deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Markets: marketUseCase,
			Queries: queryUseCase,
			Logger:  deps.Logger,
		},
		Markets: marketUseCase,
	}
}

// NewInMemoryModule wires the engine against in-memory adapters: an escrow
// bank standing in for the treasury, a static signer set, and the supplied
// clock (nil for system time).
func NewInMemoryModule(signers []string, clock ports.Clock, logger *slog.Logger) Module {
	store := memory.NewStore()
	bank := memory.NewEscrowBank()
	status := &memory.StatusFlag{}
	if clock == nil {
		clock = memory.SystemClock{}
	}
	module := NewModule(Dependencies{
		Events:   store,
		Treasury: bank,
		Status:   status,
		Signers:  memory.NewSignerSet(signers...),
		Outbox:   store,
		Guard:    guard.New(),
		Clock:    clock,
		IDGen:    memory.UUIDGenerator{},
		Logger:   logger,
	})
	module.Store = store
	module.Bank = bank
	module.Status = status
	return module
}
