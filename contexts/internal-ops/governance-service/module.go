package governanceservice

import (
	"log/slog"
	"time"

	httpadapter "delphi/contexts/internal-ops/governance-service/adapters/http"
	"delphi/contexts/internal-ops/governance-service/adapters/memory"
	"delphi/contexts/internal-ops/governance-service/application/commands"
	"delphi/contexts/internal-ops/governance-service/application/queries"
	"delphi/contexts/internal-ops/governance-service/ports"
	"delphi/internal/shared/guard"
)

type Module struct {
	Handler    httpadapter.Handler
	Governance commands.GovernanceUseCase
	Store      *memory.Store
	Pause      *memory.PauseFlag
	Executors  *memory.ExecutorRecorder
}

type Dependencies struct {
	Council    ports.CouncilRepository
	Operations ports.OperationRepository
	Resolver   ports.MarketResolver
	Treasury   ports.TreasuryAdmin
	Staking    ports.StakingAdmin
	Pause      ports.PauseController
	Outbox     ports.OutboxWriter
	Guard      *guard.Guard
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	MaxPending int
	Expiry     time.Duration
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	governanceUseCase := commands.GovernanceUseCase{
		Council:    deps.Council,
		Operations: deps.Operations,
		Resolver:   deps.Resolver,
		Treasury:   deps.Treasury,
		Staking:    deps.Staking,
		Pause:      deps.Pause,
		Outbox:     deps.Outbox,
		Guard:      deps.Guard,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		MaxPending: deps.MaxPending,
		Expiry:     deps.Expiry,
		Logger:     deps.Logger,
	}
	queryUseCase := queries.GovernanceQueryUseCase{
		Council:    deps.Council,
		Operations: deps.Operations,
		Pause:      deps.Pause,
		Clock:      deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Governance: governanceUseCase,
			Queries:    queryUseCase,
			Logger:     deps.Logger,
		},
		Governance: governanceUseCase,
	}
}

// NewInMemoryModule wires the service against in-memory adapters with
// recording executors standing in for the other contexts.
func NewInMemoryModule(clock ports.Clock, logger *slog.Logger) Module {
	store := memory.NewStore()
	pause := &memory.PauseFlag{}
	executors := &memory.ExecutorRecorder{}
	if clock == nil {
		clock = memory.SystemClock{}
	}
	module := NewModule(Dependencies{
		Council:    store,
		Operations: store,
		Resolver:   executors,
		Treasury:   executors,
		Staking:    executors,
		Pause:      pause,
		Outbox:     store,
		Guard:      guard.New(),
		Clock:      clock,
		IDGen:      memory.UUIDGenerator{},
		Logger:     logger,
	})
	module.Store = store
	module.Pause = pause
	module.Executors = executors
	return module
}
