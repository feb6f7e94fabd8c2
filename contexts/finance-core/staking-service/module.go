package stakingservice

import (
	"log/slog"

	httpadapter "delphi/contexts/finance-core/staking-service/adapters/http"
	"delphi/contexts/finance-core/staking-service/adapters/memory"
	"delphi/contexts/finance-core/staking-service/application/commands"
	"delphi/contexts/finance-core/staking-service/application/queries"
	"delphi/contexts/finance-core/staking-service/ports"
	"delphi/internal/shared/guard"
)

type Module struct {
	Handler httpadapter.Handler
	Staking commands.StakingUseCase
	Store   *memory.Store
	Bank    *memory.RewardBank
	Status  *memory.StatusFlag
	Policy  *memory.EmergencyFlag
}

type Dependencies struct {
	Pools         ports.PoolRepository
	Treasury      ports.TreasuryGateway
	Status        ports.SystemStatus
	Signers       ports.SignerDirectory
	Policy        ports.WithdrawalPolicy
	Outbox        ports.OutboxWriter
	Guard         *guard.Guard
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	CreatorCap    int
	MaxStakePerTx int64
	DailyStakeCap int64
	GlobalPoolCap int64
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	stakingUseCase := commands.StakingUseCase{
		Pools:         deps.Pools,
		Treasury:      deps.Treasury,
		Status:        deps.Status,
		Signers:       deps.Signers,
		Policy:        deps.Policy,
		Outbox:        deps.Outbox,
		Guard:         deps.Guard,
		Clock:         deps.Clock,
		IDGen:         deps.IDGen,
		CreatorCap:    deps.CreatorCap,
		MaxStakePerTx: deps.MaxStakePerTx,
		DailyStakeCap: deps.DailyStakeCap,
		GlobalPoolCap: deps.GlobalPoolCap,
		Logger:        deps.Logger,
	}
	queryUseCase := queries.StakingQueryUseCase{
		Pools: deps.Pools,
		Clock: deps.Clock,
	}
	return Module{
		Handler: httpadapter.Handler{
			Staking: stakingUseCase,
			Queries: queryUseCase,
			Logger:  deps.Logger,
		},
		Staking: stakingUseCase,
	}
}

// NewInMemoryModule wires the service against in-memory adapters: a reward
// bank standing in for the treasury, a static signer set, and the supplied
// clock (nil for system time).
func NewInMemoryModule(signers []string, clock ports.Clock, logger *slog.Logger) Module {
	store := memory.NewStore()
	bank := memory.NewRewardBank()
	status := &memory.StatusFlag{}
	policy := &memory.EmergencyFlag{}
	if clock == nil {
		clock = memory.SystemClock{}
	}
	module := NewModule(Dependencies{
		Pools:    store,
		Treasury: bank,
		Status:   status,
		Signers:  memory.NewSignerSet(signers...),
		Policy:   policy,
		Outbox:   store,
		Guard:    guard.New(),
		Clock:    clock,
		IDGen:    memory.UUIDGenerator{},
		Logger:   logger,
	})
	module.Store = store
	module.Bank = bank
	module.Status = status
	module.Policy = policy
	return module
}
