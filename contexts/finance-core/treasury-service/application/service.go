package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"delphi/contexts/finance-core/treasury-service/domain/entities"
	domainerrors "delphi/contexts/finance-core/treasury-service/domain/errors"
	"delphi/contexts/finance-core/treasury-service/ports"
	"delphi/internal/shared/guard"
	"delphi/internal/shared/money"
)

const guardResource = "treasury"

// EscrowCredit is one leg of an escrow release: exactly one of Account or
// Pool receives Amount.
type EscrowCredit struct {
	Account string
	Pool    entities.Pool
	Amount  int64
}

// BalancesSnapshot is the read model for treasury queries.
type BalancesSnapshot struct {
	Pools            map[entities.Pool]int64
	Escrows          map[string]int64
	TotalDeposits    int64
	TotalWithdrawals int64
}

// Service owns every fund movement. Each operation acquires the treasury
// guard, validates against a working copy of the ledger, and commits only a
// fully balanced state, so failures leave no partial changes behind.
type Service struct {
	Ledger ports.LedgerRepository
	Outbox ports.OutboxWriter
	Guard  *guard.Guard
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// CreditAccount records an external deposit into a user custody account.
func (s Service) CreditAccount(ctx context.Context, account string, amount int64) error {
	return s.mutate(ctx, "credit_account", account, amount, func(ledger *entities.Ledger) error {
		account = strings.TrimSpace(account)
		if account == "" {
			return domainerrors.ErrAccountRequired
		}
		balance, err := money.Add(ledger.Accounts[account], amount)
		if err != nil {
			return err
		}
		deposits, err := money.Add(ledger.TotalDeposits, amount)
		if err != nil {
			return err
		}
		ledger.Accounts[account] = balance
		ledger.TotalDeposits = deposits
		return nil
	})
}

// DebitAccount records an external withdrawal from a user custody account.
func (s Service) DebitAccount(ctx context.Context, account string, amount int64) error {
	return s.mutate(ctx, "debit_account", account, amount, func(ledger *entities.Ledger) error {
		account = strings.TrimSpace(account)
		if account == "" {
			return domainerrors.ErrAccountRequired
		}
		balance, err := money.Sub(ledger.Accounts[account], amount)
		if err != nil {
			return domainerrors.ErrInsufficientAccountBalance
		}
		withdrawals, err := money.Add(ledger.TotalWithdrawals, amount)
		if err != nil {
			return err
		}
		ledger.Accounts[account] = balance
		ledger.TotalWithdrawals = withdrawals
		return nil
	})
}

// DepositToPool records an external deposit directly into a named pool.
func (s Service) DepositToPool(ctx context.Context, pool entities.Pool, amount int64) error {
	return s.mutate(ctx, "deposit_to_pool", string(pool), amount, func(ledger *entities.Ledger) error {
		if !entities.KnownPool(pool) {
			return domainerrors.ErrUnknownPool
		}
		balance, err := money.Add(ledger.Pools[pool], amount)
		if err != nil {
			return err
		}
		deposits, err := money.Add(ledger.TotalDeposits, amount)
		if err != nil {
			return err
		}
		ledger.Pools[pool] = balance
		ledger.TotalDeposits = deposits
		return nil
	})
}

// WithdrawFromPool records an external withdrawal from a named pool.
func (s Service) WithdrawFromPool(ctx context.Context, pool entities.Pool, amount int64) error {
	return s.mutate(ctx, "withdraw_from_pool", string(pool), amount, func(ledger *entities.Ledger) error {
		if !entities.KnownPool(pool) {
			return domainerrors.ErrUnknownPool
		}
		balance, err := money.Sub(ledger.Pools[pool], amount)
		if err != nil {
			return domainerrors.ErrInsufficientPoolBalance
		}
		if pool == entities.PoolStaking && ledger.EscrowTotal() > balance {
			// Escrowed funds are a sub-ledger of the staking pool and must
			// stay fully covered.
			return domainerrors.ErrInsufficientPoolBalance
		}
		withdrawals, err := money.Add(ledger.TotalWithdrawals, amount)
		if err != nil {
			return err
		}
		ledger.Pools[pool] = balance
		ledger.TotalWithdrawals = withdrawals
		return nil
	})
}

// TransferBetweenPools moves value between named pools as a deposit+withdraw
// pair that either fully applies or fully rolls back.
func (s Service) TransferBetweenPools(ctx context.Context, from, to entities.Pool, amount int64) error {
	return s.mutate(ctx, "transfer_between_pools", string(from)+"->"+string(to), amount, func(ledger *entities.Ledger) error {
		if !entities.KnownPool(from) || !entities.KnownPool(to) {
			return domainerrors.ErrUnknownPool
		}
		fromBalance, err := money.Sub(ledger.Pools[from], amount)
		if err != nil {
			return domainerrors.ErrInsufficientPoolBalance
		}
		if from == entities.PoolStaking && ledger.EscrowTotal() > fromBalance {
			return domainerrors.ErrInsufficientPoolBalance
		}
		toBalance, err := money.Add(ledger.Pools[to], amount)
		if err != nil {
			return err
		}
		ledger.Pools[from] = fromBalance
		ledger.Pools[to] = toBalance
		return nil
	})
}

// OpenEscrow allocates a zero-balance escrow sub-pool keyed by the market
// event id.
func (s Service) OpenEscrow(ctx context.Context, key string) error {
	return s.mutate(ctx, "open_escrow", key, 0, func(ledger *entities.Ledger) error {
		key = strings.TrimSpace(key)
		if key == "" {
			return domainerrors.ErrEscrowNotFound
		}
		if _, exists := ledger.Escrows[key]; exists {
			return domainerrors.ErrEscrowExists
		}
		ledger.Escrows[key] = 0
		return nil
	})
}

// FundEscrow moves stake from a user account into escrow: the account is
// debited while the staking pool and the escrow sub-balance are both
// credited (the dual write is the conservation check).
func (s Service) FundEscrow(ctx context.Context, account, key string, amount int64) error {
	return s.mutate(ctx, "fund_escrow", key, amount, func(ledger *entities.Ledger) error {
		account = strings.TrimSpace(account)
		if account == "" {
			return domainerrors.ErrAccountRequired
		}
		escrow, exists := ledger.Escrows[strings.TrimSpace(key)]
		if !exists {
			return domainerrors.ErrEscrowNotFound
		}
		accountBalance, err := money.Sub(ledger.Accounts[account], amount)
		if err != nil {
			return domainerrors.ErrInsufficientAccountBalance
		}
		stakingBalance, err := money.Add(ledger.Pools[entities.PoolStaking], amount)
		if err != nil {
			return err
		}
		escrowBalance, err := money.Add(escrow, amount)
		if err != nil {
			return err
		}
		ledger.Accounts[account] = accountBalance
		ledger.Pools[entities.PoolStaking] = stakingBalance
		ledger.Escrows[strings.TrimSpace(key)] = escrowBalance
		return nil
	})
}

// ReleaseEscrow pays out an escrow in one atomic step. The credited total
// must equal the escrow balance exactly; the escrow is removed afterwards.
func (s Service) ReleaseEscrow(ctx context.Context, key string, credits []EscrowCredit) error {
	return s.mutate(ctx, "release_escrow", key, 0, func(ledger *entities.Ledger) error {
		key = strings.TrimSpace(key)
		escrow, exists := ledger.Escrows[key]
		if !exists {
			return domainerrors.ErrEscrowNotFound
		}

		var credited int64
		for _, credit := range credits {
			if credit.Amount < 0 {
				return domainerrors.ErrInvalidAmount
			}
			next, err := money.Add(credited, credit.Amount)
			if err != nil {
				return err
			}
			credited = next
		}
		if credited != escrow {
			return domainerrors.ErrEscrowImbalance
		}

		stakingBalance, err := money.Sub(ledger.Pools[entities.PoolStaking], escrow)
		if err != nil {
			return domainerrors.ErrInsufficientPoolBalance
		}
		ledger.Pools[entities.PoolStaking] = stakingBalance
		delete(ledger.Escrows, key)

		for _, credit := range credits {
			switch {
			case strings.TrimSpace(credit.Account) != "":
				balance, err := money.Add(ledger.Accounts[strings.TrimSpace(credit.Account)], credit.Amount)
				if err != nil {
					return err
				}
				ledger.Accounts[strings.TrimSpace(credit.Account)] = balance
			case entities.KnownPool(credit.Pool):
				balance, err := money.Add(ledger.Pools[credit.Pool], credit.Amount)
				if err != nil {
					return err
				}
				ledger.Pools[credit.Pool] = balance
			default:
				return domainerrors.ErrUnknownPool
			}
		}
		return nil
	})
}

// PayFromPool moves value from a named pool into a user custody account.
// Staking payouts and external reward distribution route through here.
func (s Service) PayFromPool(ctx context.Context, pool entities.Pool, account string, amount int64) error {
	return s.mutate(ctx, "pay_from_pool", string(pool)+":"+strings.TrimSpace(account), amount, func(ledger *entities.Ledger) error {
		account = strings.TrimSpace(account)
		if account == "" {
			return domainerrors.ErrAccountRequired
		}
		if !entities.KnownPool(pool) {
			return domainerrors.ErrUnknownPool
		}
		poolBalance, err := money.Sub(ledger.Pools[pool], amount)
		if err != nil {
			return domainerrors.ErrInsufficientPoolBalance
		}
		if pool == entities.PoolStaking && ledger.EscrowTotal() > poolBalance {
			return domainerrors.ErrInsufficientPoolBalance
		}
		accountBalance, err := money.Add(ledger.Accounts[account], amount)
		if err != nil {
			return err
		}
		ledger.Pools[pool] = poolBalance
		ledger.Accounts[account] = accountBalance
		return nil
	})
}

// MovePoolToAccountAndPool debits a source pool once and credits a mix of a
// user account and another pool. Used for penalty routing on early unstake
// (principal minus penalty to the staker, penalty to insurance).
func (s Service) MovePoolToAccountAndPool(
	ctx context.Context,
	from entities.Pool,
	account string,
	accountAmount int64,
	to entities.Pool,
	poolAmount int64,
) error {
	total, err := money.Add(accountAmount, poolAmount)
	if err != nil {
		return err
	}
	return s.mutate(ctx, "split_pool_payout", string(from), total, func(ledger *entities.Ledger) error {
		account = strings.TrimSpace(account)
		if account == "" {
			return domainerrors.ErrAccountRequired
		}
		if !entities.KnownPool(from) || !entities.KnownPool(to) {
			return domainerrors.ErrUnknownPool
		}
		fromBalance, err := money.Sub(ledger.Pools[from], total)
		if err != nil {
			return domainerrors.ErrInsufficientPoolBalance
		}
		if from == entities.PoolStaking && ledger.EscrowTotal() > fromBalance {
			return domainerrors.ErrInsufficientPoolBalance
		}
		accountBalance, err := money.Add(ledger.Accounts[account], accountAmount)
		if err != nil {
			return err
		}
		toBalance, err := money.Add(ledger.Pools[to], poolAmount)
		if err != nil {
			return err
		}
		ledger.Pools[from] = fromBalance
		ledger.Accounts[account] = accountBalance
		ledger.Pools[to] = toBalance
		return nil
	})
}

// Balances returns a snapshot of pool and escrow balances plus the audit
// counters.
func (s Service) Balances(ctx context.Context) (BalancesSnapshot, error) {
	ledger, err := s.Ledger.LoadLedger(ctx)
	if err != nil {
		return BalancesSnapshot{}, err
	}
	return BalancesSnapshot{
		Pools:            ledger.Pools,
		Escrows:          ledger.Escrows,
		TotalDeposits:    ledger.TotalDeposits,
		TotalWithdrawals: ledger.TotalWithdrawals,
	}, nil
}

func (s Service) AccountBalance(ctx context.Context, account string) (int64, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return 0, domainerrors.ErrAccountRequired
	}
	ledger, err := s.Ledger.LoadLedger(ctx)
	if err != nil {
		return 0, err
	}
	return ledger.Accounts[account], nil
}

func (s Service) EscrowBalance(ctx context.Context, key string) (int64, error) {
	ledger, err := s.Ledger.LoadLedger(ctx)
	if err != nil {
		return 0, err
	}
	balance, exists := ledger.Escrows[strings.TrimSpace(key)]
	if !exists {
		return 0, domainerrors.ErrEscrowNotFound
	}
	return balance, nil
}

// Verify re-checks the conservation identity against committed state.
func (s Service) Verify(ctx context.Context) error {
	ledger, err := s.Ledger.LoadLedger(ctx)
	if err != nil {
		return err
	}
	if !ledger.Balanced() {
		return domainerrors.ErrConservationViolated
	}
	return nil
}

// mutate runs one guarded ledger operation: load, mutate a working copy,
// verify conservation, save, emit the treasury.operation event. Amount-less
// operations pass amount 0 and validate inside apply.
func (s Service) mutate(
	ctx context.Context,
	operation string,
	subject string,
	amount int64,
	apply func(ledger *entities.Ledger) error,
) error {
	logger := resolveLogger(s.Logger)
	if amount < 0 {
		return domainerrors.ErrInvalidAmount
	}

	if err := s.Guard.Enter(guardResource); err != nil {
		logger.Warn("treasury operation rejected by reentrancy guard",
			"event", "treasury_guard_rejected",
			"module", "finance-core/treasury-service",
			"layer", "application",
			"operation", operation,
			"subject", subject,
		)
		return err
	}
	defer s.Guard.Exit(guardResource)

	committed, err := s.Ledger.LoadLedger(ctx)
	if err != nil {
		return err
	}
	working := committed.Clone()
	if err := apply(&working); err != nil {
		logger.Warn("treasury operation failed",
			"event", "treasury_operation_failed",
			"module", "finance-core/treasury-service",
			"layer", "application",
			"operation", operation,
			"subject", subject,
			"amount", amount,
			"error", err.Error(),
		)
		return err
	}
	if !working.Balanced() {
		return domainerrors.ErrConservationViolated
	}
	working.UpdatedAt = s.now()
	if err := s.commit(ctx, operation, subject, amount, working); err != nil {
		return err
	}

	logger.Info("treasury operation applied",
		"event", "treasury_operation_applied",
		"module", "finance-core/treasury-service",
		"layer", "application",
		"operation", operation,
		"subject", subject,
		"amount", amount,
		"total_deposits", working.TotalDeposits,
		"total_withdrawals", working.TotalWithdrawals,
	)
	return nil
}

// commit persists the working copy along with its treasury.operation event.
// When the repository can write both in one transaction it does; otherwise
// the event is built first so only the outbox append can trail the save.
func (s Service) commit(
	ctx context.Context,
	operation string,
	subject string,
	amount int64,
	working entities.Ledger,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if s.Outbox == nil {
		return s.Ledger.SaveLedger(ctx, working)
	}
	event, err := s.operationEvent(ctx, operation, subject, amount, working)
	if err != nil {
		return err
	}
	if tx, ok := s.Ledger.(ports.TransactionalLedgerRepository); ok {
		return tx.SaveLedgerAndOutbox(ctx, working, event)
	}
	if err := s.Ledger.SaveLedger(ctx, working); err != nil {
		return err
	}
	return s.Outbox.AppendOutbox(ctx, event)
}

func (s Service) operationEvent(
	ctx context.Context,
	operation string,
	subject string,
	amount int64,
	ledger entities.Ledger,
) (ports.EventEnvelope, error) {
	eventID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	occurredAt := s.now()
	data, err := json.Marshal(map[string]any{
		"operation":         operation,
		"subject":           subject,
		"amount":            amount,
		"total_deposits":    ledger.TotalDeposits,
		"total_withdrawals": ledger.TotalWithdrawals,
		"staking_balance":   ledger.Pools[entities.PoolStaking],
		"occurred_at":       occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        "treasury.operation",
		OccurredAt:       occurredAt,
		SourceService:    "treasury-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "subject",
		PartitionKey:     subject,
		Data:             data,
	}, nil
}

func (s Service) now() time.Time {
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now().UTC()
	}
	return now
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
