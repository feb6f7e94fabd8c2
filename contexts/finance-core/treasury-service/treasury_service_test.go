package treasuryservice_test

import (
	"context"
	"errors"
	"testing"

	treasuryservice "delphi/contexts/finance-core/treasury-service"
	"delphi/contexts/finance-core/treasury-service/adapters/memory"
	"delphi/contexts/finance-core/treasury-service/application"
	"delphi/contexts/finance-core/treasury-service/domain/entities"
	domainerrors "delphi/contexts/finance-core/treasury-service/domain/errors"
	"delphi/contexts/finance-core/treasury-service/ports"
	"delphi/internal/shared/guard"
)

func TestAccountDepositWithdrawConservation(t *testing.T) {
	module := treasuryservice.NewInMemoryModule(nil)
	ctx := context.Background()

	if err := module.Treasury.CreditAccount(ctx, "alice", 100); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if err := module.Treasury.DebitAccount(ctx, "alice", 40); err != nil {
		t.Fatalf("debit failed: %v", err)
	}
	if err := module.Treasury.DebitAccount(ctx, "alice", 61); !errors.Is(err, domainerrors.ErrInsufficientAccountBalance) {
		t.Fatalf("expected insufficient account balance, got %v", err)
	}

	balance, err := module.Treasury.AccountBalance(ctx, "alice")
	if err != nil || balance != 60 {
		t.Fatalf("expected balance 60, got %d err %v", balance, err)
	}
	if err := module.Treasury.Verify(ctx); err != nil {
		t.Fatalf("conservation check failed: %v", err)
	}

	snapshot, err := module.Treasury.Balances(ctx)
	if err != nil {
		t.Fatalf("balances failed: %v", err)
	}
	if snapshot.TotalDeposits != 100 || snapshot.TotalWithdrawals != 40 {
		t.Fatalf("unexpected audit counters %d/%d", snapshot.TotalDeposits, snapshot.TotalWithdrawals)
	}
}

func TestPoolTransferIsAtomic(t *testing.T) {
	module := treasuryservice.NewInMemoryModule(nil)
	ctx := context.Background()

	if err := module.Treasury.DepositToPool(ctx, entities.PoolOperational, 50); err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if err := module.Treasury.TransferBetweenPools(ctx, entities.PoolOperational, entities.PoolRewardReserve, 80); !errors.Is(err, domainerrors.ErrInsufficientPoolBalance) {
		t.Fatalf("expected insufficient pool balance, got %v", err)
	}

	snapshot, err := module.Treasury.Balances(ctx)
	if err != nil {
		t.Fatalf("balances failed: %v", err)
	}
	if snapshot.Pools[entities.PoolOperational] != 50 || snapshot.Pools[entities.PoolRewardReserve] != 0 {
		t.Fatalf("failed transfer must leave both pools untouched: %+v", snapshot.Pools)
	}

	if err := module.Treasury.TransferBetweenPools(ctx, entities.PoolOperational, entities.PoolRewardReserve, 30); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	snapshot, _ = module.Treasury.Balances(ctx)
	if snapshot.Pools[entities.PoolOperational] != 20 || snapshot.Pools[entities.PoolRewardReserve] != 30 {
		t.Fatalf("unexpected pool balances after transfer: %+v", snapshot.Pools)
	}
}

func TestEscrowLifecycle(t *testing.T) {
	module := treasuryservice.NewInMemoryModule(nil)
	ctx := context.Background()

	if err := module.Treasury.CreditAccount(ctx, "alice", 10); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if err := module.Treasury.CreditAccount(ctx, "bob", 10); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if err := module.Treasury.OpenEscrow(ctx, "market-1"); err != nil {
		t.Fatalf("open escrow failed: %v", err)
	}
	if err := module.Treasury.OpenEscrow(ctx, "market-1"); !errors.Is(err, domainerrors.ErrEscrowExists) {
		t.Fatalf("expected ErrEscrowExists, got %v", err)
	}

	if err := module.Treasury.FundEscrow(ctx, "alice", "market-1", 10); err != nil {
		t.Fatalf("fund escrow failed: %v", err)
	}
	if err := module.Treasury.FundEscrow(ctx, "bob", "market-1", 10); err != nil {
		t.Fatalf("fund escrow failed: %v", err)
	}

	balance, err := module.Treasury.EscrowBalance(ctx, "market-1")
	if err != nil || balance != 20 {
		t.Fatalf("expected escrow 20, got %d err %v", balance, err)
	}

	// Staking pool mirrors the escrowed total and may not be drained below it.
	if err := module.Treasury.WithdrawFromPool(ctx, entities.PoolStaking, 5); !errors.Is(err, domainerrors.ErrInsufficientPoolBalance) {
		t.Fatalf("expected escrow cover rejection, got %v", err)
	}

	// Release must balance to the unit.
	err = module.Treasury.ReleaseEscrow(ctx, "market-1", []application.EscrowCredit{
		{Account: "alice", Amount: 16},
		{Pool: entities.PoolOperational, Amount: 3},
	})
	if !errors.Is(err, domainerrors.ErrEscrowImbalance) {
		t.Fatalf("expected ErrEscrowImbalance, got %v", err)
	}

	err = module.Treasury.ReleaseEscrow(ctx, "market-1", []application.EscrowCredit{
		{Account: "alice", Amount: 16},
		{Pool: entities.PoolOperational, Amount: 4},
	})
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if _, err := module.Treasury.EscrowBalance(ctx, "market-1"); !errors.Is(err, domainerrors.ErrEscrowNotFound) {
		t.Fatalf("expected escrow removed, got %v", err)
	}

	aliceBalance, _ := module.Treasury.AccountBalance(ctx, "alice")
	if aliceBalance != 16 {
		t.Fatalf("expected alice balance 16, got %d", aliceBalance)
	}
	if err := module.Treasury.Verify(ctx); err != nil {
		t.Fatalf("conservation check failed: %v", err)
	}
}

func TestRejectsNonPositiveAndUnknownPool(t *testing.T) {
	module := treasuryservice.NewInMemoryModule(nil)
	ctx := context.Background()

	if err := module.Treasury.CreditAccount(ctx, "alice", -1); !errors.Is(err, domainerrors.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if err := module.Treasury.DepositToPool(ctx, entities.Pool("slush_fund"), 10); !errors.Is(err, domainerrors.ErrUnknownPool) {
		t.Fatalf("expected ErrUnknownPool, got %v", err)
	}
}

func TestOperationsEmitOutboxEvents(t *testing.T) {
	module := treasuryservice.NewInMemoryModule(nil)
	ctx := context.Background()

	if err := module.Treasury.CreditAccount(ctx, "alice", 5); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if module.Store.PendingOutboxCount() != 1 {
		t.Fatalf("expected one pending outbox event, got %d", module.Store.PendingOutboxCount())
	}
}

// atomicLedgerStore commits the ledger and its outbox row in one call, the
// way the postgres repository does inside a transaction.
type atomicLedgerStore struct {
	*memory.Store
	commits int
}

func (s *atomicLedgerStore) SaveLedgerAndOutbox(ctx context.Context, ledger entities.Ledger, event ports.EventEnvelope) error {
	if err := s.Store.SaveLedger(ctx, ledger); err != nil {
		return err
	}
	if err := s.Store.AppendOutbox(ctx, event); err != nil {
		return err
	}
	s.commits++
	return nil
}

type failingOutbox struct{}

func (failingOutbox) AppendOutbox(context.Context, ports.EventEnvelope) error {
	return errors.New("outbox append rejected")
}

func TestOperationEventCommitsWithLedger(t *testing.T) {
	store := &atomicLedgerStore{Store: memory.NewStore()}
	module := treasuryservice.NewModule(treasuryservice.Dependencies{
		Ledger: store,
		Outbox: failingOutbox{},
		Guard:  guard.New(),
		Clock:  memory.SystemClock{},
		IDGen:  memory.UUIDGenerator{},
	})
	ctx := context.Background()

	// The repository can commit atomically, so the standalone outbox writer
	// is never consulted and its failure cannot strand a saved operation.
	if err := module.Treasury.CreditAccount(ctx, "alice", 100); err != nil {
		t.Fatalf("credit failed: %v", err)
	}
	if store.commits != 1 {
		t.Fatalf("expected one atomic commit, got %d", store.commits)
	}
	if store.Store.PendingOutboxCount() != 1 {
		t.Fatalf("expected one pending outbox row, got %d", store.Store.PendingOutboxCount())
	}
}
