package stakingservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	stakingservice "delphi/contexts/finance-core/staking-service"
	"delphi/contexts/finance-core/staking-service/adapters/memory"
	"delphi/contexts/finance-core/staking-service/application/commands"
	"delphi/contexts/finance-core/staking-service/domain/entities"
	domainerrors "delphi/contexts/finance-core/staking-service/domain/errors"
	"delphi/internal/shared/guard"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestModule(t *testing.T) (stakingservice.Module, *memory.ManualClock) {
	t.Helper()
	clock := memory.NewManualClock(testStart)
	module := stakingservice.NewInMemoryModule([]string{"admin-1", "admin-2", "admin-3"}, clock, nil)
	return module, clock
}

func createTestPool(t *testing.T, module stakingservice.Module, lockupHours int, apy, penaltyPct int64) entities.Pool {
	t.Helper()
	pool, err := module.Staking.CreatePool(context.Background(), commands.CreatePoolCommand{
		Creator:                       "creator-1",
		LockupHours:                   lockupHours,
		APYPercent:                    apy,
		MaxTotalStake:                 100_000,
		MinStakeAmount:                10,
		EarlyWithdrawalPenaltyPercent: penaltyPct,
	})
	if err != nil {
		t.Fatalf("create pool failed: %v", err)
	}
	return pool
}

func TestStakeAndUnstakeAfterLockup(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	pool := createTestPool(t, module, 24, 10, 10)

	module.Bank.SetBalance("alice", 1000)
	module.Bank.FundReserve(100)

	position, err := module.Staking.Stake(ctx, commands.StakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
		Amount: 1000,
	})
	if err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	if module.Bank.Balance("alice") != 0 {
		t.Fatalf("stake must debit the custody account, balance %d", module.Bank.Balance("alice"))
	}
	if got := position.UnlockTime; !got.Equal(testStart.Add(24 * time.Hour)) {
		t.Fatalf("unexpected unlock time %v", got)
	}

	// One full year at 10% APY on 1000 accrues exactly 100.
	clock.Advance(8760 * time.Hour)
	result, err := module.Staking.Unstake(ctx, commands.UnstakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
	})
	if err != nil {
		t.Fatalf("unstake failed: %v", err)
	}
	if result.Early {
		t.Fatalf("unstake after lockup must not be early")
	}
	if result.Principal != 1000 || result.Reward != 100 || result.Penalty != 0 {
		t.Fatalf("unexpected payout %+v", result)
	}
	if module.Bank.Balance("alice") != 1100 {
		t.Fatalf("expected balance 1100, got %d", module.Bank.Balance("alice"))
	}
	if module.Bank.ReserveBalance() != 0 {
		t.Fatalf("reward must come out of the reserve, got %d", module.Bank.ReserveBalance())
	}

	_, err = module.Staking.Unstake(ctx, commands.UnstakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
	})
	if !errors.Is(err, domainerrors.ErrPositionNotFound) {
		t.Fatalf("closed position must not unstake again, got %v", err)
	}
}

func TestEarlyUnstakePenaltyRoutesToInsurance(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	pool := createTestPool(t, module, 48, 10, 10)

	module.Bank.SetBalance("alice", 1000)
	if _, err := module.Staking.Stake(ctx, commands.StakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
		Amount: 1000,
	}); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	clock.Advance(24 * time.Hour)
	result, err := module.Staking.Unstake(ctx, commands.UnstakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
	})
	if err != nil {
		t.Fatalf("unstake failed: %v", err)
	}
	if !result.Early {
		t.Fatalf("unstake before unlock must be early")
	}
	if result.Penalty != 100 {
		t.Fatalf("expected 10%% penalty of 100, got %d", result.Penalty)
	}
	if module.Bank.Balance("alice") != 900 {
		t.Fatalf("expected principal minus penalty 900, got %d", module.Bank.Balance("alice"))
	}
	if module.Bank.PoolBalance("insurance") != 100 {
		t.Fatalf("penalty must land in the insurance pool, got %d", module.Bank.PoolBalance("insurance"))
	}
}

func TestEmergencyWithdrawalWaivesPenalty(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	pool := createTestPool(t, module, 48, 10, 10)

	err := module.Staking.SetEmergencyWithdrawal(ctx, commands.SetEmergencyWithdrawalCommand{Enabled: true})
	if !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("direct emergency toggle must be rejected, got %v", err)
	}
	if err := module.Staking.SetEmergencyWithdrawal(ctx, commands.SetEmergencyWithdrawalCommand{
		Enabled:       true,
		ViaGovernance: true,
	}); err != nil {
		t.Fatalf("governance toggle failed: %v", err)
	}

	module.Bank.SetBalance("alice", 1000)
	if _, err := module.Staking.Stake(ctx, commands.StakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
		Amount: 1000,
	}); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	clock.Advance(24 * time.Hour)
	result, err := module.Staking.Unstake(ctx, commands.UnstakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
	})
	if err != nil {
		t.Fatalf("unstake failed: %v", err)
	}
	if result.Penalty != 0 {
		t.Fatalf("emergency withdrawal must waive the penalty, got %d", result.Penalty)
	}
	if module.Bank.Balance("alice") != 1000 {
		t.Fatalf("expected full principal back, got %d", module.Bank.Balance("alice"))
	}
}

func TestSubIntervalAccrualRoundsToZero(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	pool := createTestPool(t, module, 1, 50, 0)

	module.Bank.SetBalance("alice", 1000)
	if _, err := module.Staking.Stake(ctx, commands.StakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
		Amount: 1000,
	}); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	clock.Advance(30 * time.Minute)
	result, err := module.Staking.Unstake(ctx, commands.UnstakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
	})
	if err != nil {
		t.Fatalf("unstake failed: %v", err)
	}
	if result.Reward != 0 {
		t.Fatalf("no reward accrues below the hourly interval, got %d", result.Reward)
	}
}

func TestStakeValidation(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	pool := createTestPool(t, module, 24, 10, 10)

	module.Bank.SetBalance("alice", 200_000)

	_, err := module.Staking.Stake(ctx, commands.StakeCommand{Staker: "alice", PoolID: pool.PoolID, Amount: 5})
	if !errors.Is(err, domainerrors.ErrInvalidStake) {
		t.Fatalf("below pool minimum must fail, got %v", err)
	}
	_, err = module.Staking.Stake(ctx, commands.StakeCommand{Staker: "alice", PoolID: pool.PoolID, Amount: 2_000_000})
	if !errors.Is(err, domainerrors.ErrInvalidStake) {
		t.Fatalf("above per-tx cap must fail, got %v", err)
	}

	if _, err := module.Staking.Stake(ctx, commands.StakeCommand{Staker: "alice", PoolID: pool.PoolID, Amount: 1000}); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	_, err = module.Staking.Stake(ctx, commands.StakeCommand{Staker: "alice", PoolID: pool.PoolID, Amount: 1000})
	if !errors.Is(err, domainerrors.ErrAlreadyStaked) {
		t.Fatalf("second active position must fail, got %v", err)
	}

	module.Bank.SetBalance("bob", 200_000)
	_, err = module.Staking.Stake(ctx, commands.StakeCommand{Staker: "bob", PoolID: pool.PoolID, Amount: 100_000})
	if !errors.Is(err, domainerrors.ErrPoolCapExceeded) {
		t.Fatalf("pool cap overflow must fail, got %v", err)
	}

	_, err = module.Staking.Stake(ctx, commands.StakeCommand{Staker: "bob", PoolID: "missing", Amount: 1000})
	if !errors.Is(err, domainerrors.ErrPoolNotFound) {
		t.Fatalf("unknown pool must fail, got %v", err)
	}
}

func TestStakeRetryAfterFundingFailure(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	pool := createTestPool(t, module, 24, 10, 10)

	// The account is empty, so funding the position escrow fails after the
	// escrow was already opened.
	if _, err := module.Staking.Stake(ctx, commands.StakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
		Amount: 1000,
	}); err == nil {
		t.Fatalf("stake with an empty account must fail")
	}

	// The failed attempt must not leave an escrow behind under the position
	// key, or the retry would be locked out forever.
	module.Bank.SetBalance("alice", 1000)
	position, err := module.Staking.Stake(ctx, commands.StakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
		Amount: 1000,
	})
	if err != nil {
		t.Fatalf("retry after funding failure must succeed: %v", err)
	}
	if !position.Active {
		t.Fatalf("expected an active position after retry: %+v", position)
	}
	if module.Bank.Balance("alice") != 0 {
		t.Fatalf("retry must debit the custody account, got %d", module.Bank.Balance("alice"))
	}
}

func TestDailyStakeWindowResets(t *testing.T) {
	clock := memory.NewManualClock(testStart)
	store := memory.NewStore()
	bank := memory.NewRewardBank()
	module := stakingservice.NewModule(stakingservice.Dependencies{
		Pools:         store,
		Treasury:      bank,
		Status:        &memory.StatusFlag{},
		Signers:       memory.NewSignerSet("admin-1"),
		Policy:        &memory.EmergencyFlag{},
		Outbox:        store,
		Guard:         guard.New(),
		Clock:         clock,
		IDGen:         memory.UUIDGenerator{},
		DailyStakeCap: 150,
	})
	ctx := context.Background()

	poolA, err := module.Staking.CreatePool(ctx, commands.CreatePoolCommand{
		Creator:                       "creator-1",
		LockupHours:                   24,
		APYPercent:                    10,
		MaxTotalStake:                 100_000,
		MinStakeAmount:                10,
		EarlyWithdrawalPenaltyPercent: 10,
	})
	if err != nil {
		t.Fatalf("create pool failed: %v", err)
	}
	poolB, err := module.Staking.CreatePool(ctx, commands.CreatePoolCommand{
		Creator:                       "creator-1",
		LockupHours:                   24,
		APYPercent:                    10,
		MaxTotalStake:                 100_000,
		MinStakeAmount:                10,
		EarlyWithdrawalPenaltyPercent: 10,
	})
	if err != nil {
		t.Fatalf("create pool failed: %v", err)
	}

	bank.SetBalance("alice", 1000)
	if _, err := module.Staking.Stake(ctx, commands.StakeCommand{Staker: "alice", PoolID: poolA.PoolID, Amount: 100}); err != nil {
		t.Fatalf("stake failed: %v", err)
	}
	// The cap counts stakes across pools within the same UTC day.
	_, err = module.Staking.Stake(ctx, commands.StakeCommand{Staker: "alice", PoolID: poolB.PoolID, Amount: 100})
	if !errors.Is(err, domainerrors.ErrDailyLimitExceeded) {
		t.Fatalf("expected ErrDailyLimitExceeded, got %v", err)
	}

	clock.Advance(24 * time.Hour)
	if _, err := module.Staking.Stake(ctx, commands.StakeCommand{Staker: "alice", PoolID: poolB.PoolID, Amount: 100}); err != nil {
		t.Fatalf("stake after window reset failed: %v", err)
	}
}

func TestDistributeExternalRewardProRata(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	pool := createTestPool(t, module, 24, 10, 10)

	stakes := map[string]int64{"alice": 500, "bob": 300, "carol": 200}
	for staker, amount := range stakes {
		module.Bank.SetBalance(staker, amount)
		if _, err := module.Staking.Stake(ctx, commands.StakeCommand{
			Staker: staker,
			PoolID: pool.PoolID,
			Amount: amount,
		}); err != nil {
			t.Fatalf("stake for %s failed: %v", staker, err)
		}
	}

	_, err := module.Staking.DistributeExternalReward(ctx, commands.DistributeRewardCommand{
		Caller: "mallory",
		PoolID: pool.PoolID,
		Amount: 100,
	})
	if !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("non-admin distribution must fail, got %v", err)
	}

	_, err = module.Staking.DistributeExternalReward(ctx, commands.DistributeRewardCommand{
		Caller: "admin-1",
		PoolID: pool.PoolID,
		Amount: 100,
	})
	if !errors.Is(err, domainerrors.ErrInsufficientTreasury) {
		t.Fatalf("empty reserve must fail, got %v", err)
	}
	for staker := range stakes {
		if module.Bank.Balance(staker) != 0 {
			t.Fatalf("failed distribution must not pay %s", staker)
		}
	}

	module.Bank.FundReserve(100)
	shares, err := module.Staking.DistributeExternalReward(ctx, commands.DistributeRewardCommand{
		Caller: "admin-1",
		PoolID: pool.PoolID,
		Amount: 100,
	})
	if err != nil {
		t.Fatalf("distribution failed: %v", err)
	}
	total := int64(0)
	for _, share := range shares {
		total += share
	}
	if total != 100 {
		t.Fatalf("shares must conserve the amount, got %d", total)
	}
	if module.Bank.Balance("alice") != 50 || module.Bank.Balance("bob") != 30 || module.Bank.Balance("carol") != 20 {
		t.Fatalf("unexpected pro-rata payouts: alice=%d bob=%d carol=%d",
			module.Bank.Balance("alice"), module.Bank.Balance("bob"), module.Bank.Balance("carol"))
	}
	if module.Bank.ReserveBalance() != 0 {
		t.Fatalf("reserve must be drained, got %d", module.Bank.ReserveBalance())
	}
}

func TestRequestWithdrawalFlagsWithoutMovingFunds(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	pool := createTestPool(t, module, 24, 10, 10)

	module.Bank.SetBalance("alice", 1000)
	if _, err := module.Staking.Stake(ctx, commands.StakeCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
		Amount: 1000,
	}); err != nil {
		t.Fatalf("stake failed: %v", err)
	}

	position, err := module.Staking.RequestWithdrawal(ctx, commands.RequestWithdrawalCommand{
		Staker: "alice",
		PoolID: pool.PoolID,
	})
	if err != nil {
		t.Fatalf("request withdrawal failed: %v", err)
	}
	if !position.WithdrawalRequested || !position.Active {
		t.Fatalf("flag must be set while the position stays open: %+v", position)
	}
	if module.Bank.Balance("alice") != 0 {
		t.Fatalf("request must not move funds, got %d", module.Bank.Balance("alice"))
	}
}

func TestCreatePoolValidation(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()

	invalid := []commands.CreatePoolCommand{
		{Creator: "c", LockupHours: 0, APYPercent: 10, MaxTotalStake: 1000, MinStakeAmount: 10},
		{Creator: "c", LockupHours: 9000, APYPercent: 10, MaxTotalStake: 1000, MinStakeAmount: 10},
		{Creator: "c", LockupHours: 24, APYPercent: 0, MaxTotalStake: 1000, MinStakeAmount: 10},
		{Creator: "c", LockupHours: 24, APYPercent: 51, MaxTotalStake: 1000, MinStakeAmount: 10},
		{Creator: "c", LockupHours: 24, APYPercent: 10, MaxTotalStake: 0, MinStakeAmount: 10},
		{Creator: "c", LockupHours: 24, APYPercent: 10, MaxTotalStake: 1000, MinStakeAmount: 2000},
	}
	for i, cmd := range invalid {
		if _, err := module.Staking.CreatePool(ctx, cmd); !errors.Is(err, domainerrors.ErrInvalidPoolInput) {
			t.Fatalf("case %d: expected ErrInvalidPoolInput, got %v", i, err)
		}
	}

	module.Status.SetPaused(true)
	_, err := module.Staking.CreatePool(ctx, commands.CreatePoolCommand{
		Creator:        "c",
		LockupHours:    24,
		APYPercent:     10,
		MaxTotalStake:  1000,
		MinStakeAmount: 10,
	})
	if !errors.Is(err, domainerrors.ErrSystemPaused) {
		t.Fatalf("expected ErrSystemPaused, got %v", err)
	}
	module.Status.SetPaused(false)

	for i := 0; i < 5; i++ {
		createTestPool(t, module, 24, 10, 10)
	}
	_, err = module.Staking.CreatePool(ctx, commands.CreatePoolCommand{
		Creator:        "creator-1",
		LockupHours:    24,
		APYPercent:     10,
		MaxTotalStake:  1000,
		MinStakeAmount: 10,
	})
	if !errors.Is(err, domainerrors.ErrRateLimitExceeded) {
		t.Fatalf("expected ErrRateLimitExceeded, got %v", err)
	}
}
