package commands

import (
	"context"
	"strings"
	"time"

	application "delphi/contexts/finance-core/staking-service/application"
	"delphi/contexts/finance-core/staking-service/domain/entities"
	domainerrors "delphi/contexts/finance-core/staking-service/domain/errors"
	"delphi/contexts/finance-core/staking-service/ports"
	"delphi/internal/shared/money"
)

// StakeCommand locks a staker's principal into a pool.
type StakeCommand struct {
	Staker string
	PoolID string
	Amount int64
}

// Stake debits the staker's custody account into a fresh position escrow and
// opens the position with its unlock time fixed from the clock.
func (uc StakingUseCase) Stake(ctx context.Context, cmd StakeCommand) (entities.Position, error) {
	logger := application.ResolveLogger(uc.Logger)
	staker := strings.TrimSpace(cmd.Staker)
	poolID := strings.TrimSpace(cmd.PoolID)
	if staker == "" || poolID == "" {
		return entities.Position{}, domainerrors.ErrInvalidPoolInput
	}
	if cmd.Amount <= 0 || cmd.Amount > uc.maxStakePerTx() {
		return entities.Position{}, domainerrors.ErrInvalidStake
	}

	if err := uc.Guard.Enter(guardPrefixPool + poolID); err != nil {
		return entities.Position{}, err
	}
	defer uc.Guard.Exit(guardPrefixPool + poolID)

	paused, err := uc.Status.IsPaused(ctx)
	if err != nil {
		return entities.Position{}, err
	}
	if paused {
		return entities.Position{}, domainerrors.ErrSystemPaused
	}

	pool, err := uc.Pools.GetPool(ctx, poolID)
	if err != nil {
		return entities.Position{}, err
	}
	if !pool.Open() {
		return entities.Position{}, domainerrors.ErrPoolInactive
	}
	if pool.ActivePositionIndex(staker) >= 0 {
		return entities.Position{}, domainerrors.ErrAlreadyStaked
	}
	if cmd.Amount < pool.MinStakeAmount {
		return entities.Position{}, domainerrors.ErrInvalidStake
	}
	totalStaked, err := money.Add(pool.TotalStaked, cmd.Amount)
	if err != nil {
		return entities.Position{}, err
	}
	if totalStaked > pool.MaxTotalStake {
		return entities.Position{}, domainerrors.ErrPoolCapExceeded
	}

	now := uc.now()
	windowStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	stakedToday, err := uc.Pools.StakedInWindow(ctx, staker, windowStart)
	if err != nil {
		return entities.Position{}, err
	}
	dayTotal, err := money.Add(stakedToday, cmd.Amount)
	if err != nil {
		return entities.Position{}, err
	}
	if dayTotal > uc.dailyStakeCap() {
		return entities.Position{}, domainerrors.ErrDailyLimitExceeded
	}

	escrowKey := positionEscrowKey(poolID, staker)
	if err := uc.Treasury.OpenEscrow(ctx, escrowKey); err != nil {
		return entities.Position{}, err
	}
	if err := uc.Treasury.FundEscrow(ctx, staker, escrowKey, cmd.Amount); err != nil {
		logger.Warn("stake escrow funding failed",
			"event", "staking_escrow_failed",
			"module", "finance-core/staking-service",
			"layer", "application",
			"pool_id", poolID,
			"staker", staker,
			"error", err.Error(),
		)
		// Releasing the empty escrow keeps the position key free so the
		// staker can retry once their account is funded.
		if discardErr := uc.Treasury.ReleaseEscrow(ctx, escrowKey, nil); discardErr != nil {
			logger.Error("stake escrow discard failed",
				"event", "staking_escrow_discard_failed",
				"module", "finance-core/staking-service",
				"layer", "application",
				"pool_id", poolID,
				"staker", staker,
				"error", discardErr.Error(),
			)
		}
		return entities.Position{}, err
	}

	position := entities.Position{
		Staker:                staker,
		AmountStaked:          cmd.Amount,
		StakedAt:              now,
		UnlockTime:            now.Add(pool.LockupDuration),
		LastRewardCalculation: now,
		Active:                true,
	}
	pool.Positions = append(pool.Positions, position)
	pool.TotalStaked = totalStaked
	pool.UpdatedAt = now
	if err := uc.Pools.SavePool(ctx, pool); err != nil {
		refund := []ports.EscrowCredit{{Account: staker, Amount: cmd.Amount}}
		if refundErr := uc.Treasury.ReleaseEscrow(ctx, escrowKey, refund); refundErr != nil {
			logger.Error("stake escrow refund failed",
				"event", "staking_escrow_refund_failed",
				"module", "finance-core/staking-service",
				"layer", "application",
				"pool_id", poolID,
				"staker", staker,
				"error", refundErr.Error(),
			)
		}
		return entities.Position{}, err
	}
	if err := uc.appendStakingEvent(ctx, "staking.tokens_staked", pool, now, map[string]any{
		"staker":      staker,
		"amount":      cmd.Amount,
		"unlock_time": position.UnlockTime.Format(time.RFC3339),
	}); err != nil {
		return entities.Position{}, err
	}

	logger.Info("tokens staked",
		"event", "staking_tokens_staked",
		"module", "finance-core/staking-service",
		"layer", "application",
		"pool_id", poolID,
		"staker", staker,
		"amount", cmd.Amount,
		"pool_total", pool.TotalStaked,
	)
	return position, nil
}

// RequestWithdrawalCommand records a staker's intent to withdraw.
type RequestWithdrawalCommand struct {
	Staker string
	PoolID string
}

// RequestWithdrawal flags the staker's position. No funds move; the flag is
// advisory for pool operators and off-chain consumers.
func (uc StakingUseCase) RequestWithdrawal(ctx context.Context, cmd RequestWithdrawalCommand) (entities.Position, error) {
	staker := strings.TrimSpace(cmd.Staker)
	poolID := strings.TrimSpace(cmd.PoolID)
	if staker == "" || poolID == "" {
		return entities.Position{}, domainerrors.ErrInvalidPoolInput
	}

	if err := uc.Guard.Enter(guardPrefixPool + poolID); err != nil {
		return entities.Position{}, err
	}
	defer uc.Guard.Exit(guardPrefixPool + poolID)

	pool, err := uc.Pools.GetPool(ctx, poolID)
	if err != nil {
		return entities.Position{}, err
	}
	index := pool.ActivePositionIndex(staker)
	if index < 0 {
		return entities.Position{}, domainerrors.ErrPositionNotFound
	}
	pool.Positions[index].WithdrawalRequested = true
	pool.UpdatedAt = uc.now()
	if err := uc.Pools.SavePool(ctx, pool); err != nil {
		return entities.Position{}, err
	}
	return pool.Positions[index], nil
}
