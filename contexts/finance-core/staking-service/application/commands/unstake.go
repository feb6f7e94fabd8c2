package commands

import (
	"context"
	"strings"

	application "delphi/contexts/finance-core/staking-service/application"
	domainerrors "delphi/contexts/finance-core/staking-service/domain/errors"
	"delphi/contexts/finance-core/staking-service/ports"
	"delphi/internal/shared/money"
)

// UnstakeCommand closes a staker's position.
type UnstakeCommand struct {
	Staker string
	PoolID string
}

// UnstakeResult reports the realized payout legs.
type UnstakeResult struct {
	Principal int64
	Reward    int64
	Penalty   int64
	Early     bool
}

// Unstake closes the position and settles it: accrued reward from the reward
// reserve, principal from the position escrow, early-withdrawal penalty
// routed to the insurance pool. The reward is paid before the escrow is
// released so an uncoverable reward leaves the position untouched.
func (uc StakingUseCase) Unstake(ctx context.Context, cmd UnstakeCommand) (UnstakeResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	staker := strings.TrimSpace(cmd.Staker)
	poolID := strings.TrimSpace(cmd.PoolID)
	if staker == "" || poolID == "" {
		return UnstakeResult{}, domainerrors.ErrInvalidPoolInput
	}

	if err := uc.Guard.Enter(guardPrefixPool + poolID); err != nil {
		return UnstakeResult{}, err
	}
	defer uc.Guard.Exit(guardPrefixPool + poolID)

	pool, err := uc.Pools.GetPool(ctx, poolID)
	if err != nil {
		return UnstakeResult{}, err
	}
	index := pool.ActivePositionIndex(staker)
	if index < 0 {
		return UnstakeResult{}, domainerrors.ErrPositionNotFound
	}
	position := pool.Positions[index]

	now := uc.now()
	early := now.Before(position.UnlockTime)

	accrued := int64(0)
	elapsed := now.Sub(position.LastRewardCalculation)
	if elapsed >= rewardAccrualInterval {
		factor, err := money.Mul(pool.APYPercent, int64(elapsed.Seconds()))
		if err != nil {
			return UnstakeResult{}, err
		}
		accrued, err = money.MulDiv(position.AmountStaked, factor, 100*secondsPerYear)
		if err != nil {
			return UnstakeResult{}, err
		}
	}

	penalty := int64(0)
	if early {
		emergency, err := uc.Policy.EmergencyEnabled(ctx)
		if err != nil {
			return UnstakeResult{}, err
		}
		if !emergency {
			penalty, err = money.Percent(position.AmountStaked, pool.EarlyWithdrawalPenaltyPercent)
			if err != nil {
				return UnstakeResult{}, err
			}
		}
	}

	if accrued > 0 {
		err := uc.Treasury.PayRewards(ctx, []ports.RewardPayout{{Account: staker, Amount: accrued}})
		if err != nil {
			logger.Warn("reward payout not coverable",
				"event", "staking_reward_uncovered",
				"module", "finance-core/staking-service",
				"layer", "application",
				"pool_id", poolID,
				"staker", staker,
				"reward", accrued,
				"error", err.Error(),
			)
			return UnstakeResult{}, err
		}
	}

	credits := []ports.EscrowCredit{{Account: staker, Amount: position.AmountStaked - penalty}}
	if penalty > 0 {
		credits = append(credits, ports.EscrowCredit{Pool: "insurance", Amount: penalty})
	}
	if err := uc.Treasury.ReleaseEscrow(ctx, positionEscrowKey(poolID, staker), credits); err != nil {
		return UnstakeResult{}, err
	}

	remaining, err := money.Sub(pool.TotalStaked, position.AmountStaked)
	if err != nil {
		return UnstakeResult{}, err
	}
	pool.Positions[index].Active = false
	pool.Positions[index].RewardsEarned = position.RewardsEarned + accrued
	pool.Positions[index].LastRewardCalculation = now
	pool.TotalStaked = remaining
	pool.UpdatedAt = now
	if err := uc.Pools.SavePool(ctx, pool); err != nil {
		return UnstakeResult{}, err
	}
	if err := uc.appendStakingEvent(ctx, "staking.tokens_unstaked", pool, now, map[string]any{
		"staker":    staker,
		"principal": position.AmountStaked,
		"reward":    accrued,
		"penalty":   penalty,
		"early":     early,
	}); err != nil {
		return UnstakeResult{}, err
	}

	logger.Info("tokens unstaked",
		"event", "staking_tokens_unstaked",
		"module", "finance-core/staking-service",
		"layer", "application",
		"pool_id", poolID,
		"staker", staker,
		"principal", position.AmountStaked,
		"reward", accrued,
		"penalty", penalty,
		"early", early,
	)
	return UnstakeResult{
		Principal: position.AmountStaked,
		Reward:    accrued,
		Penalty:   penalty,
		Early:     early,
	}, nil
}
