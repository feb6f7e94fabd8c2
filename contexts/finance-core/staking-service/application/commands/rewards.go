package commands

import (
	"context"
	"strings"

	application "delphi/contexts/finance-core/staking-service/application"
	domainerrors "delphi/contexts/finance-core/staking-service/domain/errors"
	"delphi/contexts/finance-core/staking-service/ports"
	"delphi/internal/shared/rewardsplit"
)

// DistributeRewardCommand spreads an external reward across a pool's active
// positions pro rata by principal.
type DistributeRewardCommand struct {
	Caller string
	PoolID string
	Amount int64
}

// DistributeExternalReward pays each active staker their pro-rata share of
// the amount from the treasury's reward reserve. The whole batch applies or
// nothing does.
func (uc StakingUseCase) DistributeExternalReward(ctx context.Context, cmd DistributeRewardCommand) ([]int64, error) {
	logger := application.ResolveLogger(uc.Logger)
	poolID := strings.TrimSpace(cmd.PoolID)
	if poolID == "" || cmd.Amount <= 0 {
		return nil, domainerrors.ErrInvalidPoolInput
	}
	authorized, err := uc.Signers.IsSigner(ctx, strings.TrimSpace(cmd.Caller))
	if err != nil {
		return nil, err
	}
	if !authorized {
		return nil, domainerrors.ErrNotAuthorized
	}

	if err := uc.Guard.Enter(guardPrefixPool + poolID); err != nil {
		return nil, err
	}
	defer uc.Guard.Exit(guardPrefixPool + poolID)

	pool, err := uc.Pools.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	active := pool.ActivePositions()
	if len(active) == 0 {
		return nil, domainerrors.ErrNothingToDistribute
	}

	weights := make([]int64, len(active))
	for i, index := range active {
		weights[i] = pool.Positions[index].AmountStaked
	}
	shares, err := rewardsplit.ProRata(cmd.Amount, weights)
	if err != nil {
		return nil, err
	}

	payouts := make([]ports.RewardPayout, 0, len(active))
	for i, index := range active {
		if shares[i] == 0 {
			continue
		}
		payouts = append(payouts, ports.RewardPayout{
			Account: pool.Positions[index].Staker,
			Amount:  shares[i],
		})
	}
	if err := uc.Treasury.PayRewards(ctx, payouts); err != nil {
		logger.Warn("external reward not coverable",
			"event", "staking_reward_uncovered",
			"module", "finance-core/staking-service",
			"layer", "application",
			"pool_id", poolID,
			"amount", cmd.Amount,
			"error", err.Error(),
		)
		return nil, err
	}

	now := uc.now()
	for i, index := range active {
		pool.Positions[index].RewardsEarned += shares[i]
	}
	pool.UpdatedAt = now
	if err := uc.Pools.SavePool(ctx, pool); err != nil {
		return nil, err
	}
	if err := uc.appendStakingEvent(ctx, "staking.rewards_distributed", pool, now, map[string]any{
		"amount":     cmd.Amount,
		"recipients": len(active),
	}); err != nil {
		return nil, err
	}

	logger.Info("external reward distributed",
		"event", "staking_rewards_distributed",
		"module", "finance-core/staking-service",
		"layer", "application",
		"pool_id", poolID,
		"amount", cmd.Amount,
		"recipients", len(active),
	)
	return shares, nil
}

// SetEmergencyWithdrawalCommand flips the penalty waiver. Only an approved
// multisig operation may dispatch it.
type SetEmergencyWithdrawalCommand struct {
	Enabled       bool
	ViaGovernance bool
}

// SetEmergencyWithdrawal enables or disables penalty-free early unstaking.
func (uc StakingUseCase) SetEmergencyWithdrawal(ctx context.Context, cmd SetEmergencyWithdrawalCommand) error {
	if !cmd.ViaGovernance {
		return domainerrors.ErrNotAuthorized
	}
	if err := uc.Policy.SetEmergencyEnabled(ctx, cmd.Enabled); err != nil {
		return err
	}
	application.ResolveLogger(uc.Logger).Info("emergency withdrawal flag set",
		"event", "staking_emergency_withdrawal_set",
		"module", "finance-core/staking-service",
		"layer", "application",
		"enabled", cmd.Enabled,
	)
	return nil
}
