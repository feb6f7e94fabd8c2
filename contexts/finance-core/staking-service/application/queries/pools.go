package queries

import (
	"context"
	"strings"
	"time"

	"delphi/contexts/finance-core/staking-service/domain/entities"
	domainerrors "delphi/contexts/finance-core/staking-service/domain/errors"
	"delphi/contexts/finance-core/staking-service/ports"
	"delphi/internal/shared/money"
)

const (
	secondsPerYear        = 31_536_000
	rewardAccrualInterval = time.Hour
)

// StakingQueryUseCase serves the read side of the staking surface.
type StakingQueryUseCase struct {
	Pools ports.PoolRepository
	Clock ports.Clock
}

func (uc StakingQueryUseCase) PoolDetails(ctx context.Context, poolID string) (entities.Pool, error) {
	return uc.Pools.GetPool(ctx, strings.TrimSpace(poolID))
}

// PositionFor returns the staker's active position in the pool.
func (uc StakingQueryUseCase) PositionFor(ctx context.Context, poolID, staker string) (entities.Position, error) {
	pool, err := uc.Pools.GetPool(ctx, strings.TrimSpace(poolID))
	if err != nil {
		return entities.Position{}, err
	}
	index := pool.ActivePositionIndex(strings.TrimSpace(staker))
	if index < 0 {
		return entities.Position{}, domainerrors.ErrPositionNotFound
	}
	return pool.Positions[index], nil
}

func (uc StakingQueryUseCase) PoolsByCreator(ctx context.Context, creator string) ([]entities.Pool, error) {
	return uc.Pools.ListPoolsByCreator(ctx, strings.TrimSpace(creator))
}

// ProjectedReward computes what the staker would be paid on top of earned
// rewards if they unstaked now. Sub-interval accrual rounds to zero the same
// way the unstake path does.
func (uc StakingQueryUseCase) ProjectedReward(ctx context.Context, poolID, staker string) (int64, error) {
	pool, err := uc.Pools.GetPool(ctx, strings.TrimSpace(poolID))
	if err != nil {
		return 0, err
	}
	index := pool.ActivePositionIndex(strings.TrimSpace(staker))
	if index < 0 {
		return 0, domainerrors.ErrPositionNotFound
	}
	position := pool.Positions[index]

	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	elapsed := now.Sub(position.LastRewardCalculation)
	if elapsed < rewardAccrualInterval {
		return 0, nil
	}
	factor, err := money.Mul(pool.APYPercent, int64(elapsed.Seconds()))
	if err != nil {
		return 0, err
	}
	return money.MulDiv(position.AmountStaked, factor, 100*secondsPerYear)
}
