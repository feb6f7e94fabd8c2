package httpadapter

import (
	"context"
	"log/slog"

	"delphi/contexts/finance-core/staking-service/application/commands"
	"delphi/contexts/finance-core/staking-service/application/queries"
	"delphi/contexts/finance-core/staking-service/domain/entities"
	httptransport "delphi/contexts/finance-core/staking-service/transport/http"
)

type Handler struct {
	Staking commands.StakingUseCase
	Queries queries.StakingQueryUseCase
	Logger  *slog.Logger
}

func (h Handler) CreatePoolHandler(
	ctx context.Context,
	creator string,
	req httptransport.CreatePoolRequest,
) (httptransport.PoolResponse, error) {
	pool, err := h.Staking.CreatePool(ctx, commands.CreatePoolCommand{
		Creator:                       creator,
		LockupHours:                   req.LockupHours,
		APYPercent:                    req.APYPercent,
		MaxTotalStake:                 req.MaxTotalStake,
		MinStakeAmount:                req.MinStakeAmount,
		EarlyWithdrawalPenaltyPercent: req.EarlyWithdrawalPenaltyPercent,
	})
	if err != nil {
		return httptransport.PoolResponse{}, err
	}
	return mapPool(pool), nil
}

func (h Handler) StakeHandler(
	ctx context.Context,
	staker string,
	req httptransport.StakeRequest,
) (httptransport.PositionResponse, error) {
	position, err := h.Staking.Stake(ctx, commands.StakeCommand{
		Staker: staker,
		PoolID: req.PoolID,
		Amount: req.Amount,
	})
	if err != nil {
		return httptransport.PositionResponse{}, err
	}
	return mapPosition(req.PoolID, position), nil
}

func (h Handler) UnstakeHandler(ctx context.Context, staker, poolID string) (httptransport.UnstakeResponse, error) {
	result, err := h.Staking.Unstake(ctx, commands.UnstakeCommand{
		Staker: staker,
		PoolID: poolID,
	})
	if err != nil {
		return httptransport.UnstakeResponse{}, err
	}
	return httptransport.UnstakeResponse{
		PoolID:    poolID,
		Staker:    staker,
		Principal: result.Principal,
		Reward:    result.Reward,
		Penalty:   result.Penalty,
		Early:     result.Early,
	}, nil
}

func (h Handler) RequestWithdrawalHandler(ctx context.Context, staker, poolID string) (httptransport.PositionResponse, error) {
	position, err := h.Staking.RequestWithdrawal(ctx, commands.RequestWithdrawalCommand{
		Staker: staker,
		PoolID: poolID,
	})
	if err != nil {
		return httptransport.PositionResponse{}, err
	}
	return mapPosition(poolID, position), nil
}

func (h Handler) DistributeRewardHandler(
	ctx context.Context,
	caller string,
	req httptransport.DistributeRewardRequest,
) (httptransport.DistributeRewardResponse, error) {
	shares, err := h.Staking.DistributeExternalReward(ctx, commands.DistributeRewardCommand{
		Caller: caller,
		PoolID: req.PoolID,
		Amount: req.Amount,
	})
	if err != nil {
		return httptransport.DistributeRewardResponse{}, err
	}
	return httptransport.DistributeRewardResponse{
		PoolID:     req.PoolID,
		Amount:     req.Amount,
		Shares:     shares,
		Recipients: len(shares),
	}, nil
}

func (h Handler) PoolDetailsHandler(ctx context.Context, poolID string) (httptransport.PoolResponse, error) {
	pool, err := h.Queries.PoolDetails(ctx, poolID)
	if err != nil {
		return httptransport.PoolResponse{}, err
	}
	return mapPool(pool), nil
}

func (h Handler) PositionHandler(ctx context.Context, poolID, staker string) (httptransport.PositionResponse, error) {
	position, err := h.Queries.PositionFor(ctx, poolID, staker)
	if err != nil {
		return httptransport.PositionResponse{}, err
	}
	return mapPosition(poolID, position), nil
}

func (h Handler) CreatorPoolsHandler(ctx context.Context, creator string) (httptransport.PoolListResponse, error) {
	pools, err := h.Queries.PoolsByCreator(ctx, creator)
	if err != nil {
		return httptransport.PoolListResponse{}, err
	}
	resp := httptransport.PoolListResponse{Items: make([]httptransport.PoolResponse, 0, len(pools))}
	for _, pool := range pools {
		resp.Items = append(resp.Items, mapPool(pool))
	}
	return resp, nil
}

func (h Handler) ProjectedRewardHandler(ctx context.Context, poolID, staker string) (httptransport.ProjectedRewardResponse, error) {
	reward, err := h.Queries.ProjectedReward(ctx, poolID, staker)
	if err != nil {
		return httptransport.ProjectedRewardResponse{}, err
	}
	return httptransport.ProjectedRewardResponse{
		PoolID: poolID,
		Staker: staker,
		Reward: reward,
	}, nil
}

func mapPool(pool entities.Pool) httptransport.PoolResponse {
	return httptransport.PoolResponse{
		PoolID:                        pool.PoolID,
		Creator:                       pool.Creator,
		LockupHours:                   int(pool.LockupDuration.Hours()),
		APYPercent:                    pool.APYPercent,
		MaxTotalStake:                 pool.MaxTotalStake,
		MinStakeAmount:                pool.MinStakeAmount,
		EarlyWithdrawalPenaltyPercent: pool.EarlyWithdrawalPenaltyPercent,
		TotalStaked:                   pool.TotalStaked,
		ActivePositions:               len(pool.ActivePositions()),
		Active:                        pool.Active,
		Paused:                        pool.Paused,
		CreatedAt:                     pool.CreatedAt,
	}
}

func mapPosition(poolID string, position entities.Position) httptransport.PositionResponse {
	return httptransport.PositionResponse{
		PoolID:              poolID,
		Staker:              position.Staker,
		AmountStaked:        position.AmountStaked,
		StakedAt:            position.StakedAt,
		UnlockTime:          position.UnlockTime,
		RewardsEarned:       position.RewardsEarned,
		WithdrawalRequested: position.WithdrawalRequested,
		Active:              position.Active,
	}
}
