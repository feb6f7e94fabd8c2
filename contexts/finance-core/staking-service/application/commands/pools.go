package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "delphi/contexts/finance-core/staking-service/application"
	"delphi/contexts/finance-core/staking-service/domain/entities"
	domainerrors "delphi/contexts/finance-core/staking-service/domain/errors"
	"delphi/contexts/finance-core/staking-service/ports"
	"delphi/internal/shared/guard"
)

const (
	minLockupHours        = 1
	maxLockupHours        = 8760
	maxAPYPercent         = 50
	maxPenaltyPercent     = 50
	defaultCreatorCap     = 5
	defaultMaxStakePerTx  = 1_000_000
	defaultDailyStakeCap  = 5_000_000
	defaultGlobalPoolCap  = 100_000_000
	secondsPerYear        = 31_536_000
	rewardAccrualInterval = time.Hour
	guardPrefixPool       = "staking:"
	guardPrefixCreator    = "staking-create:"
)

// CreatePoolCommand carries the fixed terms of a new staking pool.
type CreatePoolCommand struct {
	Creator                       string
	LockupHours                   int
	APYPercent                    int64
	MaxTotalStake                 int64
	MinStakeAmount                int64
	EarlyWithdrawalPenaltyPercent int64
}

// StakingUseCase orchestrates pool lifecycle and fund movement. Every
// mutating method brackets its body with the reentrancy guard; principal
// moves through the treasury gateway, never through this service.
type StakingUseCase struct {
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

// CreatePool validates the pool terms and stores the pool. No funds move at
// creation; escrows are opened per position when stakers join.
func (uc StakingUseCase) CreatePool(ctx context.Context, cmd CreatePoolCommand) (entities.Pool, error) {
	logger := application.ResolveLogger(uc.Logger)
	creator := strings.TrimSpace(cmd.Creator)
	if creator == "" {
		return entities.Pool{}, domainerrors.ErrInvalidPoolInput
	}
	if cmd.LockupHours < minLockupHours || cmd.LockupHours > maxLockupHours {
		return entities.Pool{}, domainerrors.ErrInvalidPoolInput
	}
	if cmd.APYPercent <= 0 || cmd.APYPercent > maxAPYPercent {
		return entities.Pool{}, domainerrors.ErrInvalidPoolInput
	}
	if cmd.EarlyWithdrawalPenaltyPercent < 0 || cmd.EarlyWithdrawalPenaltyPercent > maxPenaltyPercent {
		return entities.Pool{}, domainerrors.ErrInvalidPoolInput
	}
	if cmd.MaxTotalStake <= 0 || cmd.MaxTotalStake > uc.globalPoolCap() {
		return entities.Pool{}, domainerrors.ErrInvalidPoolInput
	}
	if cmd.MinStakeAmount <= 0 || cmd.MinStakeAmount > cmd.MaxTotalStake {
		return entities.Pool{}, domainerrors.ErrInvalidPoolInput
	}

	if err := uc.Guard.Enter(guardPrefixCreator + creator); err != nil {
		return entities.Pool{}, err
	}
	defer uc.Guard.Exit(guardPrefixCreator + creator)

	paused, err := uc.Status.IsPaused(ctx)
	if err != nil {
		return entities.Pool{}, err
	}
	if paused {
		return entities.Pool{}, domainerrors.ErrSystemPaused
	}

	owned, err := uc.Pools.CountPoolsByCreator(ctx, creator)
	if err != nil {
		return entities.Pool{}, err
	}
	if owned >= uc.creatorCap() {
		logger.Warn("pool creation rate limited",
			"event", "staking_pool_rate_limited",
			"module", "finance-core/staking-service",
			"layer", "application",
			"creator", creator,
			"owned_pools", owned,
		)
		return entities.Pool{}, domainerrors.ErrRateLimitExceeded
	}

	poolID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Pool{}, err
	}
	now := uc.now()
	pool := entities.Pool{
		PoolID:                        poolID,
		Creator:                       creator,
		LockupDuration:                time.Duration(cmd.LockupHours) * time.Hour,
		APYPercent:                    cmd.APYPercent,
		MaxTotalStake:                 cmd.MaxTotalStake,
		MinStakeAmount:                cmd.MinStakeAmount,
		EarlyWithdrawalPenaltyPercent: cmd.EarlyWithdrawalPenaltyPercent,
		Active:                        true,
		CreatedAt:                     now,
		UpdatedAt:                     now,
	}
	if err := uc.Pools.SavePool(ctx, pool); err != nil {
		return entities.Pool{}, err
	}
	if err := uc.appendStakingEvent(ctx, "staking.pool_created", pool, now, map[string]any{
		"lockup_hours":    cmd.LockupHours,
		"apy_percent":     pool.APYPercent,
		"max_total_stake": pool.MaxTotalStake,
		"min_stake":       pool.MinStakeAmount,
		"penalty_percent": pool.EarlyWithdrawalPenaltyPercent,
	}); err != nil {
		return entities.Pool{}, err
	}

	logger.Info("staking pool created",
		"event", "staking_pool_created",
		"module", "finance-core/staking-service",
		"layer", "application",
		"pool_id", pool.PoolID,
		"creator", creator,
		"apy_percent", pool.APYPercent,
	)
	return pool, nil
}

func (uc StakingUseCase) creatorCap() int {
	if uc.CreatorCap <= 0 {
		return defaultCreatorCap
	}
	return uc.CreatorCap
}

func (uc StakingUseCase) maxStakePerTx() int64 {
	if uc.MaxStakePerTx <= 0 {
		return defaultMaxStakePerTx
	}
	return uc.MaxStakePerTx
}

func (uc StakingUseCase) dailyStakeCap() int64 {
	if uc.DailyStakeCap <= 0 {
		return defaultDailyStakeCap
	}
	return uc.DailyStakeCap
}

func (uc StakingUseCase) globalPoolCap() int64 {
	if uc.GlobalPoolCap <= 0 {
		return defaultGlobalPoolCap
	}
	return uc.GlobalPoolCap
}

func (uc StakingUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

// positionEscrowKey names the treasury escrow holding one position's
// principal. A staker has at most one active position per pool, so the key
// is free again once the previous position's escrow is released.
func positionEscrowKey(poolID, staker string) string {
	return "staking:" + poolID + ":" + staker
}

func (uc StakingUseCase) appendStakingEvent(
	ctx context.Context,
	eventType string,
	pool entities.Pool,
	occurredAt time.Time,
	data map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload := map[string]any{
		"pool_id":      pool.PoolID,
		"creator":      pool.Creator,
		"total_staked": pool.TotalStaked,
		"occurred_at":  occurredAt.Format(time.RFC3339),
	}
	for key, value := range data {
		payload[key] = value
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt,
		SourceService:    "staking-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "pool_id",
		PartitionKey:     pool.PoolID,
		Data:             raw,
	})
}
