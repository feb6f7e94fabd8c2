package bootstrap

import (
	"context"
	"errors"

	stakingcommands "delphi/contexts/finance-core/staking-service/application/commands"
	stakingdomainerrors "delphi/contexts/finance-core/staking-service/domain/errors"
	stakingports "delphi/contexts/finance-core/staking-service/ports"
	treasuryapp "delphi/contexts/finance-core/treasury-service/application"
	treasuryentities "delphi/contexts/finance-core/treasury-service/domain/entities"
	treasurydomainerrors "delphi/contexts/finance-core/treasury-service/domain/errors"
	treasuryports "delphi/contexts/finance-core/treasury-service/ports"
	governanceports "delphi/contexts/internal-ops/governance-service/ports"
	marketcommands "delphi/contexts/market-core/voting-engine/application/commands"
	marketports "delphi/contexts/market-core/voting-engine/ports"
	"delphi/internal/shared/events"
	"delphi/internal/shared/money"
)

// The adapters below are the only cross-context seams. Each one wraps a
// module's public use case behind the calling module's port so context code
// never imports another context.

// marketTreasuryGateway custodies market stakes in the treasury ledger.
// The platform remainder of a payout lands in the operational pool.
type marketTreasuryGateway struct {
	treasury treasuryapp.Service
}

func (g marketTreasuryGateway) OpenEscrow(ctx context.Context, key string) error {
	return g.treasury.OpenEscrow(ctx, key)
}

func (g marketTreasuryGateway) FundEscrow(ctx context.Context, account, key string, amount int64) error {
	return g.treasury.FundEscrow(ctx, account, key, amount)
}

func (g marketTreasuryGateway) ReleaseEscrow(ctx context.Context, key string, payout marketports.EscrowPayout) error {
	credits := make([]treasuryapp.EscrowCredit, 0, len(payout.Accounts)+1)
	for _, credit := range payout.Accounts {
		credits = append(credits, treasuryapp.EscrowCredit{
			Account: credit.Account,
			Amount:  credit.Amount,
		})
	}
	if payout.Platform > 0 {
		credits = append(credits, treasuryapp.EscrowCredit{
			Pool:   treasuryentities.PoolOperational,
			Amount: payout.Platform,
		})
	}
	return g.treasury.ReleaseEscrow(ctx, key, credits)
}

// stakingTreasuryGateway custodies staking principal in per-position escrows
// and pays rewards from the reward reserve.
type stakingTreasuryGateway struct {
	treasury treasuryapp.Service
}

func (g stakingTreasuryGateway) OpenEscrow(ctx context.Context, key string) error {
	return g.treasury.OpenEscrow(ctx, key)
}

func (g stakingTreasuryGateway) FundEscrow(ctx context.Context, account, key string, amount int64) error {
	return g.treasury.FundEscrow(ctx, account, key, amount)
}

func (g stakingTreasuryGateway) ReleaseEscrow(ctx context.Context, key string, credits []stakingports.EscrowCredit) error {
	mapped := make([]treasuryapp.EscrowCredit, 0, len(credits))
	for _, credit := range credits {
		mapped = append(mapped, treasuryapp.EscrowCredit{
			Account: credit.Account,
			Pool:    treasuryentities.Pool(credit.Pool),
			Amount:  credit.Amount,
		})
	}
	return g.treasury.ReleaseEscrow(ctx, key, mapped)
}

func (g stakingTreasuryGateway) PayRewards(ctx context.Context, payouts []stakingports.RewardPayout) error {
	var total int64
	for _, payout := range payouts {
		sum, err := money.Add(total, payout.Amount)
		if err != nil {
			return err
		}
		total = sum
	}

	// Refuse the whole batch up front when the reserve cannot cover it, so
	// a mid-batch shortfall never leaves a partial distribution behind.
	balances, err := g.treasury.Balances(ctx)
	if err != nil {
		return err
	}
	if balances.Pools[treasuryentities.PoolRewardReserve] < total {
		return stakingdomainerrors.ErrInsufficientTreasury
	}

	for _, payout := range payouts {
		err := g.treasury.PayFromPool(ctx, treasuryentities.PoolRewardReserve, payout.Account, payout.Amount)
		if errors.Is(err, treasurydomainerrors.ErrInsufficientPoolBalance) {
			return stakingdomainerrors.ErrInsufficientTreasury
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// councilDirectory answers signer checks for voting and staking from the
// governance council. An uninitialized council has no signers.
type councilDirectory struct {
	council governanceports.CouncilRepository
}

func (d councilDirectory) IsSigner(ctx context.Context, address string) (bool, error) {
	council, err := d.council.LoadCouncil(ctx)
	if err != nil {
		return false, err
	}
	if !council.Initialized {
		return false, nil
	}
	return council.IsSigner(address), nil
}

// Governance executors dispatch approved multisig operations into the other
// contexts. ViaGovernance marks the call as pre-authorized.

type marketResolver struct {
	markets marketcommands.MarketUseCase
}

func (r marketResolver) ResolveMarket(ctx context.Context, eventID string) error {
	_, err := r.markets.ResolveEvent(ctx, marketcommands.ResolveEventCommand{
		EventID:       eventID,
		ViaGovernance: true,
	})
	return err
}

type treasuryAdmin struct {
	treasury treasuryapp.Service
}

func (a treasuryAdmin) WithdrawFromPool(ctx context.Context, pool, recipient string, amount int64) error {
	return a.treasury.PayFromPool(ctx, treasuryentities.Pool(pool), recipient, amount)
}

func (a treasuryAdmin) TransferBetweenPools(ctx context.Context, from, to string, amount int64) error {
	return a.treasury.TransferBetweenPools(ctx, treasuryentities.Pool(from), treasuryentities.Pool(to), amount)
}

type stakingAdmin struct {
	staking stakingcommands.StakingUseCase
}

func (a stakingAdmin) SetEmergencyWithdrawal(ctx context.Context, enabled bool) error {
	return a.staking.SetEmergencyWithdrawal(ctx, stakingcommands.SetEmergencyWithdrawalCommand{
		Enabled:       enabled,
		ViaGovernance: true,
	})
}

// Per-context publisher adapters put outbox envelopes on the shared bus. The
// context envelope types share the canonical envelope's underlying struct, so
// each adapter is a plain conversion.

type busPublisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}

type marketPublisher struct {
	bus busPublisher
}

func (p marketPublisher) Publish(ctx context.Context, topic string, event marketports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, events.Envelope(event))
}

type treasuryPublisher struct {
	bus busPublisher
}

func (p treasuryPublisher) Publish(ctx context.Context, topic string, event treasuryports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, events.Envelope(event))
}

type stakingPublisher struct {
	bus busPublisher
}

func (p stakingPublisher) Publish(ctx context.Context, topic string, event stakingports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, events.Envelope(event))
}

type governancePublisher struct {
	bus busPublisher
}

func (p governancePublisher) Publish(ctx context.Context, topic string, event governanceports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, events.Envelope(event))
}
