package commands

import (
	"context"
	"strings"

	application "delphi/contexts/market-core/voting-engine/application"
	"delphi/contexts/market-core/voting-engine/domain/entities"
	domainerrors "delphi/contexts/market-core/voting-engine/domain/errors"
	"delphi/internal/shared/money"
)

// PlaceCommitmentCommand carries a voter's hidden choice digest and stake.
type PlaceCommitmentCommand struct {
	Voter   string
	EventID string
	Digest  []byte
	Stake   int64
	Nonce   []byte
}

// PlaceCommitment escrows the voter's stake and records the commitment.
// The stake is debited from the voter's custody account and credited to both
// the staking pool and the event escrow in one treasury call.
func (uc MarketUseCase) PlaceCommitment(ctx context.Context, cmd PlaceCommitmentCommand) (entities.Commitment, error) {
	logger := application.ResolveLogger(uc.Logger)
	voter := strings.TrimSpace(cmd.Voter)
	eventID := strings.TrimSpace(cmd.EventID)
	if voter == "" || eventID == "" {
		return entities.Commitment{}, domainerrors.ErrInvalidEventInput
	}
	if len(cmd.Digest) != entities.DigestLength {
		return entities.Commitment{}, domainerrors.ErrMalformedDigest
	}
	if len(cmd.Nonce) != entities.NonceLength {
		return entities.Commitment{}, domainerrors.ErrMalformedNonce
	}

	if err := uc.Guard.Enter(guardPrefixEvent + eventID); err != nil {
		return entities.Commitment{}, err
	}
	defer uc.Guard.Exit(guardPrefixEvent + eventID)

	event, err := uc.Events.GetEvent(ctx, eventID)
	if err != nil {
		return entities.Commitment{}, err
	}
	now := uc.now()
	if !now.Before(event.CommitPhaseEnd) {
		return entities.Commitment{}, domainerrors.ErrCommitPhaseClosed
	}
	if event.CommitmentIndex(voter) >= 0 {
		return entities.Commitment{}, domainerrors.ErrAlreadyCommitted
	}
	if cmd.Stake != event.StakeAmount {
		return entities.Commitment{}, domainerrors.ErrInvalidStake
	}

	totalStaked, err := money.Add(event.TotalStaked, cmd.Stake)
	if err != nil {
		return entities.Commitment{}, err
	}
	if err := uc.Treasury.FundEscrow(ctx, voter, eventID, cmd.Stake); err != nil {
		logger.Warn("commitment stake escrow failed",
			"event", "market_commitment_escrow_failed",
			"module", "market-core/voting-engine",
			"layer", "application",
			"market_event_id", eventID,
			"voter", voter,
			"error", err.Error(),
		)
		return entities.Commitment{}, err
	}

	commitment := entities.Commitment{
		Voter:       voter,
		Digest:      append([]byte(nil), cmd.Digest...),
		Stake:       cmd.Stake,
		Nonce:       append([]byte(nil), cmd.Nonce...),
		CommittedAt: now,
	}
	event.Commitments = append(event.Commitments, commitment)
	event.TotalStaked = totalStaked
	event.UpdatedAt = now
	if err := uc.persistEvent(ctx, event, now, marketEventSpec{
		eventType: "market.commitment_placed",
		data: map[string]any{
			"voter": voter,
			"stake": cmd.Stake,
		},
	}); err != nil {
		return entities.Commitment{}, err
	}

	logger.Info("commitment placed",
		"event", "market_commitment_placed",
		"module", "market-core/voting-engine",
		"layer", "application",
		"market_event_id", eventID,
		"voter", voter,
		"stake", cmd.Stake,
		"total_staked", event.TotalStaked,
	)
	return commitment, nil
}
