package commands

import (
	"context"
	"strings"

	application "delphi/contexts/market-core/voting-engine/application"
	"delphi/contexts/market-core/voting-engine/domain/entities"
	domainerrors "delphi/contexts/market-core/voting-engine/domain/errors"
	"delphi/contexts/market-core/voting-engine/ports"
	"delphi/internal/shared/rewardsplit"
)

// ResolveEventCommand finalizes a market after the reveal phase.
// ViaGovernance marks calls dispatched by an approved multisig operation,
// which already carries its own authorization.
type ResolveEventCommand struct {
	Resolver      string
	EventID       string
	ViaGovernance bool
}

// ResolveResult reports the winning option and the applied payout.
type ResolveResult struct {
	Event    entities.MarketEvent
	Tally    []int
	Winners  []string
	Platform int64
	PerShare int64
}

// ResolveEvent tallies reveals, determines the winner (strictly greatest
// count, ties to the lowest index), and releases the event escrow through the
// reward split. The whole payout either applies or rolls back with the event
// left unresolved.
func (uc MarketUseCase) ResolveEvent(ctx context.Context, cmd ResolveEventCommand) (ResolveResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	eventID := strings.TrimSpace(cmd.EventID)
	if eventID == "" {
		return ResolveResult{}, domainerrors.ErrInvalidEventInput
	}
	if !cmd.ViaGovernance {
		authorized, err := uc.Signers.IsSigner(ctx, strings.TrimSpace(cmd.Resolver))
		if err != nil {
			return ResolveResult{}, err
		}
		if !authorized {
			return ResolveResult{}, domainerrors.ErrNotAuthorized
		}
	}

	if err := uc.Guard.Enter(guardPrefixEvent + eventID); err != nil {
		return ResolveResult{}, err
	}
	defer uc.Guard.Exit(guardPrefixEvent + eventID)

	event, err := uc.Events.GetEvent(ctx, eventID)
	if err != nil {
		return ResolveResult{}, err
	}
	now := uc.now()
	if now.Before(event.RevealPhaseEnd) {
		return ResolveResult{}, domainerrors.ErrVotingNotEnded
	}
	if event.Resolved {
		return ResolveResult{}, domainerrors.ErrAlreadyResolved
	}
	if len(event.Reveals) < event.MinParticipants {
		return ResolveResult{}, domainerrors.ErrInsufficientParticipants
	}

	winner := event.WinnerIndex()
	winners := event.WinningVoters(winner)
	dist, err := rewardsplit.Distribute(event.TotalStaked, uc.payout(), winners, event.Creator)
	if err != nil {
		return ResolveResult{}, err
	}

	payout := ports.EscrowPayout{Platform: dist.Platform}
	for _, share := range dist.Winners {
		payout.Accounts = append(payout.Accounts, ports.AccountCredit{
			Account: share.Recipient,
			Amount:  share.Amount,
		})
	}
	if dist.Creator.Amount > 0 {
		payout.Accounts = append(payout.Accounts, ports.AccountCredit{
			Account: dist.Creator.Recipient,
			Amount:  dist.Creator.Amount,
		})
	}
	if err := uc.Treasury.ReleaseEscrow(ctx, eventID, payout); err != nil {
		logger.Error("escrow release failed during resolution",
			"event", "market_resolve_escrow_failed",
			"module", "market-core/voting-engine",
			"layer", "application",
			"market_event_id", eventID,
			"error", err.Error(),
		)
		return ResolveResult{}, err
	}

	event.WinningOption = winner
	event.Resolved = true
	event.UpdatedAt = now
	tally := event.Tally()
	perShare := int64(0)
	if len(dist.Winners) > 0 {
		perShare = dist.Winners[0].Amount
	}
	if err := uc.persistEvent(ctx, event, now,
		marketEventSpec{
			eventType: "market.event_resolved",
			data: map[string]any{
				"winning_option": winner,
				"tally":          tally,
				"reveal_count":   len(event.Reveals),
			},
		},
		marketEventSpec{
			eventType: "market.rewards_distributed",
			data: map[string]any{
				"winner_count":     len(winners),
				"per_winner_share": perShare,
				"platform_amount":  dist.Platform,
			},
		},
	); err != nil {
		return ResolveResult{}, err
	}

	logger.Info("market event resolved",
		"event", "market_event_resolved",
		"module", "market-core/voting-engine",
		"layer", "application",
		"market_event_id", eventID,
		"winning_option", winner,
		"winner_count", len(winners),
		"platform_amount", dist.Platform,
	)
	return ResolveResult{
		Event:    event,
		Tally:    tally,
		Winners:  winners,
		Platform: dist.Platform,
		PerShare: perShare,
	}, nil
}

// CancelEventCommand refunds a market that ended without enough revealed
// participants.
type CancelEventCommand struct {
	Canceller     string
	EventID       string
	ViaGovernance bool
}

// CancelEvent refunds every committed voter their stake when the reveal phase
// ended below the participation minimum, then closes the event with no
// winner. Funds never strand in escrow.
func (uc MarketUseCase) CancelEvent(ctx context.Context, cmd CancelEventCommand) (entities.MarketEvent, error) {
	logger := application.ResolveLogger(uc.Logger)
	eventID := strings.TrimSpace(cmd.EventID)
	if eventID == "" {
		return entities.MarketEvent{}, domainerrors.ErrInvalidEventInput
	}
	if !cmd.ViaGovernance {
		authorized, err := uc.Signers.IsSigner(ctx, strings.TrimSpace(cmd.Canceller))
		if err != nil {
			return entities.MarketEvent{}, err
		}
		if !authorized {
			return entities.MarketEvent{}, domainerrors.ErrNotAuthorized
		}
	}

	if err := uc.Guard.Enter(guardPrefixEvent + eventID); err != nil {
		return entities.MarketEvent{}, err
	}
	defer uc.Guard.Exit(guardPrefixEvent + eventID)

	event, err := uc.Events.GetEvent(ctx, eventID)
	if err != nil {
		return entities.MarketEvent{}, err
	}
	now := uc.now()
	if now.Before(event.RevealPhaseEnd) {
		return entities.MarketEvent{}, domainerrors.ErrVotingNotEnded
	}
	if event.Resolved {
		return entities.MarketEvent{}, domainerrors.ErrAlreadyResolved
	}
	if len(event.Reveals) >= event.MinParticipants {
		// A quorate market must resolve, not cancel.
		return entities.MarketEvent{}, domainerrors.ErrInvalidEventInput
	}

	payout := ports.EscrowPayout{}
	for _, commitment := range event.Commitments {
		payout.Accounts = append(payout.Accounts, ports.AccountCredit{
			Account: commitment.Voter,
			Amount:  commitment.Stake,
		})
	}
	if err := uc.Treasury.ReleaseEscrow(ctx, eventID, payout); err != nil {
		return entities.MarketEvent{}, err
	}

	event.Resolved = true
	event.UpdatedAt = now
	if err := uc.persistEvent(ctx, event, now, marketEventSpec{
		eventType: "market.event_cancelled",
		data: map[string]any{
			"refunded_voters": len(event.Commitments),
			"reveal_count":    len(event.Reveals),
		},
	}); err != nil {
		return entities.MarketEvent{}, err
	}

	logger.Info("market event cancelled and refunded",
		"event", "market_event_cancelled",
		"module", "market-core/voting-engine",
		"layer", "application",
		"market_event_id", eventID,
		"refunded_voters", len(event.Commitments),
	)
	return event, nil
}
