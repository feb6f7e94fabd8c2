package commands

import (
	"context"
	"crypto/subtle"
	"strings"

	application "delphi/contexts/market-core/voting-engine/application"
	"delphi/contexts/market-core/voting-engine/domain/entities"
	domainerrors "delphi/contexts/market-core/voting-engine/domain/errors"
)

// RevealVoteCommand discloses the committed option and salt.
type RevealVoteCommand struct {
	Voter       string
	EventID     string
	OptionIndex int
	Salt        []byte
}

// RevealVote verifies the disclosed (option, salt) pair against the stored
// commitment digest and records the reveal. Each commitment can be revealed
// exactly once.
func (uc MarketUseCase) RevealVote(ctx context.Context, cmd RevealVoteCommand) (entities.Reveal, error) {
	logger := application.ResolveLogger(uc.Logger)
	voter := strings.TrimSpace(cmd.Voter)
	eventID := strings.TrimSpace(cmd.EventID)
	if voter == "" || eventID == "" {
		return entities.Reveal{}, domainerrors.ErrInvalidEventInput
	}
	if len(cmd.Salt) != entities.SaltLength {
		return entities.Reveal{}, domainerrors.ErrMalformedSalt
	}

	if err := uc.Guard.Enter(guardPrefixEvent + eventID); err != nil {
		return entities.Reveal{}, err
	}
	defer uc.Guard.Exit(guardPrefixEvent + eventID)

	event, err := uc.Events.GetEvent(ctx, eventID)
	if err != nil {
		return entities.Reveal{}, err
	}
	now := uc.now()
	if now.Before(event.CommitPhaseEnd) {
		return entities.Reveal{}, domainerrors.ErrCommitPhaseOpen
	}
	if !now.Before(event.RevealPhaseEnd) {
		return entities.Reveal{}, domainerrors.ErrRevealPhaseClosed
	}
	if cmd.OptionIndex < 0 || cmd.OptionIndex >= len(event.Options) {
		return entities.Reveal{}, domainerrors.ErrOptionOutOfRange
	}

	index := event.CommitmentIndex(voter)
	if index < 0 || event.Commitments[index].Revealed {
		return entities.Reveal{}, domainerrors.ErrNotCommitted
	}
	commitment := event.Commitments[index]

	expected := entities.ComputeDigest(cmd.OptionIndex, cmd.Salt, commitment.Nonce)
	if subtle.ConstantTimeCompare(expected, commitment.Digest) != 1 {
		logger.Warn("reveal digest mismatch",
			"event", "market_reveal_rejected",
			"module", "market-core/voting-engine",
			"layer", "application",
			"market_event_id", eventID,
			"voter", voter,
		)
		return entities.Reveal{}, domainerrors.ErrInvalidReveal
	}

	reveal := entities.Reveal{
		Voter:       voter,
		OptionIndex: cmd.OptionIndex,
		Salt:        append([]byte(nil), cmd.Salt...),
		Digest:      append([]byte(nil), commitment.Digest...),
		RevealedAt:  now,
	}
	event.Commitments[index].Revealed = true
	event.Reveals = append(event.Reveals, reveal)
	event.UpdatedAt = now
	if err := uc.persistEvent(ctx, event, now, marketEventSpec{
		eventType: "market.vote_revealed",
		data: map[string]any{
			"voter":        voter,
			"option_index": cmd.OptionIndex,
			"reveal_count": len(event.Reveals),
		},
	}); err != nil {
		return entities.Reveal{}, err
	}

	logger.Info("vote revealed",
		"event", "market_vote_revealed",
		"module", "market-core/voting-engine",
		"layer", "application",
		"market_event_id", eventID,
		"voter", voter,
		"option_index", cmd.OptionIndex,
	)
	return reveal, nil
}
