package queries

import (
	"context"
	"strings"
	"time"

	"delphi/contexts/market-core/voting-engine/domain/entities"
	domainerrors "delphi/contexts/market-core/voting-engine/domain/errors"
	"delphi/contexts/market-core/voting-engine/ports"
)

type MarketQueryUseCase struct {
	Events ports.EventRepository
	Clock  ports.Clock
}

// VoterStatus is the per-user commitment/reveal view for one event.
type VoterStatus struct {
	Committed   bool
	Revealed    bool
	CommittedAt time.Time
	Stake       int64
}

// TallyView exposes reveal counts. Option counts are provisional while the
// event is unresolved and final afterwards.
type TallyView struct {
	EventID       string
	Phase         entities.Phase
	Counts        []int
	RevealCount   int
	CommitCount   int
	TotalStaked   int64
	Resolved      bool
	WinningOption int
}

func (uc MarketQueryUseCase) EventDetails(ctx context.Context, eventID string) (entities.MarketEvent, error) {
	return uc.Events.GetEvent(ctx, strings.TrimSpace(eventID))
}

func (uc MarketQueryUseCase) EventPhase(ctx context.Context, eventID string) (entities.Phase, error) {
	event, err := uc.Events.GetEvent(ctx, strings.TrimSpace(eventID))
	if err != nil {
		return "", err
	}
	return event.Phase(uc.now()), nil
}

func (uc MarketQueryUseCase) VoterStatusFor(ctx context.Context, eventID, voter string) (VoterStatus, error) {
	voter = strings.TrimSpace(voter)
	if voter == "" {
		return VoterStatus{}, domainerrors.ErrInvalidEventInput
	}
	event, err := uc.Events.GetEvent(ctx, strings.TrimSpace(eventID))
	if err != nil {
		return VoterStatus{}, err
	}
	index := event.CommitmentIndex(voter)
	if index < 0 {
		return VoterStatus{}, nil
	}
	commitment := event.Commitments[index]
	return VoterStatus{
		Committed:   true,
		Revealed:    commitment.Revealed,
		CommittedAt: commitment.CommittedAt,
		Stake:       commitment.Stake,
	}, nil
}

func (uc MarketQueryUseCase) TallyFor(ctx context.Context, eventID string) (TallyView, error) {
	event, err := uc.Events.GetEvent(ctx, strings.TrimSpace(eventID))
	if err != nil {
		return TallyView{}, err
	}
	return TallyView{
		EventID:       event.EventID,
		Phase:         event.Phase(uc.now()),
		Counts:        event.Tally(),
		RevealCount:   len(event.Reveals),
		CommitCount:   len(event.Commitments),
		TotalStaked:   event.TotalStaked,
		Resolved:      event.Resolved,
		WinningOption: event.WinningOption,
	}, nil
}

func (uc MarketQueryUseCase) EventsByCreator(ctx context.Context, creator string) ([]entities.MarketEvent, error) {
	return uc.Events.ListEventsByCreator(ctx, strings.TrimSpace(creator))
}

func (uc MarketQueryUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
