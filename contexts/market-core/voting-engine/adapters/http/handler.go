package httpadapter

import (
	"context"
	"encoding/hex"
	"log/slog"
	"time"

	"delphi/contexts/market-core/voting-engine/application/commands"
	"delphi/contexts/market-core/voting-engine/application/queries"
	"delphi/contexts/market-core/voting-engine/domain/entities"
	domainerrors "delphi/contexts/market-core/voting-engine/domain/errors"
	httptransport "delphi/contexts/market-core/voting-engine/transport/http"
)

type Handler struct {
	Markets commands.MarketUseCase
	Queries queries.MarketQueryUseCase
	Logger  *slog.Logger
}

func (h Handler) CreateEventHandler(
	ctx context.Context,
	creator string,
	req httptransport.CreateEventRequest,
) (httptransport.EventResponse, error) {
	event, err := h.Markets.CreateEvent(ctx, commands.CreateEventCommand{
		Creator:         creator,
		Title:           req.Title,
		Description:     req.Description,
		Options:         req.Options,
		CommitHours:     req.CommitHours,
		RevealHours:     req.RevealHours,
		StakeAmount:     req.StakeAmount,
		MinParticipants: req.MinParticipants,
	})
	if err != nil {
		return httptransport.EventResponse{}, err
	}
	return mapEvent(event, entities.PhaseCommit), nil
}

func (h Handler) PlaceCommitmentHandler(
	ctx context.Context,
	voter string,
	req httptransport.PlaceCommitmentRequest,
) (httptransport.CommitmentResponse, error) {
	digest, err := hex.DecodeString(req.Digest)
	if err != nil {
		return httptransport.CommitmentResponse{}, domainerrors.ErrMalformedDigest
	}
	nonce, err := hex.DecodeString(req.Nonce)
	if err != nil {
		return httptransport.CommitmentResponse{}, domainerrors.ErrMalformedNonce
	}
	commitment, err := h.Markets.PlaceCommitment(ctx, commands.PlaceCommitmentCommand{
		Voter:   voter,
		EventID: req.EventID,
		Digest:  digest,
		Stake:   req.Stake,
		Nonce:   nonce,
	})
	if err != nil {
		return httptransport.CommitmentResponse{}, err
	}
	return httptransport.CommitmentResponse{
		EventID:     req.EventID,
		Voter:       commitment.Voter,
		Stake:       commitment.Stake,
		CommittedAt: commitment.CommittedAt,
	}, nil
}

func (h Handler) RevealVoteHandler(
	ctx context.Context,
	voter string,
	req httptransport.RevealVoteRequest,
) (httptransport.RevealResponse, error) {
	salt, err := hex.DecodeString(req.Salt)
	if err != nil {
		return httptransport.RevealResponse{}, domainerrors.ErrMalformedSalt
	}
	reveal, err := h.Markets.RevealVote(ctx, commands.RevealVoteCommand{
		Voter:       voter,
		EventID:     req.EventID,
		OptionIndex: req.OptionIndex,
		Salt:        salt,
	})
	if err != nil {
		return httptransport.RevealResponse{}, err
	}
	return httptransport.RevealResponse{
		EventID:     req.EventID,
		Voter:       reveal.Voter,
		OptionIndex: reveal.OptionIndex,
		RevealedAt:  reveal.RevealedAt,
	}, nil
}

func (h Handler) ResolveEventHandler(ctx context.Context, resolver, eventID string) (httptransport.ResolveResponse, error) {
	result, err := h.Markets.ResolveEvent(ctx, commands.ResolveEventCommand{
		Resolver: resolver,
		EventID:  eventID,
	})
	if err != nil {
		return httptransport.ResolveResponse{}, err
	}
	return httptransport.ResolveResponse{
		EventID:        eventID,
		WinningOption:  result.Event.WinningOption,
		Tally:          result.Tally,
		Winners:        result.Winners,
		PerWinnerShare: result.PerShare,
		PlatformAmount: result.Platform,
	}, nil
}

func (h Handler) CancelEventHandler(ctx context.Context, canceller, eventID string) error {
	_, err := h.Markets.CancelEvent(ctx, commands.CancelEventCommand{
		Canceller: canceller,
		EventID:   eventID,
	})
	return err
}

func (h Handler) EventDetailsHandler(ctx context.Context, eventID string) (httptransport.EventResponse, error) {
	event, err := h.Queries.EventDetails(ctx, eventID)
	if err != nil {
		return httptransport.EventResponse{}, err
	}
	phase, err := h.Queries.EventPhase(ctx, eventID)
	if err != nil {
		return httptransport.EventResponse{}, err
	}
	return mapEvent(event, phase), nil
}

func (h Handler) VoterStatusHandler(ctx context.Context, eventID, voter string) (httptransport.VoterStatusResponse, error) {
	status, err := h.Queries.VoterStatusFor(ctx, eventID, voter)
	if err != nil {
		return httptransport.VoterStatusResponse{}, err
	}
	return httptransport.VoterStatusResponse{
		EventID:   eventID,
		Voter:     voter,
		Committed: status.Committed,
		Revealed:  status.Revealed,
		Stake:     status.Stake,
	}, nil
}

func (h Handler) TallyHandler(ctx context.Context, eventID string) (httptransport.TallyResponse, error) {
	tally, err := h.Queries.TallyFor(ctx, eventID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return httptransport.TallyResponse{
		EventID:       tally.EventID,
		Phase:         string(tally.Phase),
		Counts:        tally.Counts,
		RevealCount:   tally.RevealCount,
		CommitCount:   tally.CommitCount,
		TotalStaked:   tally.TotalStaked,
		Resolved:      tally.Resolved,
		WinningOption: tally.WinningOption,
	}, nil
}

func (h Handler) CreatorEventsHandler(ctx context.Context, creator string) (httptransport.EventListResponse, error) {
	events, err := h.Queries.EventsByCreator(ctx, creator)
	if err != nil {
		return httptransport.EventListResponse{}, err
	}
	items := make([]httptransport.EventResponse, 0, len(events))
	now := time.Now().UTC()
	for _, event := range events {
		items = append(items, mapEvent(event, event.Phase(now)))
	}
	return httptransport.EventListResponse{Items: items}, nil
}

func mapEvent(event entities.MarketEvent, phase entities.Phase) httptransport.EventResponse {
	return httptransport.EventResponse{
		EventID:         event.EventID,
		Creator:         event.Creator,
		Title:           event.Title,
		Description:     event.Description,
		Options:         event.Options,
		StakeAmount:     event.StakeAmount,
		TotalStaked:     event.TotalStaked,
		MinParticipants: event.MinParticipants,
		CommitPhaseEnd:  event.CommitPhaseEnd,
		RevealPhaseEnd:  event.RevealPhaseEnd,
		Phase:           string(phase),
		Resolved:        event.Resolved,
		WinningOption:   event.WinningOption,
	}
}
