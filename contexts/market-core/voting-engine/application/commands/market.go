package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "delphi/contexts/market-core/voting-engine/application"
	"delphi/contexts/market-core/voting-engine/domain/entities"
	domainerrors "delphi/contexts/market-core/voting-engine/domain/errors"
	"delphi/contexts/market-core/voting-engine/ports"
	"delphi/internal/shared/guard"
	"delphi/internal/shared/rewardsplit"
)

const (
	minOptions         = 2
	maxOptions         = 10
	minPhaseHours      = 1
	maxPhaseHours      = 168
	minParticipants    = 3
	defaultCreatorCap  = 5
	defaultMaxStake    = 1_000_000
	secondsPerHour     = 3600
	guardPrefixEvent   = "market:"
	guardPrefixCreator = "market-create:"
)

// CreateEventCommand is the write-model input for market creation.
type CreateEventCommand struct {
	Creator         string
	Title           string
	Description     string
	Options         []string
	CommitHours     int
	RevealHours     int
	StakeAmount     int64
	MinParticipants int
}

// MarketUseCase orchestrates the commit-reveal lifecycle. Every mutating
// method brackets its body with the reentrancy guard and validates phase
// timing against the injected clock before touching state.
type MarketUseCase struct {
	Events     ports.EventRepository
	Treasury   ports.TreasuryGateway
	Status     ports.SystemStatus
	Signers    ports.SignerDirectory
	Outbox     ports.OutboxWriter
	Guard      *guard.Guard
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	CreatorCap int
	MaxStake   int64
	Payout     rewardsplit.Split
	Logger     *slog.Logger
}

// CreateEvent validates inputs, allocates the event's escrow sub-pool, and
// stores the event with both phase deadlines fixed from the clock.
func (uc MarketUseCase) CreateEvent(ctx context.Context, cmd CreateEventCommand) (entities.MarketEvent, error) {
	logger := application.ResolveLogger(uc.Logger)
	creator := strings.TrimSpace(cmd.Creator)
	if creator == "" || strings.TrimSpace(cmd.Title) == "" {
		return entities.MarketEvent{}, domainerrors.ErrInvalidEventInput
	}
	if len(cmd.Options) < minOptions || len(cmd.Options) > maxOptions {
		return entities.MarketEvent{}, domainerrors.ErrInvalidEventInput
	}
	for _, option := range cmd.Options {
		if strings.TrimSpace(option) == "" {
			return entities.MarketEvent{}, domainerrors.ErrInvalidEventInput
		}
	}
	if cmd.CommitHours < minPhaseHours || cmd.CommitHours > maxPhaseHours ||
		cmd.RevealHours < minPhaseHours || cmd.RevealHours > maxPhaseHours {
		return entities.MarketEvent{}, domainerrors.ErrInvalidEventInput
	}
	if cmd.StakeAmount <= 0 || cmd.StakeAmount > uc.maxStake() {
		return entities.MarketEvent{}, domainerrors.ErrInvalidEventInput
	}
	if cmd.MinParticipants < minParticipants {
		return entities.MarketEvent{}, domainerrors.ErrInvalidEventInput
	}

	if err := uc.Guard.Enter(guardPrefixCreator + creator); err != nil {
		return entities.MarketEvent{}, err
	}
	defer uc.Guard.Exit(guardPrefixCreator + creator)

	paused, err := uc.Status.IsPaused(ctx)
	if err != nil {
		return entities.MarketEvent{}, err
	}
	if paused {
		return entities.MarketEvent{}, domainerrors.ErrSystemPaused
	}

	open, err := uc.Events.CountOpenEventsByCreator(ctx, creator)
	if err != nil {
		return entities.MarketEvent{}, err
	}
	if open >= uc.creatorCap() {
		logger.Warn("market creation rate limited",
			"event", "market_create_rate_limited",
			"module", "market-core/voting-engine",
			"layer", "application",
			"creator", creator,
			"open_events", open,
		)
		return entities.MarketEvent{}, domainerrors.ErrRateLimitExceeded
	}

	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.MarketEvent{}, err
	}
	now := uc.now()
	event := entities.MarketEvent{
		EventID:         eventID,
		Creator:         creator,
		Title:           strings.TrimSpace(cmd.Title),
		Description:     strings.TrimSpace(cmd.Description),
		Options:         append([]string(nil), cmd.Options...),
		StakeAmount:     cmd.StakeAmount,
		MinParticipants: cmd.MinParticipants,
		CommitPhaseEnd:  now.Add(time.Duration(cmd.CommitHours*secondsPerHour) * time.Second),
		RevealPhaseEnd:  now.Add(time.Duration((cmd.CommitHours+cmd.RevealHours)*secondsPerHour) * time.Second),
		WinningOption:   -1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := uc.Treasury.OpenEscrow(ctx, eventID); err != nil {
		return entities.MarketEvent{}, err
	}
	if err := uc.persistEvent(ctx, event, now, marketEventSpec{
		eventType: "market.event_created",
		data: map[string]any{
			"options":          event.Options,
			"stake_amount":     event.StakeAmount,
			"commit_phase_end": event.CommitPhaseEnd.Format(time.RFC3339),
			"reveal_phase_end": event.RevealPhaseEnd.Format(time.RFC3339),
			"min_participants": event.MinParticipants,
		},
	}); err != nil {
		return entities.MarketEvent{}, err
	}

	logger.Info("market event created",
		"event", "market_event_created",
		"module", "market-core/voting-engine",
		"layer", "application",
		"market_event_id", event.EventID,
		"creator", creator,
		"options", len(event.Options),
		"stake_amount", event.StakeAmount,
	)
	return event, nil
}

func (uc MarketUseCase) creatorCap() int {
	if uc.CreatorCap <= 0 {
		return defaultCreatorCap
	}
	return uc.CreatorCap
}

func (uc MarketUseCase) maxStake() int64 {
	if uc.MaxStake <= 0 {
		return defaultMaxStake
	}
	return uc.MaxStake
}

func (uc MarketUseCase) payout() rewardsplit.Split {
	if uc.Payout == (rewardsplit.Split{}) {
		return rewardsplit.VotingPayout
	}
	return uc.Payout
}

func (uc MarketUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

// marketEventSpec names one outbox event to emit alongside a saved state
// change.
type marketEventSpec struct {
	eventType string
	data      map[string]any
}

// persistEvent saves the market event together with its outbox envelopes.
// When the repository can write both in one transaction it does; otherwise
// the envelopes are built first so only the outbox appends can trail the
// save.
func (uc MarketUseCase) persistEvent(
	ctx context.Context,
	event entities.MarketEvent,
	occurredAt time.Time,
	specs ...marketEventSpec,
) error {
	// Outbox is optional for pure read/test wiring, so nil is treated as no-op.
	if uc.Outbox == nil {
		return uc.Events.SaveEvent(ctx, event)
	}
	envelopes := make([]ports.EventEnvelope, 0, len(specs))
	for _, spec := range specs {
		envelope, err := uc.marketEnvelope(ctx, spec.eventType, event, occurredAt, spec.data)
		if err != nil {
			return err
		}
		envelopes = append(envelopes, envelope)
	}
	if tx, ok := uc.Events.(ports.TransactionalEventRepository); ok {
		return tx.SaveEventAndOutbox(ctx, event, envelopes)
	}
	if err := uc.Events.SaveEvent(ctx, event); err != nil {
		return err
	}
	for _, envelope := range envelopes {
		if err := uc.Outbox.AppendOutbox(ctx, envelope); err != nil {
			return err
		}
	}
	return nil
}

func (uc MarketUseCase) marketEnvelope(
	ctx context.Context,
	eventType string,
	event entities.MarketEvent,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	payload := map[string]any{
		"market_event_id": event.EventID,
		"creator":         event.Creator,
		"total_staked":    event.TotalStaked,
		"resolved":        event.Resolved,
		"occurred_at":     occurredAt.Format(time.RFC3339),
	}
	for key, value := range data {
		payload[key] = value
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt,
		SourceService:    "voting-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "market_event_id",
		PartitionKey:     event.EventID,
		Data:             raw,
	}, nil
}
