package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"delphi/contexts/market-core/voting-engine/domain/entities"
	domainerrors "delphi/contexts/market-core/voting-engine/domain/errors"
	"delphi/contexts/market-core/voting-engine/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type Store struct {
	mu     sync.RWMutex
	events map[string]entities.MarketEvent
	order  []string
	outbox map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		events: make(map[string]entities.MarketEvent),
		outbox: make(map[string]outboxRecord),
	}
}

func cloneEvent(event entities.MarketEvent) entities.MarketEvent {
	out := event
	out.Options = append([]string(nil), event.Options...)
	out.Commitments = make([]entities.Commitment, len(event.Commitments))
	for i, commitment := range event.Commitments {
		commitment.Digest = append([]byte(nil), commitment.Digest...)
		commitment.Nonce = append([]byte(nil), commitment.Nonce...)
		out.Commitments[i] = commitment
	}
	out.Reveals = make([]entities.Reveal, len(event.Reveals))
	for i, reveal := range event.Reveals {
		reveal.Salt = append([]byte(nil), reveal.Salt...)
		reveal.Digest = append([]byte(nil), reveal.Digest...)
		out.Reveals[i] = reveal
	}
	return out
}

func (s *Store) SaveEvent(_ context.Context, event entities.MarketEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(event.EventID)
	if _, exists := s.events[id]; !exists {
		s.order = append(s.order, id)
	}
	s.events[id] = cloneEvent(event)
	return nil
}

func (s *Store) GetEvent(_ context.Context, eventID string) (entities.MarketEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[strings.TrimSpace(eventID)]
	if !ok {
		return entities.MarketEvent{}, domainerrors.ErrEventNotFound
	}
	return cloneEvent(event), nil
}

func (s *Store) ListEventsByCreator(_ context.Context, creator string) ([]entities.MarketEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var events []entities.MarketEvent
	for _, id := range s.order {
		event := s.events[id]
		if creator == "" || event.Creator == creator {
			events = append(events, cloneEvent(event))
		}
	}
	return events, nil
}

func (s *Store) CountOpenEventsByCreator(_ context.Context, creator string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, event := range s.events {
		if event.Creator == creator && !event.Resolved {
			count++
		}
	}
	return count, nil
}

func (s *Store) AppendOutbox(_ context.Context, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox[event.EventID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:  event.EventID,
			EventType: event.EventType,
			Payload:   payload,
			Status:    "pending",
			CreatedAt: event.OccurredAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []ports.OutboxMessage
	for _, record := range s.outbox {
		if !record.published {
			pending = append(pending, record.message)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.outbox[outboxID]
	if !ok {
		return nil
	}
	record.published = true
	record.message.Status = "published"
	s.outbox[outboxID] = record
	return nil
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ManualClock lets tests steer phase deadlines deterministically.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start.UTC()}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// StatusFlag is an in-memory pause switch for wiring without governance.
type StatusFlag struct {
	mu     sync.RWMutex
	paused bool
}

func (f *StatusFlag) SetPaused(paused bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = paused
}

func (f *StatusFlag) IsPaused(_ context.Context) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.paused, nil
}

// SignerSet is an in-memory signer directory.
type SignerSet struct {
	mu      sync.RWMutex
	signers map[string]bool
}

func NewSignerSet(addresses ...string) *SignerSet {
	signers := make(map[string]bool, len(addresses))
	for _, address := range addresses {
		signers[strings.TrimSpace(address)] = true
	}
	return &SignerSet{signers: signers}
}

func (s *SignerSet) IsSigner(_ context.Context, address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signers[strings.TrimSpace(address)], nil
}
