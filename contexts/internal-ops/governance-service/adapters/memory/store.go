package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"delphi/contexts/internal-ops/governance-service/domain/entities"
	domainerrors "delphi/contexts/internal-ops/governance-service/domain/errors"
	"delphi/contexts/internal-ops/governance-service/ports"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store keeps the council, pending operations, and outbox rows in memory.
// Reads hand out deep clones so callers never alias stored state.
type Store struct {
	mu         sync.RWMutex
	council    entities.Council
	operations map[string]entities.PendingOperation
	order      []string
	outbox     map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		operations: make(map[string]entities.PendingOperation),
		outbox:     make(map[string]outboxRecord),
	}
}

func (s *Store) LoadCouncil(_ context.Context) (entities.Council, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.council.Clone(), nil
}

func (s *Store) SaveCouncil(_ context.Context, council entities.Council) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.council = council.Clone()
	return nil
}

func (s *Store) SaveOperation(_ context.Context, op entities.PendingOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.operations[op.OperationID]; !exists {
		s.order = append(s.order, op.OperationID)
	}
	s.operations[op.OperationID] = op.Clone()
	return nil
}

func (s *Store) GetOperation(_ context.Context, operationID string) (entities.PendingOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, exists := s.operations[operationID]
	if !exists {
		return entities.PendingOperation{}, domainerrors.ErrOperationNotFound
	}
	return op.Clone(), nil
}

func (s *Store) DeleteOperation(_ context.Context, operationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.operations[operationID]; !exists {
		return nil
	}
	delete(s.operations, operationID)
	for i, id := range s.order {
		if id == operationID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) ListOperations(_ context.Context) ([]entities.PendingOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ops := make([]entities.PendingOperation, 0, len(s.order))
	for _, id := range s.order {
		ops = append(ops, s.operations[id].Clone())
	}
	return ops, nil
}

func (s *Store) CountOperations(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.operations), nil
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

func (s *Store) PendingOutboxCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, record := range s.outbox {
		if !record.published {
			count++
		}
	}
	return count
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ManualClock lets tests steer operation expiry deterministically.
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

// PauseFlag is the in-memory platform pause switch. The governance module
// writes it; bootstrap hands the same instance to voting and staking as
// their SystemStatus.
type PauseFlag struct {
	mu     sync.RWMutex
	paused bool
}

func (f *PauseFlag) SetPaused(_ context.Context, paused bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = paused
	return nil
}

func (f *PauseFlag) IsPaused(_ context.Context) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.paused, nil
}
