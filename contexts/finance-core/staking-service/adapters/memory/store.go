package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"delphi/contexts/finance-core/staking-service/domain/entities"
	domainerrors "delphi/contexts/finance-core/staking-service/domain/errors"
	"delphi/contexts/finance-core/staking-service/ports"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store keeps pools and outbox rows in memory. Reads hand out deep clones so
// callers never alias stored state.
type Store struct {
	mu     sync.RWMutex
	pools  map[string]entities.Pool
	order  []string
	outbox map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		pools:  make(map[string]entities.Pool),
		outbox: make(map[string]outboxRecord),
	}
}

func (s *Store) SavePool(_ context.Context, pool entities.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pools[pool.PoolID]; !exists {
		s.order = append(s.order, pool.PoolID)
	}
	s.pools[pool.PoolID] = pool.Clone()
	return nil
}

func (s *Store) GetPool(_ context.Context, poolID string) (entities.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pool, exists := s.pools[poolID]
	if !exists {
		return entities.Pool{}, domainerrors.ErrPoolNotFound
	}
	return pool.Clone(), nil
}

func (s *Store) ListPoolsByCreator(_ context.Context, creator string) ([]entities.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pools := make([]entities.Pool, 0)
	for _, poolID := range s.order {
		pool := s.pools[poolID]
		if pool.Creator == creator {
			pools = append(pools, pool.Clone())
		}
	}
	return pools, nil
}

func (s *Store) CountPoolsByCreator(_ context.Context, creator string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, pool := range s.pools {
		if pool.Creator == creator {
			count++
		}
	}
	return count, nil
}

// StakedInWindow sums the staker's principal staked at or after the window
// start, across all pools. Closed positions still count toward the window.
func (s *Store) StakedInWindow(_ context.Context, staker string, since time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := int64(0)
	for _, pool := range s.pools {
		for _, position := range pool.Positions {
			if position.Staker == staker && !position.StakedAt.Before(since) {
				total += position.AmountStaked
			}
		}
	}
	return total, nil
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

// ManualClock lets tests steer lockups and accrual deterministically.
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

// StatusFlag is an in-memory pause switch implementing ports.SystemStatus.
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

// SignerSet is a static signer directory for in-memory wiring.
type SignerSet struct {
	members map[string]struct{}
}

func NewSignerSet(addresses ...string) *SignerSet {
	members := make(map[string]struct{}, len(addresses))
	for _, address := range addresses {
		members[address] = struct{}{}
	}
	return &SignerSet{members: members}
}

func (s *SignerSet) IsSigner(_ context.Context, address string) (bool, error) {
	_, ok := s.members[address]
	return ok, nil
}

// EmergencyFlag is an in-memory withdrawal policy.
type EmergencyFlag struct {
	mu      sync.RWMutex
	enabled bool
}

func (f *EmergencyFlag) EmergencyEnabled(_ context.Context) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.enabled, nil
}

func (f *EmergencyFlag) SetEmergencyEnabled(_ context.Context, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
	return nil
}
