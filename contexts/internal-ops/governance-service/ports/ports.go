package ports

import (
	"context"
	"encoding/json"
	"time"

	"delphi/contexts/internal-ops/governance-service/domain/entities"
)

// CouncilRepository persists the singleton signer configuration.
type CouncilRepository interface {
	LoadCouncil(ctx context.Context) (entities.Council, error)
	SaveCouncil(ctx context.Context, council entities.Council) error
}

// OperationRepository persists pending operations. Delete is the only way an
// operation leaves the store, whether executed, failed, or expired.
type OperationRepository interface {
	SaveOperation(ctx context.Context, op entities.PendingOperation) error
	GetOperation(ctx context.Context, operationID string) (entities.PendingOperation, error)
	DeleteOperation(ctx context.Context, operationID string) error
	ListOperations(ctx context.Context) ([]entities.PendingOperation, error)
	CountOperations(ctx context.Context) (int, error)
}

// MarketResolver dispatches approved market operations into the voting
// engine.
type MarketResolver interface {
	ResolveMarket(ctx context.Context, eventID string) error
}

// TreasuryAdmin dispatches approved treasury movements.
type TreasuryAdmin interface {
	WithdrawFromPool(ctx context.Context, pool, recipient string, amount int64) error
	TransferBetweenPools(ctx context.Context, from, to string, amount int64) error
}

// StakingAdmin dispatches the staking emergency-withdrawal switch.
type StakingAdmin interface {
	SetEmergencyWithdrawal(ctx context.Context, enabled bool) error
}

// PauseController owns the platform-wide pause flag. The governance module
// is its only writer; voting and staking read it through their SystemStatus
// ports.
type PauseController interface {
	SetPaused(ctx context.Context, paused bool) error
	IsPaused(ctx context.Context) (bool, error)
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID  string
	EventType string
	Payload   []byte
	Status    string
	CreatedAt time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, event EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
