package ports

import (
	"context"
	"encoding/json"
	"time"

	"delphi/contexts/finance-core/treasury-service/domain/entities"
)

// LedgerRepository persists the singleton custody ledger. Save replaces the
// committed state atomically; the application mutates a working copy and
// saves it only when every check passed.
type LedgerRepository interface {
	LoadLedger(ctx context.Context) (entities.Ledger, error)
	SaveLedger(ctx context.Context, ledger entities.Ledger) error
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

// TransactionalLedgerRepository commits a ledger snapshot and its outbox
// event in one transaction, so a persisted operation never loses its event.
// Repositories that can offer this are detected by type assertion.
type TransactionalLedgerRepository interface {
	SaveLedgerAndOutbox(ctx context.Context, ledger entities.Ledger, event EventEnvelope) error
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
