package ports

import (
	"context"
	"encoding/json"
	"time"

	"delphi/contexts/market-core/voting-engine/domain/entities"
)

type EventRepository interface {
	SaveEvent(ctx context.Context, event entities.MarketEvent) error
	GetEvent(ctx context.Context, eventID string) (entities.MarketEvent, error)
	ListEventsByCreator(ctx context.Context, creator string) ([]entities.MarketEvent, error)
	CountOpenEventsByCreator(ctx context.Context, creator string) (int, error)
}

// AccountCredit is one winner/refund payout leg of an escrow release.
type AccountCredit struct {
	Account string
	Amount  int64
}

// EscrowPayout is the full allocation of an event escrow: account credits
// plus the platform remainder routed to the operational pool.
type EscrowPayout struct {
	Accounts []AccountCredit
	Platform int64
}

// TreasuryGateway is the only path for stake custody. Implementations wrap
// the treasury service; the engine never reads or writes balances directly.
type TreasuryGateway interface {
	OpenEscrow(ctx context.Context, key string) error
	FundEscrow(ctx context.Context, account, key string, amount int64) error
	ReleaseEscrow(ctx context.Context, key string, payout EscrowPayout) error
}

// SystemStatus exposes the governance pause flag.
type SystemStatus interface {
	IsPaused(ctx context.Context) (bool, error)
}

// SignerDirectory answers whether an address belongs to the multisig signer
// set; resolution requires it.
type SignerDirectory interface {
	IsSigner(ctx context.Context, address string) (bool, error)
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

// TransactionalEventRepository commits a market event and its outbox rows in
// one transaction, so a persisted state change never loses its events.
// Repositories that can offer this are detected by type assertion.
type TransactionalEventRepository interface {
	SaveEventAndOutbox(ctx context.Context, event entities.MarketEvent, envelopes []EventEnvelope) error
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
