package ports

import (
	"context"
	"encoding/json"
	"time"

	"delphi/contexts/finance-core/staking-service/domain/entities"
)

// PoolRepository persists staking pools with their embedded positions.
type PoolRepository interface {
	SavePool(ctx context.Context, pool entities.Pool) error
	GetPool(ctx context.Context, poolID string) (entities.Pool, error)
	ListPoolsByCreator(ctx context.Context, creator string) ([]entities.Pool, error)
	CountPoolsByCreator(ctx context.Context, creator string) (int, error)
	StakedInWindow(ctx context.Context, staker string, since time.Time) (int64, error)
}

// EscrowCredit is one leg of an escrow release. An empty Pool name credits
// the user account; otherwise the named treasury pool is credited.
type EscrowCredit struct {
	Account string
	Pool    string
	Amount  int64
}

// RewardPayout credits a user account from the treasury's reward reserve.
type RewardPayout struct {
	Account string
	Amount  int64
}

// TreasuryGateway is the staking service's view of the custody ledger.
// Principal lives in a per-position escrow; rewards are paid from the
// treasury's reward reserve. PayRewards is all-or-nothing.
type TreasuryGateway interface {
	OpenEscrow(ctx context.Context, key string) error
	FundEscrow(ctx context.Context, account, key string, amount int64) error
	ReleaseEscrow(ctx context.Context, key string, credits []EscrowCredit) error
	PayRewards(ctx context.Context, payouts []RewardPayout) error
}

// SystemStatus exposes the governance pause flag.
type SystemStatus interface {
	IsPaused(ctx context.Context) (bool, error)
}

// SignerDirectory answers whether an address belongs to the multisig signer
// set. Admin-only staking operations check against it.
type SignerDirectory interface {
	IsSigner(ctx context.Context, address string) (bool, error)
}

// WithdrawalPolicy holds the emergency-withdrawal switch. When enabled,
// early unstakes skip the penalty.
type WithdrawalPolicy interface {
	EmergencyEnabled(ctx context.Context) (bool, error)
	SetEmergencyEnabled(ctx context.Context, enabled bool) error
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
