package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "delphi/contexts/finance-core/staking-service/application"
	"delphi/contexts/finance-core/staking-service/ports"
)

// OutboxRelay publishes persisted staking outbox records to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows and marks each row
// published only after broker publish succeeds. It stops on the first failure
// so the retry loop can reprocess remaining rows safely.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("staking outbox list failed",
			"event", "staking_outbox_list_failed",
			"module", "finance-core/staking-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event ports.EventEnvelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("staking outbox decode failed",
				"event", "staking_outbox_decode_failed",
				"module", "finance-core/staking-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("staking outbox publish failed",
				"event", "staking_outbox_publish_failed",
				"module", "finance-core/staking-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"topic", topic,
				"error", err.Error(),
			)
			return err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			return err
		}
	}

	logger.Info("staking outbox relay cycle completed",
		"event", "staking_outbox_relay_completed",
		"module", "finance-core/staking-service",
		"layer", "worker",
		"published", len(pending),
	)
	return nil
}
