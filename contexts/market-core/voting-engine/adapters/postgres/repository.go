package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"delphi/contexts/market-core/voting-engine/domain/entities"
	domainerrors "delphi/contexts/market-core/voting-engine/domain/errors"
	"delphi/contexts/market-core/voting-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

type eventModel struct {
	EventID         string    `gorm:"column:id;primaryKey"`
	Creator         string    `gorm:"column:creator;index"`
	Title           string    `gorm:"column:title"`
	Description     string    `gorm:"column:description"`
	Options         []byte    `gorm:"column:options"`
	StakeAmount     int64     `gorm:"column:stake_amount"`
	TotalStaked     int64     `gorm:"column:total_staked"`
	MinParticipants int       `gorm:"column:min_participants"`
	CommitPhaseEnd  time.Time `gorm:"column:commit_phase_end"`
	RevealPhaseEnd  time.Time `gorm:"column:reveal_phase_end"`
	Commitments     []byte    `gorm:"column:commitments"`
	Reveals         []byte    `gorm:"column:reveals"`
	WinningOption   int       `gorm:"column:winning_option"`
	Resolved        bool      `gorm:"column:resolved"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (eventModel) TableName() string { return "market_events" }

type outboxModel struct {
	OutboxID    string     `gorm:"column:id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "market_outbox" }

func eventModelFromEntity(event entities.MarketEvent) (eventModel, error) {
	options, err := json.Marshal(event.Options)
	if err != nil {
		return eventModel{}, err
	}
	commitments, err := json.Marshal(event.Commitments)
	if err != nil {
		return eventModel{}, err
	}
	reveals, err := json.Marshal(event.Reveals)
	if err != nil {
		return eventModel{}, err
	}
	return eventModel{
		EventID:         strings.TrimSpace(event.EventID),
		Creator:         strings.TrimSpace(event.Creator),
		Title:           event.Title,
		Description:     event.Description,
		Options:         options,
		StakeAmount:     event.StakeAmount,
		TotalStaked:     event.TotalStaked,
		MinParticipants: event.MinParticipants,
		CommitPhaseEnd:  event.CommitPhaseEnd,
		RevealPhaseEnd:  event.RevealPhaseEnd,
		Commitments:     commitments,
		Reveals:         reveals,
		WinningOption:   event.WinningOption,
		Resolved:        event.Resolved,
		CreatedAt:       event.CreatedAt,
		UpdatedAt:       event.UpdatedAt,
	}, nil
}

func (m eventModel) toEntity() (entities.MarketEvent, error) {
	event := entities.MarketEvent{
		EventID:         m.EventID,
		Creator:         m.Creator,
		Title:           m.Title,
		Description:     m.Description,
		StakeAmount:     m.StakeAmount,
		TotalStaked:     m.TotalStaked,
		MinParticipants: m.MinParticipants,
		CommitPhaseEnd:  m.CommitPhaseEnd,
		RevealPhaseEnd:  m.RevealPhaseEnd,
		WinningOption:   m.WinningOption,
		Resolved:        m.Resolved,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if len(m.Options) > 0 {
		if err := json.Unmarshal(m.Options, &event.Options); err != nil {
			return entities.MarketEvent{}, err
		}
	}
	if len(m.Commitments) > 0 {
		if err := json.Unmarshal(m.Commitments, &event.Commitments); err != nil {
			return entities.MarketEvent{}, err
		}
	}
	if len(m.Reveals) > 0 {
		if err := json.Unmarshal(m.Reveals, &event.Reveals); err != nil {
			return entities.MarketEvent{}, err
		}
	}
	return event, nil
}

func (r *Repository) SaveEvent(ctx context.Context, event entities.MarketEvent) error {
	row, err := eventModelFromEntity(event)
	if err != nil {
		return err
	}
	if err := saveEventTx(r.db.WithContext(ctx), row); err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidEventInput
		}
		return r.logError("market_repo_save_event_failed", err,
			"market_event_id", row.EventID,
		)
	}
	return nil
}

// SaveEventAndOutbox commits the market event and its outbox rows in one
// transaction, so a saved state change always has its events.
func (r *Repository) SaveEventAndOutbox(ctx context.Context, event entities.MarketEvent, envelopes []ports.EventEnvelope) error {
	row, err := eventModelFromEntity(event)
	if err != nil {
		return err
	}
	outboxRows := make([]outboxModel, 0, len(envelopes))
	for _, envelope := range envelopes {
		payload, err := json.Marshal(envelope)
		if err != nil {
			return err
		}
		outboxRows = append(outboxRows, outboxModel{
			OutboxID:  envelope.EventID,
			EventType: envelope.EventType,
			Payload:   payload,
			Status:    outboxStatusPending,
			CreatedAt: envelope.OccurredAt,
		})
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveEventTx(tx, row); err != nil {
			return err
		}
		for i := range outboxRows {
			if err := tx.Create(&outboxRows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrInvalidEventInput
		}
		return r.logError("market_repo_save_event_failed", err,
			"market_event_id", row.EventID,
		)
	}
	return nil
}

func saveEventTx(tx *gorm.DB, row eventModel) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_staked":   row.TotalStaked,
			"commitments":    row.Commitments,
			"reveals":        row.Reveals,
			"winning_option": row.WinningOption,
			"resolved":       row.Resolved,
			"updated_at":     row.UpdatedAt,
		}),
	}).Create(&row).Error
}

func (r *Repository) GetEvent(ctx context.Context, eventID string) (entities.MarketEvent, error) {
	var row eventModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(eventID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.MarketEvent{}, domainerrors.ErrEventNotFound
		}
		return entities.MarketEvent{}, r.logError("market_repo_get_event_failed", err,
			"market_event_id", strings.TrimSpace(eventID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListEventsByCreator(ctx context.Context, creator string) ([]entities.MarketEvent, error) {
	query := r.db.WithContext(ctx).Order("created_at asc")
	if strings.TrimSpace(creator) != "" {
		query = query.Where("creator = ?", strings.TrimSpace(creator))
	}
	var rows []eventModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, r.logError("market_repo_list_events_failed", err, "creator", creator)
	}
	events := make([]entities.MarketEvent, 0, len(rows))
	for _, row := range rows {
		event, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *Repository) CountOpenEventsByCreator(ctx context.Context, creator string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&eventModel{}).
		Where("creator = ? AND resolved = ?", strings.TrimSpace(creator), false).
		Count(&count).
		Error
	if err != nil {
		return 0, r.logError("market_repo_count_open_failed", err, "creator", creator)
	}
	return int(count), nil
}

func (r *Repository) AppendOutbox(ctx context.Context, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:  event.EventID,
		EventType: event.EventType,
		Payload:   payload,
		Status:    outboxStatusPending,
		CreatedAt: event.OccurredAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("market_repo_append_outbox_failed", err, "event_id", event.EventID)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("market_repo_list_outbox_failed", err)
	}
	messages := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, ports.OutboxMessage{
			OutboxID:  row.OutboxID,
			EventType: row.EventType,
			Payload:   row.Payload,
			Status:    row.Status,
			CreatedAt: row.CreatedAt,
		})
	}
	return messages, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("id = ?", outboxID).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt,
		}).
		Error
	if err != nil {
		return r.logError("market_repo_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "market-core/voting-engine",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("market repository operation failed", fields...)
	return err
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
