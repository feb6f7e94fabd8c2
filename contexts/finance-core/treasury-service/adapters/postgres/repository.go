package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"delphi/contexts/finance-core/treasury-service/domain/entities"
	"delphi/contexts/finance-core/treasury-service/ports"

	"github.com/google/uuid"
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

type poolModel struct {
	Name    string `gorm:"column:name;primaryKey"`
	Balance int64  `gorm:"column:balance"`
}

func (poolModel) TableName() string { return "treasury_pools" }

type escrowModel struct {
	EscrowKey string `gorm:"column:escrow_key;primaryKey"`
	Balance   int64  `gorm:"column:balance"`
}

func (escrowModel) TableName() string { return "treasury_escrows" }

type accountModel struct {
	Account string `gorm:"column:account;primaryKey"`
	Balance int64  `gorm:"column:balance"`
}

func (accountModel) TableName() string { return "treasury_accounts" }

type counterModel struct {
	ID               int       `gorm:"column:id;primaryKey"`
	TotalDeposits    int64     `gorm:"column:total_deposits"`
	TotalWithdrawals int64     `gorm:"column:total_withdrawals"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (counterModel) TableName() string { return "treasury_counters" }

type outboxModel struct {
	OutboxID    string     `gorm:"column:id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "treasury_outbox" }

func (r *Repository) LoadLedger(ctx context.Context) (entities.Ledger, error) {
	ledger := entities.NewLedger()

	var pools []poolModel
	if err := r.db.WithContext(ctx).Find(&pools).Error; err != nil {
		return entities.Ledger{}, r.logError("treasury_repo_load_pools_failed", err)
	}
	for _, row := range pools {
		ledger.Pools[entities.Pool(row.Name)] = row.Balance
	}

	var escrows []escrowModel
	if err := r.db.WithContext(ctx).Find(&escrows).Error; err != nil {
		return entities.Ledger{}, r.logError("treasury_repo_load_escrows_failed", err)
	}
	for _, row := range escrows {
		ledger.Escrows[row.EscrowKey] = row.Balance
	}

	var accounts []accountModel
	if err := r.db.WithContext(ctx).Find(&accounts).Error; err != nil {
		return entities.Ledger{}, r.logError("treasury_repo_load_accounts_failed", err)
	}
	for _, row := range accounts {
		ledger.Accounts[row.Account] = row.Balance
	}

	var counters counterModel
	err := r.db.WithContext(ctx).Where("id = ?", 1).First(&counters).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Ledger{}, r.logError("treasury_repo_load_counters_failed", err)
	}
	ledger.TotalDeposits = counters.TotalDeposits
	ledger.TotalWithdrawals = counters.TotalWithdrawals
	ledger.UpdatedAt = counters.UpdatedAt
	return ledger, nil
}

func (r *Repository) SaveLedger(ctx context.Context, ledger entities.Ledger) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveLedgerTx(tx, ledger)
	})
	if err != nil {
		return r.logError("treasury_repo_save_ledger_failed", err)
	}
	return nil
}

// SaveLedgerAndOutbox commits the ledger snapshot and its operation event in
// one transaction, so a saved operation always has its outbox row.
func (r *Repository) SaveLedgerAndOutbox(ctx context.Context, ledger entities.Ledger, event ports.EventEnvelope) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveLedgerTx(tx, ledger); err != nil {
			return err
		}
		row := outboxModel{
			OutboxID:  event.EventID,
			EventType: event.EventType,
			Payload:   payload,
			Status:    outboxStatusPending,
			CreatedAt: event.OccurredAt,
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return r.logError("treasury_repo_save_ledger_failed", err, "event_id", event.EventID)
	}
	return nil
}

func saveLedgerTx(tx *gorm.DB, ledger entities.Ledger) error {
	for pool, balance := range ledger.Pools {
		row := poolModel{Name: string(pool), Balance: balance}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.Assignments(map[string]any{"balance": row.Balance}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(ledger.Escrows))
	for key, balance := range ledger.Escrows {
		keys = append(keys, key)
		row := escrowModel{EscrowKey: key, Balance: balance}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "escrow_key"}},
			DoUpdates: clause.Assignments(map[string]any{"balance": row.Balance}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	cleanup := tx.Where("1 = 1")
	if len(keys) > 0 {
		cleanup = tx.Where("escrow_key NOT IN ?", keys)
	}
	if err := cleanup.Delete(&escrowModel{}).Error; err != nil {
		return err
	}

	for account, balance := range ledger.Accounts {
		row := accountModel{Account: account, Balance: balance}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account"}},
			DoUpdates: clause.Assignments(map[string]any{"balance": row.Balance}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}

	counters := counterModel{
		ID:               1,
		TotalDeposits:    ledger.TotalDeposits,
		TotalWithdrawals: ledger.TotalWithdrawals,
		UpdatedAt:        ledger.UpdatedAt,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_deposits":    counters.TotalDeposits,
			"total_withdrawals": counters.TotalWithdrawals,
			"updated_at":        counters.UpdatedAt,
		}),
	}).Create(&counters).Error
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
		return r.logError("treasury_repo_append_outbox_failed", err, "event_id", event.EventID)
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
		return nil, r.logError("treasury_repo_list_outbox_failed", err)
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
		return r.logError("treasury_repo_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "finance-core/treasury-service",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("treasury repository operation failed", fields...)
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
