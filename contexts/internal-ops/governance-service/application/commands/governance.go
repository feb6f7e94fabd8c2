package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "delphi/contexts/internal-ops/governance-service/application"
	"delphi/contexts/internal-ops/governance-service/domain/entities"
	domainerrors "delphi/contexts/internal-ops/governance-service/domain/errors"
	"delphi/contexts/internal-ops/governance-service/ports"
	"delphi/internal/shared/guard"
)

const (
	minSigners         = 3
	minThreshold       = 2
	defaultMaxPending  = 10
	defaultExpiry      = 72 * time.Hour
	guardKeyCouncil    = "governance:council"
	guardPrefixPending = "governance:op:"
)

// GovernanceUseCase drives the multisig lifecycle. Dispatch goes through the
// typed executor ports; the use case never reaches into other contexts
// directly.
type GovernanceUseCase struct {
	Council    ports.CouncilRepository
	Operations ports.OperationRepository
	Resolver   ports.MarketResolver
	Treasury   ports.TreasuryAdmin
	Staking    ports.StakingAdmin
	Pause      ports.PauseController
	Outbox     ports.OutboxWriter
	Guard      *guard.Guard
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	MaxPending int
	Expiry     time.Duration
	Logger     *slog.Logger
}

// InitializeCommand sets the council once.
type InitializeCommand struct {
	Admin     string
	Signers   []string
	Threshold int
}

// Initialize configures the signer set and threshold. Calling it on an
// already-initialized council is a no-op so bootstrap can run it
// unconditionally.
func (uc GovernanceUseCase) Initialize(ctx context.Context, cmd InitializeCommand) (entities.Council, error) {
	logger := application.ResolveLogger(uc.Logger)

	if err := uc.Guard.Enter(guardKeyCouncil); err != nil {
		return entities.Council{}, err
	}
	defer uc.Guard.Exit(guardKeyCouncil)

	current, err := uc.Council.LoadCouncil(ctx)
	if err != nil {
		return entities.Council{}, err
	}
	if current.Initialized {
		return current, nil
	}

	distinct := make(map[string]struct{}, len(cmd.Signers))
	signers := make([]string, 0, len(cmd.Signers))
	for _, signer := range cmd.Signers {
		signer = strings.TrimSpace(signer)
		if signer == "" {
			return entities.Council{}, domainerrors.ErrInvalidCouncil
		}
		if _, dup := distinct[signer]; dup {
			return entities.Council{}, domainerrors.ErrInvalidCouncil
		}
		distinct[signer] = struct{}{}
		signers = append(signers, signer)
	}
	if len(signers) < minSigners {
		return entities.Council{}, domainerrors.ErrInvalidCouncil
	}
	if cmd.Threshold < minThreshold || cmd.Threshold > len(signers) {
		return entities.Council{}, domainerrors.ErrInvalidCouncil
	}

	council := entities.Council{
		Signers:     signers,
		Threshold:   cmd.Threshold,
		Initialized: true,
	}
	if err := uc.Council.SaveCouncil(ctx, council); err != nil {
		return entities.Council{}, err
	}

	logger.Info("governance council initialized",
		"event", "governance_initialized",
		"module", "internal-ops/governance-service",
		"layer", "application",
		"admin", strings.TrimSpace(cmd.Admin),
		"signers", len(signers),
		"threshold", cmd.Threshold,
	)
	return council, nil
}

// ProposeCommand opens a new pending operation.
type ProposeCommand struct {
	Proposer  string
	Operation entities.Operation
}

// Propose validates the typed payload and stores the operation with the
// proposer as its first approver.
func (uc GovernanceUseCase) Propose(ctx context.Context, cmd ProposeCommand) (entities.PendingOperation, error) {
	logger := application.ResolveLogger(uc.Logger)
	proposer := strings.TrimSpace(cmd.Proposer)

	if err := uc.Guard.Enter(guardKeyCouncil); err != nil {
		return entities.PendingOperation{}, err
	}
	defer uc.Guard.Exit(guardKeyCouncil)

	council, err := uc.Council.LoadCouncil(ctx)
	if err != nil {
		return entities.PendingOperation{}, err
	}
	if !council.Initialized {
		return entities.PendingOperation{}, domainerrors.ErrNotInitialized
	}
	if !council.IsSigner(proposer) {
		return entities.PendingOperation{}, domainerrors.ErrNotAuthorized
	}
	if err := cmd.Operation.Validate(); err != nil {
		return entities.PendingOperation{}, err
	}

	now := uc.now()
	if err := uc.pruneExpired(ctx, now); err != nil {
		return entities.PendingOperation{}, err
	}
	pending, err := uc.Operations.CountOperations(ctx)
	if err != nil {
		return entities.PendingOperation{}, err
	}
	if pending >= uc.maxPending() {
		return entities.PendingOperation{}, domainerrors.ErrTooManyPending
	}

	operationID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.PendingOperation{}, err
	}
	op := entities.PendingOperation{
		OperationID: operationID,
		Operation:   cmd.Operation,
		Proposer:    proposer,
		Approvers:   []string{proposer},
		CreatedAt:   now,
		ExpiresAt:   now.Add(uc.expiry()),
	}
	if err := uc.Operations.SaveOperation(ctx, op); err != nil {
		return entities.PendingOperation{}, err
	}
	if err := uc.appendGovernanceEvent(ctx, "governance.proposed", op, now, map[string]any{
		"kind":       string(op.Operation.Kind),
		"expires_at": op.ExpiresAt.Format(time.RFC3339),
	}); err != nil {
		return entities.PendingOperation{}, err
	}

	logger.Info("governance operation proposed",
		"event", "governance_proposed",
		"module", "internal-ops/governance-service",
		"layer", "application",
		"operation_id", op.OperationID,
		"kind", string(op.Operation.Kind),
		"proposer", proposer,
	)
	return op, nil
}

// PruneExpired removes operations whose expiry has passed. The sweeper
// worker calls it on a timer; Propose and Approve call it lazily.
func (uc GovernanceUseCase) PruneExpired(ctx context.Context) (int, error) {
	if err := uc.Guard.Enter(guardKeyCouncil); err != nil {
		return 0, err
	}
	defer uc.Guard.Exit(guardKeyCouncil)
	return uc.pruneCount(ctx, uc.now())
}

func (uc GovernanceUseCase) pruneExpired(ctx context.Context, now time.Time) error {
	_, err := uc.pruneCount(ctx, now)
	return err
}

func (uc GovernanceUseCase) pruneCount(ctx context.Context, now time.Time) (int, error) {
	ops, err := uc.Operations.ListOperations(ctx)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, op := range ops {
		if !op.Expired(now) {
			continue
		}
		if err := uc.Operations.DeleteOperation(ctx, op.OperationID); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

func (uc GovernanceUseCase) maxPending() int {
	if uc.MaxPending <= 0 {
		return defaultMaxPending
	}
	return uc.MaxPending
}

func (uc GovernanceUseCase) expiry() time.Duration {
	if uc.Expiry <= 0 {
		return defaultExpiry
	}
	return uc.Expiry
}

func (uc GovernanceUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}

func (uc GovernanceUseCase) appendGovernanceEvent(
	ctx context.Context,
	eventType string,
	op entities.PendingOperation,
	occurredAt time.Time,
	data map[string]any,
) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	approvers := append([]string(nil), op.Approvers...)
	sort.Strings(approvers)
	payload := map[string]any{
		"operation_id": op.OperationID,
		"proposer":     op.Proposer,
		"approvers":    approvers,
		"occurred_at":  occurredAt.Format(time.RFC3339),
	}
	for key, value := range data {
		payload[key] = value
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt,
		SourceService:    "governance-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "operation_id",
		PartitionKey:     op.OperationID,
		Data:             raw,
	})
}
