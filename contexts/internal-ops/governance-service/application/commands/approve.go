package commands

import (
	"context"
	"strings"

	application "delphi/contexts/internal-ops/governance-service/application"
	"delphi/contexts/internal-ops/governance-service/domain/entities"
	domainerrors "delphi/contexts/internal-ops/governance-service/domain/errors"
)

// ApproveCommand adds one signer's approval to a pending operation.
type ApproveCommand struct {
	Approver    string
	OperationID string
}

// ApproveResult reports the approval state after the call. Executed is true
// once the threshold was reached and dispatch was attempted; the operation
// is gone from the pending set either way.
type ApproveResult struct {
	Operation entities.PendingOperation
	Approvals int
	Threshold int
	Executed  bool
}

// Approve records the approval and, at the threshold, dispatches the
// operation through its executor port. The operation is removed after the
// dispatch attempt whether it succeeded or failed; a failed execution is
// reported to the approver, not retried.
func (uc GovernanceUseCase) Approve(ctx context.Context, cmd ApproveCommand) (ApproveResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	approver := strings.TrimSpace(cmd.Approver)
	operationID := strings.TrimSpace(cmd.OperationID)
	if operationID == "" {
		return ApproveResult{}, domainerrors.ErrOperationNotFound
	}

	if err := uc.Guard.Enter(guardKeyCouncil); err != nil {
		return ApproveResult{}, err
	}
	defer uc.Guard.Exit(guardKeyCouncil)

	council, err := uc.Council.LoadCouncil(ctx)
	if err != nil {
		return ApproveResult{}, err
	}
	if !council.Initialized {
		return ApproveResult{}, domainerrors.ErrNotInitialized
	}
	if !council.IsSigner(approver) {
		return ApproveResult{}, domainerrors.ErrNotAuthorized
	}

	op, err := uc.Operations.GetOperation(ctx, operationID)
	if err != nil {
		return ApproveResult{}, err
	}
	now := uc.now()
	if op.Expired(now) {
		if err := uc.Operations.DeleteOperation(ctx, operationID); err != nil {
			return ApproveResult{}, err
		}
		return ApproveResult{}, domainerrors.ErrOperationExpired
	}
	if op.HasApproved(approver) {
		return ApproveResult{}, domainerrors.ErrAlreadyApproved
	}

	op.Approvers = append(op.Approvers, approver)
	if err := uc.appendGovernanceEvent(ctx, "governance.approved", op, now, map[string]any{
		"kind":     string(op.Operation.Kind),
		"approver": approver,
	}); err != nil {
		return ApproveResult{}, err
	}

	if len(op.Approvers) < council.Threshold {
		if err := uc.Operations.SaveOperation(ctx, op); err != nil {
			return ApproveResult{}, err
		}
		logger.Info("governance approval recorded",
			"event", "governance_approved",
			"module", "internal-ops/governance-service",
			"layer", "application",
			"operation_id", op.OperationID,
			"approver", approver,
			"approvals", len(op.Approvers),
			"threshold", council.Threshold,
		)
		return ApproveResult{
			Operation: op,
			Approvals: len(op.Approvers),
			Threshold: council.Threshold,
		}, nil
	}

	// Threshold reached: remove first so a re-entrant or repeated approve
	// can never dispatch twice, then execute.
	if err := uc.Operations.DeleteOperation(ctx, operationID); err != nil {
		return ApproveResult{}, err
	}
	execErr := uc.dispatch(ctx, op.Operation)
	if err := uc.appendGovernanceEvent(ctx, "governance.executed", op, now, map[string]any{
		"kind":    string(op.Operation.Kind),
		"success": execErr == nil,
	}); err != nil {
		return ApproveResult{}, err
	}

	if execErr != nil {
		logger.Error("governance operation failed at dispatch",
			"event", "governance_execution_failed",
			"module", "internal-ops/governance-service",
			"layer", "application",
			"operation_id", op.OperationID,
			"kind", string(op.Operation.Kind),
			"error", execErr.Error(),
		)
		return ApproveResult{
			Operation: op,
			Approvals: len(op.Approvers),
			Threshold: council.Threshold,
			Executed:  true,
		}, execErr
	}

	logger.Info("governance operation executed",
		"event", "governance_executed",
		"module", "internal-ops/governance-service",
		"layer", "application",
		"operation_id", op.OperationID,
		"kind", string(op.Operation.Kind),
		"approvals", len(op.Approvers),
	)
	return ApproveResult{
		Operation: op,
		Approvals: len(op.Approvers),
		Threshold: council.Threshold,
		Executed:  true,
	}, nil
}

// dispatch routes the operation to its executor. The switch is exhaustive
// over the operation kinds accepted by Validate.
func (uc GovernanceUseCase) dispatch(ctx context.Context, op entities.Operation) error {
	switch op.Kind {
	case entities.OpEmergencyPause:
		return uc.emergency(ctx, true)
	case entities.OpEmergencyUnpause:
		return uc.emergency(ctx, false)
	case entities.OpResolveMarket:
		return uc.Resolver.ResolveMarket(ctx, op.EventID)
	case entities.OpTreasuryWithdraw:
		return uc.Treasury.WithdrawFromPool(ctx, op.Pool, op.Recipient, op.Amount)
	case entities.OpTreasuryTransfer:
		return uc.Treasury.TransferBetweenPools(ctx, op.Pool, op.ToPool, op.Amount)
	case entities.OpSetEmergencyWithdrawal:
		return uc.Staking.SetEmergencyWithdrawal(ctx, op.Enabled)
	default:
		return domainerrors.ErrInvalidOperation
	}
}

func (uc GovernanceUseCase) emergency(ctx context.Context, paused bool) error {
	if err := uc.Pause.SetPaused(ctx, paused); err != nil {
		return err
	}
	now := uc.now()
	if err := uc.appendGovernanceEvent(ctx, "governance.emergency_action", entities.PendingOperation{
		OperationID: "emergency",
	}, now, map[string]any{
		"paused": paused,
	}); err != nil {
		return err
	}
	application.ResolveLogger(uc.Logger).Warn("platform pause flag changed",
		"event", "governance_emergency_action",
		"module", "internal-ops/governance-service",
		"layer", "application",
		"paused", paused,
	)
	return nil
}
