package queries

import (
	"context"
	"strings"
	"time"

	"delphi/contexts/internal-ops/governance-service/domain/entities"
	domainerrors "delphi/contexts/internal-ops/governance-service/domain/errors"
	"delphi/contexts/internal-ops/governance-service/ports"
)

// GovernanceQueryUseCase serves the read side of the governance surface.
// Reads filter out expired operations instead of deleting them; pruning is
// the write side's job.
type GovernanceQueryUseCase struct {
	Council    ports.CouncilRepository
	Operations ports.OperationRepository
	Pause      ports.PauseController
	Clock      ports.Clock
}

func (uc GovernanceQueryUseCase) PendingOperations(ctx context.Context) ([]entities.PendingOperation, error) {
	ops, err := uc.Operations.ListOperations(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.nowUTC()
	live := make([]entities.PendingOperation, 0, len(ops))
	for _, op := range ops {
		if !op.Expired(now) {
			live = append(live, op)
		}
	}
	return live, nil
}

func (uc GovernanceQueryUseCase) OperationDetail(ctx context.Context, operationID string) (entities.PendingOperation, error) {
	op, err := uc.Operations.GetOperation(ctx, strings.TrimSpace(operationID))
	if err != nil {
		return entities.PendingOperation{}, err
	}
	if op.Expired(uc.nowUTC()) {
		return entities.PendingOperation{}, domainerrors.ErrOperationExpired
	}
	return op, nil
}

func (uc GovernanceQueryUseCase) CouncilConfig(ctx context.Context) (entities.Council, error) {
	return uc.Council.LoadCouncil(ctx)
}

func (uc GovernanceQueryUseCase) Paused(ctx context.Context) (bool, error) {
	return uc.Pause.IsPaused(ctx)
}

func (uc GovernanceQueryUseCase) nowUTC() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
