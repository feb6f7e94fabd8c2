package workers

import (
	"context"
	"log/slog"

	application "delphi/contexts/internal-ops/governance-service/application"
	"delphi/contexts/internal-ops/governance-service/application/commands"
)

// ExpirySweeper prunes expired pending operations on a timer so abandoned
// proposals do not pin the pending capacity until someone touches them.
type ExpirySweeper struct {
	Governance commands.GovernanceUseCase
	Logger     *slog.Logger
}

func (s ExpirySweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	pruned, err := s.Governance.PruneExpired(ctx)
	if err != nil {
		logger.Error("governance expiry sweep failed",
			"event", "governance_sweep_failed",
			"module", "internal-ops/governance-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if pruned > 0 {
		logger.Info("expired governance operations pruned",
			"event", "governance_swept",
			"module", "internal-ops/governance-service",
			"layer", "worker",
			"pruned", pruned,
		)
	}
	return nil
}
