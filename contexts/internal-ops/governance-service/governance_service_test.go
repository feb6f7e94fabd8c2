package governanceservice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	governanceservice "delphi/contexts/internal-ops/governance-service"
	"delphi/contexts/internal-ops/governance-service/adapters/memory"
	"delphi/contexts/internal-ops/governance-service/application/commands"
	"delphi/contexts/internal-ops/governance-service/domain/entities"
	domainerrors "delphi/contexts/internal-ops/governance-service/domain/errors"
	"delphi/internal/shared/guard"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestModule(t *testing.T) (governanceservice.Module, *memory.ManualClock) {
	t.Helper()
	clock := memory.NewManualClock(testStart)
	module := governanceservice.NewInMemoryModule(clock, nil)
	return module, clock
}

func initCouncil(t *testing.T, module governanceservice.Module, threshold int) {
	t.Helper()
	_, err := module.Governance.Initialize(context.Background(), commands.InitializeCommand{
		Admin:     "admin",
		Signers:   []string{"s1", "s2", "s3"},
		Threshold: threshold,
	})
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
}

func TestInitializeValidatesAndIsIdempotent(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()

	invalid := []commands.InitializeCommand{
		{Signers: []string{"s1", "s2"}, Threshold: 2},
		{Signers: []string{"s1", "s2", "s1"}, Threshold: 2},
		{Signers: []string{"s1", "s2", "s3"}, Threshold: 1},
		{Signers: []string{"s1", "s2", "s3"}, Threshold: 4},
	}
	for i, cmd := range invalid {
		if _, err := module.Governance.Initialize(ctx, cmd); !errors.Is(err, domainerrors.ErrInvalidCouncil) {
			t.Fatalf("case %d: expected ErrInvalidCouncil, got %v", i, err)
		}
	}

	initCouncil(t, module, 2)

	// Re-initialize with a different configuration is a no-op.
	council, err := module.Governance.Initialize(ctx, commands.InitializeCommand{
		Signers:   []string{"x1", "x2", "x3", "x4"},
		Threshold: 3,
	})
	if err != nil {
		t.Fatalf("repeat initialize failed: %v", err)
	}
	if len(council.Signers) != 3 || council.Threshold != 2 {
		t.Fatalf("repeat initialize must keep the original council: %+v", council)
	}
}

func TestProposeRequiresInitializedCouncilAndSigner(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()

	_, err := module.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer:  "s1",
		Operation: entities.Operation{Kind: entities.OpEmergencyPause},
	})
	if !errors.Is(err, domainerrors.ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}

	initCouncil(t, module, 2)
	_, err = module.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer:  "mallory",
		Operation: entities.Operation{Kind: entities.OpEmergencyPause},
	})
	if !errors.Is(err, domainerrors.ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	invalid := []entities.Operation{
		{Kind: entities.OpResolveMarket},
		{Kind: entities.OpTreasuryWithdraw, Pool: "operational", Recipient: "alice"},
		{Kind: entities.OpTreasuryTransfer, Pool: "operational", ToPool: "operational", Amount: 10},
		{Kind: entities.OperationKind("unknown")},
	}
	for i, op := range invalid {
		_, err := module.Governance.Propose(ctx, commands.ProposeCommand{Proposer: "s1", Operation: op})
		if !errors.Is(err, domainerrors.ErrInvalidOperation) {
			t.Fatalf("case %d: expected ErrInvalidOperation, got %v", i, err)
		}
	}
}

func TestThresholdApprovalDispatchesExactlyOnce(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	initCouncil(t, module, 2)

	op, err := module.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer:  "s1",
		Operation: entities.Operation{Kind: entities.OpResolveMarket, EventID: "event-42"},
	})
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if len(op.Approvers) != 1 || op.Approvers[0] != "s1" {
		t.Fatalf("proposer must be the first approver: %+v", op.Approvers)
	}

	_, err = module.Governance.Approve(ctx, commands.ApproveCommand{Approver: "s1", OperationID: op.OperationID})
	if !errors.Is(err, domainerrors.ErrAlreadyApproved) {
		t.Fatalf("proposer re-approval must fail, got %v", err)
	}

	result, err := module.Governance.Approve(ctx, commands.ApproveCommand{Approver: "s2", OperationID: op.OperationID})
	if err != nil {
		t.Fatalf("threshold approval failed: %v", err)
	}
	if !result.Executed || result.Approvals != 2 {
		t.Fatalf("unexpected approve result %+v", result)
	}
	if len(module.Executors.Resolved) != 1 || module.Executors.Resolved[0] != "event-42" {
		t.Fatalf("dispatch must hit the resolver exactly once: %+v", module.Executors.Resolved)
	}

	// The operation is gone; a late approval cannot re-dispatch.
	_, err = module.Governance.Approve(ctx, commands.ApproveCommand{Approver: "s3", OperationID: op.OperationID})
	if !errors.Is(err, domainerrors.ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
	if len(module.Executors.Resolved) != 1 {
		t.Fatalf("dispatch must not repeat")
	}
}

func TestEmergencyPauseFlagRoundTrip(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	initCouncil(t, module, 2)

	pauseOp, err := module.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer:  "s1",
		Operation: entities.Operation{Kind: entities.OpEmergencyPause},
	})
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := module.Governance.Approve(ctx, commands.ApproveCommand{Approver: "s2", OperationID: pauseOp.OperationID}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	paused, err := module.Pause.IsPaused(ctx)
	if err != nil || !paused {
		t.Fatalf("expected platform paused, got %v %v", paused, err)
	}

	unpauseOp, err := module.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer:  "s3",
		Operation: entities.Operation{Kind: entities.OpEmergencyUnpause},
	})
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := module.Governance.Approve(ctx, commands.ApproveCommand{Approver: "s1", OperationID: unpauseOp.OperationID}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	paused, err = module.Pause.IsPaused(ctx)
	if err != nil || paused {
		t.Fatalf("expected platform unpaused, got %v %v", paused, err)
	}
}

func TestTreasuryOperationsCarryTypedPayloads(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	initCouncil(t, module, 2)

	withdraw, err := module.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer: "s1",
		Operation: entities.Operation{
			Kind:      entities.OpTreasuryWithdraw,
			Pool:      "operational",
			Recipient: "alice",
			Amount:    250,
		},
	})
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := module.Governance.Approve(ctx, commands.ApproveCommand{Approver: "s2", OperationID: withdraw.OperationID}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if len(module.Executors.Withdraws) != 1 {
		t.Fatalf("expected one withdraw dispatch, got %d", len(module.Executors.Withdraws))
	}
	call := module.Executors.Withdraws[0]
	if call.Pool != "operational" || call.Recipient != "alice" || call.Amount != 250 {
		t.Fatalf("payload mangled in dispatch: %+v", call)
	}

	transfer, err := module.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer: "s1",
		Operation: entities.Operation{
			Kind:   entities.OpTreasuryTransfer,
			Pool:   "operational",
			ToPool: "insurance",
			Amount: 75,
		},
	})
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if _, err := module.Governance.Approve(ctx, commands.ApproveCommand{Approver: "s3", OperationID: transfer.OperationID}); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if len(module.Executors.Transfers) != 1 || module.Executors.Transfers[0].To != "insurance" {
		t.Fatalf("unexpected transfer dispatch: %+v", module.Executors.Transfers)
	}
}

func TestOperationExpiry(t *testing.T) {
	module, clock := newTestModule(t)
	ctx := context.Background()
	initCouncil(t, module, 2)

	op, err := module.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer:  "s1",
		Operation: entities.Operation{Kind: entities.OpEmergencyPause},
	})
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	clock.Advance(73 * time.Hour)
	_, err = module.Governance.Approve(ctx, commands.ApproveCommand{Approver: "s2", OperationID: op.OperationID})
	if !errors.Is(err, domainerrors.ErrOperationExpired) {
		t.Fatalf("expected ErrOperationExpired, got %v", err)
	}
	_, err = module.Governance.Approve(ctx, commands.ApproveCommand{Approver: "s2", OperationID: op.OperationID})
	if !errors.Is(err, domainerrors.ErrOperationNotFound) {
		t.Fatalf("expired operation must be pruned, got %v", err)
	}

	// The sweeper prunes without anyone touching the operation.
	if _, err := module.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer:  "s1",
		Operation: entities.Operation{Kind: entities.OpEmergencyPause},
	}); err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	clock.Advance(80 * time.Hour)
	pruned, err := module.Governance.PruneExpired(ctx)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected 1 pruned operation, got %d", pruned)
	}
}

func TestPendingCapacity(t *testing.T) {
	clock := memory.NewManualClock(testStart)
	store := memory.NewStore()
	module := governanceservice.NewModule(governanceservice.Dependencies{
		Council:    store,
		Operations: store,
		Resolver:   &memory.ExecutorRecorder{},
		Treasury:   &memory.ExecutorRecorder{},
		Staking:    &memory.ExecutorRecorder{},
		Pause:      &memory.PauseFlag{},
		Outbox:     store,
		Guard:      guard.New(),
		Clock:      clock,
		IDGen:      memory.UUIDGenerator{},
		MaxPending: 2,
	})
	ctx := context.Background()
	if _, err := module.Governance.Initialize(ctx, commands.InitializeCommand{
		Signers:   []string{"s1", "s2", "s3"},
		Threshold: 2,
	}); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := module.Governance.Propose(ctx, commands.ProposeCommand{
			Proposer:  "s1",
			Operation: entities.Operation{Kind: entities.OpEmergencyPause},
		}); err != nil {
			t.Fatalf("propose %d failed: %v", i, err)
		}
	}
	_, err := module.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer:  "s1",
		Operation: entities.Operation{Kind: entities.OpEmergencyPause},
	})
	if !errors.Is(err, domainerrors.ErrTooManyPending) {
		t.Fatalf("expected ErrTooManyPending, got %v", err)
	}
}

func TestFailedDispatchStillRemovesOperation(t *testing.T) {
	module, _ := newTestModule(t)
	ctx := context.Background()
	initCouncil(t, module, 2)

	op, err := module.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer:  "s1",
		Operation: entities.Operation{Kind: entities.OpResolveMarket, EventID: "event-7"},
	})
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}

	bang := errors.New("resolution rejected")
	module.Executors.FailOnce = bang
	result, err := module.Governance.Approve(ctx, commands.ApproveCommand{Approver: "s2", OperationID: op.OperationID})
	if !errors.Is(err, bang) {
		t.Fatalf("execution error must reach the approver, got %v", err)
	}
	if !result.Executed {
		t.Fatalf("dispatch attempt must be reported")
	}
	_, err = module.Governance.Approve(ctx, commands.ApproveCommand{Approver: "s3", OperationID: op.OperationID})
	if !errors.Is(err, domainerrors.ErrOperationNotFound) {
		t.Fatalf("failed operation must still be removed, got %v", err)
	}
	if len(module.Executors.Resolved) != 0 {
		t.Fatalf("failed dispatch must not record a resolution")
	}
}
