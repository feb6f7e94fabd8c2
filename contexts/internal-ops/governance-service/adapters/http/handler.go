package httpadapter

import (
	"context"
	"log/slog"

	"delphi/contexts/internal-ops/governance-service/application/commands"
	"delphi/contexts/internal-ops/governance-service/application/queries"
	"delphi/contexts/internal-ops/governance-service/domain/entities"
	httptransport "delphi/contexts/internal-ops/governance-service/transport/http"
)

type Handler struct {
	Governance commands.GovernanceUseCase
	Queries    queries.GovernanceQueryUseCase
	Logger     *slog.Logger
}

func (h Handler) InitializeHandler(
	ctx context.Context,
	admin string,
	req httptransport.InitializeRequest,
) (httptransport.CouncilResponse, error) {
	council, err := h.Governance.Initialize(ctx, commands.InitializeCommand{
		Admin:     admin,
		Signers:   req.Signers,
		Threshold: req.Threshold,
	})
	if err != nil {
		return httptransport.CouncilResponse{}, err
	}
	paused, err := h.Queries.Paused(ctx)
	if err != nil {
		return httptransport.CouncilResponse{}, err
	}
	return mapCouncil(council, paused), nil
}

func (h Handler) ProposeHandler(
	ctx context.Context,
	proposer string,
	req httptransport.ProposeRequest,
) (httptransport.OperationResponse, error) {
	op, err := h.Governance.Propose(ctx, commands.ProposeCommand{
		Proposer: proposer,
		Operation: entities.Operation{
			Kind:      entities.OperationKind(req.Kind),
			EventID:   req.EventID,
			Pool:      req.Pool,
			ToPool:    req.ToPool,
			Recipient: req.Recipient,
			Amount:    req.Amount,
			Enabled:   req.Enabled,
		},
	})
	if err != nil {
		return httptransport.OperationResponse{}, err
	}
	return mapOperation(op), nil
}

func (h Handler) ApproveHandler(ctx context.Context, approver, operationID string) (httptransport.ApproveResponse, error) {
	result, err := h.Governance.Approve(ctx, commands.ApproveCommand{
		Approver:    approver,
		OperationID: operationID,
	})
	if err != nil {
		return httptransport.ApproveResponse{}, err
	}
	return httptransport.ApproveResponse{
		OperationID: result.Operation.OperationID,
		Kind:        string(result.Operation.Operation.Kind),
		Approvals:   result.Approvals,
		Threshold:   result.Threshold,
		Executed:    result.Executed,
	}, nil
}

func (h Handler) PendingOperationsHandler(ctx context.Context) (httptransport.OperationListResponse, error) {
	ops, err := h.Queries.PendingOperations(ctx)
	if err != nil {
		return httptransport.OperationListResponse{}, err
	}
	resp := httptransport.OperationListResponse{Items: make([]httptransport.OperationResponse, 0, len(ops))}
	for _, op := range ops {
		resp.Items = append(resp.Items, mapOperation(op))
	}
	return resp, nil
}

func (h Handler) OperationDetailHandler(ctx context.Context, operationID string) (httptransport.OperationResponse, error) {
	op, err := h.Queries.OperationDetail(ctx, operationID)
	if err != nil {
		return httptransport.OperationResponse{}, err
	}
	return mapOperation(op), nil
}

func (h Handler) CouncilHandler(ctx context.Context) (httptransport.CouncilResponse, error) {
	council, err := h.Queries.CouncilConfig(ctx)
	if err != nil {
		return httptransport.CouncilResponse{}, err
	}
	paused, err := h.Queries.Paused(ctx)
	if err != nil {
		return httptransport.CouncilResponse{}, err
	}
	return mapCouncil(council, paused), nil
}

func mapCouncil(council entities.Council, paused bool) httptransport.CouncilResponse {
	return httptransport.CouncilResponse{
		Signers:     council.Signers,
		Threshold:   council.Threshold,
		Initialized: council.Initialized,
		Paused:      paused,
	}
}

func mapOperation(op entities.PendingOperation) httptransport.OperationResponse {
	return httptransport.OperationResponse{
		OperationID: op.OperationID,
		Kind:        string(op.Operation.Kind),
		EventID:     op.Operation.EventID,
		Pool:        op.Operation.Pool,
		ToPool:      op.Operation.ToPool,
		Recipient:   op.Operation.Recipient,
		Amount:      op.Operation.Amount,
		Enabled:     op.Operation.Enabled,
		Proposer:    op.Proposer,
		Approvers:   op.Approvers,
		CreatedAt:   op.CreatedAt,
		ExpiresAt:   op.ExpiresAt,
	}
}
