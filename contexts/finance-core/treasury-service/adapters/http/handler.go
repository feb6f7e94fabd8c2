package httpadapter

import (
	"context"
	"errors"
	"log/slog"

	"delphi/contexts/finance-core/treasury-service/application"
	"delphi/contexts/finance-core/treasury-service/domain/entities"
	domainerrors "delphi/contexts/finance-core/treasury-service/domain/errors"
	httptransport "delphi/contexts/finance-core/treasury-service/transport/http"
)

type Handler struct {
	Treasury application.Service
	Logger   *slog.Logger
}

func (h Handler) CreditAccountHandler(ctx context.Context, req httptransport.AccountOperationRequest) error {
	return h.Treasury.CreditAccount(ctx, req.Account, req.Amount)
}

func (h Handler) DebitAccountHandler(ctx context.Context, req httptransport.AccountOperationRequest) error {
	return h.Treasury.DebitAccount(ctx, req.Account, req.Amount)
}

func (h Handler) DepositToPoolHandler(ctx context.Context, req httptransport.PoolOperationRequest) error {
	return h.Treasury.DepositToPool(ctx, entities.Pool(req.Pool), req.Amount)
}

func (h Handler) WithdrawFromPoolHandler(ctx context.Context, req httptransport.PoolOperationRequest) error {
	return h.Treasury.WithdrawFromPool(ctx, entities.Pool(req.Pool), req.Amount)
}

func (h Handler) TransferBetweenPoolsHandler(ctx context.Context, req httptransport.PoolTransferRequest) error {
	return h.Treasury.TransferBetweenPools(ctx, entities.Pool(req.FromPool), entities.Pool(req.ToPool), req.Amount)
}

func (h Handler) BalancesHandler(ctx context.Context) (httptransport.BalancesResponse, error) {
	snapshot, err := h.Treasury.Balances(ctx)
	if err != nil {
		return httptransport.BalancesResponse{}, err
	}
	pools := make(map[string]int64, len(snapshot.Pools))
	for pool, balance := range snapshot.Pools {
		pools[string(pool)] = balance
	}
	return httptransport.BalancesResponse{
		Pools:            pools,
		Escrows:          snapshot.Escrows,
		TotalDeposits:    snapshot.TotalDeposits,
		TotalWithdrawals: snapshot.TotalWithdrawals,
	}, nil
}

func (h Handler) AccountBalanceHandler(ctx context.Context, account string) (httptransport.AccountBalanceResponse, error) {
	balance, err := h.Treasury.AccountBalance(ctx, account)
	if err != nil {
		return httptransport.AccountBalanceResponse{}, err
	}
	return httptransport.AccountBalanceResponse{
		Account: account,
		Balance: balance,
	}, nil
}

func (h Handler) EscrowBalanceHandler(ctx context.Context, key string) (httptransport.EscrowBalanceResponse, error) {
	balance, err := h.Treasury.EscrowBalance(ctx, key)
	if err != nil {
		return httptransport.EscrowBalanceResponse{}, err
	}
	return httptransport.EscrowBalanceResponse{
		EscrowKey: key,
		Balance:   balance,
	}, nil
}

func (h Handler) VerifyHandler(ctx context.Context) (httptransport.VerifyResponse, error) {
	err := h.Treasury.Verify(ctx)
	if errors.Is(err, domainerrors.ErrConservationViolated) {
		return httptransport.VerifyResponse{Balanced: false}, nil
	}
	if err != nil {
		return httptransport.VerifyResponse{}, err
	}
	return httptransport.VerifyResponse{Balanced: true}, nil
}
