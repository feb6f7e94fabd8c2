package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PoolOperationRequest struct {
	Pool   string `json:"pool"`
	Amount int64  `json:"amount"`
}

type PoolTransferRequest struct {
	FromPool string `json:"from_pool"`
	ToPool   string `json:"to_pool"`
	Amount   int64  `json:"amount"`
}

type AccountOperationRequest struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

type BalancesResponse struct {
	Pools            map[string]int64 `json:"pools"`
	Escrows          map[string]int64 `json:"escrows"`
	TotalDeposits    int64            `json:"total_deposits"`
	TotalWithdrawals int64            `json:"total_withdrawals"`
}

type AccountBalanceResponse struct {
	Account string `json:"account"`
	Balance int64  `json:"balance"`
}

type EscrowBalanceResponse struct {
	EscrowKey string `json:"escrow_key"`
	Balance   int64  `json:"balance"`
}

type VerifyResponse struct {
	Balanced bool `json:"balanced"`
}
