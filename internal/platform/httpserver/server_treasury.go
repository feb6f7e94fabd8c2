package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	treasurydomainerrors "delphi/contexts/finance-core/treasury-service/domain/errors"
	treasuryhttp "delphi/contexts/finance-core/treasury-service/transport/http"
)

func (s *Server) handleTreasuryBalances(w http.ResponseWriter, r *http.Request) {
	resp, err := s.treasury.Handler.BalancesHandler(r.Context())
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTreasuryVerify(w http.ResponseWriter, r *http.Request) {
	resp, err := s.treasury.Handler.VerifyHandler(r.Context())
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.treasury.Handler.AccountBalanceHandler(r.Context(), r.PathValue("account"))
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEscrowBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := s.treasury.Handler.EscrowBalanceHandler(r.Context(), r.PathValue("escrow_key"))
	if err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreditAccount(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req treasuryhttp.AccountOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.treasury.Handler.CreditAccountHandler(r.Context(), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDebitAccount(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req treasuryhttp.AccountOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.treasury.Handler.DebitAccountHandler(r.Context(), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDepositToPool(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req treasuryhttp.PoolOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.treasury.Handler.DepositToPoolHandler(r.Context(), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWithdrawFromPool(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req treasuryhttp.PoolOperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.treasury.Handler.WithdrawFromPoolHandler(r.Context(), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransferBetweenPools(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req treasuryhttp.PoolTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	if err := s.treasury.Handler.TransferBetweenPoolsHandler(r.Context(), req); err != nil {
		writeTreasuryDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeTreasuryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, treasurydomainerrors.ErrInvalidAmount),
		errors.Is(err, treasurydomainerrors.ErrAccountRequired):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, treasurydomainerrors.ErrUnknownPool):
		writeError(w, http.StatusNotFound, "unknown_pool", err.Error())
	case errors.Is(err, treasurydomainerrors.ErrEscrowNotFound):
		writeError(w, http.StatusNotFound, "escrow_not_found", err.Error())
	case errors.Is(err, treasurydomainerrors.ErrInsufficientPoolBalance),
		errors.Is(err, treasurydomainerrors.ErrInsufficientAccountBalance):
		writeError(w, http.StatusConflict, "insufficient_balance", err.Error())
	case errors.Is(err, treasurydomainerrors.ErrEscrowExists):
		writeError(w, http.StatusConflict, "escrow_exists", err.Error())
	case errors.Is(err, treasurydomainerrors.ErrEscrowImbalance),
		errors.Is(err, treasurydomainerrors.ErrConservationViolated):
		writeError(w, http.StatusInternalServerError, "ledger_inconsistent", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
