package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	stakingdomainerrors "delphi/contexts/finance-core/staking-service/domain/errors"
	stakinghttp "delphi/contexts/finance-core/staking-service/transport/http"
)

func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	creator, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req stakinghttp.CreatePoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.staking.Handler.CreatePoolHandler(r.Context(), creator, req)
	if err != nil {
		writeStakingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request) {
	staker, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req stakinghttp.StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.staking.Handler.StakeHandler(r.Context(), staker, req)
	if err != nil {
		writeStakingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	staker, ok := requireUser(w, r)
	if !ok {
		return
	}

	resp, err := s.staking.Handler.UnstakeHandler(r.Context(), staker, r.PathValue("pool_id"))
	if err != nil {
		writeStakingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	staker, ok := requireUser(w, r)
	if !ok {
		return
	}

	resp, err := s.staking.Handler.RequestWithdrawalHandler(r.Context(), staker, r.PathValue("pool_id"))
	if err != nil {
		writeStakingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDistributeReward(w http.ResponseWriter, r *http.Request) {
	caller, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req stakinghttp.DistributeRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.PoolID = r.PathValue("pool_id")

	resp, err := s.staking.Handler.DistributeRewardHandler(r.Context(), caller, req)
	if err != nil {
		writeStakingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePoolDetails(w http.ResponseWriter, r *http.Request) {
	resp, err := s.staking.Handler.PoolDetailsHandler(r.Context(), r.PathValue("pool_id"))
	if err != nil {
		writeStakingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	resp, err := s.staking.Handler.PositionHandler(
		r.Context(),
		r.PathValue("pool_id"),
		r.PathValue("staker"),
	)
	if err != nil {
		writeStakingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProjectedReward(w http.ResponseWriter, r *http.Request) {
	resp, err := s.staking.Handler.ProjectedRewardHandler(
		r.Context(),
		r.PathValue("pool_id"),
		r.PathValue("staker"),
	)
	if err != nil {
		writeStakingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatorPools(w http.ResponseWriter, r *http.Request) {
	resp, err := s.staking.Handler.CreatorPoolsHandler(r.Context(), r.PathValue("creator"))
	if err != nil {
		writeStakingDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeStakingDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stakingdomainerrors.ErrInvalidPoolInput),
		errors.Is(err, stakingdomainerrors.ErrInvalidStake):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, stakingdomainerrors.ErrPoolNotFound):
		writeError(w, http.StatusNotFound, "pool_not_found", err.Error())
	case errors.Is(err, stakingdomainerrors.ErrPositionNotFound):
		writeError(w, http.StatusNotFound, "position_not_found", err.Error())
	case errors.Is(err, stakingdomainerrors.ErrPoolInactive):
		writeError(w, http.StatusConflict, "pool_inactive", err.Error())
	case errors.Is(err, stakingdomainerrors.ErrAlreadyStaked):
		writeError(w, http.StatusConflict, "already_staked", err.Error())
	case errors.Is(err, stakingdomainerrors.ErrPoolCapExceeded),
		errors.Is(err, stakingdomainerrors.ErrDailyLimitExceeded):
		writeError(w, http.StatusConflict, "stake_limit_exceeded", err.Error())
	case errors.Is(err, stakingdomainerrors.ErrRateLimitExceeded):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case errors.Is(err, stakingdomainerrors.ErrSystemPaused):
		writeError(w, http.StatusServiceUnavailable, "system_paused", err.Error())
	case errors.Is(err, stakingdomainerrors.ErrInsufficientTreasury):
		writeError(w, http.StatusConflict, "insufficient_treasury", err.Error())
	case errors.Is(err, stakingdomainerrors.ErrNothingToDistribute):
		writeError(w, http.StatusConflict, "nothing_to_distribute", err.Error())
	case errors.Is(err, stakingdomainerrors.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not_authorized", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
