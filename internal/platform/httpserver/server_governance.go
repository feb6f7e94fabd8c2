package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	governancedomainerrors "delphi/contexts/internal-ops/governance-service/domain/errors"
	governancehttp "delphi/contexts/internal-ops/governance-service/transport/http"
)

func (s *Server) handleInitializeCouncil(w http.ResponseWriter, r *http.Request) {
	admin, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req governancehttp.InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.governance.Handler.InitializeHandler(r.Context(), admin, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCouncil(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.CouncilHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePropose(w http.ResponseWriter, r *http.Request) {
	proposer, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req governancehttp.ProposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.governance.Handler.ProposeHandler(r.Context(), proposer, req)
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handlePendingOperations(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.PendingOperationsHandler(r.Context())
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOperationDetail(w http.ResponseWriter, r *http.Request) {
	resp, err := s.governance.Handler.OperationDetailHandler(r.Context(), r.PathValue("operation_id"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	approver, ok := requireUser(w, r)
	if !ok {
		return
	}

	resp, err := s.governance.Handler.ApproveHandler(r.Context(), approver, r.PathValue("operation_id"))
	if err != nil {
		writeGovernanceDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeGovernanceDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, governancedomainerrors.ErrNotInitialized):
		writeError(w, http.StatusConflict, "council_not_initialized", err.Error())
	case errors.Is(err, governancedomainerrors.ErrInvalidCouncil),
		errors.Is(err, governancedomainerrors.ErrInvalidOperation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, governancedomainerrors.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, governancedomainerrors.ErrTooManyPending):
		writeError(w, http.StatusTooManyRequests, "too_many_pending", err.Error())
	case errors.Is(err, governancedomainerrors.ErrOperationNotFound):
		writeError(w, http.StatusNotFound, "operation_not_found", err.Error())
	case errors.Is(err, governancedomainerrors.ErrOperationExpired):
		writeError(w, http.StatusGone, "operation_expired", err.Error())
	case errors.Is(err, governancedomainerrors.ErrAlreadyApproved):
		writeError(w, http.StatusConflict, "already_approved", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
