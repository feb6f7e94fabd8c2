package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	marketdomainerrors "delphi/contexts/market-core/voting-engine/domain/errors"
	markethttp "delphi/contexts/market-core/voting-engine/transport/http"

	treasurydomainerrors "delphi/contexts/finance-core/treasury-service/domain/errors"
)

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	creator, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req markethttp.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.markets.Handler.CreateEventHandler(r.Context(), creator, req)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handlePlaceCommitment(w http.ResponseWriter, r *http.Request) {
	voter, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req markethttp.PlaceCommitmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.EventID = r.PathValue("event_id")

	resp, err := s.markets.Handler.PlaceCommitmentHandler(r.Context(), voter, req)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRevealVote(w http.ResponseWriter, r *http.Request) {
	voter, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req markethttp.RevealVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.EventID = r.PathValue("event_id")

	resp, err := s.markets.Handler.RevealVoteHandler(r.Context(), voter, req)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResolveEvent(w http.ResponseWriter, r *http.Request) {
	resolver, ok := requireUser(w, r)
	if !ok {
		return
	}

	resp, err := s.markets.Handler.ResolveEventHandler(r.Context(), resolver, r.PathValue("event_id"))
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelEvent(w http.ResponseWriter, r *http.Request) {
	canceller, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := s.markets.Handler.CancelEventHandler(r.Context(), canceller, r.PathValue("event_id")); err != nil {
		writeMarketDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEventDetails(w http.ResponseWriter, r *http.Request) {
	resp, err := s.markets.Handler.EventDetailsHandler(r.Context(), r.PathValue("event_id"))
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoterStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.markets.Handler.VoterStatusHandler(
		r.Context(),
		r.PathValue("event_id"),
		r.PathValue("voter"),
	)
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTally(w http.ResponseWriter, r *http.Request) {
	resp, err := s.markets.Handler.TallyHandler(r.Context(), r.PathValue("event_id"))
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatorEvents(w http.ResponseWriter, r *http.Request) {
	resp, err := s.markets.Handler.CreatorEventsHandler(r.Context(), r.PathValue("creator"))
	if err != nil {
		writeMarketDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeMarketDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, marketdomainerrors.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event_not_found", err.Error())
	case errors.Is(err, marketdomainerrors.ErrInvalidEventInput),
		errors.Is(err, marketdomainerrors.ErrMalformedDigest),
		errors.Is(err, marketdomainerrors.ErrMalformedSalt),
		errors.Is(err, marketdomainerrors.ErrMalformedNonce),
		errors.Is(err, marketdomainerrors.ErrOptionOutOfRange),
		errors.Is(err, marketdomainerrors.ErrInvalidStake):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, marketdomainerrors.ErrSystemPaused):
		writeError(w, http.StatusServiceUnavailable, "system_paused", err.Error())
	case errors.Is(err, marketdomainerrors.ErrRateLimitExceeded):
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case errors.Is(err, marketdomainerrors.ErrCommitPhaseClosed),
		errors.Is(err, marketdomainerrors.ErrCommitPhaseOpen),
		errors.Is(err, marketdomainerrors.ErrRevealPhaseClosed),
		errors.Is(err, marketdomainerrors.ErrVotingNotEnded):
		writeError(w, http.StatusConflict, "phase_conflict", err.Error())
	case errors.Is(err, marketdomainerrors.ErrAlreadyCommitted):
		writeError(w, http.StatusConflict, "already_committed", err.Error())
	case errors.Is(err, marketdomainerrors.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "already_resolved", err.Error())
	case errors.Is(err, marketdomainerrors.ErrNotCommitted):
		writeError(w, http.StatusConflict, "no_commitment", err.Error())
	case errors.Is(err, marketdomainerrors.ErrInvalidReveal):
		writeError(w, http.StatusUnprocessableEntity, "invalid_reveal", err.Error())
	case errors.Is(err, marketdomainerrors.ErrInsufficientParticipants):
		writeError(w, http.StatusConflict, "insufficient_participants", err.Error())
	case errors.Is(err, marketdomainerrors.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not_authorized", err.Error())
	case errors.Is(err, treasurydomainerrors.ErrInsufficientAccountBalance):
		writeError(w, http.StatusConflict, "insufficient_balance", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
