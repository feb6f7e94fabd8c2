package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	stakingservice "delphi/contexts/finance-core/staking-service"
	treasuryservice "delphi/contexts/finance-core/treasury-service"
	governanceservice "delphi/contexts/internal-ops/governance-service"
	votingengine "delphi/contexts/market-core/voting-engine"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "delphi/internal/platform/httpserver/docs"
)

type Server struct {
	mux        *http.ServeMux
	logger     *slog.Logger
	addr       string
	markets    votingengine.Module
	treasury   treasuryservice.Module
	staking    stakingservice.Module
	governance governanceservice.Module
}

func New(
	markets votingengine.Module,
	treasury treasuryservice.Module,
	staking stakingservice.Module,
	governance governanceservice.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:        http.NewServeMux(),
		logger:     logger,
		addr:       addr,
		markets:    markets,
		treasury:   treasury,
		staking:    staking,
		governance: governance,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.handle("POST /v1/markets", s.handleCreateEvent)
	s.handle("GET /v1/markets/{event_id}", s.handleEventDetails)
	s.handle("GET /v1/markets/{event_id}/tally", s.handleTally)
	s.handle("GET /v1/markets/{event_id}/voters/{voter}", s.handleVoterStatus)
	s.handle("POST /v1/markets/{event_id}/commitments", s.handlePlaceCommitment)
	s.handle("POST /v1/markets/{event_id}/reveals", s.handleRevealVote)
	s.handle("POST /v1/markets/{event_id}/resolve", s.handleResolveEvent)
	s.handle("POST /v1/markets/{event_id}/cancel", s.handleCancelEvent)
	s.handle("GET /v1/creators/{creator}/markets", s.handleCreatorEvents)

	s.handle("GET /v1/treasury/balances", s.handleTreasuryBalances)
	s.handle("GET /v1/treasury/verify", s.handleTreasuryVerify)
	s.handle("GET /v1/treasury/accounts/{account}", s.handleAccountBalance)
	s.handle("GET /v1/treasury/escrows/{escrow_key}", s.handleEscrowBalance)
	s.handle("POST /v1/treasury/accounts/credit", s.handleCreditAccount)
	s.handle("POST /v1/treasury/accounts/debit", s.handleDebitAccount)
	s.handle("POST /v1/treasury/pools/deposit", s.handleDepositToPool)
	s.handle("POST /v1/treasury/pools/withdraw", s.handleWithdrawFromPool)
	s.handle("POST /v1/treasury/pools/transfer", s.handleTransferBetweenPools)

	s.handle("POST /v1/staking/pools", s.handleCreatePool)
	s.handle("GET /v1/staking/pools/{pool_id}", s.handlePoolDetails)
	s.handle("GET /v1/staking/pools/{pool_id}/positions/{staker}", s.handlePosition)
	s.handle("GET /v1/staking/pools/{pool_id}/positions/{staker}/projection", s.handleProjectedReward)
	s.handle("POST /v1/staking/stake", s.handleStake)
	s.handle("POST /v1/staking/pools/{pool_id}/unstake", s.handleUnstake)
	s.handle("POST /v1/staking/pools/{pool_id}/request-withdrawal", s.handleRequestWithdrawal)
	s.handle("POST /v1/staking/pools/{pool_id}/rewards", s.handleDistributeReward)
	s.handle("GET /v1/creators/{creator}/staking-pools", s.handleCreatorPools)

	s.handle("POST /v1/governance/council", s.handleInitializeCouncil)
	s.handle("GET /v1/governance/council", s.handleCouncil)
	s.handle("POST /v1/governance/operations", s.handlePropose)
	s.handle("GET /v1/governance/operations", s.handlePendingOperations)
	s.handle("GET /v1/governance/operations/{operation_id}", s.handleOperationDetail)
	s.handle("POST /v1/governance/operations/{operation_id}/approve", s.handleApprove)
}

func (s *Server) handle(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, instrument(pattern, handler))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// requireUser resolves the caller identity from the X-User-Id header and
// writes a 401 when it is missing.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", "X-User-Id header is required")
		return "", false
	}
	return userID, true
}
