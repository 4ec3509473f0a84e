package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cardtable/blackjack-go/internal/table"
)

// POST /api/v1/tables/join
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.PlayerID == "" {
		s.errorHandler.HandleValidationError(w, r, "player_id", "player_id is required")
		return
	}

	view, err := s.registry.JoinOrCreate(r.Context(), req.PlayerID, req.Bet)
	if err != nil {
		s.errorHandler.HandleDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TableResponse{Table: view})
}

// POST /api/v1/tables/start
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.PlayerID == "" {
		s.errorHandler.HandleValidationError(w, r, "player_id", "player_id is required")
		return
	}

	view, err := s.registry.StartSession(r.Context(), req.PlayerID)
	if err != nil {
		s.errorHandler.HandleDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TableResponse{Table: view})
}

// POST /api/v1/tables/action
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.PlayerID == "" {
		s.errorHandler.HandleValidationError(w, r, "player_id", "player_id is required")
		return
	}

	view, err := s.registry.Apply(r.Context(), req.PlayerID, table.Action(req.Action))
	if err != nil {
		s.errorHandler.HandleDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TableResponse{Table: view})
}

// GET /api/v1/tables/{playerID}
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	view, err := s.registry.ViewFor(playerID)
	if err != nil {
		s.errorHandler.HandleDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TableResponse{Table: view})
}

// POST /api/v1/players
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.PlayerID == "" {
		s.errorHandler.HandleValidationError(w, r, "player_id", "player_id is required")
		return
	}

	acct, err := s.accounts.Register(r.Context(), req.PlayerID)
	if err != nil {
		s.errorHandler.HandleDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, AccountResponse{Account: acct})
}

// GET /api/v1/players/{playerID}/balance
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	bal, err := s.accounts.GetBalance(r.Context(), playerID)
	if err != nil {
		s.errorHandler.HandleDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, BalanceResponse{PlayerID: playerID, Balance: bal})
}

// GET /api/v1/players/{playerID}/transactions
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			s.errorHandler.HandleValidationError(w, r, "limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	txs, err := s.accounts.Transactions(r.Context(), playerID, limit)
	if err != nil {
		s.errorHandler.HandleDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TransactionsResponse{PlayerID: playerID, Transactions: txs})
}

// POST /api/v1/players/{playerID}/bonus
func (s *Server) handleBonus(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")

	acct, err := s.accounts.ClaimDailyBonus(r.Context(), playerID)
	if err != nil {
		s.errorHandler.HandleDomainError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, AccountResponse{Account: acct})
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}
