// Package api exposes the table registry and the ledger over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cardtable/blackjack-go/internal/ledger"
	"github.com/cardtable/blackjack-go/internal/table"
)

// Accounts is the ledger surface the API needs beyond what the table
// registry already holds.
type Accounts interface {
	Register(ctx context.Context, playerID string) (ledger.Account, error)
	GetBalance(ctx context.Context, playerID string) (int64, error)
	ClaimDailyBonus(ctx context.Context, playerID string) (ledger.Account, error)
	Transactions(ctx context.Context, playerID string, limit int) ([]ledger.Transaction, error)
}

// Server handles HTTP requests
type Server struct {
	registry     *table.Registry
	accounts     Accounts
	errorHandler *ErrorHandler
	logger       *log.Logger
	startTime    time.Time
}

// NewServer creates a new API server
func NewServer(registry *table.Registry, accounts Accounts) *Server {
	logger := log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)
	return &Server{
		registry:     registry,
		accounts:     accounts,
		errorHandler: NewErrorHandler(logger),
		logger:       logger,
		startTime:    time.Now(),
	}
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tables", func(r chi.Router) {
			r.Post("/join", s.handleJoin)
			r.Post("/start", s.handleStart)
			r.Post("/action", s.handleAction)
			r.Get("/{playerID}", s.handleGetTable)
		})
		r.Route("/players", func(r chi.Router) {
			r.Post("/", s.handleRegister)
			r.Get("/{playerID}/balance", s.handleBalance)
			r.Get("/{playerID}/transactions", s.handleTransactions)
			r.Post("/{playerID}/bonus", s.handleBonus)
		})
	})

	return r
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON parses the request body into dst, rejecting unknown fields.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON body")
		return false
	}
	return true
}
