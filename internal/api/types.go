package api

import (
	"github.com/cardtable/blackjack-go/internal/ledger"
	"github.com/cardtable/blackjack-go/internal/table"
)

// APIError is the structured error body returned by every failing request.
type APIError struct {
	Type      string                 `json:"type"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp string                 `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e APIError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeValidation    = "validation_error"
	ErrTypeInvalidParams = "invalid_params"

	// Table-related errors
	ErrTypeTableState    = "table_state_error"
	ErrTypeTableNotFound = "table_not_found"

	// Account-related errors
	ErrTypeAccountNotFound = "account_not_found"
	ErrTypeAccountConflict = "account_conflict"

	// System errors
	ErrTypeInternal = "internal_error"
	ErrTypeTimeout  = "timeout_error"
)

// --------- Requests ---------

// JoinRequest seats a player at the waiting table, creating one if needed.
type JoinRequest struct {
	PlayerID string `json:"player_id"`
	Bet      int64  `json:"bet"`
}

// StartRequest begins the round. Only the host may start.
type StartRequest struct {
	PlayerID string `json:"player_id"`
}

// ActionRequest plays one turn action: hit, stand, or split.
type ActionRequest struct {
	PlayerID string `json:"player_id"`
	Action   string `json:"action"`
}

// RegisterRequest creates a new player account.
type RegisterRequest struct {
	PlayerID string `json:"player_id"`
}

// --------- Responses ---------

// TableResponse wraps a session snapshot.
type TableResponse struct {
	Table table.SessionView `json:"table"`
}

// BalanceResponse reports a player's current balance.
type BalanceResponse struct {
	PlayerID string `json:"player_id"`
	Balance  int64  `json:"balance"`
}

// AccountResponse wraps a full account record.
type AccountResponse struct {
	Account ledger.Account `json:"account"`
}

// TransactionsResponse lists a player's history, newest first.
type TransactionsResponse struct {
	PlayerID     string               `json:"player_id"`
	Transactions []ledger.Transaction `json:"transactions"`
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
	RequestID string `json:"request_id,omitempty"`
}
