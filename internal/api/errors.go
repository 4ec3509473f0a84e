package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/cardtable/blackjack-go/internal/ledger"
	"github.com/cardtable/blackjack-go/internal/table"
)

// ErrorHandler provides centralized error handling with logging
type ErrorHandler struct {
	logger *log.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *log.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// newAPIError builds a structured error carrying the request id.
func newAPIError(r *http.Request, errType, message string) APIError {
	return APIError{
		Type:      errType,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// HandleDomainError maps table and ledger errors to HTTP responses.
func (eh *ErrorHandler) HandleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var errType string

	switch {
	case table.IsValidation(err):
		status, errType = http.StatusBadRequest, ErrTypeValidation
	case table.IsState(err):
		status, errType = http.StatusConflict, ErrTypeTableState
	case table.IsNotFound(err):
		status, errType = http.StatusNotFound, ErrTypeTableNotFound
	case errors.Is(err, ledger.ErrNoAccount):
		status, errType = http.StatusNotFound, ErrTypeAccountNotFound
	case errors.Is(err, ledger.ErrAccountExists), errors.Is(err, ledger.ErrBonusCooldown):
		status, errType = http.StatusConflict, ErrTypeAccountConflict
	default:
		eh.logger.Printf("internal_error request_id=%s path=%s err=%v",
			middleware.GetReqID(r.Context()), r.URL.Path, err)
		status, errType = http.StatusInternalServerError, ErrTypeInternal
		err = errors.New("internal server error")
	}

	eh.writeErrorResponse(w, status, newAPIError(r, errType, err.Error()))
}

// HandleValidationError handles request-shape validation failures.
func (eh *ErrorHandler) HandleValidationError(w http.ResponseWriter, r *http.Request, field, message string) {
	apiErr := newAPIError(r, ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message))
	apiErr.Context = map[string]interface{}{"field": field}
	eh.writeErrorResponse(w, http.StatusBadRequest, apiErr)
}

// RecoveryHandler provides panic recovery with structured error logging
func (eh *ErrorHandler) RecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				requestID := middleware.GetReqID(r.Context())
				eh.logger.Printf(
					"panic_recovered request_id=%s path=%s method=%s panic=%v",
					requestID, r.URL.Path, r.Method, rvr,
				)
				apiErr := newAPIError(r, ErrTypeInternal, "Internal server error")
				apiErr.Context = map[string]interface{}{"panic": fmt.Sprintf("%v", rvr)}
				eh.writeErrorResponse(w, http.StatusInternalServerError, apiErr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, status int, apiErr APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		eh.logger.Printf("error_response_encode_failed err=%v", err)
	}
}
