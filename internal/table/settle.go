package table

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Ledger is the engine's view of the account store. DebitCredit must be
// idempotent per key: a retried write whose first attempt landed but lost
// its acknowledgment records nothing the second time.
type Ledger interface {
	GetBalance(ctx context.Context, playerID string) (int64, error)
	DebitCredit(ctx context.Context, playerID string, delta int64, resultTag, idemKey string) error
	PlayerExists(ctx context.Context, playerID string) (bool, error)
}

// Payout multipliers per the house rules: blackjack pays 3:2, a plain win
// pays 1:1, a push returns the bet.
var (
	multBlackjack = decimal.NewFromFloat(2.5)
	multWin       = decimal.NewFromInt(2)
	multPush      = decimal.NewFromInt(1)
	multLose      = decimal.Zero
)

// HandResult is one hand's settled outcome: the bet, the payout and the
// net ledger delta. A split player produces two of these.
type HandResult struct {
	SessionID  string          `json:"session_id"`
	PlayerID   string          `json:"player_id"`
	Hand       HandID          `json:"hand"`
	Bet        int64           `json:"bet"`
	Result     Result          `json:"result"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     int64           `json:"payout"`
	Delta      int64           `json:"delta"`
}

// resolveHand compares one finished hand against the dealer outcome.
// Bust always loses, blackjack always pays 2.5x, a stand is decided by
// the dealer total unless the dealer busted.
func resolveHand(playerID string, hand HandID, h *Hand, bet int64, dealerTotal int, dealerBust bool) HandResult {
	var result Result
	var mult decimal.Decimal

	switch h.Outcome {
	case OutcomeBust:
		result, mult = ResultBust, multLose
	case OutcomeBlackjack:
		result, mult = ResultBlackjack, multBlackjack
	default:
		hv := h.Value()
		switch {
		case dealerBust || dealerTotal < hv:
			result, mult = ResultWin, multWin
		case dealerTotal == hv:
			result, mult = ResultPush, multPush
		default:
			result, mult = ResultLose, multLose
		}
	}

	payout := decimal.NewFromInt(bet).Mul(mult).Floor().IntPart()
	return HandResult{
		PlayerID:   playerID,
		Hand:       hand,
		Bet:        bet,
		Result:     result,
		Multiplier: mult,
		Payout:     payout,
		Delta:      payout - bet,
	}
}

// idemKey uniquely names this hand's settlement write, so a retried
// ledger call cannot record it twice.
func (hr HandResult) idemKey() string {
	return fmt.Sprintf("%s:%s:%s", hr.SessionID, hr.PlayerID, hr.Hand)
}

// Settler pushes a finished session's hand results to the ledger, one
// transaction per hand. Each write is retried with capped backoff; a hand
// that still fails is reported but does not block the remaining hands.
type Settler struct {
	ledger     Ledger
	logger     *log.Logger
	maxRetries uint64
	backoff    time.Duration
}

// NewSettler returns a settler writing through the given ledger.
func NewSettler(ledger Ledger, logger *log.Logger) *Settler {
	return &Settler{
		ledger:     ledger,
		logger:     logger,
		maxRetries: 3,
		backoff:    100 * time.Millisecond,
	}
}

// Settle records every hand result as an independent ledger transaction.
// The returned error aggregates any hands that could not be recorded.
func (st *Settler) Settle(ctx context.Context, results []HandResult) error {
	var errs error
	for _, hr := range results {
		b := retry.WithMaxRetries(st.maxRetries, retry.NewConstant(st.backoff))
		err := retry.Do(ctx, b, func(ctx context.Context) error {
			if err := st.ledger.DebitCredit(ctx, hr.PlayerID, hr.Delta, string(hr.Result), hr.idemKey()); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("settle %s hand of %s: %w", hr.Hand, hr.PlayerID, err))
			continue
		}
		st.logger.Printf("settled player=%s hand=%s result=%s bet=%d delta=%+d",
			hr.PlayerID, hr.Hand, hr.Result, hr.Bet, hr.Delta)
	}
	return errs
}
