package table

import "github.com/cardtable/blackjack-go/internal/cards"

// HandID names one of the up-to-two hands a player may hold.
type HandID string

const (
	HandPrimary HandID = "primary"
	HandSplit   HandID = "split"
)

// PlayerStatus tracks the live state of whichever hand the player is
// currently acting on.
type PlayerStatus string

const (
	PlayerPlaying   PlayerStatus = "playing"
	PlayerStand     PlayerStatus = "stand"
	PlayerBust      PlayerStatus = "bust"
	PlayerBlackjack PlayerStatus = "blackjack"
)

// Outcome is how a single hand finished play, before it is compared
// against the dealer. Empty while the hand is still live.
type Outcome string

const (
	OutcomeStand     Outcome = "stand"
	OutcomeBust      Outcome = "bust"
	OutcomeBlackjack Outcome = "blackjack"
)

// Result is the settled per-hand result, recorded once the dealer has
// resolved, independent of the live player status.
type Result string

const (
	ResultWin       Result = "win"
	ResultLose      Result = "lose"
	ResultPush      Result = "push"
	ResultBlackjack Result = "blackjack"
	ResultBust      Result = "bust"
)

// Hand is an ordered sequence of cards plus its play outcome and, after
// settlement, its result.
type Hand struct {
	Cards   []cards.Card
	Outcome Outcome
	Result  Result
}

// Value returns the hand's best blackjack value.
func (h *Hand) Value() int {
	return cards.HandValue(h.Cards)
}

func (h *Hand) resolved() bool {
	return h.Outcome != ""
}

// PlayerState is one seat at the table. Split is nil until a successful
// split; Active says which hand consumes the player's next action.
type PlayerState struct {
	ID      string
	Bet     int64
	Primary Hand
	Split   *Hand
	Status  PlayerStatus
	Active  HandID
}

// activeHand returns the hand the player's next action applies to.
func (p *PlayerState) activeHand() *Hand {
	if p.Active == HandSplit && p.Split != nil {
		return p.Split
	}
	return &p.Primary
}

// hands returns the player's hands in settlement order, primary first.
func (p *PlayerState) hands() []*Hand {
	hs := []*Hand{&p.Primary}
	if p.Split != nil {
		hs = append(hs, p.Split)
	}
	return hs
}
