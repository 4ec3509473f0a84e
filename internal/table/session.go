package table

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cardtable/blackjack-go/internal/cards"
)

// Status is the session lifecycle state. Transitions only move forward:
// waiting → playing → finished. A waiting session may instead be removed
// by the sweeper without ever reaching playing.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Source deals cards. *cards.Shoe implements it; tests substitute a
// scripted source.
type Source interface {
	Deal() cards.Card
}

// Session is one game's full state machine: seats in join order, the
// dealer hand, the status and the turn pointer. All methods take the
// session mutex, so one mutation completes before the next begins.
type Session struct {
	mu sync.Mutex

	id     uuid.UUID
	hostID string
	shoe   Source

	status  Status
	order   []string // join order defines turn order
	players map[string]*PlayerState
	dealer  []cards.Card
	current int // index into order, -1 when nobody holds the turn

	maxPlayers   int
	createdAt    time.Time
	lastActionAt time.Time
	settlement   []HandResult

	now func() time.Time
}

// NewSession creates an empty waiting session hosted by hostID. The host
// still needs to join with a bet like any other player.
func NewSession(hostID string, shoe Source, maxPlayers int) *Session {
	s := &Session{
		id:         uuid.New(),
		hostID:     hostID,
		shoe:       shoe,
		status:     StatusWaiting,
		players:    make(map[string]*PlayerState),
		current:    -1,
		maxPlayers: maxPlayers,
		now:        time.Now,
	}
	s.createdAt = s.now()
	s.lastActionAt = s.createdAt
	return s
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// HostID returns the identity allowed to start the game.
func (s *Session) HostID() string { return s.hostID }

// AddPlayer seats a player with the given bet. Valid only while waiting.
func (s *Session) AddPlayer(id string, bet int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusWaiting {
		return ErrWrongStatus
	}
	if _, ok := s.players[id]; ok {
		return ErrDuplicatePlayer
	}
	if len(s.order) >= s.maxPlayers {
		return ErrCapacityExceeded
	}

	s.players[id] = &PlayerState{
		ID:     id,
		Bet:    bet,
		Status: PlayerPlaying,
		Active: HandPrimary,
	}
	s.order = append(s.order, id)
	return nil
}

// Start deals the opening hands and moves the session to playing. Players
// dealt a two-card 21 are marked blackjack and skipped in the turn order;
// if every player has blackjack the dealer resolves immediately and the
// session finishes without any turns.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusWaiting {
		return ErrWrongStatus
	}
	if len(s.order) == 0 {
		return ErrNotEnoughPlayers
	}

	for _, id := range s.order {
		p := s.players[id]
		p.Primary.Cards = []cards.Card{s.shoe.Deal(), s.shoe.Deal()}
		if p.Primary.Value() == 21 {
			p.Primary.Outcome = OutcomeBlackjack
			p.Status = PlayerBlackjack
		}
	}
	s.dealer = []cards.Card{s.shoe.Deal(), s.shoe.Deal()}

	s.status = StatusPlaying
	s.lastActionAt = s.now()
	s.advanceFrom(0)
	return nil
}

// Hit deals one card to the current player's active hand.
func (s *Session) Hit(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.turnHolder(playerID)
	if err != nil {
		return err
	}

	h := p.activeHand()
	h.Cards = append(h.Cards, s.shoe.Deal())
	s.lastActionAt = s.now()

	switch v := h.Value(); {
	case v > 21:
		s.resolveActiveHand(p, OutcomeBust)
	case v == 21:
		s.resolveActiveHand(p, OutcomeBlackjack)
	}
	return nil
}

// Stand finishes the current player's active hand at its current value.
func (s *Session) Stand(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.turnHolder(playerID)
	if err != nil {
		return err
	}

	s.lastActionAt = s.now()
	s.resolveActiveHand(p, OutcomeStand)
	return nil
}

// Split turns a two-card equal-rank primary hand into two hands, dealing
// one fresh card to each. Allowed once per player, before any other
// action on the hand. The player stays active on the primary hand first.
func (s *Session) Split(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.turnHolder(playerID)
	if err != nil {
		return err
	}

	if p.Split != nil || p.Active != HandPrimary ||
		len(p.Primary.Cards) != 2 ||
		p.Primary.Cards[0].Rank != p.Primary.Cards[1].Rank {
		return ErrSplitNotAllowed
	}

	second := p.Primary.Cards[1]
	p.Primary.Cards = p.Primary.Cards[:1]
	p.Split = &Hand{Cards: []cards.Card{second}}

	p.Primary.Cards = append(p.Primary.Cards, s.shoe.Deal())
	p.Split.Cards = append(p.Split.Cards, s.shoe.Deal())
	p.Active = HandPrimary
	s.lastActionAt = s.now()
	return nil
}

// CurrentPlayer returns the id holding the turn, if any.
func (s *Session) CurrentPlayer() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPlaying || s.current < 0 {
		return "", false
	}
	return s.order[s.current], true
}

// Finished reports whether the session has reached its terminal state.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusFinished
}

// Settlement returns the per-hand results computed when the session
// finished. Empty until then.
func (s *Session) Settlement() []HandResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]HandResult, len(s.settlement))
	copy(out, s.settlement)
	return out
}

// Has reports whether the player is seated at this table.
func (s *Session) Has(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.players[playerID]
	return ok
}

// WaitingSince reports how long the session has been waiting for its host
// to start, as of now. Zero for non-waiting sessions.
func (s *Session) WaitingSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusWaiting {
		return 0
	}
	return now.Sub(s.createdAt)
}

// IdleFor reports how long the current turn has gone without an action,
// as of now. Zero for non-playing sessions.
func (s *Session) IdleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPlaying {
		return 0
	}
	return now.Sub(s.lastActionAt)
}

// turnHolder validates that the session is playing and playerID holds the
// turn, returning the player's state. Callers hold s.mu.
func (s *Session) turnHolder(playerID string) (*PlayerState, error) {
	if s.status != StatusPlaying {
		return nil, ErrWrongStatus
	}
	if s.current < 0 || s.order[s.current] != playerID {
		return nil, ErrOutOfTurn
	}
	return s.players[playerID], nil
}

// resolveActiveHand records the outcome of the player's active hand. If an
// unresolved split hand remains the player keeps the turn on it; otherwise
// the player is done and the turn advances. Callers hold s.mu.
func (s *Session) resolveActiveHand(p *PlayerState, outcome Outcome) {
	h := p.activeHand()
	h.Outcome = outcome

	if p.Active == HandPrimary && p.Split != nil && !p.Split.resolved() {
		p.Active = HandSplit
		return
	}

	switch outcome {
	case OutcomeBust:
		p.Status = PlayerBust
	case OutcomeBlackjack:
		p.Status = PlayerBlackjack
	default:
		p.Status = PlayerStand
	}
	s.advanceFrom(s.current + 1)
}

// advanceFrom hands the turn to the first still-playing player at or
// after index start. With nobody left the dealer resolves and the session
// finishes. Callers hold s.mu.
func (s *Session) advanceFrom(start int) {
	for i := start; i < len(s.order); i++ {
		if s.players[s.order[i]].Status == PlayerPlaying {
			s.current = i
			s.lastActionAt = s.now()
			return
		}
	}
	s.finish()
}

// finish draws the dealer to 17+, settles every hand against the dealer
// outcome and moves the session to finished. Callers hold s.mu.
func (s *Session) finish() {
	s.current = -1

	for cards.HandValue(s.dealer) < 17 {
		s.dealer = append(s.dealer, s.shoe.Deal())
	}
	dealerTotal := cards.HandValue(s.dealer)
	dealerBust := dealerTotal > 21

	for _, id := range s.order {
		p := s.players[id]
		for i, h := range p.hands() {
			hr := resolveHand(id, handID(i), h, p.Bet, dealerTotal, dealerBust)
			hr.SessionID = s.id.String()
			h.Result = hr.Result
			s.settlement = append(s.settlement, hr)
		}
	}
	s.status = StatusFinished
}

func handID(i int) HandID {
	if i == 0 {
		return HandPrimary
	}
	return HandSplit
}
