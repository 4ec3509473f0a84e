package table

import (
	"context"
	"log"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/cardtable/blackjack-go/internal/cards"
)

// Action is a turn move a seated player can make.
type Action string

const (
	ActionHit   Action = "hit"
	ActionStand Action = "stand"
	ActionSplit Action = "split"
)

// Config carries the table limits and sweeper deadlines.
type Config struct {
	MaxPlayers    int
	MinBet        int64
	MaxBet        int64
	TurnTimeout   time.Duration
	WaitingTTL    time.Duration
	SweepInterval time.Duration

	// NewShoe overrides the card source for new sessions. Nil means a
	// freshly shuffled shoe per session.
	NewShoe func() Source
}

// DefaultConfig returns the house defaults: 30s per turn, 5 minute
// waiting expiry, bets between 10 and 1,000,000.
func DefaultConfig() Config {
	return Config{
		MaxPlayers:    6,
		MinBet:        10,
		MaxBet:        1_000_000,
		TurnTimeout:   30 * time.Second,
		WaitingTTL:    5 * time.Minute,
		SweepInterval: 5 * time.Second,
	}
}

// Registry owns every live session, keyed by host identity, and the set
// of hosts whose session is still waiting for players. It enforces the
// one-session-per-host and one-session-per-player invariants.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	waiting  map[string]struct{}

	cfg     Config
	ledger  Ledger
	settler *Settler
	logger  *log.Logger

	newShoe func() Source

	// onExpire, when set, is told about waiting sessions the sweeper
	// removed so the transport can notify the table.
	onExpire func(hostID string)
}

// NewRegistry creates an empty registry settling through the given ledger.
func NewRegistry(cfg Config, ledger Ledger, logger *log.Logger) *Registry {
	if cfg.NewShoe == nil {
		cfg.NewShoe = func() Source { return cards.NewShoe() }
	}
	return &Registry{
		sessions: make(map[string]*Session),
		waiting:  make(map[string]struct{}),
		cfg:      cfg,
		ledger:   ledger,
		settler:  NewSettler(ledger, logger),
		logger:   logger,
		newShoe:  cfg.NewShoe,
	}
}

// OnExpire registers the waiting-session expiry notification hook.
func (r *Registry) OnExpire(fn func(hostID string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = fn
}

// Create opens a new waiting session hosted (and joined) by hostID.
func (r *Registry) Create(ctx context.Context, hostID string, bet int64) (SessionView, error) {
	if err := r.checkJoin(ctx, hostID, bet); err != nil {
		return SessionView{}, err
	}

	r.mu.Lock()
	if _, ok := r.sessions[hostID]; ok {
		r.mu.Unlock()
		return SessionView{}, ErrHostAlreadyHosting
	}
	if r.sessionForLocked(hostID) != nil {
		r.mu.Unlock()
		return SessionView{}, ErrAlreadyInSession
	}
	// Seat the host before the session is published, so the registry
	// never holds an empty table.
	sess := NewSession(hostID, r.newShoe(), r.cfg.MaxPlayers)
	if err := sess.AddPlayer(hostID, bet); err != nil {
		r.mu.Unlock()
		return SessionView{}, err
	}
	r.sessions[hostID] = sess
	r.waiting[hostID] = struct{}{}
	r.mu.Unlock()
	r.logger.Printf("session created host=%s bet=%d", hostID, bet)
	return sess.View(), nil
}

// JoinOrCreate seats the player at the waiting session if one exists,
// otherwise opens a new session hosted by the player.
func (r *Registry) JoinOrCreate(ctx context.Context, playerID string, bet int64) (SessionView, error) {
	if err := r.checkJoin(ctx, playerID, bet); err != nil {
		return SessionView{}, err
	}

	r.mu.Lock()
	if r.sessionForLocked(playerID) != nil {
		r.mu.Unlock()
		return SessionView{}, ErrAlreadyInSession
	}
	sess := r.oldestWaitingLocked()
	if sess == nil {
		r.mu.Unlock()
		return r.Create(ctx, playerID, bet)
	}
	// Seat while still holding the registry lock so a concurrent sweep
	// cannot remove the session between lookup and seating.
	err := sess.AddPlayer(playerID, bet)
	r.mu.Unlock()
	if err != nil {
		return SessionView{}, err
	}
	r.logger.Printf("player joined host=%s player=%s bet=%d", sess.HostID(), playerID, bet)
	return sess.View(), nil
}

// StartSession deals the opening hands of the host's session. A session
// in which every player is dealt blackjack finishes and settles at once.
func (r *Registry) StartSession(ctx context.Context, hostID string) (SessionView, error) {
	r.mu.Lock()
	sess, ok := r.sessions[hostID]
	r.mu.Unlock()
	if !ok {
		return SessionView{}, ErrNoSession
	}

	if err := sess.Start(); err != nil {
		return SessionView{}, err
	}

	r.mu.Lock()
	delete(r.waiting, hostID)
	r.mu.Unlock()

	view := sess.View()
	r.finishIfDone(ctx, sess)
	return view, nil
}

// Apply routes a turn action to the player's session. When the action
// concludes the game the session is settled and removed.
func (r *Registry) Apply(ctx context.Context, playerID string, action Action) (SessionView, error) {
	r.mu.Lock()
	sess := r.sessionForLocked(playerID)
	r.mu.Unlock()
	if sess == nil {
		return SessionView{}, ErrNoSession
	}

	var err error
	switch action {
	case ActionHit:
		err = sess.Hit(playerID)
	case ActionStand:
		err = sess.Stand(playerID)
	case ActionSplit:
		err = sess.Split(playerID)
	default:
		err = ErrUnknownAction
	}
	if err != nil {
		return SessionView{}, err
	}

	view := sess.View()
	r.finishIfDone(ctx, sess)
	return view, nil
}

// ViewFor snapshots the session the player is seated at.
func (r *Registry) ViewFor(playerID string) (SessionView, error) {
	r.mu.Lock()
	sess := r.sessionForLocked(playerID)
	r.mu.Unlock()
	if sess == nil {
		return SessionView{}, ErrNoSession
	}
	return sess.View(), nil
}

// Remove drops the host's session, whatever its state.
func (r *Registry) Remove(hostID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, hostID)
	delete(r.waiting, hostID)
}

// Sweep enforces the turn budget on playing sessions and the waiting TTL
// on sessions whose host never started. Called periodically by the
// Sweeper; any forced stands go through the same mutation path as player
// actions.
func (r *Registry) Sweep(ctx context.Context, now time.Time) error {
	r.mu.Lock()
	live := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		live = append(live, sess)
	}
	r.mu.Unlock()

	var errs error
	for _, sess := range live {
		switch {
		case sess.WaitingSince(now) > r.cfg.WaitingTTL:
			r.Remove(sess.HostID())
			r.notifyExpired(sess.HostID())
			r.logger.Printf("waiting session expired host=%s", sess.HostID())

		case sess.IdleFor(now) > r.cfg.TurnTimeout:
			id, ok := sess.CurrentPlayer()
			if !ok {
				continue
			}
			if err := sess.Stand(id); err != nil {
				// Turn moved between the check and the stand; nothing to force.
				continue
			}
			r.logger.Printf("turn timeout host=%s player=%s auto-stand", sess.HostID(), id)
			errs = multierr.Append(errs, r.finishIfDone(ctx, sess))
		}
	}
	return errs
}

// finishIfDone settles and removes a session that has reached finished.
// Settlement failures are reported but the session is destroyed either
// way; its concluded results are already immutable.
func (r *Registry) finishIfDone(ctx context.Context, sess *Session) error {
	if !sess.Finished() {
		return nil
	}
	err := r.settler.Settle(ctx, sess.Settlement())
	if err != nil {
		r.logger.Printf("settlement incomplete host=%s: %v", sess.HostID(), err)
	}
	r.Remove(sess.HostID())
	return err
}

// checkJoin validates the bet bounds and the player's standing with the
// ledger before any session state is touched.
func (r *Registry) checkJoin(ctx context.Context, playerID string, bet int64) error {
	if bet < r.cfg.MinBet || bet > r.cfg.MaxBet {
		return ErrBetOutOfRange
	}
	exists, err := r.ledger.PlayerExists(ctx, playerID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUnknownPlayer
	}
	balance, err := r.ledger.GetBalance(ctx, playerID)
	if err != nil {
		return err
	}
	if balance < bet {
		return ErrInsufficientBalance
	}
	return nil
}

// sessionForLocked finds the session seating playerID, pruning any
// finished session left behind by an earlier failed settlement. Callers
// hold r.mu.
func (r *Registry) sessionForLocked(playerID string) *Session {
	for hostID, sess := range r.sessions {
		if sess.Finished() {
			delete(r.sessions, hostID)
			delete(r.waiting, hostID)
			continue
		}
		if sess.Has(playerID) {
			return sess
		}
	}
	return nil
}

// oldestWaitingLocked returns the longest-waiting open session, if any.
// Callers hold r.mu.
func (r *Registry) oldestWaitingLocked() *Session {
	var oldest *Session
	for hostID := range r.waiting {
		sess, ok := r.sessions[hostID]
		if !ok {
			delete(r.waiting, hostID)
			continue
		}
		if oldest == nil || sess.createdAt.Before(oldest.createdAt) {
			oldest = sess
		}
	}
	return oldest
}

func (r *Registry) notifyExpired(hostID string) {
	r.mu.Lock()
	fn := r.onExpire
	r.mu.Unlock()
	if fn != nil {
		fn(hostID)
	}
}
