package table

import (
	"time"

	"github.com/cardtable/blackjack-go/internal/cards"
)

// SessionView is a serializable snapshot of a session, safe to hand to
// the transport. While the session is playing only the dealer's first
// card is visible; once finished the full dealer hand and the settlement
// summary are included.
type SessionView struct {
	SessionID   string       `json:"session_id"`
	HostID      string       `json:"host_id"`
	Status      Status       `json:"status"`
	Dealer      DealerView   `json:"dealer"`
	Players     []PlayerView `json:"players"`
	CurrentTurn string       `json:"current_turn,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Settlement  []HandResult `json:"settlement,omitempty"`
}

// DealerView shows either the dealer's up card or the resolved hand.
type DealerView struct {
	Cards      []string `json:"cards"`
	Value      int      `json:"value"`
	HoleHidden bool     `json:"hole_hidden"`
}

// PlayerView is one seat's visible state.
type PlayerView struct {
	ID     string       `json:"id"`
	Bet    int64        `json:"bet"`
	Status PlayerStatus `json:"status"`
	Active HandID       `json:"active_hand"`
	Hands  []HandView   `json:"hands"`
}

// HandView is one hand's cards, value and (after play) outcome/result.
type HandView struct {
	Hand    HandID   `json:"hand"`
	Cards   []string `json:"cards"`
	Value   int      `json:"value"`
	Outcome Outcome  `json:"outcome,omitempty"`
	Result  Result   `json:"result,omitempty"`
}

// View snapshots the session.
func (s *Session) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := SessionView{
		SessionID: s.id.String(),
		HostID:    s.hostID,
		Status:    s.status,
		Dealer:    s.dealerView(),
		CreatedAt: s.createdAt,
	}
	if s.status == StatusPlaying && s.current >= 0 {
		v.CurrentTurn = s.order[s.current]
	}
	if s.status == StatusFinished {
		v.Settlement = make([]HandResult, len(s.settlement))
		copy(v.Settlement, s.settlement)
	}

	for _, id := range s.order {
		p := s.players[id]
		pv := PlayerView{
			ID:     p.ID,
			Bet:    p.Bet,
			Status: p.Status,
			Active: p.Active,
		}
		for i, h := range p.hands() {
			pv.Hands = append(pv.Hands, HandView{
				Hand:    handID(i),
				Cards:   cardStrings(h.Cards),
				Value:   h.Value(),
				Outcome: h.Outcome,
				Result:  h.Result,
			})
		}
		v.Players = append(v.Players, pv)
	}
	return v
}

// dealerView hides the hole card while turn-taking is in progress.
// Callers hold s.mu.
func (s *Session) dealerView() DealerView {
	if len(s.dealer) == 0 {
		return DealerView{}
	}
	if s.status == StatusPlaying {
		up := s.dealer[0]
		return DealerView{
			Cards:      []string{up.String()},
			Value:      cards.HandValue([]cards.Card{up}),
			HoleHidden: true,
		}
	}
	return DealerView{
		Cards: cardStrings(s.dealer),
		Value: cards.HandValue(s.dealer),
	}
}

func cardStrings(cs []cards.Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}
